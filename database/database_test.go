package database

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/saiganesh141124/flora-intel/apperrors"
	"github.com/saiganesh141124/flora-intel/models"
)

func testRecord(t *testing.T) *models.AnalysisRecord {
	t.Helper()
	return &models.AnalysisRecord{
		ID:          "8c9f3a10-0000-4000-8000-000000000001",
		PrincipalID: "user-1",
		ImageURL:    "http://minio.local/plant-images/user-1/1725000000000.jpg",
		Result: models.AnalysisResult{
			HealthScore:          92,
			Status:               models.StatusHealthy,
			PathogenType:         models.PathogenNone,
			Confidence:           88,
			MicroscopicAnalysis:  "No pathogen indicators.",
			VisibleSymptoms:      []string{},
			AffectedAreas:        []string{},
			Recommendations:      []string{"Keep watering"},
			PreventiveMeasures:   []string{"Weekly inspection"},
			EcoFriendlyTreats:    []string{},
			EstimatedProgression: "Stable",
		},
		Severity:  models.StatusHealthy,
		CreatedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestSaveAnalysis(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	record := testRecord(t)
	resultJSON, _ := json.Marshal(record.Result)

	mock.ExpectExec("INSERT INTO plant_analyses").
		WithArgs(record.ID, record.PrincipalID, record.ImageURL, resultJSON, "healthy", record.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	d := NewWithDB(db)
	if err := d.SaveAnalysis(context.Background(), record); err != nil {
		t.Errorf("SaveAnalysis() unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestSaveAnalysisMapsToPersistenceError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO plant_analyses").
		WillReturnError(errors.New("table is full"))

	d := NewWithDB(db)
	err = d.SaveAnalysis(context.Background(), testRecord(t))
	if !errors.Is(err, apperrors.ErrPersistence) {
		t.Errorf("SaveAnalysis() error kind = %q, want %q", apperrors.KindOf(err), apperrors.KindPersistence)
	}
}

func TestListAnalysesOrdering(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	record := testRecord(t)
	resultJSON, _ := json.Marshal(record.Result)

	rows := sqlmock.NewRows([]string{"id", "principal_id", "image_url", "analysis_result", "severity", "created_at"}).
		AddRow("id-b", "user-1", record.ImageURL, resultJSON, "healthy", time.Date(2026, 8, 30, 13, 0, 0, 0, time.UTC)).
		AddRow("id-a", "user-1", record.ImageURL, resultJSON, "moderate", time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))

	mock.ExpectQuery("SELECT (.+) FROM plant_analyses").
		WithArgs("user-1").
		WillReturnRows(rows)

	d := NewWithDB(db)
	records, err := d.ListAnalyses(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListAnalyses() unexpected error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("ListAnalyses() returned %d records, want 2", len(records))
	}
	if records[0].ID != "id-b" || records[1].ID != "id-a" {
		t.Errorf("ListAnalyses() order = [%s, %s], want [id-b, id-a]", records[0].ID, records[1].ID)
	}
	if records[1].Severity != models.StatusModerate {
		t.Errorf("record severity = %q, want %q", records[1].Severity, models.StatusModerate)
	}
	if records[0].Result.HealthScore != 92 {
		t.Errorf("embedded result health_score = %d, want 92", records[0].Result.HealthScore)
	}
}

func TestGetAnalysisOwnership(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	record := testRecord(t)
	resultJSON, _ := json.Marshal(record.Result)

	rows := sqlmock.NewRows([]string{"id", "principal_id", "image_url", "analysis_result", "severity", "created_at"}).
		AddRow(record.ID, "someone-else", record.ImageURL, resultJSON, "healthy", record.CreatedAt)

	mock.ExpectQuery("SELECT (.+) FROM plant_analyses").
		WithArgs(record.ID).
		WillReturnRows(rows)

	d := NewWithDB(db)
	_, err = d.GetAnalysis(context.Background(), "user-1", record.ID)
	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Errorf("GetAnalysis() error kind = %q, want %q", apperrors.KindOf(err), apperrors.KindForbidden)
	}
}

func TestGetAnalysisNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM plant_analyses").
		WithArgs("missing-id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "principal_id", "image_url", "analysis_result", "severity", "created_at"}))

	d := NewWithDB(db)
	_, err = d.GetAnalysis(context.Background(), "user-1", "missing-id")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("GetAnalysis() error kind = %q, want %q", apperrors.KindOf(err), apperrors.KindNotFound)
	}
}

func TestDeleteAnalysisForbidden(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT principal_id FROM plant_analyses").
		WithArgs("rec-1").
		WillReturnRows(sqlmock.NewRows([]string{"principal_id"}).AddRow("owner-a"))

	d := NewWithDB(db)
	err = d.DeleteAnalysis(context.Background(), "intruder", "rec-1")
	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Errorf("DeleteAnalysis() error kind = %q, want %q", apperrors.KindOf(err), apperrors.KindForbidden)
	}

	// No DELETE statement may run when ownership fails.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestDeleteAnalysis(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT principal_id FROM plant_analyses").
		WithArgs("rec-1").
		WillReturnRows(sqlmock.NewRows([]string{"principal_id"}).AddRow("user-1"))
	mock.ExpectExec("DELETE FROM plant_analyses").
		WithArgs("rec-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	d := NewWithDB(db)
	if err := d.DeleteAnalysis(context.Background(), "user-1", "rec-1"); err != nil {
		t.Errorf("DeleteAnalysis() unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}
