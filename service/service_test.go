package service

import (
	"context"
	"errors"
	"testing"

	"github.com/saiganesh141124/flora-intel/apperrors"
	"github.com/saiganesh141124/flora-intel/models"
	"github.com/saiganesh141124/flora-intel/parser"
	"github.com/saiganesh141124/flora-intel/stubllm"
)

type fakeImageStore struct {
	calls int
	err   error
	url   string
}

func (f *fakeImageStore) PutImage(ctx context.Context, principalID string, imageData []byte, contentType string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.url != "" {
		return f.url, nil
	}
	return "http://minio.local/plant-images/" + principalID + "/1.jpg", nil
}

type fakeRecordStore struct {
	calls int
	err   error
	saved *models.AnalysisRecord
}

func (f *fakeRecordStore) SaveAnalysis(ctx context.Context, record *models.AnalysisRecord) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.saved = record
	return nil
}

type fakeAnnouncer struct {
	events []models.HistoryEvent
}

func (f *fakeAnnouncer) Announce(ctx context.Context, event models.HistoryEvent) {
	f.events = append(f.events, event)
}

var testImage = []byte{0xFF, 0xD8, 0xFF, 0xE0}

func TestSubmitSuccess(t *testing.T) {
	client := stubllm.New()
	client.Reply = "```json\n{\"health_score\":92,\"status\":\"healthy\",\"pathogen_type\":\"none\",\"confidence\":88,\"microscopic_analysis\":\"ok\",\"visible_symptoms\":[],\"affected_areas\":[],\"recommendations\":[],\"preventive_measures\":[],\"eco_friendly_treatments\":[],\"estimated_progression\":\"Stable\",\"urgent_action_required\":false}\n```"

	images := &fakeImageStore{}
	records := &fakeRecordStore{}
	announcer := &fakeAnnouncer{}
	svc := NewService(client, images, records, announcer)

	record, err := svc.Submit(context.Background(), "user-1", testImage, "image/jpeg")
	if err != nil {
		t.Fatalf("Submit() unexpected error: %v", err)
	}

	if record.ID == "" {
		t.Error("record has no server-assigned identifier")
	}
	if record.PrincipalID != "user-1" {
		t.Errorf("record principal = %q, want user-1", record.PrincipalID)
	}
	if record.Result.HealthScore != 92 {
		t.Errorf("health_score = %d, want 92", record.Result.HealthScore)
	}
	if record.Severity != models.StatusHealthy {
		t.Errorf("severity = %q, want healthy", record.Severity)
	}
	if record.ImageURL == "" {
		t.Error("record has no image reference")
	}
	if records.saved == nil || records.saved.ID != record.ID {
		t.Error("record was not persisted")
	}
	if len(announcer.events) != 1 || announcer.events[0].Type != models.EventRecordCreated {
		t.Errorf("announce events = %+v, want one record_created", announcer.events)
	}
	if announcer.events[0].RecordID != record.ID {
		t.Errorf("announced record id = %q, want %q", announcer.events[0].RecordID, record.ID)
	}
}

func TestSubmitProseReplyUsesFallback(t *testing.T) {
	client := stubllm.New()
	client.Reply = "I think this plant looks a bit stressed but I cannot say more."

	records := &fakeRecordStore{}
	svc := NewService(client, &fakeImageStore{}, records, &fakeAnnouncer{})

	record, err := svc.Submit(context.Background(), "user-1", testImage, "image/jpeg")
	if err != nil {
		t.Fatalf("Submit() unexpected error: %v", err)
	}

	if record.Result.DiseaseDetected != parser.FallbackDisease {
		t.Errorf("disease_detected = %q, want parse-failure sentinel", record.Result.DiseaseDetected)
	}
	if record.Result.Status != models.StatusModerate {
		t.Errorf("status = %q, want moderate", record.Result.Status)
	}
	if record.Result.MicroscopicAnalysis != client.Reply {
		t.Error("raw reply was not preserved in microscopic_analysis")
	}
	if records.saved == nil {
		t.Error("fallback analysis must still be persisted")
	}
}

func TestSubmitUnauthorizedShortCircuits(t *testing.T) {
	client := stubllm.New()
	images := &fakeImageStore{}
	records := &fakeRecordStore{}
	svc := NewService(client, images, records, &fakeAnnouncer{})

	_, err := svc.Submit(context.Background(), "  ", testImage, "image/jpeg")
	if !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("Submit() error kind = %q, want %q", apperrors.KindOf(err), apperrors.KindUnauthorized)
	}

	// Fail fast: no side effects before authorization.
	if client.Calls != 0 {
		t.Errorf("inference was dispatched %d times for unauthorized submit", client.Calls)
	}
	if images.calls != 0 || records.calls != 0 {
		t.Error("storage work was attempted for unauthorized submit")
	}
}

func TestSubmitRateLimitedAborts(t *testing.T) {
	client := stubllm.New()
	client.Err = apperrors.Newf(apperrors.KindRateLimited, "inference service rate limit exceeded")

	images := &fakeImageStore{}
	records := &fakeRecordStore{}
	announcer := &fakeAnnouncer{}
	svc := NewService(client, images, records, announcer)

	_, err := svc.Submit(context.Background(), "user-1", testImage, "image/jpeg")
	if !errors.Is(err, apperrors.ErrRateLimited) {
		t.Errorf("Submit() error kind = %q, want %q", apperrors.KindOf(err), apperrors.KindRateLimited)
	}

	if images.calls != 0 || records.calls != 0 || len(announcer.events) != 0 {
		t.Error("rate-limited submit must not upload, persist, or notify")
	}
}

func TestSubmitStorageFailureAborts(t *testing.T) {
	client := stubllm.New()
	images := &fakeImageStore{err: apperrors.Newf(apperrors.KindStorage, "bucket unavailable")}
	records := &fakeRecordStore{}
	svc := NewService(client, images, records, &fakeAnnouncer{})

	_, err := svc.Submit(context.Background(), "user-1", testImage, "image/jpeg")
	if !errors.Is(err, apperrors.ErrStorage) {
		t.Errorf("Submit() error kind = %q, want %q", apperrors.KindOf(err), apperrors.KindStorage)
	}

	// No record may reference an image that failed to persist.
	if records.calls != 0 {
		t.Error("record was written for an image that failed to upload")
	}
}

func TestSubmitPersistenceFailureSurfaced(t *testing.T) {
	client := stubllm.New()
	records := &fakeRecordStore{err: apperrors.Newf(apperrors.KindPersistence, "insert failed")}
	announcer := &fakeAnnouncer{}
	svc := NewService(client, &fakeImageStore{}, records, announcer)

	_, err := svc.Submit(context.Background(), "user-1", testImage, "image/jpeg")
	if !errors.Is(err, apperrors.ErrPersistence) {
		t.Errorf("Submit() error kind = %q, want %q", apperrors.KindOf(err), apperrors.KindPersistence)
	}
	if len(announcer.events) != 0 {
		t.Error("failed submit must not announce a change")
	}
}

func TestSubmitEmptyImageRejected(t *testing.T) {
	client := stubllm.New()
	svc := NewService(client, &fakeImageStore{}, &fakeRecordStore{}, &fakeAnnouncer{})

	_, err := svc.Submit(context.Background(), "user-1", nil, "image/jpeg")
	if err == nil {
		t.Fatal("Submit() with no image expected error but got none")
	}
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("Submit() error kind = %q, want %q", apperrors.KindOf(err), apperrors.KindInvalidInput)
	}
	if client.Calls != 0 {
		t.Error("inference was dispatched for an empty image")
	}
}
