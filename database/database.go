package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apex/log"
	_ "github.com/go-sql-driver/mysql"

	"github.com/saiganesh141124/flora-intel/apperrors"
	"github.com/saiganesh141124/flora-intel/config"
	"github.com/saiganesh141124/flora-intel/models"
)

// Database represents the database connection
type Database struct {
	db *sql.DB
}

// NewDatabase creates a new database connection
func NewDatabase(cfg *config.Config) (*Database, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection with exponential backoff retry
	var waitInterval time.Duration = 1 * time.Second
	for i := 0; i < 8; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		log.Warnf("Database connection failed, retrying in %v: %v", waitInterval, err)
		time.Sleep(waitInterval)
		waitInterval *= 2
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Database{db: db}, nil
}

// NewWithDB wraps an existing connection; used by tests.
func NewWithDB(db *sql.DB) *Database {
	return &Database{db: db}
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// DB returns the underlying sql.DB for direct queries
func (d *Database) DB() *sql.DB {
	return d.db
}

// CreatePlantAnalysesTable creates the plant_analyses table if it doesn't exist
func (d *Database) CreatePlantAnalysesTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS plant_analyses (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		principal_id VARCHAR(255) NOT NULL,
		image_url TEXT NOT NULL,
		analysis_result JSON NOT NULL,
		severity ENUM('healthy', 'mild', 'moderate', 'severe', 'critical') NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_plant_analyses_principal (principal_id),
		INDEX idx_plant_analyses_severity (severity),
		INDEX idx_plant_analyses_created_at (created_at)
	)`

	_, err := d.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create plant_analyses table: %w", err)
	}

	log.Info("plant_analyses table created/verified successfully")
	return nil
}

// SaveAnalysis inserts a new analysis record. Records are immutable once
// written.
func (d *Database) SaveAnalysis(ctx context.Context, record *models.AnalysisRecord) error {
	resultJSON, err := json.Marshal(record.Result)
	if err != nil {
		return apperrors.Newf(apperrors.KindPersistence, "failed to marshal analysis result: %v", err)
	}

	query := `
	INSERT INTO plant_analyses (id, principal_id, image_url, analysis_result, severity, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err = d.db.ExecContext(ctx, query,
		record.ID,
		record.PrincipalID,
		record.ImageURL,
		resultJSON,
		string(record.Severity),
		record.CreatedAt,
	)
	if err != nil {
		return apperrors.Newf(apperrors.KindPersistence, "failed to save analysis: %v", err)
	}

	return nil
}

// ListAnalyses returns all analysis records for a principal, most recent
// first. Ties on the creation timestamp are broken by identifier so the
// order is a stable total order.
func (d *Database) ListAnalyses(ctx context.Context, principalID string) ([]models.AnalysisRecord, error) {
	query := `
	SELECT id, principal_id, image_url, analysis_result, severity, created_at
	FROM plant_analyses
	WHERE principal_id = ?
	ORDER BY created_at DESC, id DESC`

	rows, err := d.db.QueryContext(ctx, query, principalID)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var records []models.AnalysisRecord
	for rows.Next() {
		record, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analyses: %w", err)
	}

	return records, nil
}

// GetAnalysis returns a single record by id, scoped to its owner. A record
// owned by a different principal is reported as forbidden, not as missing.
func (d *Database) GetAnalysis(ctx context.Context, principalID, recordID string) (*models.AnalysisRecord, error) {
	query := `
	SELECT id, principal_id, image_url, analysis_result, severity, created_at
	FROM plant_analyses
	WHERE id = ?`

	row := d.db.QueryRowContext(ctx, query, recordID)
	record, err := scanAnalysis(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.Newf(apperrors.KindNotFound, "analysis %s not found", recordID)
	}
	if err != nil {
		return nil, err
	}

	if record.PrincipalID != principalID {
		return nil, apperrors.Newf(apperrors.KindForbidden, "analysis %s belongs to another principal", recordID)
	}

	return record, nil
}

// DeleteAnalysis removes a record after verifying ownership. The stored
// image is intentionally left in object storage.
func (d *Database) DeleteAnalysis(ctx context.Context, principalID, recordID string) error {
	var owner string
	err := d.db.QueryRowContext(ctx, `SELECT principal_id FROM plant_analyses WHERE id = ?`, recordID).Scan(&owner)
	if err == sql.ErrNoRows {
		return apperrors.Newf(apperrors.KindNotFound, "analysis %s not found", recordID)
	}
	if err != nil {
		return fmt.Errorf("failed to query analysis owner: %w", err)
	}

	if owner != principalID {
		return apperrors.Newf(apperrors.KindForbidden, "analysis %s belongs to another principal", recordID)
	}

	result, err := d.db.ExecContext(ctx, `DELETE FROM plant_analyses WHERE id = ? AND principal_id = ?`, recordID, principalID)
	if err != nil {
		return fmt.Errorf("failed to delete analysis %s: %w", recordID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.Newf(apperrors.KindNotFound, "analysis %s not found", recordID)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*models.AnalysisRecord, error) {
	var record models.AnalysisRecord
	var resultJSON []byte
	var severity string

	err := row.Scan(
		&record.ID,
		&record.PrincipalID,
		&record.ImageURL,
		&resultJSON,
		&severity,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(resultJSON, &record.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis result for %s: %w", record.ID, err)
	}
	record.Severity = models.HealthStatus(severity)

	return &record, nil
}
