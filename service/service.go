// Package service runs the per-submission analysis pipeline: authorize,
// infer, parse, upload, persist, notify.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"

	"github.com/saiganesh141124/flora-intel/apperrors"
	"github.com/saiganesh141124/flora-intel/llm"
	"github.com/saiganesh141124/flora-intel/metrics"
	"github.com/saiganesh141124/flora-intel/models"
	"github.com/saiganesh141124/flora-intel/parser"
)

// ImageStore persists submitted images durably. *storage.Store satisfies it.
type ImageStore interface {
	PutImage(ctx context.Context, principalID string, imageData []byte, contentType string) (string, error)
}

// RecordStore persists finished analysis records. *database.Database
// satisfies it.
type RecordStore interface {
	SaveAnalysis(ctx context.Context, record *models.AnalysisRecord) error
}

// Announcer fans out history change events. *history.Store satisfies it.
type Announcer interface {
	Announce(ctx context.Context, event models.HistoryEvent)
}

// Service orchestrates one analysis submission end to end.
type Service struct {
	llmClient llm.Client
	images    ImageStore
	records   RecordStore
	announcer Announcer
}

// NewService creates the analysis orchestrator.
func NewService(llmClient llm.Client, images ImageStore, records RecordStore, announcer Announcer) *Service {
	return &Service{
		llmClient: llmClient,
		images:    images,
		records:   records,
		announcer: announcer,
	}
}

// Submit runs the full pipeline for one image and returns the persisted
// record. The operation is all-or-nothing from the caller's perspective:
// any step's failure aborts the run with its kind preserved. The single
// deliberate exception is an image left in object storage when the record
// insert fails afterwards; object storage is not transactionally tied to
// the record store.
func (s *Service) Submit(ctx context.Context, principalID string, imageData []byte, contentType string) (*models.AnalysisRecord, error) {
	start := time.Now()
	record, err := s.submit(ctx, principalID, imageData, contentType)

	outcome := "ok"
	if err != nil {
		outcome = string(apperrors.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	metrics.SubmissionsTotal.WithLabelValues(outcome).Inc()
	metrics.SubmissionDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	return record, err
}

func (s *Service) submit(ctx context.Context, principalID string, imageData []byte, contentType string) (*models.AnalysisRecord, error) {
	// Authorization comes first so no inference or storage work is wasted
	// on an unauthenticated submission.
	if strings.TrimSpace(principalID) == "" {
		return nil, apperrors.Newf(apperrors.KindUnauthorized, "missing principal")
	}
	if len(imageData) == 0 {
		return nil, apperrors.Newf(apperrors.KindInvalidInput, "no image data provided")
	}

	log.Infof("Starting plant analysis for principal %s (%d bytes)", principalID, len(imageData))

	// Inference failure is surfaced as-is; it is distinct from a parse
	// failure and never falls back.
	reply, err := s.llmClient.AnalyzeImage(ctx, imageData, contentType)
	if err != nil {
		log.Errorf("Inference failed for principal %s: %v", principalID, err)
		return nil, err
	}

	// Parsing never fails; unusable replies become the fallback result.
	result := parser.ParseAnalysis(reply)
	if result.DiseaseDetected == parser.FallbackDisease {
		log.Warnf("Could not parse inference reply for principal %s, using fallback", principalID)
		metrics.ParseFallbackTotal.Inc()
	}

	imageURL, err := s.images.PutImage(ctx, principalID, imageData, contentType)
	if err != nil {
		log.Errorf("Image upload failed for principal %s: %v", principalID, err)
		return nil, err
	}

	record := &models.AnalysisRecord{
		ID:          uuid.NewString(),
		PrincipalID: principalID,
		ImageURL:    imageURL,
		Result:      *result,
		Severity:    result.Status,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.records.SaveAnalysis(ctx, record); err != nil {
		// The uploaded image is orphaned here; accepted, see above.
		log.Errorf("Failed to persist analysis for principal %s: %v", principalID, err)
		return nil, err
	}

	s.announcer.Announce(ctx, models.HistoryEvent{
		Type:        models.EventRecordCreated,
		PrincipalID: principalID,
		RecordID:    record.ID,
		Timestamp:   record.CreatedAt,
	})

	log.Infof("Analysis %s complete for principal %s: status=%s score=%d",
		record.ID, principalID, record.Result.Status, record.Result.HealthScore)
	return record, nil
}
