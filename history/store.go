// Package history is the user-scoped collection of past analyses: listing,
// reading, deleting, and live change notification.
package history

import (
	"context"
	"time"

	"github.com/apex/log"

	"github.com/saiganesh141124/flora-intel/cache"
	"github.com/saiganesh141124/flora-intel/database"
	"github.com/saiganesh141124/flora-intel/metrics"
	"github.com/saiganesh141124/flora-intel/models"
	"github.com/saiganesh141124/flora-intel/pubsub"
)

// EventPublisher forwards change events to other service instances.
// *rabbitmq.Publisher satisfies it; nil disables cross-instance fan-out.
type EventPublisher interface {
	Publish(event models.HistoryEvent) error
}

// Store wraps the record table with caching and change notification.
type Store struct {
	db        *database.Database
	broker    *pubsub.Broker
	publisher EventPublisher
	cache     *cache.Cache
}

// NewStore creates a history store. publisher and listCache may be nil.
func NewStore(db *database.Database, broker *pubsub.Broker, publisher EventPublisher, listCache *cache.Cache) *Store {
	return &Store{
		db:        db,
		broker:    broker,
		publisher: publisher,
		cache:     listCache,
	}
}

// List returns a principal's records, most recent first. Reads go through
// the cache when one is configured.
func (s *Store) List(ctx context.Context, principalID string) ([]models.AnalysisRecord, error) {
	if records, ok := s.cache.GetList(ctx, principalID); ok {
		return records, nil
	}

	records, err := s.db.ListAnalyses(ctx, principalID)
	if err != nil {
		return nil, err
	}

	s.cache.SetList(ctx, principalID, records)
	return records, nil
}

// Get returns one record, owner-checked.
func (s *Store) Get(ctx context.Context, principalID, recordID string) (*models.AnalysisRecord, error) {
	return s.db.GetAnalysis(ctx, principalID, recordID)
}

// Delete removes a record after verifying ownership and announces the
// change. The stored image is intentionally left in object storage.
func (s *Store) Delete(ctx context.Context, principalID, recordID string) error {
	if err := s.db.DeleteAnalysis(ctx, principalID, recordID); err != nil {
		return err
	}

	s.Announce(ctx, models.HistoryEvent{
		Type:        models.EventRecordDeleted,
		PrincipalID: principalID,
		RecordID:    recordID,
		Timestamp:   time.Now(),
	})
	return nil
}

// Subscribe registers interest in a principal's history partition. The
// returned subscription delivers at-least-once and stops on unsubscribe.
func (s *Store) Subscribe(principalID string) *pubsub.Subscription {
	return s.broker.Subscribe(principalID)
}

// Announce invalidates the principal's cached list and fans the event out to
// local subscribers and, when configured, to other instances. Remote publish
// failure is logged and not surfaced: local consistency does not depend on
// the message bus.
func (s *Store) Announce(ctx context.Context, event models.HistoryEvent) {
	s.cache.Invalidate(ctx, event.PrincipalID)
	s.broker.Publish(event)
	metrics.HistoryEventsTotal.WithLabelValues("local").Inc()

	if s.publisher != nil {
		if err := s.publisher.Publish(event); err != nil {
			log.Errorf("Failed to publish history event for %s: %v", event.PrincipalID, err)
		}
	}
}
