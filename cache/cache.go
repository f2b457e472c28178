// Package cache provides an optional Redis read-through cache for
// per-principal history lists. A nil *Cache disables caching entirely.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/apex/log"
	"github.com/redis/go-redis/v9"

	"github.com/saiganesh141124/flora-intel/metrics"
	"github.com/saiganesh141124/flora-intel/models"
)

// Cache stores serialized history lists keyed by principal id.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Cache{client: client, ttl: ttl}, nil
}

func listKey(principalID string) string {
	return "florintel:history:" + principalID
}

// GetList returns the cached list for a principal, or ok == false on a miss.
// Cache failures degrade to a miss rather than failing the read.
func (c *Cache) GetList(ctx context.Context, principalID string) ([]models.AnalysisRecord, bool) {
	if c == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, listKey(principalID)).Bytes()
	if err == redis.Nil {
		metrics.CacheHitsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		log.Warnf("History cache read failed for %s: %v", principalID, err)
		metrics.CacheHitsTotal.WithLabelValues("error").Inc()
		return nil, false
	}

	var records []models.AnalysisRecord
	if err := json.Unmarshal(data, &records); err != nil {
		log.Warnf("History cache entry for %s is corrupt, dropping: %v", principalID, err)
		c.Invalidate(ctx, principalID)
		metrics.CacheHitsTotal.WithLabelValues("error").Inc()
		return nil, false
	}

	metrics.CacheHitsTotal.WithLabelValues("hit").Inc()
	return records, true
}

// SetList stores a principal's list. Failures are logged, not surfaced.
func (c *Cache) SetList(ctx context.Context, principalID string, records []models.AnalysisRecord) {
	if c == nil {
		return
	}

	data, err := json.Marshal(records)
	if err != nil {
		log.Warnf("Failed to marshal history list for cache: %v", err)
		return
	}
	if err := c.client.Set(ctx, listKey(principalID), data, c.ttl).Err(); err != nil {
		log.Warnf("History cache write failed for %s: %v", principalID, err)
	}
}

// Invalidate drops a principal's cached list.
func (c *Cache) Invalidate(ctx context.Context, principalID string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, listKey(principalID)).Err(); err != nil {
		log.Warnf("History cache invalidation failed for %s: %v", principalID, err)
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
