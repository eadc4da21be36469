package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"p1gateway/internal/meter"
)

const latestKey = "p1:readings:latest"

// LatestStore keeps the most recent snapshot in redis so the live endpoint
// survives gateway restarts. The TTL makes staleness visible: once the meter
// goes quiet the key expires instead of serving old data forever.
type LatestStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLatestStore returns a redis-backed store.
func NewLatestStore(client *redis.Client, ttl time.Duration) *LatestStore {
	return &LatestStore{client: client, ttl: ttl}
}

// Save caches the snapshot.
func (s *LatestStore) Save(ctx context.Context, snapshot meter.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, latestKey, data, s.ttl).Err()
}

// Get returns the cached snapshot, or redis.Nil when none is cached.
func (s *LatestStore) Get(ctx context.Context) (*meter.Snapshot, error) {
	result, err := s.client.Get(ctx, latestKey).Result()
	if err != nil {
		return nil, err
	}
	var snapshot meter.Snapshot
	if err := json.Unmarshal([]byte(result), &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
