package position

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"testdrive/pkg/platform/sentinel"
)

// latestTTL keeps stale live state from outliving a trial by much.
const latestTTL = 24 * time.Hour

// RedisLatestStore mirrors the most recent position per vehicle in Redis for
// live tracking views.
type RedisLatestStore struct {
	client *redis.Client
}

// NewRedisLatest constructs a Redis-backed latest-position store.
func NewRedisLatest(client *redis.Client) *RedisLatestStore {
	return &RedisLatestStore{client: client}
}

func latestKey(vehicleID int64) string {
	return fmt.Sprintf("vehicle:%d:latest_position", vehicleID)
}

func (s *RedisLatestStore) SetLatest(ctx context.Context, p *Position) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal latest position: %w", err)
	}
	if err := s.client.Set(ctx, latestKey(p.VehicleID), payload, latestTTL).Err(); err != nil {
		return fmt.Errorf("set latest position: %w", err)
	}
	return nil
}

func (s *RedisLatestStore) Latest(ctx context.Context, vehicleID int64) (*Position, error) {
	raw, err := s.client.Get(ctx, latestKey(vehicleID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("latest position for vehicle %d: %w", vehicleID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get latest position: %w", err)
	}
	var p Position
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode latest position: %w", err)
	}
	return &p, nil
}
