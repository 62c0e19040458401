package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pkordes/tripwise/internal/domain"
)

// SnapshotTTL bounds how stale a seeded view can be.
const SnapshotTTL = 7 * 24 * time.Hour

// SnapshotCache stores the last full trip list seen for a user.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotCache(client *redis.Client) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: SnapshotTTL}
}

func snapshotKey(userID uuid.UUID) string {
	return "trips-cache:" + userID.String()
}

// Load returns nil, nil on a miss. The owner is not part of the stored JSON,
// so every decoded trip is stamped with userID.
func (c *SnapshotCache) Load(ctx context.Context, userID uuid.UUID) ([]domain.Trip, error) {
	data, err := c.client.Get(ctx, snapshotKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis.SnapshotCache.Load: %w", err)
	}

	trips, err := decodeSnapshot(data, userID)
	if err != nil {
		return nil, fmt.Errorf("redis.SnapshotCache.Load: %w", err)
	}
	return trips, nil
}

func decodeSnapshot(data []byte, userID uuid.UUID) ([]domain.Trip, error) {
	trips := []domain.Trip{}
	if err := json.Unmarshal(data, &trips); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	for i := range trips {
		trips[i].UserID = userID
	}
	return trips, nil
}

func (c *SnapshotCache) Store(ctx context.Context, userID uuid.UUID, trips []domain.Trip) error {
	if trips == nil {
		trips = []domain.Trip{}
	}
	data, err := json.Marshal(trips)
	if err != nil {
		return fmt.Errorf("redis.SnapshotCache.Store: encode: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKey(userID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis.SnapshotCache.Store: %w", err)
	}
	return nil
}
