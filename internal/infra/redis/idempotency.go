package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore keeps one slot per Idempotency-Key. A reserved slot holds
// an empty value until the response is saved into it.
type IdempotencyStore struct {
	client *redis.Client
}

func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

func idempotencyKey(key string) string {
	return "idempotency:" + key
}

// Reserve claims key for ttl. It returns false when the key is already taken.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, idempotencyKey(key), "", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis.IdempotencyStore.Reserve: %w", err)
	}
	return ok, nil
}

// Load returns the saved response, or nil when the key is unknown or its
// request is still in flight.
func (s *IdempotencyStore) Load(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, idempotencyKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis.IdempotencyStore.Load: %w", err)
	}
	if len(val) == 0 {
		return nil, nil
	}
	return val, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, idempotencyKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis.IdempotencyStore.Save: %w", err)
	}
	return nil
}

// Release frees a reservation so the client can retry.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, idempotencyKey(key)).Err(); err != nil {
		return fmt.Errorf("redis.IdempotencyStore.Release: %w", err)
	}
	return nil
}
