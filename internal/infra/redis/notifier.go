package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pkordes/tripwise/internal/feed"
)

// Notifier is a feed.Notifier over Redis pub/sub, so every API instance sees
// writes made through every other instance.
type Notifier struct {
	client *redis.Client
}

func NewNotifier(client *redis.Client) *Notifier {
	return &Notifier{client: client}
}

func changeChannel(userID uuid.UUID) string {
	return "trips:changed:" + userID.String()
}

func (n *Notifier) Publish(ctx context.Context, userID uuid.UUID) error {
	if err := n.client.Publish(ctx, changeChannel(userID), "changed").Err(); err != nil {
		return fmt.Errorf("redis.Notifier.Publish: %w", err)
	}
	return nil
}

// Subscribe waits for Redis to confirm the subscription before returning, so
// a write that happens after the initial load cannot be missed.
func (n *Notifier) Subscribe(ctx context.Context, userID uuid.UUID) (feed.Subscription, error) {
	ps := n.client.Subscribe(ctx, changeChannel(userID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis.Notifier.Subscribe: %w", err)
	}

	s := &subscription{ps: ps, ch: feed.Signal()}
	go s.forward(ps.Channel())
	return s, nil
}

type subscription struct {
	ps   *redis.PubSub
	ch   chan struct{}
	once sync.Once
	err  error
}

// forward is the only sender on s.ch after construction; it closes s.ch once
// the pub/sub channel is closed.
func (s *subscription) forward(msgs <-chan *redis.Message) {
	for range msgs {
		feed.Notify(s.ch)
	}
	close(s.ch)
}

func (s *subscription) C() <-chan struct{} { return s.ch }

func (s *subscription) Close() error {
	s.once.Do(func() { s.err = s.ps.Close() })
	return s.err
}
