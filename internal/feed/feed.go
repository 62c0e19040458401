// Package feed is the change feed behind realtime trip subscriptions.
//
// A notification carries no payload: it only says "this user's collection
// changed". Subscribers react by re-reading the whole collection, which keeps
// the replace-the-whole-view semantics of a snapshot listener without any
// incremental diffing.
package feed

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Notifier publishes and subscribes to per-user change notifications.
type Notifier interface {
	// Subscribe registers interest in userID's collection. The returned
	// subscription is signalled once immediately so the first receive
	// triggers the initial load.
	Subscribe(ctx context.Context, userID uuid.UUID) (Subscription, error)

	// Publish tells every subscriber of userID that the collection changed.
	Publish(ctx context.Context, userID uuid.UUID) error
}

// Subscription is a standing listener. Signals coalesce: any number of
// notifications arriving before a receive are observed as one.
type Subscription interface {
	C() <-chan struct{}
	Close() error
}

// Signal returns a channel with capacity one, already signalled.
// Implementations use it as the backing channel of a Subscription.
func Signal() chan struct{} {
	ch := make(chan struct{}, 1)
	ch <- struct{}{}
	return ch
}

// Notify performs a non-blocking send on ch; a pending signal absorbs it.
func Notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Local is an in-process Notifier, used when no Redis is configured and in tests.
type Local struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[*localSub]struct{}
}

// NewLocal returns an empty in-process notifier.
func NewLocal() *Local {
	return &Local{subs: make(map[uuid.UUID]map[*localSub]struct{})}
}

type localSub struct {
	parent *Local
	userID uuid.UUID
	ch     chan struct{}
	once   sync.Once
}

func (s *localSub) C() <-chan struct{} { return s.ch }

func (s *localSub) Close() error {
	s.once.Do(func() {
		s.parent.mu.Lock()
		defer s.parent.mu.Unlock()
		delete(s.parent.subs[s.userID], s)
		if len(s.parent.subs[s.userID]) == 0 {
			delete(s.parent.subs, s.userID)
		}
	})
	return nil
}

// Subscribe never fails for Local.
func (l *Local) Subscribe(_ context.Context, userID uuid.UUID) (Subscription, error) {
	s := &localSub{parent: l, userID: userID, ch: Signal()}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.subs[userID] == nil {
		l.subs[userID] = make(map[*localSub]struct{})
	}
	l.subs[userID][s] = struct{}{}
	return s, nil
}

func (l *Local) Publish(_ context.Context, userID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for s := range l.subs[userID] {
		Notify(s.ch)
	}
	return nil
}

// Subscribers returns how many subscriptions are open for userID.
func (l *Local) Subscribers(userID uuid.UUID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs[userID])
}
