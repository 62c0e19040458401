// Package tripsync keeps a live, filterable view of one user's trip collection.
//
// A Syncer belongs to exactly one session. It subscribes to the change feed
// for the session's user, re-reads the whole collection on every
// notification and replaces its materialized sequence with the result.
// Readers see that sequence through a Filter, either by polling View or by
// receiving every new View on a Watch channel. Mutations write through to
// the store and rely on the feed to bring the change back; nothing is
// inserted optimistically.
//
// The HTTP server uses a Syncer only for GET /trips/stream and sends writes
// straight to service.TripService. The write-through mutations are for
// in-process clients that hold one Syncer per signed-in session.
package tripsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pkordes/tripwise/internal/domain"
	"github.com/pkordes/tripwise/internal/feed"
)

var (
	activeSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tripsync_active_subscriptions",
		Help: "Number of trip collection subscriptions currently held",
	})
	snapshotsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripsync_snapshots_applied_total",
		Help: "The total number of full-collection snapshots applied to a view",
	})
	snapshotErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripsync_snapshot_errors_total",
		Help: "The total number of failed collection reads",
	})
)

// Store is the write-through target and snapshot source.
// service.TripService satisfies it.
type Store interface {
	List(ctx context.Context, userID uuid.UUID) ([]domain.Trip, error)
	Save(ctx context.Context, userID uuid.UUID, payload domain.TripPayload) (domain.Trip, error)
	UpdateTitle(ctx context.Context, userID, id uuid.UUID, title string) (domain.Trip, error)
	SetFavorite(ctx context.Context, userID, id uuid.UUID, favorite bool) (domain.Trip, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// Cache holds the last known snapshot per user. A nil slice from Load means
// a miss. Failures are never surfaced to readers.
type Cache interface {
	Load(ctx context.Context, userID uuid.UUID) ([]domain.Trip, error)
	Store(ctx context.Context, userID uuid.UUID, trips []domain.Trip) error
}

// View is what readers see: the filtered trips in materialized order.
type View struct {
	Trips   []domain.Trip
	Filter  domain.Filter
	Loading bool
	Err     error
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithCache seeds views from c until the first real snapshot arrives.
func WithCache(c Cache) Option {
	return func(s *Syncer) { s.cache = c }
}

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) { s.log = l }
}

// Syncer is safe for concurrent use.
type Syncer struct {
	store Store
	feed  feed.Notifier
	cache Cache
	log   *slog.Logger

	// lifecycle serializes SetUser and Close.
	lifecycle sync.Mutex

	mu       sync.Mutex
	gen      uint64
	userID   uuid.UUID
	trips    []domain.Trip
	filter   domain.Filter
	loading  bool
	synced   bool
	err      error
	cancel   context.CancelFunc
	done     chan struct{}
	watchers map[chan View]struct{}
	closed   bool
}

// New returns a Syncer with no user: an empty view that is not loading.
func New(store Store, notifier feed.Notifier, opts ...Option) *Syncer {
	s := &Syncer{
		store:    store,
		feed:     notifier,
		log:      slog.Default(),
		watchers: make(map[chan View]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetUser releases any held subscription and, for a non-nil user id,
// subscribes to that user's collection. The subscription lives until the
// next SetUser, Close, or cancellation of ctx.
func (s *Syncer) SetUser(ctx context.Context, userID uuid.UUID) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.release()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.gen++
	s.userID = userID
	s.trips = nil
	s.err = nil
	s.synced = false

	if userID == uuid.Nil || s.store == nil || s.feed == nil {
		s.loading = false
		s.broadcastLocked()
		return
	}

	s.loading = true
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.broadcastLocked()

	go s.run(runCtx, s.gen, userID, done)
}

// Close releases the subscription, waits for the feed goroutine to exit and
// closes every watcher channel. The Syncer cannot be reused.
func (s *Syncer) Close() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.release()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.watchers {
		close(ch)
	}
	clear(s.watchers)
}

// release cancels the running subscription and waits for it to finish.
// Must be called with lifecycle held and mu not held.
func (s *Syncer) release() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (s *Syncer) run(ctx context.Context, gen uint64, userID uuid.UUID, done chan struct{}) {
	defer close(done)
	activeSubscriptions.Inc()
	defer activeSubscriptions.Dec()

	log := s.log.With("user_id", userID)

	sub, err := s.feed.Subscribe(ctx, userID)
	if err != nil {
		// Without a feed the view cannot stay live, but one read still
		// beats an empty screen.
		log.WarnContext(ctx, "trip subscription failed", "error", err)
		s.seedFromCache(ctx, gen, userID)
		s.refresh(ctx, gen, userID)
		s.fail(gen, fmt.Errorf("tripsync: subscribe: %w", err))
		return
	}
	defer sub.Close()

	s.seedFromCache(ctx, gen, userID)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.C():
			if !ok {
				log.InfoContext(ctx, "trip subscription closed by feed")
				return
			}
			if !s.refresh(ctx, gen, userID) {
				return
			}
		}
	}
}

// seedFromCache shows the cached snapshot while the first real one is loading.
func (s *Syncer) seedFromCache(ctx context.Context, gen uint64, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	trips, err := s.cache.Load(ctx, userID)
	if err != nil {
		s.log.DebugContext(ctx, "trip cache read failed", "user_id", userID, "error", err)
		return
	}
	if trips == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.synced {
		return
	}
	s.trips = trips
	s.broadcastLocked()
}

// refresh reads the whole collection and replaces the materialized sequence.
// It returns false when the store is permanently unavailable.
func (s *Syncer) refresh(ctx context.Context, gen uint64, userID uuid.UUID) bool {
	trips, err := s.store.List(ctx, userID)
	if ctx.Err() != nil {
		return false
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	switch {
	case errors.Is(err, domain.ErrUnavailable):
		s.trips = nil
		s.loading = false
		s.err = nil
		s.broadcastLocked()
		s.mu.Unlock()
		return false
	case err != nil:
		s.err = err
		s.loading = false
		s.broadcastLocked()
		s.mu.Unlock()
		snapshotErrors.Inc()
		s.log.WarnContext(ctx, "trip snapshot read failed", "user_id", userID, "error", err)
		return true
	}
	s.trips = trips
	s.loading = false
	s.synced = true
	s.err = nil
	s.broadcastLocked()
	s.mu.Unlock()

	snapshotsApplied.Inc()
	if s.cache != nil {
		if err := s.cache.Store(ctx, userID, trips); err != nil {
			s.log.DebugContext(ctx, "trip cache write failed", "user_id", userID, "error", err)
		}
	}
	return true
}

func (s *Syncer) fail(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	s.err = err
	s.loading = false
	s.broadcastLocked()
}

// SetFilter replaces the filter and recomputes the derived view.
func (s *Syncer) SetFilter(f domain.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
	s.broadcastLocked()
}

// View returns the current filtered view.
func (s *Syncer) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Materialized returns a copy of the full, unfiltered sequence.
func (s *Syncer) Materialized() []domain.Trip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.trips)
}

// Watch returns a channel that receives the current View immediately and a
// new one after every snapshot or filter change. A slow reader only ever
// sees the latest View. Call stop to unregister; the channel is closed then,
// or when the Syncer is closed.
func (s *Syncer) Watch() (<-chan View, func()) {
	ch := make(chan View, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.watchers[ch] = struct{}{}
	ch <- s.viewLocked()

	stop := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
	}
	return ch, stop
}

func (s *Syncer) viewLocked() View {
	return View{
		Trips:   s.filter.Apply(s.trips),
		Filter:  s.filter,
		Loading: s.loading,
		Err:     s.err,
	}
}

// broadcastLocked replaces any undelivered view with the current one.
// Only broadcastLocked sends on watcher channels, and always under mu, so
// after draining the buffer the send cannot block.
func (s *Syncer) broadcastLocked() {
	if len(s.watchers) == 0 {
		return
	}
	v := s.viewLocked()
	for ch := range s.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// user returns the session's user id, or ErrUnavailable when there is no
// user or no store to write to.
func (s *Syncer) user() (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == uuid.Nil || s.store == nil {
		return uuid.Nil, fmt.Errorf("tripsync: no user or store: %w", domain.ErrUnavailable)
	}
	return s.userID, nil
}

// SaveTrip creates a trip and returns its id. The new trip shows up in the
// view when the feed delivers the next snapshot.
func (s *Syncer) SaveTrip(ctx context.Context, payload domain.TripPayload) (uuid.UUID, error) {
	userID, err := s.user()
	if err != nil {
		return uuid.Nil, err
	}
	trip, err := s.store.Save(ctx, userID, payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("tripsync.Syncer.SaveTrip: %w", err)
	}
	return trip.ID, nil
}

// UpdateTripTitle writes a new title. An empty title is not special-cased;
// callers supply their own fallback.
func (s *Syncer) UpdateTripTitle(ctx context.Context, id uuid.UUID, title string) error {
	userID, err := s.user()
	if err != nil {
		return err
	}
	if _, err := s.store.UpdateTitle(ctx, userID, id, title); err != nil {
		return fmt.Errorf("tripsync.Syncer.UpdateTripTitle: %w", err)
	}
	return nil
}

// DeleteTrip removes a trip permanently.
func (s *Syncer) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	userID, err := s.user()
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("tripsync.Syncer.DeleteTrip: %w", err)
	}
	return nil
}

// ToggleFavorite writes the favorite flag as given; it does not flip it.
func (s *Syncer) ToggleFavorite(ctx context.Context, id uuid.UUID, favorite bool) error {
	userID, err := s.user()
	if err != nil {
		return err
	}
	if _, err := s.store.SetFavorite(ctx, userID, id, favorite); err != nil {
		return fmt.Errorf("tripsync.Syncer.ToggleFavorite: %w", err)
	}
	return nil
}
