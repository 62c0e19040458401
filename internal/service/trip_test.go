package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tripwise/internal/domain"
	"github.com/pkordes/tripwise/internal/repo"
	"github.com/pkordes/tripwise/internal/service"
)

// mockTripRepo is a hand-written test double for repo.TripRepo.
// Each method is a function field; set only the ones your test needs.
type mockTripRepo struct {
	create          func(ctx context.Context, userID uuid.UUID, p domain.TripPayload) (domain.Trip, error)
	getByID         func(ctx context.Context, userID, id uuid.UUID) (domain.Trip, error)
	list            func(ctx context.Context, userID uuid.UUID) ([]domain.Trip, error)
	updateTitle     func(ctx context.Context, userID, id uuid.UUID, title string) (domain.Trip, error)
	setFavorite     func(ctx context.Context, userID, id uuid.UUID, favorite bool) (domain.Trip, error)
	updateItinerary func(ctx context.Context, userID, id uuid.UUID, itinerary string) (domain.Trip, error)
	delete          func(ctx context.Context, userID, id uuid.UUID) error
}

func (m *mockTripRepo) Create(ctx context.Context, userID uuid.UUID, p domain.TripPayload) (domain.Trip, error) {
	return m.create(ctx, userID, p)
}
func (m *mockTripRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (domain.Trip, error) {
	return m.getByID(ctx, userID, id)
}
func (m *mockTripRepo) List(ctx context.Context, userID uuid.UUID) ([]domain.Trip, error) {
	return m.list(ctx, userID)
}
func (m *mockTripRepo) UpdateTitle(ctx context.Context, userID, id uuid.UUID, title string) (domain.Trip, error) {
	return m.updateTitle(ctx, userID, id, title)
}
func (m *mockTripRepo) SetFavorite(ctx context.Context, userID, id uuid.UUID, favorite bool) (domain.Trip, error) {
	return m.setFavorite(ctx, userID, id, favorite)
}
func (m *mockTripRepo) UpdateItinerary(ctx context.Context, userID, id uuid.UUID, itinerary string) (domain.Trip, error) {
	return m.updateItinerary(ctx, userID, id, itinerary)
}
func (m *mockTripRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return m.delete(ctx, userID, id)
}

// compile-time check: mockTripRepo must satisfy repo.TripRepo.
var _ repo.TripRepo = (*mockTripRepo)(nil)

type mockGenerator struct {
	generate func(ctx context.Context, req domain.ItineraryRequest) (string, error)
}

func (m *mockGenerator) Generate(ctx context.Context, req domain.ItineraryRequest) (string, error) {
	return m.generate(ctx, req)
}

// recorder captures change notifications and events.
type recorder struct {
	changes []uuid.UUID
	events  []domain.TripEvent
	err     error
}

type changeRecorder struct{ *recorder }

func (r changeRecorder) Publish(_ context.Context, userID uuid.UUID) error {
	r.changes = append(r.changes, userID)
	return r.err
}

type eventRecorder struct{ *recorder }

func (r eventRecorder) Publish(_ context.Context, ev domain.TripEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

// ctxNotifier fails the way a network client does when its context is
// already cancelled.
type ctxNotifier struct {
	delivered int
}

func (n *ctxNotifier) Publish(ctx context.Context, _ uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.delivered++
	return nil
}

type ctxEvents struct {
	delivered int
}

func (e *ctxEvents) Publish(ctx context.Context, _ domain.TripEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.delivered++
	return nil
}

// ---- helpers ---------------------------------------------------------------

func validPayload() domain.TripPayload {
	return domain.TripPayload{
		Destination:  "Lisbon",
		Budget:       "$1500",
		StartDate:    "2025-09-01",
		EndDate:      "2025-09-05",
		TravelerType: "Explorer",
		Itinerary:    "1) Overview\n- Pastel de nata",
	}
}

// echoRepo builds trips from whatever it receives, the way the database
// would, with equal timestamps and favorite=false.
func echoRepo() *mockTripRepo {
	return &mockTripRepo{
		create: func(_ context.Context, userID uuid.UUID, p domain.TripPayload) (domain.Trip, error) {
			now := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
			return domain.Trip{
				ID: uuid.New(), UserID: userID, Title: p.Title, Destination: p.Destination,
				Budget: p.Budget, StartDate: p.StartDate, EndDate: p.EndDate,
				TravelerType: p.TravelerType, Itinerary: p.Itinerary,
				CostBreakdown: p.CostBreakdown, CreatedAt: now, UpdatedAt: now,
			}, nil
		},
	}
}

func newTripService(r repo.TripRepo, g service.Generator) (*service.TripService, *recorder) {
	rec := &recorder{}
	return service.NewTripService(r, g, changeRecorder{rec}, eventRecorder{rec}, nil), rec
}

// ---- Save -------------------------------------------------------------------

func TestTripService_Save_AppliesDefaults(t *testing.T) {
	svc, rec := newTripService(echoRepo(), nil)
	user := uuid.New()

	got, err := svc.Save(context.Background(), user, validPayload())

	require.NoError(t, err)
	assert.Equal(t, "Lisbon itinerary", got.Title)
	assert.Equal(t, "Estimated budget: $1500", got.CostBreakdown)
	assert.Equal(t, domain.TravelerSolo, got.TravelerType, "unknown traveler types are coerced")
	assert.False(t, got.Favorite)
	assert.Equal(t, got.CreatedAt, got.UpdatedAt)

	assert.Equal(t, []uuid.UUID{user}, rec.changes)
	require.Len(t, rec.events, 1)
	assert.Equal(t, domain.TripCreated, rec.events[0].Type)
	assert.Equal(t, got.ID, rec.events[0].TripID)
}

func TestTripService_Save_KeepsExplicitTitle(t *testing.T) {
	svc, _ := newTripService(echoRepo(), nil)
	p := validPayload()
	p.Title = "Fado nights"
	p.CostBreakdown = "Hotel $600"

	got, err := svc.Save(context.Background(), uuid.New(), p)

	require.NoError(t, err)
	assert.Equal(t, "Fado nights", got.Title)
	assert.Equal(t, "Hotel $600", got.CostBreakdown)
}

func TestTripService_Save_RequiresItinerary(t *testing.T) {
	svc, rec := newTripService(&mockTripRepo{}, nil)
	p := validPayload()
	p.Itinerary = "  "

	_, err := svc.Save(context.Background(), uuid.New(), p)

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, rec.changes, "nothing written, nothing announced")
}

func TestTripService_Save_AnnounceFailureIsNotAnError(t *testing.T) {
	rec := &recorder{err: errors.New("redis down")}
	svc := service.NewTripService(echoRepo(), nil, changeRecorder{rec}, eventRecorder{rec}, nil)

	_, err := svc.Save(context.Background(), uuid.New(), validPayload())

	assert.NoError(t, err)
	assert.Len(t, rec.changes, 1)
	assert.Len(t, rec.events, 1)
}

func TestTripService_NilRepoIsUnavailable(t *testing.T) {
	svc := service.NewTripService(nil, nil, nil, nil, nil)
	ctx := context.Background()
	user, id := uuid.New(), uuid.New()

	_, err := svc.Save(ctx, user, validPayload())
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	_, err = svc.List(ctx, user)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	_, err = svc.GetByID(ctx, user, id)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	_, err = svc.UpdateTitle(ctx, user, id, "x")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	_, err = svc.SetFavorite(ctx, user, id, true)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	_, err = svc.Regenerate(ctx, user, id)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.ErrorIs(t, svc.Delete(ctx, user, id), domain.ErrUnavailable)
}

// ---- reads ------------------------------------------------------------------

func TestTripService_List_NeverNil(t *testing.T) {
	svc, _ := newTripService(&mockTripRepo{
		list: func(context.Context, uuid.UUID) ([]domain.Trip, error) { return nil, nil },
	}, nil)

	got, err := svc.List(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTripService_GetByID_NotFound(t *testing.T) {
	svc, _ := newTripService(&mockTripRepo{
		getByID: func(context.Context, uuid.UUID, uuid.UUID) (domain.Trip, error) {
			return domain.Trip{}, domain.ErrNotFound
		},
	}, nil)

	_, err := svc.GetByID(context.Background(), uuid.New(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ---- updates ----------------------------------------------------------------

func TestTripService_UpdateTitle_EmptyIsStoredAsIs(t *testing.T) {
	var stored *string
	svc, rec := newTripService(&mockTripRepo{
		updateTitle: func(_ context.Context, _, id uuid.UUID, title string) (domain.Trip, error) {
			stored = &title
			return domain.Trip{ID: id, Title: title}, nil
		},
	}, nil)

	_, err := svc.UpdateTitle(context.Background(), uuid.New(), uuid.New(), "")

	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "", *stored)
	require.Len(t, rec.events, 1)
	assert.Equal(t, domain.TripTitleUpdated, rec.events[0].Type)
}

func TestTripService_SetFavorite_PassesValueThrough(t *testing.T) {
	var calls []bool
	svc, _ := newTripService(&mockTripRepo{
		setFavorite: func(_ context.Context, _, id uuid.UUID, fav bool) (domain.Trip, error) {
			calls = append(calls, fav)
			return domain.Trip{ID: id, Favorite: fav}, nil
		},
	}, nil)
	ctx := context.Background()
	user, id := uuid.New(), uuid.New()

	_, err := svc.SetFavorite(ctx, user, id, true)
	require.NoError(t, err)
	got, err := svc.SetFavorite(ctx, user, id, true)
	require.NoError(t, err)

	assert.True(t, got.Favorite)
	assert.Equal(t, []bool{true, true}, calls)
}

func TestTripService_Regenerate(t *testing.T) {
	user, id := uuid.New(), uuid.New()
	stored := domain.Trip{
		ID: id, UserID: user, Destination: "Kyoto", Budget: "$3000",
		StartDate: "2025-04-01", EndDate: "2025-04-08",
		TravelerType: domain.TravelerFamily, Itinerary: "old",
	}
	var written string
	r := &mockTripRepo{
		getByID: func(context.Context, uuid.UUID, uuid.UUID) (domain.Trip, error) { return stored, nil },
		updateItinerary: func(_ context.Context, _, _ uuid.UUID, it string) (domain.Trip, error) {
			written = it
			out := stored
			out.Itinerary = it
			return out, nil
		},
	}
	var asked domain.ItineraryRequest
	g := &mockGenerator{generate: func(_ context.Context, req domain.ItineraryRequest) (string, error) {
		asked = req
		return "new plan", nil
	}}
	svc, rec := newTripService(r, g)

	got, err := svc.Regenerate(context.Background(), user, id)

	require.NoError(t, err)
	assert.Equal(t, "new plan", got.Itinerary)
	assert.Equal(t, "new plan", written)
	assert.Equal(t, stored.ItineraryRequest(), asked)
	require.Len(t, rec.events, 1)
	assert.Equal(t, domain.TripItineraryRegenerated, rec.events[0].Type)
}

func TestTripService_Regenerate_FailureLeavesTripUnchanged(t *testing.T) {
	r := &mockTripRepo{
		getByID: func(context.Context, uuid.UUID, uuid.UUID) (domain.Trip, error) {
			return domain.Trip{Destination: "Kyoto"}, nil
		},
		updateItinerary: func(context.Context, uuid.UUID, uuid.UUID, string) (domain.Trip, error) {
			t.Fatal("must not write after a failed generation")
			return domain.Trip{}, nil
		},
	}
	g := &mockGenerator{generate: func(context.Context, domain.ItineraryRequest) (string, error) {
		return "", errors.Join(domain.ErrGateway, errors.New("timeout"))
	}}
	svc, rec := newTripService(r, g)

	_, err := svc.Regenerate(context.Background(), uuid.New(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrGateway)
	assert.Empty(t, rec.events)
}

func TestTripService_Regenerate_NoGenerator(t *testing.T) {
	svc, _ := newTripService(&mockTripRepo{}, nil)

	_, err := svc.Regenerate(context.Background(), uuid.New(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

// ---- Delete -----------------------------------------------------------------

func TestTripService_Delete(t *testing.T) {
	user, id := uuid.New(), uuid.New()
	svc, rec := newTripService(&mockTripRepo{
		delete: func(_ context.Context, u, i uuid.UUID) error {
			assert.Equal(t, user, u)
			assert.Equal(t, id, i)
			return nil
		},
	}, nil)

	require.NoError(t, svc.Delete(context.Background(), user, id))
	require.Len(t, rec.events, 1)
	assert.Equal(t, domain.TripDeleted, rec.events[0].Type)
}

func TestTripService_Delete_NotFound(t *testing.T) {
	svc, rec := newTripService(&mockTripRepo{
		delete: func(context.Context, uuid.UUID, uuid.UUID) error { return domain.ErrNotFound },
	}, nil)

	err := svc.Delete(context.Background(), uuid.New(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, rec.changes)
}

// TestTripService_Save_AnnouncesAfterCallerLeaves covers a client that
// disconnects right after the write commits: subscribers must still hear
// about the change.
func TestTripService_Save_AnnouncesAfterCallerLeaves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := echoRepo()
	create := r.create
	r.create = func(ctx context.Context, userID uuid.UUID, p domain.TripPayload) (domain.Trip, error) {
		trip, err := create(ctx, userID, p)
		cancel()
		return trip, err
	}
	changes, events := &ctxNotifier{}, &ctxEvents{}
	svc := service.NewTripService(r, nil, changes, events, nil)

	_, err := svc.Save(ctx, uuid.New(), validPayload())

	require.NoError(t, err)
	assert.Equal(t, 1, changes.delivered)
	assert.Equal(t, 1, events.delivered)
}
