// Package service contains the business logic for the Tripwise API.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here: services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pkordes/tripwise/internal/domain"
	"github.com/pkordes/tripwise/internal/repo"
)

var tripMutations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "trip_mutations_total",
	Help: "The total number of committed trip writes by operation",
}, []string{"operation"})

// Generator produces an itinerary. ItineraryService satisfies it.
type Generator interface {
	Generate(ctx context.Context, req domain.ItineraryRequest) (string, error)
}

// ChangeNotifier tells live subscribers that a user's collection changed.
// feed.Notifier satisfies it.
type ChangeNotifier interface {
	Publish(ctx context.Context, userID uuid.UUID) error
}

// EventPublisher emits trip lifecycle events. kafka.Producer satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.TripEvent) error
}

// TripService implements business logic for a user's trip collection.
// Any of its collaborators may be nil: without a repo every operation fails
// with domain.ErrUnavailable, and without a notifier or event publisher
// writes simply go unannounced.
type TripService struct {
	trips       repo.TripRepo
	itineraries Generator
	changes     ChangeNotifier
	events      EventPublisher
	log         *slog.Logger
}

// NewTripService constructs a TripService. A nil logger means slog.Default().
func NewTripService(trips repo.TripRepo, itineraries Generator, changes ChangeNotifier, events EventPublisher, log *slog.Logger) *TripService {
	if log == nil {
		log = slog.Default()
	}
	return &TripService{trips: trips, itineraries: itineraries, changes: changes, events: events, log: log}
}

func (s *TripService) available(op string) error {
	if s.trips == nil {
		return fmt.Errorf("service.TripService.%s: %w: document store is not configured", op, domain.ErrUnavailable)
	}
	return nil
}

// Save persists a new trip built from payload with save-time defaults.
// Returns domain.ErrValidation if the payload carries no itinerary.
func (s *TripService) Save(ctx context.Context, userID uuid.UUID, payload domain.TripPayload) (domain.Trip, error) {
	if err := s.available("Save"); err != nil {
		return domain.Trip{}, err
	}
	if strings.TrimSpace(payload.Itinerary) == "" {
		return domain.Trip{}, fmt.Errorf("%w: itinerary is required; generate one first", domain.ErrValidation)
	}
	trip, err := s.trips.Create(ctx, userID, payload.WithDefaults())
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Save: %w", err)
	}
	s.announce(ctx, domain.TripCreated, userID, trip.ID)
	return trip, nil
}

// GetByID returns one of the user's trips.
// Returns domain.ErrNotFound if the user has no trip with that ID.
func (s *TripService) GetByID(ctx context.Context, userID, id uuid.UUID) (domain.Trip, error) {
	if err := s.available("GetByID"); err != nil {
		return domain.Trip{}, err
	}
	trip, err := s.trips.GetByID(ctx, userID, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.GetByID: %w", err)
	}
	return trip, nil
}

// List returns the user's whole collection, newest first.
// Always returns a non-nil slice so callers can safely range over it.
func (s *TripService) List(ctx context.Context, userID uuid.UUID) ([]domain.Trip, error) {
	if err := s.available("List"); err != nil {
		return nil, err
	}
	trips, err := s.trips.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.TripService.List: %w", err)
	}
	if trips == nil {
		return []domain.Trip{}, nil
	}
	return trips, nil
}

// UpdateTitle stores title as given, even when empty.
func (s *TripService) UpdateTitle(ctx context.Context, userID, id uuid.UUID, title string) (domain.Trip, error) {
	if err := s.available("UpdateTitle"); err != nil {
		return domain.Trip{}, err
	}
	trip, err := s.trips.UpdateTitle(ctx, userID, id, title)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.UpdateTitle: %w", err)
	}
	s.announce(ctx, domain.TripTitleUpdated, userID, id)
	return trip, nil
}

// SetFavorite writes the favorite flag. Writing the current value again is
// not an error.
func (s *TripService) SetFavorite(ctx context.Context, userID, id uuid.UUID, favorite bool) (domain.Trip, error) {
	if err := s.available("SetFavorite"); err != nil {
		return domain.Trip{}, err
	}
	trip, err := s.trips.SetFavorite(ctx, userID, id, favorite)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.SetFavorite: %w", err)
	}
	s.announce(ctx, domain.TripFavoriteToggled, userID, id)
	return trip, nil
}

// Regenerate asks for a fresh itinerary from the trip's stored parameters
// and replaces the old one. If generation fails the trip is left unchanged.
func (s *TripService) Regenerate(ctx context.Context, userID, id uuid.UUID) (domain.Trip, error) {
	if err := s.available("Regenerate"); err != nil {
		return domain.Trip{}, err
	}
	if s.itineraries == nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Regenerate: %w: completion gateway is not configured", domain.ErrUnavailable)
	}
	trip, err := s.trips.GetByID(ctx, userID, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Regenerate: %w", err)
	}
	itinerary, err := s.itineraries.Generate(ctx, trip.ItineraryRequest())
	if err != nil {
		return domain.Trip{}, err
	}
	trip, err = s.trips.UpdateItinerary(ctx, userID, id, itinerary)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Regenerate: %w", err)
	}
	s.announce(ctx, domain.TripItineraryRegenerated, userID, id)
	return trip, nil
}

// Delete removes a trip permanently.
func (s *TripService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.available("Delete"); err != nil {
		return err
	}
	if err := s.trips.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	s.announce(ctx, domain.TripDeleted, userID, id)
	return nil
}

// announce runs after a committed write. The write has already happened, so
// failures are logged rather than returned, and a caller that goes away
// after the commit does not cancel delivery.
func (s *TripService) announce(ctx context.Context, typ domain.TripEventType, userID, tripID uuid.UUID) {
	tripMutations.WithLabelValues(string(typ)).Inc()
	bg := context.WithoutCancel(ctx)

	if s.changes != nil {
		if err := s.changes.Publish(bg, userID); err != nil {
			s.log.WarnContext(ctx, "trip change notification failed",
				"user_id", userID, "trip_id", tripID, "error", err)
		}
	}
	if s.events != nil {
		if err := s.events.Publish(bg, domain.NewTripEvent(typ, userID, tripID)); err != nil {
			s.log.WarnContext(ctx, "trip event publish failed",
				"event", typ, "user_id", userID, "trip_id", tripID, "error", err)
		}
	}
}
