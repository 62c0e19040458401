package domain

import (
	"time"

	"github.com/google/uuid"
)

// TripEventType names a trip lifecycle transition.
type TripEventType string

const (
	TripCreated              TripEventType = "trip.created"
	TripTitleUpdated         TripEventType = "trip.title_updated"
	TripFavoriteToggled      TripEventType = "trip.favorite_toggled"
	TripItineraryRegenerated TripEventType = "trip.itinerary_regenerated"
	TripDeleted              TripEventType = "trip.deleted"
)

// TripEvent is published after a trip write has been committed.
type TripEvent struct {
	Type       TripEventType `json:"type"`
	TripID     uuid.UUID     `json:"tripId"`
	UserID     uuid.UUID     `json:"userId"`
	OccurredAt time.Time     `json:"occurredAt"`
}

// NewTripEvent stamps an event with the current UTC time.
func NewTripEvent(typ TripEventType, userID, tripID uuid.UUID) TripEvent {
	return TripEvent{Type: typ, TripID: tripID, UserID: userID, OccurredAt: time.Now().UTC()}
}
