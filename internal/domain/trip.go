// Package domain contains the core data types for the Tripwise application.
// Apart from google/uuid it has no external dependencies and is imported by
// every other internal package (repo, service, tripsync, handler).
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TravelerType is the closed set of traveler profiles a trip can be planned for.
type TravelerType string

const (
	TravelerSolo   TravelerType = "solo"
	TravelerCouple TravelerType = "couple"
	TravelerFamily TravelerType = "family"
	TravelerGroup  TravelerType = "group"
)

// ParseTravelerType coerces free-form input into a TravelerType.
// Matching is case-insensitive; anything outside the closed set becomes solo.
func ParseTravelerType(s string) TravelerType {
	switch t := TravelerType(strings.ToLower(strings.TrimSpace(s))); t {
	case TravelerSolo, TravelerCouple, TravelerFamily, TravelerGroup:
		return t
	default:
		return TravelerSolo
	}
}

// Trip is one saved itinerary plan owned by a single user.
// CreatedAt and UpdatedAt are assigned by the store, never by the client.
type Trip struct {
	ID            uuid.UUID    `json:"id"`
	UserID        uuid.UUID    `json:"-"`
	Title         string       `json:"title"`
	Destination   string       `json:"destination"`
	Budget        string       `json:"budget"`
	StartDate     string       `json:"startDate"`
	EndDate       string       `json:"endDate"`
	TravelerType  TravelerType `json:"travelerType"`
	Itinerary     string       `json:"itinerary"`
	CostBreakdown string       `json:"costBreakdown,omitempty"`
	Favorite      bool         `json:"favorite"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// TripPayload is the client-supplied part of a trip, used when saving.
// It deliberately has no id, favorite flag or timestamps.
type TripPayload struct {
	Title         string       `json:"title"`
	Destination   string       `json:"destination"`
	Budget        string       `json:"budget"`
	StartDate     string       `json:"startDate"`
	EndDate       string       `json:"endDate"`
	TravelerType  TravelerType `json:"travelerType"`
	Itinerary     string       `json:"itinerary"`
	CostBreakdown string       `json:"costBreakdown,omitempty"`
}

// WithDefaults returns a copy of p with save-time defaults applied:
// a blank title becomes "<destination> itinerary", a blank cost breakdown is
// derived from the budget, and the traveler type is coerced into the closed set.
func (p TripPayload) WithDefaults() TripPayload {
	p.TravelerType = ParseTravelerType(string(p.TravelerType))
	if strings.TrimSpace(p.Title) == "" {
		dest := strings.TrimSpace(p.Destination)
		if dest == "" {
			dest = "Trip"
		}
		p.Title = dest + " itinerary"
	}
	if strings.TrimSpace(p.CostBreakdown) == "" && strings.TrimSpace(p.Budget) != "" {
		p.CostBreakdown = "Estimated budget: " + strings.TrimSpace(p.Budget)
	}
	return p
}

// ItineraryRequest returns the generation parameters stored on a trip,
// used to regenerate its itinerary.
func (t Trip) ItineraryRequest() ItineraryRequest {
	return ItineraryRequest{
		Destination:  t.Destination,
		Budget:       t.Budget,
		StartDate:    t.StartDate,
		EndDate:      t.EndDate,
		TravelerType: string(t.TravelerType),
	}
}
