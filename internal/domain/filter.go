package domain

import "strings"

// Filter is the client-local predicate applied to a user's materialized trips.
// It is never persisted and never changes what is read from the store.
type Filter struct {
	Query         string `json:"query"`
	FavoritesOnly bool   `json:"favoritesOnly"`
}

// Matches reports whether t passes both predicates.
// Query is a case-insensitive substring match on title OR destination;
// an empty query matches everything.
func (f Filter) Matches(t Trip) bool {
	if f.FavoritesOnly && !t.Favorite {
		return false
	}
	if f.Query == "" {
		return true
	}
	q := strings.ToLower(f.Query)
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Destination), q)
}

// Apply returns the trips that match f, in their original order.
// The result is always a new, non-nil slice.
func (f Filter) Apply(trips []Trip) []Trip {
	out := make([]Trip, 0, len(trips))
	for _, t := range trips {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}
