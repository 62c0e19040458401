package domain

import "strings"

// ItineraryRequest carries the five parameters an itinerary is generated from.
// TravelerType stays a string here because it arrives unvalidated from clients.
type ItineraryRequest struct {
	Destination  string `json:"destination"`
	Budget       string `json:"budget"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	TravelerType string `json:"travelerType"`
}

// Complete reports whether every field is present and non-blank.
func (r ItineraryRequest) Complete() bool {
	for _, v := range []string{r.Destination, r.Budget, r.StartDate, r.EndDate, r.TravelerType} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}
