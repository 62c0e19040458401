package handler

import (
	"errors"
	"net/http"

	"github.com/pkordes/tripwise/internal/domain"
)

type generateResponse struct {
	Itinerary string `json:"itinerary"`
}

// generateItinerary handles POST /api/generate.
// Any blank field is a 400 with "Missing required fields."; every other
// failure is a 500 whose message comes from the gateway.
func (s *Server) generateItinerary(w http.ResponseWriter, r *http.Request) {
	var req domain.ItineraryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	itinerary, err := s.itineraries.Generate(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, generateResponse{Itinerary: itinerary})
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, msgMissingFields)
	case errors.Is(err, domain.ErrGateway):
		s.log.WarnContext(r.Context(), "itinerary generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, unwrapMessage(err, domain.ErrGateway))
	case errors.Is(err, domain.ErrEmptyResult):
		writeError(w, http.StatusInternalServerError, unwrapMessage(err, domain.ErrEmptyResult))
	case errors.Is(err, domain.ErrUnavailable):
		writeError(w, http.StatusInternalServerError, unwrapMessage(err, domain.ErrUnavailable))
	default:
		s.log.ErrorContext(r.Context(), "itinerary generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, msgGenerateFailed)
	}
}
