package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/pkordes/tripwise/internal/domain"
)

const (
	msgTripNotFound   = "Trip not found."
	msgMissingFields  = "Missing required fields."
	msgInternal       = "internal server error"
	msgGenerateFailed = "Failed to generate itinerary."
)

// errorBody is the shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// decodeJSON reads the request body into v. It reports a body over the size
// limit as 413 and anything else unreadable as 400, and returns false once
// it has written that response.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	writeError(w, http.StatusBadRequest, "request body must be a JSON object")
	return false
}

// unwrapMessage extracts the human-readable part that follows sentinel in a
// wrapped error chain.
// e.g. "service.TripService.Save: validation error: itinerary is required" → "itinerary is required"
func unwrapMessage(err, sentinel error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 && len(msg) > i+len(prefix) {
		return msg[i+len(prefix):]
	}
	return sentinel.Error()
}

// writeServiceError maps a service error onto a status code and body.
// Validation failures of saved data are 422; unexpected errors are logged
// and never shown to the client.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, msgTripNotFound)
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, unwrapMessage(err, domain.ErrValidation))
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, unwrapMessage(err, domain.ErrUnauthorized))
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "an account with this email already exists")
	case errors.Is(err, domain.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, unwrapMessage(err, domain.ErrUnavailable))
	case errors.Is(err, domain.ErrGateway):
		writeError(w, http.StatusInternalServerError, unwrapMessage(err, domain.ErrGateway))
	case errors.Is(err, domain.ErrEmptyResult):
		writeError(w, http.StatusInternalServerError, unwrapMessage(err, domain.ErrEmptyResult))
	default:
		s.log.ErrorContext(r.Context(), "unhandled service error",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}
