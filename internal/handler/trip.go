package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/tripwise/internal/domain"
)

type createTripResponse struct {
	ID   openapi_types.UUID `json:"id"`
	Trip domain.Trip        `json:"trip"`
}

type titleRequest struct {
	Title *string `json:"title"`
}

type favoriteRequest struct {
	Favorite *bool `json:"favorite"`
}

// listTrips handles GET /trips?query=&favoritesOnly=.
// The full collection is read newest first and then filtered; an
// unconfigured store yields an empty list rather than an error.
func (s *Server) listTrips(w http.ResponseWriter, r *http.Request) {
	filter, err := bindFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trips, err := s.trips.List(r.Context(), session(r).UserID)
	if errors.Is(err, domain.ErrUnavailable) {
		trips = nil
	} else if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, filter.Apply(trips))
}

// createTrip handles POST /trips.
func (s *Server) createTrip(w http.ResponseWriter, r *http.Request) {
	var payload domain.TripPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	trip, err := s.trips.Save(r.Context(), session(r).UserID, payload)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createTripResponse{ID: trip.ID, Trip: trip})
}

// getTrip handles GET /trips/{id}.
func (s *Server) getTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	trip, err := s.trips.GetByID(r.Context(), session(r).UserID, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// updateTripTitle handles PATCH /trips/{id}/title. An empty title is stored
// as given.
func (s *Server) updateTripTitle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req titleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title == nil {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	trip, err := s.trips.UpdateTitle(r.Context(), session(r).UserID, id, *req.Title)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// setTripFavorite handles PUT /trips/{id}/favorite.
func (s *Server) setTripFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req favoriteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Favorite == nil {
		writeError(w, http.StatusBadRequest, "favorite is required")
		return
	}

	trip, err := s.trips.SetFavorite(r.Context(), session(r).UserID, id, *req.Favorite)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// regenerateTrip handles POST /trips/{id}/regenerate.
func (s *Server) regenerateTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	trip, err := s.trips.Regenerate(r.Context(), session(r).UserID, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// deleteTrip handles DELETE /trips/{id}.
func (s *Server) deleteTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.trips.Delete(r.Context(), session(r).UserID, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- parameter binding ------------------------------------------------------

// pathID binds the {id} path parameter. An id that is not a UUID cannot name
// any trip, so it is reported as not found.
func pathID(w http.ResponseWriter, r *http.Request) (openapi_types.UUID, bool) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusNotFound, msgTripNotFound)
		return id, false
	}
	return id, true
}

// bindFilter reads ?query= and ?favoritesOnly= into a domain.Filter.
func bindFilter(r *http.Request) (domain.Filter, error) {
	var (
		query         *string
		favoritesOnly *bool
	)
	if err := runtime.BindQueryParameter("form", true, false, "query", r.URL.Query(), &query); err != nil {
		return domain.Filter{}, errors.New("invalid query parameter")
	}
	if err := runtime.BindQueryParameter("form", true, false, "favoritesOnly", r.URL.Query(), &favoritesOnly); err != nil {
		return domain.Filter{}, errors.New("favoritesOnly must be true or false")
	}

	var f domain.Filter
	if query != nil {
		f.Query = *query
	}
	if favoritesOnly != nil {
		f.FavoritesOnly = *favoritesOnly
	}
	return f, nil
}
