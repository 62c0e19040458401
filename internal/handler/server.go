// Package handler implements the HTTP handlers for the Tripwise API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, trip.go, etc.) but share the same Server struct so they
// can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/tripwise/internal/domain"
	"github.com/pkordes/tripwise/internal/middleware"
	"github.com/pkordes/tripwise/internal/service"
	"github.com/pkordes/tripwise/internal/tripsync"
)

// TripServicer defines the business operations the trip handlers depend on.
// Defining the interface here, in the consumer package, lets handler tests
// inject a mock without touching the database or service layer.
type TripServicer interface {
	Save(ctx context.Context, userID uuid.UUID, payload domain.TripPayload) (domain.Trip, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (domain.Trip, error)
	List(ctx context.Context, userID uuid.UUID) ([]domain.Trip, error)
	UpdateTitle(ctx context.Context, userID, id uuid.UUID, title string) (domain.Trip, error)
	SetFavorite(ctx context.Context, userID, id uuid.UUID, favorite bool) (domain.Trip, error)
	Regenerate(ctx context.Context, userID, id uuid.UUID) (domain.Trip, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// ItineraryGenerator produces itinerary text from trip parameters.
type ItineraryGenerator interface {
	Generate(ctx context.Context, req domain.ItineraryRequest) (string, error)
}

// Authenticator is the identity provider behind /auth and the protected routes.
type Authenticator interface {
	SignUp(ctx context.Context, email, password string) (service.AuthResult, error)
	SignIn(ctx context.Context, email, password string) (service.AuthResult, error)
	SignOut(ctx context.Context, sess domain.Session) error
	Authenticate(ctx context.Context, token string) (domain.Session, error)
}

// SyncerFactory returns a fresh, user-less Syncer for one stream.
type SyncerFactory func() *tripsync.Syncer

// Server holds every dependency the handlers need.
type Server struct {
	trips       TripServicer
	itineraries ItineraryGenerator
	auth        Authenticator
	syncers     SyncerFactory
	log         *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
// A nil syncers factory disables GET /trips/stream.
func NewServer(trips TripServicer, itineraries ItineraryGenerator, auth Authenticator, syncers SyncerFactory, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{trips: trips, itineraries: itineraries, auth: auth, syncers: syncers, log: log}
}

// Routes returns the API router. idempotency, when non-nil, wraps POST /trips.
// Global middleware (request id, logging, CORS, body limits) is applied by
// the caller.
func (s *Server) Routes(idempotency func(http.Handler) http.Handler) chi.Router {
	if idempotency == nil {
		idempotency = func(next http.Handler) http.Handler { return next }
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.getHealth)
	r.Get("/openapi.yaml", s.getOpenAPI)

	r.Post("/auth/signup", s.signUp)
	r.Post("/auth/signin", s.signIn)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthHandler(s.auth, s.log))

		r.Post("/auth/signout", s.signOut)
		r.Post("/api/generate", s.generateItinerary)

		r.Route("/trips", func(r chi.Router) {
			r.Get("/", s.listTrips)
			r.With(idempotency).Post("/", s.createTrip)
			r.Get("/stream", s.streamTrips)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getTrip)
				r.Delete("/", s.deleteTrip)
				r.Patch("/title", s.updateTripTitle)
				r.Put("/favorite", s.setTripFavorite)
				r.Post("/regenerate", s.regenerateTrip)
			})
		})
	})
	return r
}

// session returns the authenticated session. Routes in the protected group
// always have one.
func session(r *http.Request) domain.Session {
	sess, _ := middleware.SessionFrom(r.Context())
	return sess
}
