// Package repo contains all database access logic for the Tripwise API.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here, only SQL and type mapping.
//
// Trips live in a per-user collection: every query is scoped by user_id, so a
// trip id that belongs to another user behaves exactly like a missing one.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/tripwise/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Integration tests pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TripRepo defines the persistence operations for a user's trip collection.
// The service layer depends on this interface, not the Postgres implementation.
type TripRepo interface {
	// Create inserts a new trip with favorite=false and returns the persisted
	// record, with id, created_at and updated_at assigned by the database.
	Create(ctx context.Context, userID uuid.UUID, payload domain.TripPayload) (domain.Trip, error)

	// GetByID retrieves one of the user's trips.
	// Returns domain.ErrNotFound if the user has no trip with that ID.
	GetByID(ctx context.Context, userID, id uuid.UUID) (domain.Trip, error)

	// List returns the user's full collection ordered by created_at descending.
	List(ctx context.Context, userID uuid.UUID) ([]domain.Trip, error)

	// UpdateTitle writes a new title and refreshes updated_at.
	UpdateTitle(ctx context.Context, userID, id uuid.UUID, title string) (domain.Trip, error)

	// SetFavorite writes the favorite flag and refreshes updated_at.
	SetFavorite(ctx context.Context, userID, id uuid.UUID, favorite bool) (domain.Trip, error)

	// UpdateItinerary replaces the generated itinerary and refreshes updated_at.
	UpdateItinerary(ctx context.Context, userID, id uuid.UUID, itinerary string) (domain.Trip, error)

	// Delete removes a trip permanently. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

const tripColumns = `id, user_id, title, destination, budget, start_date, end_date,
		traveler_type, itinerary, cost_breakdown, favorite, created_at, updated_at`

// Create inserts a new trip row. favorite is always false and both timestamps
// come from the same now(), so created_at == updated_at on a fresh row.
func (r *pgTripRepo) Create(ctx context.Context, userID uuid.UUID, p domain.TripPayload) (domain.Trip, error) {
	q := `
		INSERT INTO trips (user_id, title, destination, budget, start_date, end_date,
		                   traveler_type, itinerary, cost_breakdown, favorite)
		VALUES (@user_id, @title, @destination, @budget, @start_date, @end_date,
		        @traveler_type, @itinerary, @cost_breakdown, false)
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"user_id":        userID,
		"title":          p.Title,
		"destination":    p.Destination,
		"budget":         p.Budget,
		"start_date":     p.StartDate,
		"end_date":       p.EndDate,
		"traveler_type":  string(p.TravelerType),
		"itinerary":      p.Itinerary,
		"cost_breakdown": nullableText(p.CostBreakdown),
	}

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a trip by primary key within the user's collection.
func (r *pgTripRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (domain.Trip, error) {
	q := `SELECT ` + tripColumns + `
		FROM trips
		WHERE id = @id AND user_id = @user_id`

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "user_id": userID}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}
	return result, nil
}

// List returns the user's trips, newest first. id breaks ties between rows
// created in the same transaction so the order is stable across reads.
func (r *pgTripRepo) List(ctx context.Context, userID uuid.UUID) ([]domain.Trip, error) {
	q := `SELECT ` + tripColumns + `
		FROM trips
		WHERE user_id = @user_id
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.List: %w", err)
	}
	defer rows.Close()

	var trips []domain.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.TripRepo.List: scan: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TripRepo.List: rows: %w", err)
	}

	return trips, nil
}

// UpdateTitle sets the title. An empty title is stored as given.
func (r *pgTripRepo) UpdateTitle(ctx context.Context, userID, id uuid.UUID, title string) (domain.Trip, error) {
	result, err := r.updateColumn(ctx, "title", userID, id, title)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.UpdateTitle: %w", err)
	}
	return result, nil
}

// SetFavorite sets the favorite flag. Writing the current value is allowed
// and only refreshes updated_at.
func (r *pgTripRepo) SetFavorite(ctx context.Context, userID, id uuid.UUID, favorite bool) (domain.Trip, error) {
	result, err := r.updateColumn(ctx, "favorite", userID, id, favorite)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.SetFavorite: %w", err)
	}
	return result, nil
}

// UpdateItinerary replaces the itinerary text.
func (r *pgTripRepo) UpdateItinerary(ctx context.Context, userID, id uuid.UUID, itinerary string) (domain.Trip, error) {
	result, err := r.updateColumn(ctx, "itinerary", userID, id, itinerary)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.UpdateItinerary: %w", err)
	}
	return result, nil
}

// updateColumn writes a single mutable column and refreshes updated_at.
// column is always one of the literals above, never user input.
func (r *pgTripRepo) updateColumn(ctx context.Context, column string, userID, id uuid.UUID, value any) (domain.Trip, error) {
	q := `
		UPDATE trips
		SET ` + column + ` = @value,
		    updated_at = now()
		WHERE id = @id AND user_id = @user_id
		RETURNING ` + tripColumns

	return scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"value": value, "id": id, "user_id": userID}))
}

// Delete removes a trip by primary key within the user's collection.
func (r *pgTripRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	const q = `DELETE FROM trips WHERE id = @id AND user_id = @user_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTrip maps a single database row into a domain.Trip.
// This is the decode step for optional columns: a NULL favorite becomes false
// and a NULL cost_breakdown becomes "".
func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t             domain.Trip
		id, userID    pgtype.UUID
		travelerType  string
		costBreakdown pgtype.Text
		favorite      pgtype.Bool
	)

	err := s.Scan(&id, &userID, &t.Title, &t.Destination, &t.Budget, &t.StartDate, &t.EndDate,
		&travelerType, &t.Itinerary, &costBreakdown, &favorite, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, domain.ErrNotFound
		}
		return domain.Trip{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	t.UserID = uuid.UUID(userID.Bytes)
	t.TravelerType = domain.ParseTravelerType(travelerType)
	if costBreakdown.Valid {
		t.CostBreakdown = costBreakdown.String
	}
	t.Favorite = favorite.Valid && favorite.Bool

	return t, nil
}

// nullableText stores an empty string as NULL.
func nullableText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
