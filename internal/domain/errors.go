package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database, or exists under another user.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing required field, empty itinerary on save).
// Handlers map this to HTTP 400 or 422 depending on the endpoint.
var ErrValidation = errors.New("validation error")

// ErrUnavailable means a collaborator (document store, identity provider,
// completion gateway) is not configured for this process. It is a normal,
// checked condition: callers degrade instead of retrying.
var ErrUnavailable = errors.New("unavailable")

// ErrGateway wraps any transport or API failure of the completion gateway.
// The wrapped message is surfaced to the user as-is.
var ErrGateway = errors.New("gateway error")

// ErrEmptyResult is returned when the completion gateway answers without text.
var ErrEmptyResult = errors.New("empty result")

// ErrUnauthorized is returned for bad credentials and invalid or revoked tokens.
var ErrUnauthorized = errors.New("unauthorized")

// ErrConflict is returned when a unique resource (e.g. a user's email) already exists.
var ErrConflict = errors.New("conflict")
