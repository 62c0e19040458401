package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tripwise/internal/domain"
	"github.com/pkordes/tripwise/internal/handler"
	"github.com/pkordes/tripwise/internal/service"
)

func newAuthHandler(a *mockAuth) http.Handler {
	return handler.NewServer(&mockTripServicer{}, nil, a, nil, discardLog()).Routes(nil)
}

func authResult(email string) service.AuthResult {
	return service.AuthResult{
		Token:     "signed.jwt.token",
		ExpiresAt: time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		User:      domain.User{ID: uuid.New(), Email: email, PasswordHash: "$2a$10$secret", CreatedAt: time.Now().UTC()},
	}
}

func TestSignUp_201(t *testing.T) {
	a := &mockAuth{
		signUp: func(_ context.Context, email, password string) (service.AuthResult, error) {
			assert.Equal(t, "Ada@Example.com", email)
			assert.Equal(t, "hunter22", password)
			return authResult("ada@example.com"), nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/signup",
		jsonBody(t, map[string]any{"email": "Ada@Example.com", "password": "hunter22"}))
	rec := serve(newAuthHandler(a), req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token":"signed.jwt.token"`)
	assert.Contains(t, rec.Body.String(), `"email":"ada@example.com"`)
	assert.NotContains(t, rec.Body.String(), "$2a$", "password hash is never serialized")
}

func TestSignUp_400_MissingFields(t *testing.T) {
	rec := serve(newAuthHandler(&mockAuth{}), httptest.NewRequest(http.MethodPost, "/auth/signup",
		jsonBody(t, map[string]any{"email": "  "})))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email and password are required", errorMessage(t, rec))
}

func TestSignUp_400_ValidationMessage(t *testing.T) {
	a := &mockAuth{
		signUp: func(_ context.Context, _, _ string) (service.AuthResult, error) {
			return service.AuthResult{}, fmt.Errorf("service.AuthService.SignUp: %w: password must be at least 6 characters", domain.ErrValidation)
		},
	}

	rec := serve(newAuthHandler(a), httptest.NewRequest(http.MethodPost, "/auth/signup",
		jsonBody(t, map[string]any{"email": "a@b.c", "password": "x"})))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "password must be at least 6 characters", errorMessage(t, rec))
}

func TestSignUp_409_Conflict(t *testing.T) {
	a := &mockAuth{
		signUp: func(_ context.Context, _, _ string) (service.AuthResult, error) {
			return service.AuthResult{}, fmt.Errorf("repo.UserRepo.Create: %w", domain.ErrConflict)
		},
	}

	rec := serve(newAuthHandler(a), httptest.NewRequest(http.MethodPost, "/auth/signup",
		jsonBody(t, map[string]any{"email": "a@b.c", "password": "hunter22"})))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSignIn_200(t *testing.T) {
	a := &mockAuth{
		signIn: func(_ context.Context, _, _ string) (service.AuthResult, error) {
			return authResult("ada@example.com"), nil
		},
	}

	rec := serve(newAuthHandler(a), httptest.NewRequest(http.MethodPost, "/auth/signin",
		jsonBody(t, map[string]any{"email": "ada@example.com", "password": "hunter22"})))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)
}

func TestSignIn_401_BadCredentials(t *testing.T) {
	a := &mockAuth{
		signIn: func(_ context.Context, _, _ string) (service.AuthResult, error) {
			return service.AuthResult{}, fmt.Errorf("service.AuthService.SignIn: %w: invalid email or password", domain.ErrUnauthorized)
		},
	}

	rec := serve(newAuthHandler(a), httptest.NewRequest(http.MethodPost, "/auth/signin",
		jsonBody(t, map[string]any{"email": "ada@example.com", "password": "wrong-one"})))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid email or password", errorMessage(t, rec))
}

func TestSignIn_503_ProviderUnavailable(t *testing.T) {
	a := &mockAuth{
		signIn: func(_ context.Context, _, _ string) (service.AuthResult, error) {
			return service.AuthResult{}, fmt.Errorf("service.AuthService.SignIn: %w: identity provider is not configured", domain.ErrUnavailable)
		},
	}

	rec := serve(newAuthHandler(a), httptest.NewRequest(http.MethodPost, "/auth/signin",
		jsonBody(t, map[string]any{"email": "ada@example.com", "password": "hunter22"})))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "identity provider is not configured", errorMessage(t, rec))
}

func TestSignOut_204_RevokesPresentedSession(t *testing.T) {
	var revoked domain.Session
	a := &mockAuth{
		signOut: func(_ context.Context, sess domain.Session) error {
			revoked = sess
			return nil
		},
	}

	rec := serve(newAuthHandler(a), authed(httptest.NewRequest(http.MethodPost, "/auth/signout", nil)))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, testUser, revoked.UserID)
	assert.Equal(t, "jti-1", revoked.TokenID)
}

func TestSignOut_401_WithoutToken(t *testing.T) {
	rec := serve(newAuthHandler(&mockAuth{}), httptest.NewRequest(http.MethodPost, "/auth/signout", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
