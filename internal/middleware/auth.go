package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pkordes/tripwise/internal/auth"
	"github.com/pkordes/tripwise/internal/domain"
)

// Authenticator resolves a bearer token to a session.
// service.AuthService satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Session, error)
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFrom returns the session stored by NewAuthHandler.
func SessionFrom(ctx context.Context) (domain.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(domain.Session)
	return sess, ok
}

// NewAuthHandler returns a middleware that requires a valid bearer token.
// The token comes from the Authorization header or, for GET requests only,
// the access_token query parameter, which browsers' EventSource needs.
func NewAuthHandler(a Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil && r.Method == http.MethodGet {
				token = r.URL.Query().Get("access_token")
			}
			if token == "" {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			sess, err := a.Authenticate(r.Context(), token)
			switch {
			case errors.Is(err, domain.ErrUnauthorized):
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			case err != nil:
				log.ErrorContext(r.Context(), "token check failed", "error", err)
				writeError(w, http.StatusServiceUnavailable, "authentication is temporarily unavailable")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}
