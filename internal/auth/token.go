// Package auth issues and verifies the bearer tokens that identify a session.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pkordes/tripwise/internal/domain"
)

// DefaultTTL is how long a token stays valid when none is configured.
const DefaultTTL = time.Hour

// Denylist holds revoked token ids.
type Denylist interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Tokens signs HS256 JWTs whose subject is the user id and whose jti is a
// random UUID used for revocation.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	deny   Denylist
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration, deny Denylist) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if deny == nil {
		deny = NewMemoryDenylist()
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, deny: deny, now: time.Now}
}

// Issue returns a signed token and the session it stands for.
func (t *Tokens) Issue(userID uuid.UUID) (string, domain.Session, error) {
	now := t.now()
	sess := domain.Session{
		UserID:    userID,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(t.ttl).Truncate(time.Second),
	}
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ID:        sess.TokenID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", domain.Session{}, fmt.Errorf("auth.Tokens.Issue: %w", err)
	}
	return signed, sess, nil
}

// Verify parses and checks a token, including the denylist. Every failure
// is reported as domain.ErrUnauthorized.
func (t *Tokens) Verify(ctx context.Context, raw string) (domain.Session, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || claims.ID == "" {
		return domain.Session{}, fmt.Errorf("%w: malformed claims", domain.ErrUnauthorized)
	}

	revoked, err := t.deny.IsRevoked(ctx, claims.ID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("auth.Tokens.Verify: %w", err)
	}
	if revoked {
		return domain.Session{}, fmt.Errorf("%w: token revoked", domain.ErrUnauthorized)
	}

	return domain.Session{
		UserID:    userID,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke denylists the session's token until it expires.
func (t *Tokens) Revoke(ctx context.Context, sess domain.Session) error {
	if err := t.deny.Revoke(ctx, sess.TokenID, sess.ExpiresAt); err != nil {
		return fmt.Errorf("auth.Tokens.Revoke: %w", err)
	}
	return nil
}
