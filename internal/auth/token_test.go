package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tripwise/internal/domain"
)

type brokenDenylist struct{}

func (brokenDenylist) Revoke(context.Context, string, time.Time) error { return errors.New("down") }
func (brokenDenylist) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("down")
}

func TestTokens_IssueAndVerify(t *testing.T) {
	tok := NewTokens("secret", time.Hour, nil)
	user := uuid.New()

	raw, sess, err := tok.Issue(user)
	require.NoError(t, err)
	assert.Equal(t, user, sess.UserID)
	assert.NotEmpty(t, sess.TokenID)

	got, err := tok.Verify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, got.UserID)
	assert.Equal(t, sess.TokenID, got.TokenID)
	assert.True(t, sess.ExpiresAt.Equal(got.ExpiresAt))
}

func TestTokens_DefaultTTL(t *testing.T) {
	tok := NewTokens("secret", 0, nil)
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	tok.now = func() time.Time { return now }

	_, sess, err := tok.Issue(uuid.New())
	require.NoError(t, err)
	assert.Equal(t, now.Add(DefaultTTL), sess.ExpiresAt)
}

func TestTokens_Rejects(t *testing.T) {
	tok := NewTokens("secret", time.Hour, nil)
	ctx := context.Background()

	t.Run("garbage", func(t *testing.T) {
		_, err := tok.Verify(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("wrong secret", func(t *testing.T) {
		raw, _, err := NewTokens("other", time.Hour, nil).Issue(uuid.New())
		require.NoError(t, err)
		_, err = tok.Verify(ctx, raw)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("expired", func(t *testing.T) {
		old := NewTokens("secret", time.Minute, nil)
		old.now = func() time.Time { return time.Now().Add(-time.Hour) }
		raw, _, err := old.Issue(uuid.New())
		require.NoError(t, err)
		_, err = tok.Verify(ctx, raw)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("non-uuid subject", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Subject:   "alice",
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = tok.Verify(ctx, raw)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("no expiry", func(t *testing.T) {
		claims := jwt.RegisteredClaims{Subject: uuid.NewString(), ID: uuid.NewString()}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = tok.Verify(ctx, raw)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestTokens_Revoke(t *testing.T) {
	tok := NewTokens("secret", time.Hour, nil)
	ctx := context.Background()

	raw, sess, err := tok.Issue(uuid.New())
	require.NoError(t, err)
	require.NoError(t, tok.Revoke(ctx, sess))

	_, err = tok.Verify(ctx, raw)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// Other tokens for the same user are unaffected.
	raw2, _, err := tok.Issue(sess.UserID)
	require.NoError(t, err)
	_, err = tok.Verify(ctx, raw2)
	assert.NoError(t, err)
}

func TestTokens_DenylistFailureIsNotUnauthorized(t *testing.T) {
	tok := NewTokens("secret", time.Hour, brokenDenylist{})

	raw, _, err := tok.Issue(uuid.New())
	require.NoError(t, err)

	_, err = tok.Verify(context.Background(), raw)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUnauthorized)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer   abc  ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
		{"abc", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := BearerToken(tt.header)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrMissingToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemoryDenylist_Expiry(t *testing.T) {
	d := NewMemoryDenylist()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, d.Revoke(ctx, "a", now.Add(time.Minute)))
	require.NoError(t, d.Revoke(ctx, "past", now.Add(-time.Minute)))

	revoked, _ := d.IsRevoked(ctx, "a")
	assert.True(t, revoked)
	revoked, _ = d.IsRevoked(ctx, "past")
	assert.False(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, _ = d.IsRevoked(ctx, "a")
	assert.False(t, revoked)

	require.NoError(t, d.Revoke(ctx, "b", now.Add(time.Minute)))
	assert.Len(t, d.revoked, 1, "expired entries are swept on write")
}
