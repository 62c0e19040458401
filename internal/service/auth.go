package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pkordes/tripwise/internal/domain"
	"github.com/pkordes/tripwise/internal/repo"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 72 // bcrypt ignores anything longer
)

// Tokens issues, verifies and revokes session tokens. auth.Tokens satisfies it.
type Tokens interface {
	Issue(userID uuid.UUID) (string, domain.Session, error)
	Verify(ctx context.Context, raw string) (domain.Session, error)
	Revoke(ctx context.Context, sess domain.Session) error
}

// AuthResult is what a successful sign-up or sign-in returns to the client.
type AuthResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      domain.User `json:"user"`
}

// AuthService is the email/password identity provider.
type AuthService struct {
	users  repo.UserRepo
	tokens Tokens
	cost   int
}

// NewAuthService constructs an AuthService. Without a user repo sign-up and
// sign-in fail with domain.ErrUnavailable; token checks still work.
func NewAuthService(users repo.UserRepo, tokens Tokens) *AuthService {
	return &AuthService{users: users, tokens: tokens, cost: bcrypt.DefaultCost}
}

// SignUp creates an account and signs it in.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (AuthResult, error) {
	if s.users == nil {
		return AuthResult{}, fmt.Errorf("service.AuthService.SignUp: %w: identity provider is not configured", domain.ErrUnavailable)
	}
	email = normalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return AuthResult{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("service.AuthService.SignUp: hash: %w", err)
	}
	user, err := s.users.Create(ctx, email, string(hash))
	if err != nil {
		return AuthResult{}, fmt.Errorf("service.AuthService.SignUp: %w", err)
	}
	return s.issue(user)
}

// SignIn checks credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (AuthResult, error) {
	if s.users == nil {
		return AuthResult{}, fmt.Errorf("service.AuthService.SignIn: %w: identity provider is not configured", domain.ErrUnavailable)
	}
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return AuthResult{}, errBadCredentials
	}
	if err != nil {
		return AuthResult{}, fmt.Errorf("service.AuthService.SignIn: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return AuthResult{}, errBadCredentials
	}
	return s.issue(user)
}

// SignOut revokes the session's token.
func (s *AuthService) SignOut(ctx context.Context, sess domain.Session) error {
	if err := s.tokens.Revoke(ctx, sess); err != nil {
		return fmt.Errorf("service.AuthService.SignOut: %w", err)
	}
	return nil
}

// Authenticate turns a bearer token into a Session.
// Returns domain.ErrUnauthorized for any invalid, expired or revoked token.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Session, error) {
	return s.tokens.Verify(ctx, token)
}

var errBadCredentials = fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)

func (s *AuthService) issue(user domain.User) (AuthResult, error) {
	token, sess, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("service.AuthService: %w", err)
	}
	return AuthResult{Token: token, ExpiresAt: sess.ExpiresAt, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(email, password string) error {
	if !strings.Contains(email, "@") {
		return fmt.Errorf("%w: a valid email is required", domain.ErrValidation)
	}
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return fmt.Errorf("%w: password must be at most %d bytes", domain.ErrValidation, maxPasswordLen)
	}
	return nil
}
