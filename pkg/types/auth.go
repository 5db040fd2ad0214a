package types

import (
	"context"
	"errors"
	"time"
)

// User is an account known to the data service.
type User struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is an authenticated session issued by the data service.
type Session struct {
	AccessToken string    `json:"access_token"`
	User        User      `json:"user"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the session has passed its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Accounts is the credential service of a backend. It issues, verifies and
// revokes session tokens; it holds no notion of a "current" user.
type Accounts interface {
	// Register creates an account and returns a session for it.
	Register(ctx context.Context, email, password string) (*Session, error)

	// Login checks credentials and returns a new session.
	Login(ctx context.Context, email, password string) (*Session, error)

	// Verify returns the session described by token.
	// Returns ErrNotAuthenticated if the token is unknown or revoked and
	// ErrSessionExpired if it has expired.
	Verify(ctx context.Context, token string) (*Session, error)

	// Revoke invalidates token. Revoking an unknown token succeeds.
	Revoke(ctx context.Context, token string) error
}

// Auth is the client-side authentication capability: it tracks the current
// session and notifies subscribers when it changes.
type Auth interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error

	// Session returns the current session, or nil when signed out.
	Session(ctx context.Context) (*Session, error)

	// Subscribe registers fn to receive the new session (nil on sign-out)
	// after every change. The returned function releases the subscription.
	Subscribe(fn func(*Session)) (unsubscribe func())
}

// Authentication errors.
var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password is too short")
	ErrSessionExpired     = errors.New("session expired")
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 6
