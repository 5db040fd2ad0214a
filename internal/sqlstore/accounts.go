package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

var _ types.Accounts = (*Accounts)(nil)

// Accounts implements types.Accounts over the users and sessions tables.
// Access tokens are HS256 JWTs whose ID claim names a sessions row, so a
// token stops verifying once its row is revoked.
type Accounts struct {
	store  *Store
	secret []byte
	ttl    time.Duration
}

// claims carried in an access token.
type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Accounts returns the credential service signing tokens with secret.
// A non-positive ttl uses types.DefaultSessionTTL.
func (s *Store) Accounts(secret []byte, ttl time.Duration) *Accounts {
	if ttl <= 0 {
		ttl = types.DefaultSessionTTL
	}
	return &Accounts{store: s, secret: secret, ttl: ttl}
}

// NormalizeEmail trims and lower-cases an address and checks its syntax.
func NormalizeEmail(email string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" {
		return "", types.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e {
		return "", types.ErrInvalidEmail
	}
	return e, nil
}

// Register creates a user with a bcrypt password hash and opens a session.
func (a *Accounts) Register(ctx context.Context, email, password string) (*types.Session, error) {
	e, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < types.MinPasswordLength {
		return nil, types.ErrWeakPassword
	}
	taken, err := a.store.exists(ctx, "users", "email", e)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, types.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	u := types.User{UserID: newID(), Email: e, CreatedAt: a.store.now().UTC()}
	_, err = a.store.exec(ctx,
		"INSERT INTO users (user_id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		u.UserID, u.Email, string(hash), a.store.timeArg(u.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	if err := a.store.wrote(ctx, "users"); err != nil {
		return nil, err
	}
	return a.openSession(ctx, u)
}

// Login checks the password and opens a new session.
// Unknown emails and wrong passwords both return ErrInvalidCredentials.
func (a *Accounts) Login(ctx context.Context, email, password string) (*types.Session, error) {
	e, err := NormalizeEmail(email)
	if err != nil {
		return nil, types.ErrInvalidCredentials
	}
	var (
		u       types.User
		hash    string
		created dbTime
	)
	err = a.store.queryRow(ctx,
		"SELECT user_id, email, password_hash, created_at FROM users WHERE email = ?", e,
	).Scan(&u.UserID, &u.Email, &hash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, types.ErrInvalidCredentials
	}
	u.CreatedAt = created.Time
	return a.openSession(ctx, u)
}

// Verify checks the token signature and expiry and that its session row
// still exists.
func (a *Accounts) Verify(ctx context.Context, token string) (*types.Session, error) {
	if token == "" {
		return nil, types.ErrNotAuthenticated
	}
	c := &claims{}
	_, err := jwt.ParseWithClaims(token, c, a.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.store.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, types.ErrSessionExpired
	}
	if err != nil {
		return nil, types.ErrNotAuthenticated
	}

	var (
		u       types.User
		created dbTime
		expires dbTime
	)
	err = a.store.queryRow(ctx,
		`SELECT users.user_id, users.email, users.created_at, sessions.expires_at
FROM sessions JOIN users ON users.user_id = sessions.user_id
WHERE sessions.session_id = ?`, c.ID,
	).Scan(&u.UserID, &u.Email, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("looking up session: %w", err)
	}
	if u.UserID != c.Subject {
		return nil, types.ErrNotAuthenticated
	}
	u.CreatedAt = created.Time
	if !a.store.now().Before(expires.Time) {
		return nil, types.ErrSessionExpired
	}
	return &types.Session{AccessToken: token, User: u, ExpiresAt: expires.Time.Truncate(time.Second)}, nil
}

// Revoke deletes the session row named by token. Expired tokens can still
// be revoked; unparseable or unknown tokens are ignored.
func (a *Accounts) Revoke(ctx context.Context, token string) error {
	c := &claims{}
	_, err := jwt.ParseWithClaims(token, c, a.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || c.ID == "" {
		return nil
	}
	res, err := a.store.exec(ctx, "DELETE FROM sessions WHERE session_id = ?", c.ID)
	if err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	return a.store.wrote(ctx, "sessions")
}

func (a *Accounts) openSession(ctx context.Context, u types.User) (*types.Session, error) {
	now := a.store.now().UTC()
	expires := now.Add(a.ttl)
	sessionID := newID()

	_, err := a.store.exec(ctx,
		"INSERT INTO sessions (session_id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)",
		sessionID, u.UserID, a.store.timeArg(now), a.store.timeArg(expires),
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	if err := a.store.wrote(ctx, "sessions"); err != nil {
		return nil, err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.UserID,
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}
	return &types.Session{AccessToken: signed, User: u, ExpiresAt: expires.Truncate(time.Second)}, nil
}

func (a *Accounts) key(*jwt.Token) (any, error) {
	return a.secret, nil
}
