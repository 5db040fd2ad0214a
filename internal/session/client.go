// Package session holds the signed-in session of a taskboard client. It
// implements types.Auth over the credential service of a backend and
// remembers the access token between runs through a TokenStore.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

var _ types.Auth = (*Client)(nil)

// Client tracks the current session and notifies subscribers when it
// changes. Calls to the credential service are made without holding the
// client lock.
type Client struct {
	accounts types.Accounts
	tokens   TokenStore
	now      func() time.Time
	log      *slog.Logger

	mu      sync.Mutex
	current *types.Session
	loaded  bool
	subs    map[int]func(*types.Session)
	nextSub int
}

// Option configures a Client.
type Option func(*Client)

// WithClock sets the time source used to expire sessions.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New returns a client over accounts. A nil tokens uses a MemoryTokenStore.
func New(accounts types.Accounts, tokens TokenStore, opts ...Option) *Client {
	if tokens == nil {
		tokens = &MemoryTokenStore{}
	}
	c := &Client{
		accounts: accounts,
		tokens:   tokens,
		now:      time.Now,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		subs:     map[int]func(*types.Session){},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*types.Session, error) {
	s, err := c.accounts.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return c.set(s)
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*types.Session, error) {
	s, err := c.accounts.Register(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	return c.set(s)
}

// SignOut revokes the current token and forgets the session. The local
// session is cleared even when the service rejects the revocation; that
// error is still returned.
func (c *Client) SignOut(ctx context.Context) error {
	token, err := c.token()
	if err != nil {
		return err
	}
	var revokeErr error
	if token != "" {
		if err := c.accounts.Revoke(ctx, token); err != nil {
			revokeErr = fmt.Errorf("sign out: %w", err)
		}
	}
	if _, err := c.set(nil); err != nil {
		return err
	}
	return revokeErr
}

// Session returns the current session, or nil when signed out. The first
// call verifies a stored token with the service; tokens the service no
// longer accepts are discarded.
func (c *Client) Session(ctx context.Context) (*types.Session, error) {
	c.mu.Lock()
	loaded, current := c.loaded, c.current
	c.mu.Unlock()

	if !loaded {
		return c.restore(ctx)
	}
	if current != nil && current.Expired(c.now()) {
		c.log.Debug("session expired", "user_id", current.User.UserID)
		return c.set(nil)
	}
	return copySession(current), nil
}

func (c *Client) restore(ctx context.Context) (*types.Session, error) {
	token, err := c.tokens.Load()
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if token == "" {
		c.mu.Lock()
		c.loaded = true
		c.mu.Unlock()
		return nil, nil
	}
	s, err := c.accounts.Verify(ctx, token)
	switch {
	case errors.Is(err, types.ErrNotAuthenticated), errors.Is(err, types.ErrSessionExpired):
		c.log.Debug("stored session rejected", "err", err)
		return c.set(nil)
	case err != nil:
		return nil, fmt.Errorf("verifying session: %w", err)
	}
	if s.AccessToken == "" {
		s.AccessToken = token
	}
	return c.set(s)
}

// Subscribe registers fn for session changes. The returned function may be
// called any number of times.
func (c *Client) Subscribe(fn func(*types.Session)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

func (c *Client) token() (string, error) {
	c.mu.Lock()
	current, loaded := c.current, c.loaded
	c.mu.Unlock()
	if current != nil {
		return current.AccessToken, nil
	}
	if loaded {
		return "", nil
	}
	token, err := c.tokens.Load()
	if err != nil {
		return "", fmt.Errorf("loading session: %w", err)
	}
	return token, nil
}

// set replaces the current session, persists its token and notifies
// subscribers in registration order.
func (c *Client) set(s *types.Session) (*types.Session, error) {
	var err error
	if s == nil {
		err = c.tokens.Clear()
	} else {
		err = c.tokens.Save(s.AccessToken)
	}
	if err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	c.mu.Lock()
	c.current = copySession(s)
	c.loaded = true
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(*types.Session), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.subs[id])
	}
	c.mu.Unlock()

	if s != nil {
		c.log.Debug("session started", "user_id", s.User.UserID)
	}
	for _, fn := range fns {
		fn(copySession(s))
	}
	return copySession(s), nil
}

func copySession(s *types.Session) *types.Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
