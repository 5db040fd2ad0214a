// Package auth gates a taskboard client on the signed-in session: it resolves
// the initial session once and then follows session changes until closed.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// State of a Gate.
type State int

const (
	Initializing State = iota
	Unauthenticated
	Authenticated
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrClosed is returned by Initialize on a gate that has been closed.
var ErrClosed = errors.New("gate is closed")

// Gate exposes the authentication state of the application. Views render
// the sign-in form while Unauthenticated and the dashboard once
// Authenticated.
type Gate struct {
	auth types.Auth

	mu          sync.Mutex
	state       State
	user        *types.User
	resolved    chan struct{}
	unsubscribe func()
	closed      bool
}

// New returns a Gate in the Initializing state.
func New(auth types.Auth) *Gate {
	return &Gate{auth: auth, resolved: make(chan struct{})}
}

// Initialize fetches the current session once and subscribes to later
// changes. A failure to fetch the session leaves the gate Unauthenticated
// and is returned. Initialize on a closed gate resolves it Unauthenticated
// if it never resolved and returns ErrClosed.
func (g *Gate) Initialize(ctx context.Context) error {
	g.mu.Lock()
	if g.closed {
		if g.state == Initializing {
			g.resolveLocked(nil)
		}
		g.mu.Unlock()
		return ErrClosed
	}
	if g.unsubscribe != nil {
		g.mu.Unlock()
		return nil
	}
	g.unsubscribe = g.auth.Subscribe(g.update)
	g.mu.Unlock()

	s, err := g.auth.Session(ctx)
	if err != nil {
		g.update(nil)
		return fmt.Errorf("fetching session: %w", err)
	}
	g.update(s)
	return nil
}

// Close releases the session subscription. The gate keeps its last state.
func (g *Gate) Close() {
	g.mu.Lock()
	unsubscribe := g.unsubscribe
	g.unsubscribe, g.closed = nil, true
	g.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Wait blocks until the initial session has been resolved or ctx is done.
func (g *Gate) Wait(ctx context.Context) (State, error) {
	select {
	case <-g.resolved:
		return g.State(), nil
	case <-ctx.Done():
		return Initializing, ctx.Err()
	}
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// User returns the signed-in user, or nil.
func (g *Gate) User() *types.User {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.user == nil {
		return nil
	}
	u := *g.user
	return &u
}

func (g *Gate) SignIn(ctx context.Context, email, password string) error {
	s, err := g.auth.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	g.update(s)
	return nil
}

func (g *Gate) SignUp(ctx context.Context, email, password string) error {
	s, err := g.auth.SignUp(ctx, email, password)
	if err != nil {
		return err
	}
	g.update(s)
	return nil
}

func (g *Gate) SignOut(ctx context.Context) error {
	err := g.auth.SignOut(ctx)
	if err == nil {
		g.update(nil)
	}
	return err
}

func (g *Gate) update(s *types.Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resolveLocked(s)
}

func (g *Gate) resolveLocked(s *types.Session) {
	if s == nil {
		g.state, g.user = Unauthenticated, nil
	} else {
		u := s.User
		g.state, g.user = Authenticated, &u
	}
	select {
	case <-g.resolved:
	default:
		close(g.resolved)
	}
}
