package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// fakeAuth is a types.Auth whose session the test controls.
type fakeAuth struct {
	mu         sync.Mutex
	session    *types.Session
	sessionErr error
	signInErr  error
	subs       map[int]func(*types.Session)
	next       int
}

func newFakeAuth(s *types.Session) *fakeAuth {
	return &fakeAuth{session: s, subs: map[int]func(*types.Session){}}
}

func (f *fakeAuth) emit(s *types.Session) {
	f.mu.Lock()
	f.session = s
	fns := make([]func(*types.Session), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

func (f *fakeAuth) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeAuth) SignIn(_ context.Context, email, _ string) (*types.Session, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	s := &types.Session{AccessToken: "t", User: types.User{UserID: "u1", Email: email}}
	f.emit(s)
	return s, nil
}

func (f *fakeAuth) SignUp(ctx context.Context, email, password string) (*types.Session, error) {
	return f.SignIn(ctx, email, password)
}

func (f *fakeAuth) SignOut(context.Context) error {
	f.emit(nil)
	return nil
}

func (f *fakeAuth) Session(context.Context) (*types.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, f.sessionErr
}

func (f *fakeAuth) Subscribe(fn func(*types.Session)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

func ann() *types.Session {
	return &types.Session{AccessToken: "t", User: types.User{UserID: "u1", Email: "ann@example.com"}}
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name    string
		session *types.Session
		want    State
	}{
		{"signed in", ann(), Authenticated},
		{"signed out", nil, Unauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(newFakeAuth(tt.session))
			assert.Equal(t, Initializing, g.State())
			require.NoError(t, g.Initialize(context.Background()))
			defer g.Close()

			state, err := g.Wait(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, state)
			assert.Equal(t, tt.session != nil, g.User() != nil)
		})
	}
}

func TestInitializeSessionError(t *testing.T) {
	fa := newFakeAuth(nil)
	fa.sessionErr = errors.New("disk on fire")
	g := New(fa)
	err := g.Initialize(context.Background())
	assert.ErrorIs(t, err, fa.sessionErr)
	assert.Equal(t, Unauthenticated, g.State())
}

func TestFollowsSessionChanges(t *testing.T) {
	fa := newFakeAuth(nil)
	g := New(fa)
	require.NoError(t, g.Initialize(context.Background()))

	fa.emit(ann())
	assert.Equal(t, Authenticated, g.State())
	assert.Equal(t, "ann@example.com", g.User().Email)

	fa.emit(nil)
	assert.Equal(t, Unauthenticated, g.State())
	assert.Nil(t, g.User())
}

func TestCloseReleasesSubscription(t *testing.T) {
	fa := newFakeAuth(nil)
	g := New(fa)
	require.NoError(t, g.Initialize(context.Background()))
	require.NoError(t, g.Initialize(context.Background()), "second initialize is a no-op")
	assert.Equal(t, 1, fa.subscribers())

	g.Close()
	g.Close()
	assert.Zero(t, fa.subscribers())

	fa.emit(ann())
	assert.Equal(t, Unauthenticated, g.State(), "closed gate ignores changes")
}

func TestInitializeAfterClose(t *testing.T) {
	fa := newFakeAuth(ann())
	g := New(fa)
	g.Close()

	err := g.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.Zero(t, fa.subscribers())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	state, err := g.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, Unauthenticated, state)
}

func TestInitializeAfterCloseKeepsState(t *testing.T) {
	g := New(newFakeAuth(ann()))
	require.NoError(t, g.Initialize(context.Background()))
	g.Close()

	assert.ErrorIs(t, g.Initialize(context.Background()), ErrClosed)
	assert.Equal(t, Authenticated, g.State())
}

func TestWaitHonorsContext(t *testing.T) {
	g := New(newFakeAuth(nil))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	state, err := g.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Initializing, state)
}

func TestSignInSignOut(t *testing.T) {
	ctx := context.Background()
	fa := newFakeAuth(nil)
	g := New(fa)
	require.NoError(t, g.Initialize(ctx))
	defer g.Close()

	require.NoError(t, g.SignIn(ctx, "ann@example.com", "password1"))
	assert.Equal(t, Authenticated, g.State())
	require.NoError(t, g.SignOut(ctx))
	assert.Equal(t, Unauthenticated, g.State())
	require.NoError(t, g.SignUp(ctx, "bob@example.com", "password1"))
	assert.Equal(t, "bob@example.com", g.User().Email)

	fa.signInErr = types.ErrInvalidCredentials
	assert.ErrorIs(t, g.SignIn(ctx, "ann@example.com", "nope"), types.ErrInvalidCredentials)
	assert.Equal(t, "bob@example.com", g.User().Email, "failed sign-in keeps the current user")
}
