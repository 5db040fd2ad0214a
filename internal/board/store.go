// Package board holds the client-side state of a taskboard: the signed-in
// user's boards and the lists and cards of the open board. Every mutation
// goes to the data service first and local state is then replaced with the
// row the service returned.
package board

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// DefaultSeedDelay is how long OpenBoard waits before seeding the default
// lists into an empty board.
const DefaultSeedDelay = time.Second

// Store is the entity state store of one application instance. It is safe
// for use from multiple goroutines; service calls are made without holding
// the lock, so overlapping operations race the way independent requests do.
type Store struct {
	cupboard  types.Cupboard
	auth      types.Auth
	log       *slog.Logger
	seedDelay time.Duration

	mu      sync.RWMutex
	boards  []*types.Board
	current *types.Board
	lists   []*types.List
	cards   []*types.Card
	loading int
	subs    map[int]func()
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger that receives fetch failures.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithSeedDelay overrides DefaultSeedDelay.
func WithSeedDelay(d time.Duration) Option {
	return func(s *Store) { s.seedDelay = d }
}

// New returns an empty store reading and writing through cupboard, which
// must be attached, on behalf of the user signed in to auth.
func New(cupboard types.Cupboard, auth types.Auth, opts ...Option) *Store {
	s := &Store{
		cupboard:  cupboard,
		auth:      auth,
		log:       slog.Default(),
		seedDelay: DefaultSeedDelay,
		subs:      map[int]func(){},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to run after every change to the store's state.
// The returned function releases the subscription and may be called more
// than once.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// update applies fn under the write lock and then notifies subscribers.
func (s *Store) update(fn func()) {
	s.mu.Lock()
	fn()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Loading reports whether a board or list fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

func (s *Store) startLoading() (done func()) {
	s.update(func() { s.loading++ })
	return func() { s.update(func() { s.loading-- }) }
}

func (s *Store) table(name string) (types.Table, error) {
	t, err := s.cupboard.GetTable(name)
	if err != nil {
		return nil, fmt.Errorf("getting %s table: %w", name, err)
	}
	return t, nil
}

// user returns the signed-in user or an error wrapping
// types.ErrNotAuthenticated.
func (s *Store) user(ctx context.Context) (*types.User, error) {
	session, err := s.auth.Session(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, types.ErrNotAuthenticated
	}
	u := session.User
	return &u, nil
}

func cloneBoard(b *types.Board) *types.Board {
	cp := *b
	if b.Description != nil {
		d := *b.Description
		cp.Description = &d
	}
	return &cp
}

func cloneList(l *types.List) *types.List {
	cp := *l
	return &cp
}

func cloneCard(c *types.Card) *types.Card {
	cp := *c
	if c.Description != nil {
		d := *c.Description
		cp.Description = &d
	}
	if c.DueDate != nil {
		d := *c.DueDate
		cp.DueDate = &d
	}
	return &cp
}
