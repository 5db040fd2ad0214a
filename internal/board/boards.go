package board

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// FetchBoards replaces the dashboard with the signed-in user's boards,
// newest first. Failures are logged and leave the dashboard unchanged; the
// error is also returned for callers that report it.
func (s *Store) FetchBoards(ctx context.Context) error {
	done := s.startLoading()
	defer done()

	boards, err := s.fetchBoards(ctx)
	if err != nil {
		s.log.Error("fetching boards", "err", err)
		return fmt.Errorf("fetch boards: %w", err)
	}
	s.update(func() { s.boards = boards })
	return nil
}

func (s *Store) fetchBoards(ctx context.Context) ([]*types.Board, error) {
	u, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	t, err := s.table(types.TableBoards)
	if err != nil {
		return nil, err
	}
	rows, err := t.Fetch(ctx, types.Query{
		Filter:     types.Filter{types.ColumnUserID: u.UserID},
		OrderBy:    types.ColumnCreatedAt,
		Descending: true,
	})
	if err != nil {
		return nil, err
	}
	boards := make([]*types.Board, 0, len(rows))
	for _, r := range rows {
		boards = append(boards, r.(*types.Board))
	}
	return boards, nil
}

// CreateBoard creates a board owned by the signed-in user and puts it at
// the front of the dashboard. Without a session it fails with an error
// wrapping types.ErrNotAuthenticated and changes nothing.
func (s *Store) CreateBoard(ctx context.Context, title, description string) (*types.Board, error) {
	u, err := s.user(ctx)
	if err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}
	t, err := s.table(types.TableBoards)
	if err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}
	b := &types.Board{
		Title:       title,
		Description: types.OptionalText(description),
		UserID:      u.UserID,
	}
	if _, err := t.Set(ctx, "", b); err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}
	s.update(func() {
		s.boards = append([]*types.Board{b}, s.boards...)
	})
	return cloneBoard(b), nil
}

// SetCurrentBoard records board as the open board without fetching its
// contents.
func (s *Store) SetCurrentBoard(b *types.Board) {
	s.update(func() {
		if b == nil {
			s.current = nil
			return
		}
		s.current = cloneBoard(b)
	})
}

// CurrentBoard returns the open board, or nil.
func (s *Store) CurrentBoard() *types.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	return cloneBoard(s.current)
}

// Boards returns the dashboard boards, newest first.
func (s *Store) Boards() []*types.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Board, 0, len(s.boards))
	for _, b := range s.boards {
		out = append(out, cloneBoard(b))
	}
	return out
}

// Board returns the dashboard board with the given id.
func (s *Store) Board(id string) (*types.Board, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.boards {
		if b.BoardID == id {
			return cloneBoard(b), true
		}
	}
	return nil, false
}

// SearchBoards returns the dashboard boards whose title or description
// contains query, ignoring case.
func (s *Store) SearchBoards(query string) []*types.Board {
	var out []*types.Board
	for _, b := range s.Boards() {
		if b.Matches(query) {
			out = append(out, b)
		}
	}
	return out
}
