package board

import (
	"context"
	"fmt"
	"time"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// OpenBoard makes boardID the current board and loads its lists and cards.
// A board with no lists is seeded with types.DefaultListTitles after the
// seed delay, unless ctx is done first or lists appeared in the meantime.
// A failed seed insert is logged and the remaining lists are still created.
func (s *Store) OpenBoard(ctx context.Context, boardID string) error {
	if err := s.LoadBoard(ctx, boardID); err != nil {
		return err
	}
	if len(s.Lists()) > 0 {
		return nil
	}
	return s.seedLists(ctx, boardID)
}

// LoadBoard makes boardID the current board and loads its lists and cards
// without seeding an empty board.
func (s *Store) LoadBoard(ctx context.Context, boardID string) error {
	b, ok := s.Board(boardID)
	if !ok {
		t, err := s.table(types.TableBoards)
		if err != nil {
			return fmt.Errorf("open board: %w", err)
		}
		row, err := t.Get(ctx, boardID)
		if err != nil {
			return fmt.Errorf("open board: %w", err)
		}
		b = row.(*types.Board)
	}

	s.update(func() {
		if s.current == nil || s.current.BoardID != boardID {
			s.lists, s.cards = nil, nil
		}
		s.current = b
	})

	if err := s.FetchLists(ctx, boardID); err != nil {
		// Without a successful fetch an empty board cannot be told apart
		// from a failed one, so nothing is seeded.
		return err
	}
	return s.FetchCards(ctx, boardID)
}

func (s *Store) seedLists(ctx context.Context, boardID string) error {
	timer := time.NewTimer(s.seedDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	if cur := s.CurrentBoard(); cur == nil || cur.BoardID != boardID || len(s.Lists()) > 0 {
		return nil
	}
	for i, title := range types.DefaultListTitles {
		if _, err := s.CreateList(ctx, title, boardID, i); err != nil {
			s.log.Error("seeding default list", "board_id", boardID, "title", title, "err", err)
		}
	}
	return nil
}
