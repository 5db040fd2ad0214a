package board

import (
	"context"
	"fmt"
	"sort"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// FetchLists replaces the open board's lists with those of boardID in
// ascending position. Failures are logged and leave the lists unchanged.
func (s *Store) FetchLists(ctx context.Context, boardID string) error {
	done := s.startLoading()
	defer done()

	lists, err := s.fetchLists(ctx, boardID)
	if err != nil {
		s.log.Error("fetching lists", "board_id", boardID, "err", err)
		return fmt.Errorf("fetch lists: %w", err)
	}
	s.update(func() { s.lists = lists })
	return nil
}

func (s *Store) fetchLists(ctx context.Context, boardID string) ([]*types.List, error) {
	t, err := s.table(types.TableLists)
	if err != nil {
		return nil, err
	}
	rows, err := t.Fetch(ctx, types.Query{
		Filter:  types.Filter{types.ColumnBoardID: boardID},
		OrderBy: types.ColumnPosition,
	})
	if err != nil {
		return nil, err
	}
	lists := make([]*types.List, 0, len(rows))
	for _, r := range rows {
		lists = append(lists, r.(*types.List))
	}
	return lists, nil
}

// CreateList inserts a list and appends the stored row to the open board.
func (s *Store) CreateList(ctx context.Context, title, boardID string, position int) (*types.List, error) {
	t, err := s.table(types.TableLists)
	if err != nil {
		return nil, fmt.Errorf("create list: %w", err)
	}
	l := &types.List{Title: title, BoardID: boardID, Position: position}
	if _, err := t.Set(ctx, "", l); err != nil {
		return nil, fmt.Errorf("create list: %w", err)
	}
	s.update(func() { s.lists = append(s.lists, l) })
	return cloneList(l), nil
}

// Lists returns the open board's lists ordered by position.
func (s *Store) Lists() []*types.List {
	s.mu.RLock()
	out := make([]*types.List, 0, len(s.lists))
	for _, l := range s.lists {
		out = append(out, cloneList(l))
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// List returns the open board's list with the given id.
func (s *Store) List(id string) (*types.List, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.lists {
		if l.ListID == id {
			return cloneList(l), true
		}
	}
	return nil, false
}
