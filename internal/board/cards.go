package board

import (
	"context"
	"fmt"
	"sort"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// FetchCards replaces the open board's cards with every card whose list
// belongs to boardID, in ascending position. Failures are logged and leave
// the cards unchanged.
func (s *Store) FetchCards(ctx context.Context, boardID string) error {
	cards, err := s.fetchCards(ctx, boardID)
	if err != nil {
		s.log.Error("fetching cards", "board_id", boardID, "err", err)
		return fmt.Errorf("fetch cards: %w", err)
	}
	s.update(func() { s.cards = cards })
	return nil
}

func (s *Store) fetchCards(ctx context.Context, boardID string) ([]*types.Card, error) {
	t, err := s.table(types.TableCards)
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
	cards := make([]*types.Card, 0, len(rows))
	for _, r := range rows {
		cards = append(cards, r.(*types.Card))
	}
	return cards, nil
}

// CreateCard inserts a card and appends the stored row to the open board.
func (s *Store) CreateCard(ctx context.Context, n types.NewCard) (*types.Card, error) {
	t, err := s.table(types.TableCards)
	if err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}
	c := n.Card()
	if _, err := t.Set(ctx, "", c); err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}
	s.update(func() { s.cards = append(s.cards, c) })
	return cloneCard(c), nil
}

// UpdateCard changes the fields set in u. Local state takes the row the
// service returns, including its refreshed updated_at.
func (s *Store) UpdateCard(ctx context.Context, cardID string, u types.CardUpdate) (*types.Card, error) {
	patch, err := u.Patch()
	if err != nil {
		return nil, fmt.Errorf("update card: %w", err)
	}
	c, err := s.patchCard(ctx, cardID, patch)
	if err != nil {
		return nil, fmt.Errorf("update card: %w", err)
	}
	return c, nil
}

// MoveCard puts the card into listID at position. Other cards keep their
// positions, so the moved card may share a position with a sibling.
func (s *Store) MoveCard(ctx context.Context, cardID, listID string, position int) (*types.Card, error) {
	c, err := s.patchCard(ctx, cardID, types.Patch{
		types.ColumnListID:   listID,
		types.ColumnPosition: position,
	})
	if err != nil {
		return nil, fmt.Errorf("move card: %w", err)
	}
	return c, nil
}

func (s *Store) patchCard(ctx context.Context, cardID string, patch types.Patch) (*types.Card, error) {
	t, err := s.table(types.TableCards)
	if err != nil {
		return nil, err
	}
	row, err := t.Update(ctx, cardID, patch)
	if err != nil {
		return nil, err
	}
	c := row.(*types.Card)
	s.update(func() {
		for i, old := range s.cards {
			if old.CardID == c.CardID {
				s.cards[i] = c
			}
		}
	})
	return cloneCard(c), nil
}

// DeleteCard deletes the card from the service and then from local state.
func (s *Store) DeleteCard(ctx context.Context, cardID string) error {
	t, err := s.table(types.TableCards)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	if err := t.Delete(ctx, cardID); err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	s.update(func() {
		kept := s.cards[:0:0]
		for _, c := range s.cards {
			if c.CardID != cardID {
				kept = append(kept, c)
			}
		}
		s.cards = kept
	})
	return nil
}

// Cards returns the open board's cards in fetch order.
func (s *Store) Cards() []*types.Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Card, 0, len(s.cards))
	for _, c := range s.cards {
		out = append(out, cloneCard(c))
	}
	return out
}

// Card returns the open board's card with the given id.
func (s *Store) Card(id string) (*types.Card, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.cards {
		if c.CardID == id {
			return cloneCard(c), true
		}
	}
	return nil, false
}

// CardsInList returns the cards of listID ordered by position, then
// creation time, then id. Cards sharing a position are expected after
// moves and keep a stable order.
func (s *Store) CardsInList(listID string) []*types.Card {
	s.mu.RLock()
	var out []*types.Card
	for _, c := range s.cards {
		if c.ListID == listID {
			out = append(out, cloneCard(c))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.CardID < b.CardID
	})
	return out
}
