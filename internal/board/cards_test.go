package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// populated signs in, creates a board with lists "A" and "B", and returns
// them. The board is open in the store.
func populated(t *testing.T, f *fixture) (*types.Board, *types.List, *types.List) {
	t.Helper()
	f.signIn(t, "ann@example.com")
	b, err := f.store.CreateBoard(f.ctx, "Roadmap", "")
	require.NoError(t, err)
	f.store.SetCurrentBoard(b)
	a, err := f.store.CreateList(f.ctx, "A", b.BoardID, 0)
	require.NoError(t, err)
	bl, err := f.store.CreateList(f.ctx, "B", b.BoardID, 1)
	require.NoError(t, err)
	return b, a, bl
}

func (f *fixture) card(t *testing.T, title, listID string, position int) *types.Card {
	t.Helper()
	c, err := f.store.CreateCard(f.ctx, types.NewCard{Title: title, ListID: listID, Position: position})
	require.NoError(t, err)
	return c
}

func TestCreateCardAppends(t *testing.T) {
	f := newFixture(t)
	_, a, _ := populated(t, f)
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	c, err := f.store.CreateCard(f.ctx, types.NewCard{
		Title:       "Write docs",
		ListID:      a.ListID,
		Description: "all of them",
		DueDate:     &due,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, c.CardID)
	require.NotNil(t, c.DueDate)
	assert.True(t, due.Equal(*c.DueDate))

	second := f.card(t, "Review", a.ListID, 1)
	cards := f.store.Cards()
	require.Len(t, cards, 2)
	assert.Equal(t, second.CardID, cards[1].CardID)

	_, err = f.store.CreateCard(f.ctx, types.NewCard{Title: "orphan", ListID: "missing"})
	assert.ErrorIs(t, err, types.ErrInvalidReference)
	assert.Len(t, f.store.Cards(), 2)
}

func TestFetchCardsByBoard(t *testing.T) {
	f := newFixture(t)
	b, a, bl := populated(t, f)
	f.card(t, "second", a.ListID, 1)
	f.card(t, "first", bl.ListID, 0)

	other, err := f.store.CreateBoard(f.ctx, "Other", "")
	require.NoError(t, err)
	ol, err := f.store.CreateList(f.ctx, "X", other.BoardID, 0)
	require.NoError(t, err)
	f.card(t, "elsewhere", ol.ListID, 0)

	require.NoError(t, f.store.FetchCards(f.ctx, b.BoardID))
	cards := f.store.Cards()
	require.Len(t, cards, 2)
	assert.Equal(t, "first", cards[0].Title)
	assert.Equal(t, "second", cards[1].Title)

	f.faults.set("cards.Fetch", errUnavailable)
	assert.ErrorIs(t, f.store.FetchCards(f.ctx, other.BoardID), errUnavailable)
	assert.Len(t, f.store.Cards(), 2, "failed fetch keeps prior cards")
	assert.Contains(t, f.logs.String(), "fetching cards")
}

func TestUpdateCardTouchesOnlyGivenFields(t *testing.T) {
	f := newFixture(t)
	b, _, bl := populated(t, f)
	c := f.card(t, "Draft", bl.ListID, 3)

	title, desc := "Final", "ready for review"
	due := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	got, err := f.store.UpdateCard(f.ctx, c.CardID, types.CardUpdate{Title: &title, Description: &desc, DueDate: &due})
	require.NoError(t, err)

	assert.Equal(t, "Final", got.Title)
	assert.Equal(t, "ready for review", *got.Description)
	assert.True(t, due.Equal(*got.DueDate))
	assert.Equal(t, 3, got.Position)
	assert.Equal(t, bl.ListID, got.ListID)
	assert.True(t, got.UpdatedAt.After(c.UpdatedAt), "server refreshed updated_at")

	local, ok := f.store.Card(c.CardID)
	require.True(t, ok)
	assert.Equal(t, got, local, "local state holds the returned row")

	remote := f.fetchCards(t, b.BoardID)
	require.Len(t, remote, 1)
	assert.Equal(t, "Final", remote[0].Title)
	assert.Equal(t, 3, remote[0].Position)
}

func TestUpdateCardClearsFields(t *testing.T) {
	f := newFixture(t)
	_, a, _ := populated(t, f)
	due := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	c, err := f.store.CreateCard(f.ctx, types.NewCard{Title: "x", ListID: a.ListID, Description: "d", DueDate: &due})
	require.NoError(t, err)

	empty, zero := "", time.Time{}
	got, err := f.store.UpdateCard(f.ctx, c.CardID, types.CardUpdate{Description: &empty, DueDate: &zero})
	require.NoError(t, err)
	assert.Nil(t, got.Description)
	assert.Nil(t, got.DueDate)
	assert.Equal(t, "x", got.Title)
}

func TestUpdateCardErrors(t *testing.T) {
	f := newFixture(t)
	_, a, _ := populated(t, f)
	c := f.card(t, "Draft", a.ListID, 0)

	blank := " "
	_, err := f.store.UpdateCard(f.ctx, c.CardID, types.CardUpdate{Title: &blank})
	assert.ErrorIs(t, err, types.ErrInvalidTitle)

	title := "Final"
	_, err = f.store.UpdateCard(f.ctx, "missing", types.CardUpdate{Title: &title})
	assert.ErrorIs(t, err, types.ErrNotFound)

	f.faults.set("cards.Update", errUnavailable)
	_, err = f.store.UpdateCard(f.ctx, c.CardID, types.CardUpdate{Title: &title})
	assert.ErrorIs(t, err, errUnavailable)
	local, _ := f.store.Card(c.CardID)
	assert.Equal(t, "Draft", local.Title, "failed update leaves local state")
}

func TestMoveCardDoesNotRenumber(t *testing.T) {
	f := newFixture(t)
	b, a, bl := populated(t, f)
	moving := f.card(t, "moving", a.ListID, 0)
	stay := f.card(t, "stay", a.ListID, 1)
	target := f.card(t, "target", bl.ListID, 0)

	got, err := f.store.MoveCard(f.ctx, moving.CardID, bl.ListID, 0)
	require.NoError(t, err)
	assert.Equal(t, bl.ListID, got.ListID)
	assert.Equal(t, 0, got.Position)
	assert.True(t, got.UpdatedAt.After(moving.UpdatedAt))

	local, _ := f.store.Card(stay.CardID)
	assert.Equal(t, 1, local.Position, "source siblings keep their positions")
	local, _ = f.store.Card(target.CardID)
	assert.Equal(t, 0, local.Position, "target siblings keep their positions")

	inB := f.store.CardsInList(bl.ListID)
	require.Len(t, inB, 2)
	assert.Equal(t, moving.CardID, inB[0].CardID, "ties order by creation")
	assert.Equal(t, target.CardID, inB[1].CardID)

	for _, c := range f.fetchCards(t, b.BoardID) {
		if c.CardID == stay.CardID {
			assert.Equal(t, 1, c.Position)
		}
	}

	f.faults.set("cards.Update", errUnavailable)
	_, err = f.store.MoveCard(f.ctx, stay.CardID, bl.ListID, 5)
	assert.ErrorIs(t, err, errUnavailable)
	local, _ = f.store.Card(stay.CardID)
	assert.Equal(t, a.ListID, local.ListID)
}

func TestDeleteCard(t *testing.T) {
	f := newFixture(t)
	b, a, _ := populated(t, f)
	gone := f.card(t, "gone", a.ListID, 0)
	kept := f.card(t, "kept", a.ListID, 1)

	f.faults.set("cards.Delete", errUnavailable)
	assert.ErrorIs(t, f.store.DeleteCard(f.ctx, gone.CardID), errUnavailable)
	assert.Len(t, f.store.Cards(), 2)
	f.faults.set("cards.Delete", nil)

	require.NoError(t, f.store.DeleteCard(f.ctx, gone.CardID))
	_, ok := f.store.Card(gone.CardID)
	assert.False(t, ok)
	assert.Len(t, f.store.Cards(), 1)

	remote := f.fetchCards(t, b.BoardID)
	require.Len(t, remote, 1)
	assert.Equal(t, kept.CardID, remote[0].CardID)

	require.NoError(t, f.store.FetchCards(f.ctx, b.BoardID))
	_, ok = f.store.Card(gone.CardID)
	assert.False(t, ok, "deleted card stays gone after refetch")

	assert.ErrorIs(t, f.store.DeleteCard(f.ctx, gone.CardID), types.ErrNotFound)
}
