package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

func TestCreateBoardPrepends(t *testing.T) {
	f := newFixture(t)
	s := f.signIn(t, "ann@example.com")

	first, err := f.store.CreateBoard(f.ctx, "First", "")
	require.NoError(t, err)
	second, err := f.store.CreateBoard(f.ctx, "Second", "with notes")
	require.NoError(t, err)

	boards := f.store.Boards()
	require.Len(t, boards, 2)
	assert.Equal(t, second.BoardID, boards[0].BoardID, "new board is at the front")
	assert.Equal(t, first.BoardID, boards[1].BoardID)
	assert.Equal(t, s.User.UserID, second.UserID)
	assert.Nil(t, first.Description, "empty description is stored as null")
	require.NotNil(t, second.Description)
	assert.Equal(t, "with notes", *second.Description)
	assert.False(t, second.CreatedAt.IsZero())
}

func TestCreateBoardUnauthenticated(t *testing.T) {
	f := newFixture(t)
	var calls int
	f.store.Subscribe(func() { calls++ })

	_, err := f.store.CreateBoard(f.ctx, "Roadmap", "")
	assert.ErrorIs(t, err, types.ErrNotAuthenticated)
	assert.Empty(t, f.store.Boards())
	assert.Zero(t, calls)

	tbl, err := f.backend.GetTable(types.TableBoards)
	require.NoError(t, err)
	rows, err := tbl.Fetch(f.ctx, types.Query{})
	require.NoError(t, err)
	assert.Empty(t, rows, "nothing written remotely")
}

func TestCreateBoardServiceError(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "ann@example.com")

	_, err := f.store.CreateBoard(f.ctx, "  ", "")
	assert.ErrorIs(t, err, types.ErrInvalidTitle)

	f.faults.set("boards.Set", errUnavailable)
	_, err = f.store.CreateBoard(f.ctx, "Roadmap", "")
	assert.ErrorIs(t, err, errUnavailable)
	assert.Empty(t, f.store.Boards())
}

func TestFetchBoards(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "bob@example.com")
	_, err := f.store.CreateBoard(f.ctx, "Bob's", "")
	require.NoError(t, err)

	f.signIn(t, "ann@example.com")
	older, err := f.store.CreateBoard(f.ctx, "Older", "")
	require.NoError(t, err)
	newer, err := f.store.CreateBoard(f.ctx, "Newer", "")
	require.NoError(t, err)

	require.NoError(t, f.store.FetchBoards(f.ctx))
	boards := f.store.Boards()
	require.Len(t, boards, 2, "only the signed-in user's boards")
	assert.Equal(t, newer.BoardID, boards[0].BoardID)
	assert.Equal(t, older.BoardID, boards[1].BoardID)
}

func TestFetchBoardsFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "ann@example.com")
	_, err := f.store.CreateBoard(f.ctx, "Roadmap", "")
	require.NoError(t, err)

	f.faults.set("boards.Fetch", errUnavailable)
	err = f.store.FetchBoards(f.ctx)
	assert.ErrorIs(t, err, errUnavailable)
	assert.Len(t, f.store.Boards(), 1)
	assert.Contains(t, f.logs.String(), "fetching boards")

	f.faults.set("boards.Fetch", nil)
	require.NoError(t, f.auth.SignOut(f.ctx))
	err = f.store.FetchBoards(f.ctx)
	assert.ErrorIs(t, err, types.ErrNotAuthenticated)
	assert.Len(t, f.store.Boards(), 1)
}

func TestCurrentBoard(t *testing.T) {
	f := newFixture(t)
	assert.Nil(t, f.store.CurrentBoard())

	b := &types.Board{BoardID: "b1", Title: "Roadmap"}
	f.store.SetCurrentBoard(b)
	b.Title = "changed"
	assert.Equal(t, "Roadmap", f.store.CurrentBoard().Title)

	f.store.SetCurrentBoard(nil)
	assert.Nil(t, f.store.CurrentBoard())
}

func TestSearchBoards(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "ann@example.com")
	for _, b := range []struct{ title, desc string }{
		{"Roadmap", "Quarterly PLANNING"},
		{"Groceries", ""},
		{"Release plan", ""},
	} {
		_, err := f.store.CreateBoard(f.ctx, b.title, b.desc)
		require.NoError(t, err)
	}

	titles := func(bs []*types.Board) []string {
		var out []string
		for _, b := range bs {
			out = append(out, b.Title)
		}
		return out
	}
	assert.Equal(t, []string{"Release plan", "Roadmap"}, titles(f.store.SearchBoards("PLAN")))
	assert.Equal(t, []string{"Groceries"}, titles(f.store.SearchBoards(" groc ")))
	assert.Len(t, f.store.SearchBoards(""), 3)
	assert.Empty(t, f.store.SearchBoards("nothing"))
}
