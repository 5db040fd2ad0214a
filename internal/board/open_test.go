package board

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

func listTitles(lists []*types.List) ([]string, []int) {
	var titles []string
	var positions []int
	for _, l := range lists {
		titles = append(titles, l.Title)
		positions = append(positions, l.Position)
	}
	return titles, positions
}

func TestOpenBoardSeedsDefaultLists(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "ann@example.com")
	b, err := f.store.CreateBoard(f.ctx, "Roadmap", "")
	require.NoError(t, err)

	require.NoError(t, f.store.OpenBoard(f.ctx, b.BoardID))
	assert.Equal(t, b.BoardID, f.store.CurrentBoard().BoardID)

	titles, positions := listTitles(f.store.Lists())
	assert.Equal(t, []string{"To Do", "In Progress", "Done"}, titles)
	assert.Equal(t, []int{0, 1, 2}, positions)

	// Reopening does not seed again.
	require.NoError(t, f.store.OpenBoard(f.ctx, b.BoardID))
	assert.Len(t, f.store.Lists(), 3)
}

func TestLoadBoardDoesNotSeed(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "ann@example.com")
	b, err := f.store.CreateBoard(f.ctx, "Roadmap", "")
	require.NoError(t, err)

	require.NoError(t, f.store.LoadBoard(f.ctx, b.BoardID))
	assert.Equal(t, b.BoardID, f.store.CurrentBoard().BoardID)
	assert.Empty(t, f.store.Lists())

	l, err := f.store.CreateList(f.ctx, "Backlog", b.BoardID, 0)
	require.NoError(t, err)

	require.NoError(t, f.store.OpenBoard(f.ctx, b.BoardID))
	titles, _ := listTitles(f.store.Lists())
	assert.Equal(t, []string{l.Title}, titles)
}

func TestOpenBoardWaitsForSeedDelay(t *testing.T) {
	f := newFixture(t, WithSeedDelay(50*time.Millisecond))
	f.signIn(t, "ann@example.com")
	b, err := f.store.CreateBoard(f.ctx, "Roadmap", "")
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, f.store.OpenBoard(f.ctx, b.BoardID))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Len(t, f.store.Lists(), 3)
}

func TestOpenBoardSeedCancelled(t *testing.T) {
	f := newFixture(t, WithSeedDelay(time.Hour))
	f.signIn(t, "ann@example.com")
	b, err := f.store.CreateBoard(f.ctx, "Roadmap", "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(f.ctx, 20*time.Millisecond)
	defer cancel()
	err = f.store.OpenBoard(ctx, b.BoardID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, f.store.Lists())
}

func TestOpenBoardSkipsSeedWhenListsAppear(t *testing.T) {
	f := newFixture(t, WithSeedDelay(100*time.Millisecond))
	f.signIn(t, "ann@example.com")
	b, err := f.store.CreateBoard(f.ctx, "Roadmap", "")
	require.NoError(t, err)

	// Wait for the list fetch to finish so the new list lands during the
	// seed delay.
	var sawLoading atomic.Bool
	var once sync.Once
	fetched := make(chan struct{})
	f.store.Subscribe(func() {
		if f.store.Loading() {
			sawLoading.Store(true)
		} else if sawLoading.Load() {
			once.Do(func() { close(fetched) })
		}
	})

	done := make(chan error, 1)
	go func() { done <- f.store.OpenBoard(f.ctx, b.BoardID) }()
	<-fetched
	_, err = f.store.CreateList(f.ctx, "Mine", b.BoardID, 0)
	require.NoError(t, err)

	require.NoError(t, <-done)
	titles, _ := listTitles(f.store.Lists())
	assert.Equal(t, []string{"Mine"}, titles)
}

func TestOpenBoardSeedFailureContinues(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "ann@example.com")
	b, err := f.store.CreateBoard(f.ctx, "Roadmap", "")
	require.NoError(t, err)

	f.faults.set("lists.Set", errUnavailable)
	require.NoError(t, f.store.OpenBoard(f.ctx, b.BoardID))
	assert.Empty(t, f.store.Lists())
	assert.Equal(t, 3, strings.Count(f.logs.String(), "seeding default list"))
}

func TestOpenBoardFetchFailureDoesNotSeed(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "ann@example.com")
	b, err := f.store.CreateBoard(f.ctx, "Roadmap", "")
	require.NoError(t, err)

	f.faults.set("lists.Fetch", errUnavailable)
	err = f.store.OpenBoard(f.ctx, b.BoardID)
	assert.ErrorIs(t, err, errUnavailable)

	f.faults.set("lists.Fetch", nil)
	require.NoError(t, f.store.FetchLists(f.ctx, b.BoardID))
	assert.Empty(t, f.store.Lists())
}

func TestOpenBoardSwitchesBoards(t *testing.T) {
	f := newFixture(t)
	_, a, _ := populated(t, f)
	f.card(t, "old", a.ListID, 0)

	other, err := f.store.CreateBoard(f.ctx, "Other", "")
	require.NoError(t, err)
	_, err = f.store.CreateList(f.ctx, "Only", other.BoardID, 0)
	require.NoError(t, err)

	// Unknown to the dashboard: loaded from the service.
	f.store.boards = nil
	require.NoError(t, f.store.OpenBoard(f.ctx, other.BoardID))
	titles, _ := listTitles(f.store.Lists())
	assert.Equal(t, []string{"Only"}, titles)
	assert.Empty(t, f.store.Cards())

	err = f.store.OpenBoard(f.ctx, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}
