package dnd

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// fakeMover is an in-memory Mover that records moves.
type fakeMover struct {
	lists   map[string]*types.List
	cards   map[string]*types.Card
	moves   []string
	moveErr error
}

func newFakeMover() *fakeMover {
	return &fakeMover{lists: map[string]*types.List{}, cards: map[string]*types.Card{}}
}

func (m *fakeMover) addList(id string, position int) {
	m.lists[id] = &types.List{ListID: id, Title: id, Position: position}
}

func (m *fakeMover) addCard(id, listID string, position int) {
	m.cards[id] = &types.Card{CardID: id, Title: id, ListID: listID, Position: position}
}

func (m *fakeMover) Card(id string) (*types.Card, bool) {
	c, ok := m.cards[id]
	if !ok {
		return nil, false
	}
	cp := *c
	return &cp, true
}

func (m *fakeMover) List(id string) (*types.List, bool) {
	l, ok := m.lists[id]
	if !ok {
		return nil, false
	}
	cp := *l
	return &cp, true
}

func (m *fakeMover) Lists() []*types.List {
	var out []*types.List
	for _, l := range m.lists {
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (m *fakeMover) CardsInList(listID string) []*types.Card {
	var out []*types.Card
	for _, c := range m.cards {
		if c.ListID == listID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].CardID < out[j].CardID
	})
	return out
}

func (m *fakeMover) MoveCard(_ context.Context, cardID, listID string, position int) (*types.Card, error) {
	if m.moveErr != nil {
		return nil, m.moveErr
	}
	c := m.cards[cardID]
	c.ListID, c.Position = listID, position
	m.moves = append(m.moves, cardID)
	cp := *c
	return &cp, nil
}

// board builds lists "todo" and "done" with cards t0, t1 in todo and d0, d1
// in done.
func sampleBoard() *fakeMover {
	m := newFakeMover()
	m.addList("todo", 0)
	m.addList("done", 1)
	m.addCard("t0", "todo", 0)
	m.addCard("t1", "todo", 1)
	m.addCard("d0", "done", 0)
	m.addCard("d1", "done", 1)
	return m
}

func TestPlan(t *testing.T) {
	m := sampleBoard()
	tests := []struct {
		name     string
		card     string
		target   *Target
		wantList string
		wantPos  int
		wantOK   bool
	}{
		{"list target appends", "t0", &Target{KindList, "done"}, "done", 2, true},
		{"own list target", "t0", &Target{KindList, "todo"}, "", 0, false},
		{"card in other list takes its position", "t0", &Target{KindCard, "d1"}, "done", 1, true},
		{"card in same list", "t0", &Target{KindCard, "t1"}, "", 0, false},
		{"itself", "t0", &Target{KindCard, "t0"}, "", 0, false},
		{"no target", "t0", nil, "", 0, false},
		{"unknown list", "t0", &Target{KindList, "gone"}, "", 0, false},
		{"unknown target card", "t0", &Target{KindCard, "gone"}, "", 0, false},
		{"unknown dragged card", "gone", &Target{KindList, "done"}, "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, pos, ok := Plan(m, tt.card, tt.target)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantList, list)
			assert.Equal(t, tt.wantPos, pos)
		})
	}
}

func TestActivationDistance(t *testing.T) {
	c := New(sampleBoard())
	c.PointerDown("t0", Point{100, 100}, Rect{X: 90, Y: 90, W: 200, H: 80})
	assert.Equal(t, Idle, c.State(), "pressed is not yet lifted")

	assert.Equal(t, Idle, c.PointerMove(Point{104, 105}), "moved under 8px")
	_, lifted := c.LiftedCard()
	assert.False(t, lifted)

	assert.Equal(t, Lifted, c.PointerMove(Point{108, 100}), "exactly 8px lifts")
	id, lifted := c.LiftedCard()
	assert.True(t, lifted)
	assert.Equal(t, "t0", id)
}

func TestCustomActivationDistance(t *testing.T) {
	c := New(sampleBoard(), WithActivationDistance(20))
	c.PointerDown("t0", Point{0, 0}, Rect{W: 10, H: 10})
	assert.Equal(t, Idle, c.PointerMove(Point{12, 12}))
	assert.Equal(t, Lifted, c.PointerMove(Point{12, 16}))
}

func TestMoveWithoutPressIsIgnored(t *testing.T) {
	c := New(sampleBoard())
	assert.Equal(t, Idle, c.PointerMove(Point{500, 500}))
}

func TestClickWithoutLiftDoesNothing(t *testing.T) {
	m := sampleBoard()
	c := New(m)
	c.PointerDown("t0", Point{100, 100}, Rect{})
	c.PointerMove(Point{102, 102})
	moved, err := c.PointerUp(context.Background(), Point{102, 102}, Layout(m, DefaultGeometry))
	require.NoError(t, err)
	assert.Nil(t, moved)
	assert.Empty(t, m.moves)
	assert.Equal(t, Idle, c.State())
}

func TestPointerDragOntoList(t *testing.T) {
	m := sampleBoard()
	m.addList("later", 2)
	ds := Layout(m, DefaultGeometry)
	from, ok := Find(ds, Target{KindCard, "t0"})
	require.True(t, ok)
	to, ok := Find(ds, Target{KindList, "later"})
	require.True(t, ok)

	c := New(m)
	start := from.Center()
	c.PointerDown("t0", start, from)
	// Drag the card so that its rect coincides with the empty column's
	// first card slot, nearest to the column itself.
	dx, dy := to.X-from.X+DefaultGeometry.CardInset, to.Y-from.Y+DefaultGeometry.HeaderHeight
	end := Point{start.X + dx, start.Y + dy}
	c.PointerMove(end)
	require.Equal(t, Lifted, c.State())

	moved, err := c.PointerUp(context.Background(), end, ds)
	require.NoError(t, err)
	require.NotNil(t, moved)
	assert.Equal(t, "later", moved.ListID)
	assert.Equal(t, 0, moved.Position, "position is the prior count")
	assert.Equal(t, Idle, c.State())
}

func TestPointerDragOntoCard(t *testing.T) {
	m := sampleBoard()
	ds := Layout(m, DefaultGeometry)
	from, _ := Find(ds, Target{KindCard, "t0"})
	to, _ := Find(ds, Target{KindCard, "d1"})

	c := New(m)
	start := from.Center()
	c.PointerDown("t0", start, from)
	end := Point{start.X + to.X - from.X, start.Y + to.Y - from.Y}
	c.PointerMove(end)

	moved, err := c.PointerUp(context.Background(), end, ds)
	require.NoError(t, err)
	require.NotNil(t, moved)
	assert.Equal(t, "done", moved.ListID)
	assert.Equal(t, 1, moved.Position)

	d1, _ := m.Card("d1")
	assert.Equal(t, 1, d1.Position, "target keeps its position; both share 1")
}

func TestPointerDropInSameListDoesNothing(t *testing.T) {
	m := sampleBoard()
	ds := Layout(m, DefaultGeometry)
	from, _ := Find(ds, Target{KindCard, "t0"})
	to, _ := Find(ds, Target{KindCard, "t1"})

	c := New(m)
	c.PointerDown("t0", from.Center(), from)
	end := Point{from.Center().X, from.Center().Y + to.Y - from.Y}
	c.PointerMove(end)
	moved, err := c.PointerUp(context.Background(), end, ds)
	require.NoError(t, err)
	assert.Nil(t, moved)
	assert.Empty(t, m.moves)
	assert.Equal(t, Idle, c.State())
}

func TestLiftAndDrop(t *testing.T) {
	ctx := context.Background()
	m := sampleBoard()
	c := New(m)

	_, err := c.DropOnto(ctx, &Target{KindList, "done"})
	assert.ErrorIs(t, err, ErrNotLifted)

	require.NoError(t, c.Lift("t1"))
	assert.ErrorIs(t, c.Lift("t0"), ErrDragInProgress)
	moved, err := c.DropOnto(ctx, &Target{KindList, "done"})
	require.NoError(t, err)
	assert.Equal(t, "done", moved.ListID)
	assert.Equal(t, 2, moved.Position)
	assert.Equal(t, Idle, c.State())

	// Two consecutive appends see the updated count.
	require.NoError(t, c.Lift("t0"))
	moved, err = c.DropOnto(ctx, &Target{KindList, "done"})
	require.NoError(t, err)
	assert.Equal(t, 3, moved.Position)
}

func TestDropOutsideEverySurface(t *testing.T) {
	m := sampleBoard()
	c := New(m)
	require.NoError(t, c.Lift("t0"))
	moved, err := c.DropOnto(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, moved)
	assert.Equal(t, Idle, c.State())

	c.PointerDown("t0", Point{}, Rect{W: 10, H: 10})
	c.PointerMove(Point{X: 50})
	moved, err = c.PointerUp(context.Background(), Point{X: 50}, nil)
	require.NoError(t, err)
	assert.Nil(t, moved)
}

func TestFailedMoveReturnsToIdle(t *testing.T) {
	m := sampleBoard()
	m.moveErr = errors.New("service unavailable")
	c := New(m)
	require.NoError(t, c.Lift("t0"))
	_, err := c.DropOnto(context.Background(), &Target{KindList, "done"})
	assert.ErrorIs(t, err, m.moveErr)
	assert.Equal(t, Idle, c.State())
}

func TestCancel(t *testing.T) {
	m := sampleBoard()
	c := New(m)
	c.PointerDown("t0", Point{}, Rect{})
	c.PointerMove(Point{X: 20})
	require.Equal(t, Lifted, c.State())

	c.PointerDown("t1", Point{}, Rect{})
	id, _ := c.LiftedCard()
	assert.Equal(t, "t0", id, "press while lifted is ignored")

	c.Cancel()
	assert.Equal(t, Idle, c.State())
	assert.Empty(t, m.moves)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "lifted", Lifted.String())
	assert.Equal(t, "dropped", Dropped.String())
	assert.Equal(t, "State(9)", State(9).String())
}
