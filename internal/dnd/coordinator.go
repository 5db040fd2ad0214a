// Package dnd turns pointer gestures over a board into card moves. A press
// on a card lifts it once the pointer travels the activation distance; the
// release picks the nearest drop surface and applies the move rules.
package dnd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// DefaultActivationDistance is how far in pixels the pointer must travel
// from the press point before a card lifts.
const DefaultActivationDistance = 8

// State of a drag gesture.
type State int

const (
	Idle State = iota
	Lifted
	Dropped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Lifted:
		return "lifted"
	case Dropped:
		return "dropped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Gesture errors.
var (
	ErrNotLifted      = errors.New("no card is lifted")
	ErrDragInProgress = errors.New("a drag is already in progress")
)

// Mover is the part of the entity state store a drag needs.
type Mover interface {
	Card(id string) (*types.Card, bool)
	List(id string) (*types.List, bool)
	CardsInList(listID string) []*types.Card
	MoveCard(ctx context.Context, cardID, listID string, position int) (*types.Card, error)
}

// Coordinator tracks one drag gesture at a time.
type Coordinator struct {
	mover      Mover
	activation float64
	log        *slog.Logger

	mu      sync.Mutex
	state   State
	pressed bool
	cardID  string
	origin  Point
	rect    Rect
	pointer Point
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithActivationDistance overrides DefaultActivationDistance.
func WithActivationDistance(px float64) Option {
	return func(c *Coordinator) { c.activation = px }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

// New returns an idle coordinator dispatching moves to m.
func New(m Mover, opts ...Option) *Coordinator {
	c := &Coordinator{
		mover:      m,
		activation: DefaultActivationDistance,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the gesture state. A press that has not yet travelled the
// activation distance reports Idle.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LiftedCard returns the id of the lifted card.
func (c *Coordinator) LiftedCard() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Lifted {
		return "", false
	}
	return c.cardID, true
}

// PointerDown arms a press on cardID drawn at cardRect. It is ignored while
// a card is lifted.
func (c *Coordinator) PointerDown(cardID string, p Point, cardRect Rect) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle {
		return
	}
	c.pressed = true
	c.cardID = cardID
	c.origin, c.pointer = p, p
	c.rect = cardRect
}

// PointerMove tracks the pointer and lifts the pressed card once it has
// moved at least the activation distance from the press point.
func (c *Coordinator) PointerMove(p Point) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pressed && c.state != Lifted {
		return c.state
	}
	c.pointer = p
	if c.state == Idle && p.Dist(c.origin) >= c.activation {
		c.state = Lifted
		c.log.Debug("card lifted", "card_id", c.cardID)
	}
	return c.state
}

// PointerUp ends the gesture at p. When a card is lifted the droppable
// nearest to the dragged card decides the drop; a press that never lifted
// is released without effect.
func (c *Coordinator) PointerUp(ctx context.Context, p Point, droppables []Droppable) (*types.Card, error) {
	c.mu.Lock()
	if c.state != Lifted {
		c.reset()
		c.mu.Unlock()
		return nil, nil
	}
	c.pointer = p
	dragged := c.rect.Translate(p.X-c.origin.X, p.Y-c.origin.Y)
	c.mu.Unlock()

	return c.DropOnto(ctx, Closest(dragged, droppables))
}

// Lift lifts cardID without a pointer, for keyboard or command driven
// moves.
func (c *Coordinator) Lift(cardID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle {
		return ErrDragInProgress
	}
	c.state = Lifted
	c.pressed = false
	c.cardID = cardID
	return nil
}

// DropOnto drops the lifted card on target, which may be nil for a drop
// outside every surface, and returns the moved card. It returns nil without
// error when the drop rules call for no move. The coordinator is Idle
// afterwards in every case, including a failed move.
func (c *Coordinator) DropOnto(ctx context.Context, target *Target) (*types.Card, error) {
	c.mu.Lock()
	if c.state != Lifted {
		c.mu.Unlock()
		return nil, ErrNotLifted
	}
	c.state = Dropped
	cardID := c.cardID
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.reset()
		c.mu.Unlock()
	}()

	listID, position, ok := Plan(c.mover, cardID, target)
	if !ok {
		c.log.Debug("drop without move", "card_id", cardID)
		return nil, nil
	}
	moved, err := c.mover.MoveCard(ctx, cardID, listID, position)
	if err != nil {
		return nil, err
	}
	c.log.Debug("card dropped", "card_id", cardID, "list_id", listID, "position", position)
	return moved, nil
}

// Cancel abandons the gesture without moving anything.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *Coordinator) reset() {
	c.state = Idle
	c.pressed = false
	c.cardID = ""
	c.origin, c.pointer = Point{}, Point{}
	c.rect = Rect{}
}

// Plan applies the drop rules for cardID dropped on target:
//
//   - onto a list other than the card's own, the card goes to the end of
//     that list, at a position equal to its current card count;
//   - onto a card in another list, the card takes that card's list and
//     position, leaving both sharing the position;
//   - anything else moves nothing.
func Plan(m Mover, cardID string, target *Target) (listID string, position int, ok bool) {
	if target == nil {
		return "", 0, false
	}
	card, found := m.Card(cardID)
	if !found {
		return "", 0, false
	}
	switch target.Kind {
	case KindList:
		if _, found := m.List(target.ID); !found || card.ListID == target.ID {
			return "", 0, false
		}
		return target.ID, len(m.CardsInList(target.ID)), true
	case KindCard:
		over, found := m.Card(target.ID)
		if !found || over.ListID == card.ListID {
			return "", 0, false
		}
		return over.ListID, over.Position, true
	default:
		return "", 0, false
	}
}
