package dnd

import (
	"math"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// Point is a pointer position in pixels.
type Point struct {
	X, Y float64
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Rect is an axis-aligned rectangle with its top-left corner at X, Y.
type Rect struct {
	X, Y, W, H float64
}

// Translate returns r moved by dx, dy.
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// corners returns top-left, top-right, bottom-left, bottom-right.
func (r Rect) corners() [4]Point {
	return [4]Point{
		{r.X, r.Y},
		{r.X + r.W, r.Y},
		{r.X, r.Y + r.H},
		{r.X + r.W, r.Y + r.H},
	}
}

// cornerDistance is the mean distance between corresponding corners of a
// and b.
func cornerDistance(a, b Rect) float64 {
	ac, bc := a.corners(), b.corners()
	var sum float64
	for i := range ac {
		sum += ac[i].Dist(bc[i])
	}
	return sum / 4
}

// Kind distinguishes list and card drop surfaces.
type Kind int

const (
	KindList Kind = iota
	KindCard
)

func (k Kind) String() string {
	if k == KindList {
		return "list"
	}
	return "card"
}

// Target names a drop surface.
type Target struct {
	Kind Kind
	ID   string
}

// Droppable is a drop surface and where it is on screen.
type Droppable struct {
	Target
	Rect Rect
}

// Closest returns the droppable whose corners are nearest on average to
// those of dragged. Exact ties go to the droppable listed first. It returns
// nil when droppables is empty.
func Closest(dragged Rect, droppables []Droppable) *Target {
	var (
		best  *Target
		score = math.Inf(1)
	)
	for i := range droppables {
		d := cornerDistance(dragged, droppables[i].Rect)
		if d < score {
			score = d
			t := droppables[i].Target
			best = &t
		}
	}
	return best
}

// Geometry sizes the columns drawn by Layout.
type Geometry struct {
	Padding      float64
	ColumnWidth  float64
	ColumnGap    float64
	HeaderHeight float64
	CardHeight   float64
	CardGap      float64
	CardInset    float64
}

// DefaultGeometry matches a typical desktop rendering of a board.
var DefaultGeometry = Geometry{
	Padding:      24,
	ColumnWidth:  288,
	ColumnGap:    24,
	HeaderHeight: 56,
	CardHeight:   88,
	CardGap:      12,
	CardInset:    12,
}

// Board is the read side of a board needed for layout.
type Board interface {
	Lists() []*types.List
	CardsInList(listID string) []*types.Card
}

// Layout places the lists of b as columns from left to right in position
// order and stacks each list's cards top to bottom. Each column leaves room
// for one more card below its last. Droppables are returned list first,
// then that list's cards.
func Layout(b Board, g Geometry) []Droppable {
	var out []Droppable
	for i, l := range b.Lists() {
		cards := b.CardsInList(l.ListID)
		x := g.Padding + float64(i)*(g.ColumnWidth+g.ColumnGap)
		slots := float64(len(cards) + 1)
		out = append(out, Droppable{
			Target: Target{Kind: KindList, ID: l.ListID},
			Rect: Rect{
				X: x, Y: g.Padding, W: g.ColumnWidth,
				H: g.HeaderHeight + slots*(g.CardHeight+g.CardGap),
			},
		})
		for j, c := range cards {
			out = append(out, Droppable{
				Target: Target{Kind: KindCard, ID: c.CardID},
				Rect: Rect{
					X: x + g.CardInset,
					Y: g.Padding + g.HeaderHeight + float64(j)*(g.CardHeight+g.CardGap),
					W: g.ColumnWidth - 2*g.CardInset,
					H: g.CardHeight,
				},
			})
		}
	}
	return out
}

// Find returns the rectangle of t in droppables.
func Find(droppables []Droppable, t Target) (Rect, bool) {
	for _, d := range droppables {
		if d.Target == t {
			return d.Rect, true
		}
	}
	return Rect{}, false
}
