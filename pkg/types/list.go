package types

import (
	"strings"
	"time"
)

// DefaultListTitles are the lists seeded into a board opened with no lists,
// in position order.
var DefaultListTitles = []string{"To Do", "In Progress", "Done"}

// List is an ordered column of cards within a board. Position is zero-based
// and defines left-to-right order; it is never reassigned once set.
type List struct {
	ListID    string    `json:"list_id"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	BoardID   string    `json:"board_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the fields a data service requires before persisting.
func (l *List) Validate() error {
	if strings.TrimSpace(l.Title) == "" {
		return ErrInvalidTitle
	}
	if l.Position < 0 {
		return ErrInvalidPosition
	}
	if l.BoardID == "" {
		return ErrInvalidReference
	}
	return nil
}
