package types

import (
	"strings"
	"time"
)

// Column names shared by entities and used as Patch and Filter keys.
const (
	ColumnTitle       = "title"
	ColumnDescription = "description"
	ColumnPosition    = "position"
	ColumnDueDate     = "due_date"
	ColumnListID      = "list_id"
	ColumnBoardID     = "board_id"
	ColumnUserID      = "user_id"
	ColumnCreatedAt   = "created_at"
	ColumnUpdatedAt   = "updated_at"
)

// Card is a single task within a list. Position is zero-based and defines
// top-to-bottom order among the cards of a list. Positions are not
// renumbered when cards move, so two cards of a list may share a position.
type Card struct {
	CardID      string     `json:"card_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Position    int        `json:"position"`
	DueDate     *time.Time `json:"due_date"`
	ListID      string     `json:"list_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Validate checks the fields a data service requires before persisting.
func (c *Card) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return ErrInvalidTitle
	}
	if c.Position < 0 {
		return ErrInvalidPosition
	}
	if c.ListID == "" {
		return ErrInvalidReference
	}
	return nil
}

// NewCard carries the fields a caller supplies when creating a card.
type NewCard struct {
	Title       string
	ListID      string
	Position    int
	Description string     // empty stores null
	DueDate     *time.Time // nil stores null
}

// Card builds the entity to insert.
func (n NewCard) Card() *Card {
	return &Card{
		Title:       n.Title,
		ListID:      n.ListID,
		Position:    n.Position,
		Description: OptionalText(n.Description),
		DueDate:     n.DueDate,
	}
}

// CardUpdate names the editable card fields to change. Nil fields are left
// untouched. An empty Description or a zero DueDate clears the stored value.
type CardUpdate struct {
	Title       *string
	Description *string
	DueDate     *time.Time
}

// Patch converts the update into column assignments.
// Returns ErrInvalidTitle if Title is set to an empty string.
func (u CardUpdate) Patch() (Patch, error) {
	p := Patch{}
	if u.Title != nil {
		if strings.TrimSpace(*u.Title) == "" {
			return nil, ErrInvalidTitle
		}
		p[ColumnTitle] = *u.Title
	}
	if u.Description != nil {
		if *u.Description == "" {
			p[ColumnDescription] = nil
		} else {
			p[ColumnDescription] = *u.Description
		}
	}
	if u.DueDate != nil {
		if u.DueDate.IsZero() {
			p[ColumnDueDate] = nil
		} else {
			p[ColumnDueDate] = *u.DueDate
		}
	}
	return p, nil
}
