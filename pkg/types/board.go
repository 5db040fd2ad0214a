package types

import (
	"strings"
	"time"
)

// Board is the top-level workspace containing lists. Boards are owned by the
// user that created them.
type Board struct {
	BoardID     string    `json:"board_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks the fields a data service requires before persisting.
func (b *Board) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return ErrInvalidTitle
	}
	if b.UserID == "" {
		return ErrInvalidReference
	}
	return nil
}

// Matches reports whether the board title or description contains query,
// ignoring case. An empty query matches every board.
func (b *Board) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(b.Title), q) {
		return true
	}
	return b.Description != nil && strings.Contains(strings.ToLower(*b.Description), q)
}

// OptionalText returns nil for an empty string and a pointer to s otherwise.
// Optional text columns store null rather than the empty string.
func OptionalText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
