package types

import (
	"context"
	"errors"
)

// Table provides uniform CRUD operations for a single entity type.
// Get, Update and Fetch return any; callers type-assert to the concrete
// entity struct (*Board, *List or *Card).
type Table interface {
	// Get retrieves the entity with the given ID.
	// Returns ErrNotFound if no entity exists with that ID.
	Get(ctx context.Context, id string) (any, error)

	// Set creates or replaces an entity. When both id and the entity's own ID
	// are empty a new UUID v7 is generated and the server-assigned fields
	// (ID, timestamps) are written back into data. Returns the ID used.
	Set(ctx context.Context, id string, data any) (string, error)

	// Update changes only the columns named in patch, refreshes updated_at,
	// and returns the row as stored after the change.
	// Returns ErrNotFound if no entity exists with that ID.
	Update(ctx context.Context, id string, patch Patch) (any, error)

	// Delete removes the entity with the given ID.
	// Returns ErrNotFound if no entity exists with that ID.
	Delete(ctx context.Context, id string) error

	// Fetch returns all entities matching the query. An empty query returns
	// every entity in the table in the table's default order. The result is
	// never nil.
	Fetch(ctx context.Context, q Query) ([]any, error)
}

// Filter holds equality predicates keyed by column name. On the cards table
// the key "board_id" selects cards whose list belongs to the given board.
type Filter map[string]any

// Query selects and orders rows for Table.Fetch.
type Query struct {
	Filter     Filter
	OrderBy    string // column name; empty uses the table default
	Descending bool
	Limit      int // zero means no limit
}

// Patch maps column names to new values for Table.Update. A nil value
// clears a nullable column.
type Patch map[string]any

// Table operation errors.
var (
	ErrNotFound         = errors.New("entity not found")
	ErrInvalidID        = errors.New("invalid entity ID")
	ErrInvalidData      = errors.New("invalid entity data")
	ErrInvalidTitle     = errors.New("title must not be empty")
	ErrInvalidPosition  = errors.New("position must not be negative")
	ErrInvalidReference = errors.New("referenced entity does not exist")
	ErrInvalidFilter    = errors.New("invalid filter or order column")
)
