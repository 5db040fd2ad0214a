package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

var _ types.Table = (*boardsTable)(nil)

var boardsSpec = &tableSpec{
	name:    types.TableBoards,
	id:      "board_id",
	columns: []string{"board_id", "title", "description", "user_id", "created_at", "updated_at"},
	filters: map[string]filterSpec{
		"board_id":         {expr: "boards.board_id"},
		types.ColumnTitle:  {expr: "boards.title"},
		types.ColumnUserID: {expr: "boards.user_id"},
	},
	orderable: map[string]bool{
		types.ColumnTitle:     true,
		types.ColumnCreatedAt: true,
		types.ColumnUpdatedAt: true,
	},
	defaultOrder: types.ColumnCreatedAt,
	defaultDesc:  true,
	patchable: map[string]patchColumn{
		types.ColumnTitle:       {kind: kindTitle},
		types.ColumnDescription: {kind: kindOptionalText},
	},
}

// boardsTable implements types.Table for *types.Board. Owners are fixed at
// creation; user_id cannot be patched.
type boardsTable struct {
	store *Store
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBoard(row rowScanner) (*types.Board, error) {
	var (
		b           types.Board
		description sql.NullString
		created     dbTime
		updated     dbTime
	)
	if err := row.Scan(&b.BoardID, &b.Title, &description, &b.UserID, &created, &updated); err != nil {
		return nil, err
	}
	b.Description = nullString(description)
	b.CreatedAt = created.Time
	b.UpdatedAt = updated.Time
	return &b, nil
}

// Get retrieves a board by ID.
func (bt *boardsTable) Get(ctx context.Context, id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	row := bt.store.queryRow(ctx, "SELECT "+boardsSpec.selectList()+" FROM boards WHERE board_id = ?", id)
	b, err := scanBoard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting board %s: %w", id, err)
	}
	return b, nil
}

// Set inserts a board when both id and BoardID are empty and upserts it
// otherwise. The stored row is written back into data.
func (bt *boardsTable) Set(ctx context.Context, id string, data any) (string, error) {
	b, ok := data.(*types.Board)
	if !ok || b == nil {
		return "", types.ErrInvalidData
	}
	if err := b.Validate(); err != nil {
		return "", err
	}
	found, err := bt.store.exists(ctx, "users", "user_id", b.UserID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", types.ErrInvalidReference
	}

	if id == "" {
		id = b.BoardID
	}
	if id == "" {
		id = newID()
	}
	now := bt.store.now()
	created := b.CreatedAt
	if created.IsZero() {
		created = now
	}
	var description *string
	if b.Description != nil {
		description = types.OptionalText(*b.Description)
	}

	_, err = bt.store.exec(ctx,
		`INSERT INTO boards (board_id, title, description, user_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (board_id) DO UPDATE SET
    title = excluded.title,
    description = excluded.description,
    user_id = excluded.user_id,
    updated_at = excluded.updated_at`,
		id, b.Title, stringArg(description), b.UserID, bt.store.timeArg(created), bt.store.timeArg(now),
	)
	if err != nil {
		return "", fmt.Errorf("persisting board: %w", err)
	}
	if err := bt.store.wrote(ctx, types.TableBoards); err != nil {
		return "", err
	}

	stored, err := bt.Get(ctx, id)
	if err != nil {
		return "", err
	}
	*b = *stored.(*types.Board)
	return id, nil
}

// Update patches title or description and returns the stored board.
func (bt *boardsTable) Update(ctx context.Context, id string, patch types.Patch) (any, error) {
	if err := bt.store.update(ctx, boardsSpec, id, patch); err != nil {
		return nil, err
	}
	if err := bt.store.wrote(ctx, types.TableBoards); err != nil {
		return nil, err
	}
	return bt.Get(ctx, id)
}

// Delete removes a board together with its lists and their cards.
func (bt *boardsTable) Delete(ctx context.Context, id string) error {
	if err := bt.store.delete(ctx, boardsSpec, id); err != nil {
		return err
	}
	return bt.store.wrote(ctx, types.TableBoards, types.TableLists, types.TableCards)
}

// Fetch returns boards matching q, newest first by default.
func (bt *boardsTable) Fetch(ctx context.Context, q types.Query) ([]any, error) {
	return bt.store.fetch(ctx, boardsSpec, q, func(rows *sql.Rows) (any, error) {
		return scanBoard(rows)
	})
}
