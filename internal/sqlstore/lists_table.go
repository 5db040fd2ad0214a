package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

var _ types.Table = (*listsTable)(nil)

var listsSpec = &tableSpec{
	name:    types.TableLists,
	id:      "list_id",
	columns: []string{"list_id", "title", "position", "board_id", "created_at", "updated_at"},
	filters: map[string]filterSpec{
		types.ColumnListID:   {expr: "lists.list_id"},
		types.ColumnTitle:    {expr: "lists.title"},
		types.ColumnPosition: {expr: "lists.position"},
		types.ColumnBoardID:  {expr: "lists.board_id"},
	},
	orderable: map[string]bool{
		types.ColumnTitle:     true,
		types.ColumnPosition:  true,
		types.ColumnCreatedAt: true,
		types.ColumnUpdatedAt: true,
	},
	defaultOrder: types.ColumnPosition,
	patchable: map[string]patchColumn{
		types.ColumnTitle:    {kind: kindTitle},
		types.ColumnPosition: {kind: kindPosition},
		types.ColumnBoardID:  {kind: kindReference, refTable: types.TableBoards},
	},
}

type listsTable struct {
	store *Store
}

func scanList(row rowScanner) (*types.List, error) {
	var (
		l       types.List
		created dbTime
		updated dbTime
	)
	if err := row.Scan(&l.ListID, &l.Title, &l.Position, &l.BoardID, &created, &updated); err != nil {
		return nil, err
	}
	l.CreatedAt = created.Time
	l.UpdatedAt = updated.Time
	return &l, nil
}

func (lt *listsTable) Get(ctx context.Context, id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	row := lt.store.queryRow(ctx, "SELECT "+listsSpec.selectList()+" FROM lists WHERE list_id = ?", id)
	l, err := scanList(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting list %s: %w", id, err)
	}
	return l, nil
}

func (lt *listsTable) Set(ctx context.Context, id string, data any) (string, error) {
	l, ok := data.(*types.List)
	if !ok || l == nil {
		return "", types.ErrInvalidData
	}
	if err := l.Validate(); err != nil {
		return "", err
	}
	found, err := lt.store.exists(ctx, "boards", "board_id", l.BoardID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", types.ErrInvalidReference
	}

	if id == "" {
		id = l.ListID
	}
	if id == "" {
		id = newID()
	}
	now := lt.store.now()
	created := l.CreatedAt
	if created.IsZero() {
		created = now
	}

	_, err = lt.store.exec(ctx,
		`INSERT INTO lists (list_id, title, position, board_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (list_id) DO UPDATE SET
    title = excluded.title,
    position = excluded.position,
    board_id = excluded.board_id,
    updated_at = excluded.updated_at`,
		id, l.Title, l.Position, l.BoardID, lt.store.timeArg(created), lt.store.timeArg(now),
	)
	if err != nil {
		return "", fmt.Errorf("persisting list: %w", err)
	}
	if err := lt.store.wrote(ctx, types.TableLists); err != nil {
		return "", err
	}

	stored, err := lt.Get(ctx, id)
	if err != nil {
		return "", err
	}
	*l = *stored.(*types.List)
	return id, nil
}

func (lt *listsTable) Update(ctx context.Context, id string, patch types.Patch) (any, error) {
	if err := lt.store.update(ctx, listsSpec, id, patch); err != nil {
		return nil, err
	}
	if err := lt.store.wrote(ctx, types.TableLists); err != nil {
		return nil, err
	}
	return lt.Get(ctx, id)
}

// Delete removes a list and its cards.
func (lt *listsTable) Delete(ctx context.Context, id string) error {
	if err := lt.store.delete(ctx, listsSpec, id); err != nil {
		return err
	}
	return lt.store.wrote(ctx, types.TableLists, types.TableCards)
}

func (lt *listsTable) Fetch(ctx context.Context, q types.Query) ([]any, error) {
	return lt.store.fetch(ctx, listsSpec, q, func(rows *sql.Rows) (any, error) {
		return scanList(rows)
	})
}
