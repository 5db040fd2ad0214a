package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

var _ types.Table = (*cardsTable)(nil)

var cardsSpec = &tableSpec{
	name:    types.TableCards,
	id:      "card_id",
	columns: []string{"card_id", "title", "description", "position", "due_date", "list_id", "created_at", "updated_at"},
	filters: map[string]filterSpec{
		"card_id":            {expr: "cards.card_id"},
		types.ColumnTitle:    {expr: "cards.title"},
		types.ColumnPosition: {expr: "cards.position"},
		types.ColumnDueDate:  {expr: "cards.due_date"},
		types.ColumnListID:   {expr: "cards.list_id"},
		types.ColumnBoardID: {
			expr: "lists.board_id",
			join: "JOIN lists ON lists.list_id = cards.list_id",
		},
	},
	orderable: map[string]bool{
		types.ColumnTitle:     true,
		types.ColumnPosition:  true,
		types.ColumnDueDate:   true,
		types.ColumnCreatedAt: true,
		types.ColumnUpdatedAt: true,
	},
	defaultOrder: types.ColumnPosition,
	patchable: map[string]patchColumn{
		types.ColumnTitle:       {kind: kindTitle},
		types.ColumnDescription: {kind: kindOptionalText},
		types.ColumnPosition:    {kind: kindPosition},
		types.ColumnDueDate:     {kind: kindOptionalTime},
		types.ColumnListID:      {kind: kindReference, refTable: types.TableLists},
	},
}

// specs indexes table descriptions by name for reference checks.
var specs = map[string]*tableSpec{
	types.TableBoards: boardsSpec,
	types.TableLists:  listsSpec,
	types.TableCards:  cardsSpec,
}

type cardsTable struct {
	store *Store
}

func scanCard(row rowScanner) (*types.Card, error) {
	var (
		c           types.Card
		description sql.NullString
		due         dbTime
		created     dbTime
		updated     dbTime
	)
	if err := row.Scan(&c.CardID, &c.Title, &description, &c.Position, &due, &c.ListID, &created, &updated); err != nil {
		return nil, err
	}
	c.Description = nullString(description)
	c.DueDate = due.ptr()
	c.CreatedAt = created.Time
	c.UpdatedAt = updated.Time
	return &c, nil
}

func (ct *cardsTable) Get(ctx context.Context, id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	row := ct.store.queryRow(ctx, "SELECT "+cardsSpec.selectList()+" FROM cards WHERE card_id = ?", id)
	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting card %s: %w", id, err)
	}
	return c, nil
}

// Set inserts or upserts a card. Empty descriptions and zero due dates are
// stored as null.
func (ct *cardsTable) Set(ctx context.Context, id string, data any) (string, error) {
	c, ok := data.(*types.Card)
	if !ok || c == nil {
		return "", types.ErrInvalidData
	}
	if err := c.Validate(); err != nil {
		return "", err
	}
	found, err := ct.store.exists(ctx, "lists", "list_id", c.ListID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", types.ErrInvalidReference
	}

	if id == "" {
		id = c.CardID
	}
	if id == "" {
		id = newID()
	}
	now := ct.store.now()
	created := c.CreatedAt
	if created.IsZero() {
		created = now
	}
	var description *string
	if c.Description != nil {
		description = types.OptionalText(*c.Description)
	}
	due := c.DueDate
	if due != nil && due.IsZero() {
		due = nil
	}

	_, err = ct.store.exec(ctx,
		`INSERT INTO cards (card_id, title, description, position, due_date, list_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (card_id) DO UPDATE SET
    title = excluded.title,
    description = excluded.description,
    position = excluded.position,
    due_date = excluded.due_date,
    list_id = excluded.list_id,
    updated_at = excluded.updated_at`,
		id, c.Title, stringArg(description), c.Position, ct.store.nullTimeArg(due), c.ListID,
		ct.store.timeArg(created), ct.store.timeArg(now),
	)
	if err != nil {
		return "", fmt.Errorf("persisting card: %w", err)
	}
	if err := ct.store.wrote(ctx, types.TableCards); err != nil {
		return "", err
	}

	stored, err := ct.Get(ctx, id)
	if err != nil {
		return "", err
	}
	*c = *stored.(*types.Card)
	return id, nil
}

// Update patches the named columns and returns the card as stored. A patch
// of list_id and position is how a card moves between lists.
func (ct *cardsTable) Update(ctx context.Context, id string, patch types.Patch) (any, error) {
	if err := ct.store.update(ctx, cardsSpec, id, patch); err != nil {
		return nil, err
	}
	if err := ct.store.wrote(ctx, types.TableCards); err != nil {
		return nil, err
	}
	return ct.Get(ctx, id)
}

func (ct *cardsTable) Delete(ctx context.Context, id string) error {
	if err := ct.store.delete(ctx, cardsSpec, id); err != nil {
		return err
	}
	return ct.store.wrote(ctx, types.TableCards)
}

// Fetch returns cards matching q. The board_id filter joins through lists.
func (ct *cardsTable) Fetch(ctx context.Context, q types.Query) ([]any, error) {
	return ct.store.fetch(ctx, cardsSpec, q, func(rows *sql.Rows) (any, error) {
		return scanCard(rows)
	})
}
