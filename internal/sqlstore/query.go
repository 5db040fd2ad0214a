package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// filterSpec maps a Filter key to a SQL expression and the join it needs.
type filterSpec struct {
	expr string
	join string
}

// columnKind drives validation of Patch values.
type columnKind int

const (
	kindTitle columnKind = iota
	kindOptionalText
	kindPosition
	kindOptionalTime
	kindReference
)

type patchColumn struct {
	kind     columnKind
	refTable string // for kindReference
}

// tableSpec describes one entity table for the shared query builders.
type tableSpec struct {
	name         string
	id           string
	columns      []string // scan order
	filters      map[string]filterSpec
	orderable    map[string]bool
	defaultOrder string
	defaultDesc  bool
	patchable    map[string]patchColumn
}

func (t *tableSpec) selectList() string {
	qualified := make([]string, len(t.columns))
	for i, c := range t.columns {
		qualified[i] = t.name + "." + c
	}
	return strings.Join(qualified, ", ")
}

// fetch runs a filtered, ordered SELECT and scans every row with scan.
func (s *Store) fetch(ctx context.Context, t *tableSpec, q types.Query, scan func(*sql.Rows) (any, error)) ([]any, error) {
	query := "SELECT " + t.selectList() + " FROM " + t.name
	var joins, conditions []string
	var args []any

	keys := make([]string, 0, len(q.Filter))
	for k := range q.Filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		f, ok := t.filters[k]
		if !ok {
			return nil, fmt.Errorf("filter %q on %s: %w", k, t.name, types.ErrInvalidFilter)
		}
		if f.join != "" && !contains(joins, f.join) {
			joins = append(joins, f.join)
		}
		v := q.Filter[k]
		if v == nil {
			conditions = append(conditions, f.expr+" IS NULL")
			continue
		}
		arg, err := s.filterArg(v)
		if err != nil {
			return nil, fmt.Errorf("filter %q on %s: %w", k, t.name, err)
		}
		conditions = append(conditions, f.expr+" = ?")
		args = append(args, arg)
	}

	for _, j := range joins {
		query += " " + j
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	order, desc := q.OrderBy, q.Descending
	if order == "" {
		order, desc = t.defaultOrder, t.defaultDesc
	}
	if !t.orderable[order] {
		return nil, fmt.Errorf("order %q on %s: %w", order, t.name, types.ErrInvalidFilter)
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s.%s %s, %s.%s %s", t.name, order, dir, t.name, t.id, dir)

	if q.Limit < 0 {
		return nil, fmt.Errorf("limit %d: %w", q.Limit, types.ErrInvalidFilter)
	}
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", t.name, err)
	}
	defer rows.Close()

	results := []any{}
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("hydrating %s row: %w", t.name, err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", t.name, err)
	}
	return results, nil
}

// filterArg validates a Filter value and converts it to a query argument.
func (s *Store) filterArg(v any) (any, error) {
	switch x := v.(type) {
	case string, bool, int, int32, int64:
		return x, nil
	case float64:
		if x != math.Trunc(x) {
			return nil, types.ErrInvalidFilter
		}
		return int64(x), nil
	case time.Time:
		return s.timeArg(x), nil
	default:
		return nil, types.ErrInvalidFilter
	}
}

// update applies patch to the row with the given id and refreshes updated_at.
func (s *Store) update(ctx context.Context, t *tableSpec, id string, patch types.Patch) error {
	if id == "" {
		return types.ErrInvalidID
	}

	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := make([]string, 0, len(keys)+1)
	args := make([]any, 0, len(keys)+2)
	for _, k := range keys {
		col, ok := t.patchable[k]
		if !ok {
			return fmt.Errorf("column %q of %s is not updatable: %w", k, t.name, types.ErrInvalidData)
		}
		arg, err := s.patchArg(ctx, col, patch[k])
		if err != nil {
			return fmt.Errorf("column %q: %w", k, err)
		}
		sets = append(sets, k+" = ?")
		args = append(args, arg)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, s.timeArg(s.now()), id)

	res, err := s.exec(ctx, "UPDATE "+t.name+" SET "+strings.Join(sets, ", ")+" WHERE "+t.id+" = ?", args...)
	if err != nil {
		return fmt.Errorf("updating %s: %w", t.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating %s: %w", t.name, err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// patchArg validates a Patch value for its column kind.
func (s *Store) patchArg(ctx context.Context, col patchColumn, v any) (any, error) {
	switch col.kind {
	case kindTitle:
		str, ok := v.(string)
		if !ok {
			return nil, types.ErrInvalidData
		}
		if strings.TrimSpace(str) == "" {
			return nil, types.ErrInvalidTitle
		}
		return str, nil

	case kindOptionalText:
		switch x := v.(type) {
		case nil:
			return nil, nil
		case string:
			if x == "" {
				return nil, nil
			}
			return x, nil
		case *string:
			if x == nil || *x == "" {
				return nil, nil
			}
			return *x, nil
		default:
			return nil, types.ErrInvalidData
		}

	case kindPosition:
		pos, err := intValue(v)
		if err != nil {
			return nil, err
		}
		if pos < 0 {
			return nil, types.ErrInvalidPosition
		}
		return pos, nil

	case kindOptionalTime:
		t, err := optionalTime(v)
		if err != nil {
			return nil, err
		}
		return s.nullTimeArg(t), nil

	case kindReference:
		ref, ok := v.(string)
		if !ok || ref == "" {
			return nil, types.ErrInvalidReference
		}
		spec := specs[col.refTable]
		found, err := s.exists(ctx, spec.name, spec.id, ref)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, types.ErrInvalidReference
		}
		return ref, nil
	}
	return nil, types.ErrInvalidData
}

// delete removes the row with the given id.
func (s *Store) delete(ctx context.Context, t *tableSpec, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	res, err := s.exec(ctx, "DELETE FROM "+t.name+" WHERE "+t.id+" = ?", id)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", t.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting %s: %w", t.name, err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

func intValue(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int32:
		return int(x), nil
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, types.ErrInvalidData
		}
		return int(x), nil
	default:
		return 0, types.ErrInvalidData
	}
}

// optionalTime accepts nil, time.Time, *time.Time, or RFC 3339 / date-only
// strings. Zero times and empty strings mean null.
func optionalTime(v any) (*time.Time, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		if x.IsZero() {
			return nil, nil
		}
		return &x, nil
	case *time.Time:
		if x == nil || x.IsZero() {
			return nil, nil
		}
		return x, nil
	case string:
		if x == "" {
			return nil, nil
		}
		if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
			return &t, nil
		}
		if t, err := time.Parse(time.DateOnly, x); err == nil {
			return &t, nil
		}
		return nil, types.ErrInvalidData
	default:
		return nil, types.ErrInvalidData
	}
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
