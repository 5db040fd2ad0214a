// Package sqlstore implements the boards, lists and cards tables and the
// account service over database/sql. The SQLite and Postgres backends share
// it and differ only in their Dialect and in what they do after a write.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// timeLayout is fixed width so that text columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Dialect captures the SQL differences between engines.
type Dialect struct {
	Name string
	// Schema lists the DDL statements executed by Migrate, in order.
	Schema []string
	// Numbered placeholders ($1, $2, ...) instead of "?".
	Numbered bool
	// NativeTime passes time.Time arguments through instead of text.
	NativeTime bool
}

// SQLite stores timestamps as fixed-width UTC text.
var SQLite = Dialect{
	Name:   "sqlite",
	Schema: sqliteSchema,
}

// Postgres uses $n placeholders and timestamptz columns.
var Postgres = Dialect{
	Name:       "postgres",
	Schema:     postgresSchema,
	Numbered:   true,
	NativeTime: true,
}

// AfterWriteFunc is called after a successful write with the names of the
// tables whose rows changed, including rows removed by cascades.
type AfterWriteFunc func(ctx context.Context, tables ...string) error

// Store routes table and account operations to a *sql.DB.
type Store struct {
	db         *sql.DB
	dialect    Dialect
	afterWrite AfterWriteFunc
	now        func() time.Time
	tables     map[string]types.Table
}

// Option configures a Store.
type Option func(*Store)

// WithAfterWrite registers a hook run after every successful write.
func WithAfterWrite(fn AfterWriteFunc) Option {
	return func(s *Store) { s.afterWrite = fn }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store over db. Call Migrate before first use.
func New(db *sql.DB, dialect Dialect, opts ...Option) *Store {
	s := &Store{
		db:      db,
		dialect: dialect,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tables = map[string]types.Table{
		types.TableBoards: &boardsTable{store: s},
		types.TableLists:  &listsTable{store: s},
		types.TableCards:  &cardsTable{store: s},
	}
	return s
}

// Migrate executes the dialect schema. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating %s schema: %w", s.dialect.Name, err)
		}
	}
	return nil
}

// Table returns the accessor for a standard table name.
// Returns ErrTableNotFound for any other name.
func (s *Store) Table(name string) (types.Table, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, types.ErrTableNotFound
	}
	return t, nil
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) wrote(ctx context.Context, tables ...string) error {
	if s.afterWrite == nil {
		return nil
	}
	if err := s.afterWrite(ctx, tables...); err != nil {
		return fmt.Errorf("after write %s: %w", strings.Join(tables, ","), err)
	}
	return nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

// rebind rewrites "?" placeholders as $1, $2, ... for numbered dialects.
func (s *Store) rebind(query string) string {
	if !s.dialect.Numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timeArg converts t into the argument form the dialect stores.
func (s *Store) timeArg(t time.Time) any {
	t = t.UTC()
	if s.dialect.NativeTime {
		return t
	}
	return t.Format(timeLayout)
}

// nullTimeArg is timeArg for nullable columns.
func (s *Store) nullTimeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return s.timeArg(*t)
}

// exists reports whether a row with the given key value exists.
func (s *Store) exists(ctx context.Context, table, column, value string) (bool, error) {
	var one int
	err := s.queryRow(ctx, "SELECT 1 FROM "+table+" WHERE "+column+" = ?", value).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s existence: %w", table, err)
	}
	return true, nil
}

// newID generates a new UUID v7 for entity IDs.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}

// dbTime scans timestamps stored either natively or as text.
type dbTime struct {
	Time  time.Time
	Valid bool
}

func (t *dbTime) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = x.UTC(), true
		return nil
	case string:
		return t.parse(x)
	case []byte:
		return t.parse(string(x))
	default:
		return fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func (t *dbTime) parse(s string) error {
	parsed, err := time.Parse(timeLayout, s)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("parsing timestamp %q: %w", s, err)
		}
	}
	t.Time, t.Valid = parsed.UTC(), true
	return nil
}

func (t dbTime) ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func stringArg(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
