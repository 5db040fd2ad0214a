// This file implements JSONL loading for startup.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// tableFile maps a SQLite table to its JSONL file. The first column is the
// primary key.
type tableFile struct {
	file    string
	table   string
	columns []string
}

// tableFiles lists every persisted table. Tables with foreign keys load
// after the tables they reference.
var tableFiles = []tableFile{
	{"users.jsonl", "users", []string{"user_id", "email", "password_hash", "created_at"}},
	{"sessions.jsonl", "sessions", []string{"session_id", "user_id", "created_at", "expires_at"}},
	{"boards.jsonl", "boards", []string{"board_id", "title", "description", "user_id", "created_at", "updated_at"}},
	{"lists.jsonl", "lists", []string{"list_id", "title", "position", "board_id", "created_at", "updated_at"}},
	{"cards.jsonl", "cards", []string{"card_id", "title", "description", "position", "due_date", "list_id", "created_at", "updated_at"}},
}

func tableFileFor(table string) (tableFile, bool) {
	for _, m := range tableFiles {
		if m.table == table {
			return m, true
		}
	}
	return tableFile{}, false
}

// initJSONLFiles creates empty JSONL files that do not exist yet.
func initJSONLFiles(dataDir string) error {
	for _, m := range tableFiles {
		path := filepath.Join(dataDir, m.file)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return fmt.Errorf("creating %s: %w", m.file, err)
		}
	}
	return nil
}

// loadAllJSONL reads each JSONL file from dataDir and inserts its records in
// one transaction. Malformed lines, unknown fields, and records that violate
// a constraint (such as a card whose list is gone) are skipped.
func loadAllJSONL(ctx context.Context, db *sql.DB, dataDir string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range tableFiles {
		records, err := readJSONL(filepath.Join(dataDir, m.file))
		if err != nil {
			return fmt.Errorf("reading %s: %w", m.file, err)
		}
		if len(records) == 0 {
			continue
		}
		if err := insertRecords(ctx, tx, m, records); err != nil {
			return fmt.Errorf("loading %s into %s: %w", m.file, m.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

// insertRecords inserts parsed JSONL records into a table. Only columns
// listed in the mapping are extracted.
func insertRecords(ctx context.Context, tx *sql.Tx, m tableFile, records []json.RawMessage) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(m.columns)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT OR IGNORE INTO %s (%s) VALUES (%s)",
		m.table, strings.Join(m.columns, ", "), placeholders,
	))
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", m.table, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var obj map[string]any
		dec := json.NewDecoder(bytes.NewReader(rec))
		dec.UseNumber()
		if err := dec.Decode(&obj); err != nil {
			continue
		}

		args := make([]any, len(m.columns))
		for i, col := range m.columns {
			args[i] = columnValue(obj[col])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			continue
		}
	}
	return nil
}

func columnValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return nil
		}
		return string(b)
	default:
		return x
	}
}
