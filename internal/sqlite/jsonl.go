// This file provides JSONL read/write helpers with atomic persistence.
package sqlite

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// readJSONL reads a JSONL file and returns each non-empty, parseable line as
// a json.RawMessage. Malformed lines are skipped. A missing file reads as
// empty.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || !json.Valid(line) {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL atomically writes records to a JSONL file using the temp-file,
// fsync, rename pattern.
func writeJSONL(path string, records []json.RawMessage) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(step string, err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%s: %w", step, err)
	}

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			return fail("writing record", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail("writing newline", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fail("flushing buffer", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("syncing temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// dumpTable serializes every row of a mapped table, one JSON object per row
// keyed by column name, ordered by primary key.
func dumpTable(ctx context.Context, db *sql.DB, m tableFile) ([]json.RawMessage, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT "+strings.Join(m.columns, ", ")+" FROM "+m.table+" ORDER BY "+m.columns[0],
	)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", m.table, err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		values := make([]any, len(m.columns))
		ptrs := make([]any, len(m.columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", m.table, err)
		}
		obj := make(map[string]any, len(m.columns))
		for i, col := range m.columns {
			if b, ok := values[i].([]byte); ok {
				obj[col] = string(b)
				continue
			}
			obj[col] = values[i]
		}
		rec, err := json.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("encoding %s row: %w", m.table, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// persistTables rewrites the JSONL file of each named table from SQLite.
func (b *Backend) persistTables(ctx context.Context, tables ...string) error {
	b.mu.RLock()
	db, dataDir := b.db, b.dataDir
	b.mu.RUnlock()
	if db == nil {
		return types.ErrCupboardDetached
	}

	b.persistMu.Lock()
	defer b.persistMu.Unlock()

	for _, name := range tables {
		m, ok := tableFileFor(name)
		if !ok {
			continue
		}
		records, err := dumpTable(ctx, db, m)
		if err != nil {
			return err
		}
		if err := writeJSONL(filepath.Join(dataDir, m.file), records); err != nil {
			return fmt.Errorf("persisting %s: %w", m.file, err)
		}
	}
	return nil
}
