// Package sqlite implements the local storage backend for taskboard. SQLite
// is the query engine and the JSONL files in the data directory are the
// source of truth: every write rewrites the affected files and Attach
// rebuilds the database from them.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/taskboard/internal/sqlstore"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

const (
	dbFile         = "taskboard.db"
	sessionKeyFile = "session.key"
)

var _ types.Cupboard = (*Backend)(nil)

// Backend implements types.Cupboard over SQLite and JSONL files.
type Backend struct {
	mu        sync.RWMutex
	attached  bool
	config    types.Config
	dataDir   string
	db        *sql.DB
	store     *sqlstore.Store
	accounts  *sqlstore.Accounts
	persistMu sync.Mutex
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// GetTable returns the Table for the given name.
func (b *Backend) GetTable(name string) (types.Table, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrCupboardDetached
	}
	return b.store.Table(name)
}

// Accounts returns the credential service.
func (b *Backend) Accounts() (types.Accounts, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrCupboardDetached
	}
	return b.accounts, nil
}

// Attach creates DataDir if needed, builds a fresh database from the JSONL
// files, and prepares the tables.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	secret, err := sessionSecret(config, dataDir)
	if err != nil {
		return err
	}

	// The database is a cache of the JSONL files.
	dbPath := filepath.Join(dataDir, dbFile)
	for _, suffix := range []string{"", "-wal", "-shm"} {
		_ = os.Remove(dbPath + suffix)
	}
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("opening sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	store := sqlstore.New(db, sqlstore.SQLite, sqlstore.WithAfterWrite(b.persistTables))
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return err
	}
	if err := initJSONLFiles(dataDir); err != nil {
		db.Close()
		return err
	}
	if err := loadAllJSONL(ctx, db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.db = db
	b.store = store
	b.accounts = store.Accounts(secret, config.GetSessionTTL())
	b.config = config
	b.dataDir = dataDir
	b.attached = true
	return nil
}

// Detach closes the database. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	b.store = nil
	b.accounts = nil
	if b.db != nil {
		err := b.db.Close()
		b.db = nil
		if err != nil {
			return err
		}
	}
	return nil
}

// sessionSecret returns the configured secret, or the one stored in the
// data directory, creating it on first use.
func sessionSecret(config types.Config, dataDir string) ([]byte, error) {
	if config.SessionSecret != "" {
		return []byte(config.SessionSecret), nil
	}
	path := filepath.Join(dataDir, sessionKeyFile)
	data, err := os.ReadFile(path)
	if err == nil && len(strings.TrimSpace(string(data))) > 0 {
		return []byte(strings.TrimSpace(string(data))), nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading session key: %w", err)
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating session key: %w", err)
	}
	encoded := hex.EncodeToString(key)
	if err := os.WriteFile(path, []byte(encoded+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("writing session key: %w", err)
	}
	return []byte(encoded), nil
}
