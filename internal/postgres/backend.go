// Package postgres implements the hosted storage backend for taskboard on
// PostgreSQL through the pgx database/sql driver. Unlike the SQLite backend
// the database itself is the source of truth.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mesh-intelligence/taskboard/internal/sqlstore"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

var _ types.Cupboard = (*Backend)(nil)

// Backend implements types.Cupboard over a PostgreSQL database.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	db       *sql.DB
	store    *sqlstore.Store
	accounts *sqlstore.Accounts
}

// NewBackend creates a detached Postgres backend.
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

// Attach connects to config.DatabaseURL, checks the connection, and applies
// the schema.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	db, err := sql.Open("pgx", config.DatabaseURL)
	if err != nil {
		return fmt.Errorf("opening postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("pinging postgres: %w", err)
	}

	store := sqlstore.New(db, sqlstore.Postgres)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return err
	}

	b.db = db
	b.store = store
	b.accounts = store.Accounts([]byte(config.SessionSecret), config.GetSessionTTL())
	b.attached = true
	return nil
}

// Detach closes the connection pool. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	b.store = nil
	b.accounts = nil
	err := b.db.Close()
	b.db = nil
	return err
}
