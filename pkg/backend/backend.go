// Package backend is the public factory for taskboard storage backends. It
// exposes the backends while keeping their implementation internal.
package backend

import (
	"github.com/mesh-intelligence/taskboard/internal/postgres"
	"github.com/mesh-intelligence/taskboard/internal/remote"
	"github.com/mesh-intelligence/taskboard/internal/sqlite"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// New returns an unattached backend for name, one of types.BackendSQLite,
// types.BackendPostgres and types.BackendRemote.
//
// Example:
//
//	cupboard, err := backend.New(types.BackendSQLite)
//	if err != nil {
//	    return err
//	}
//	err = cupboard.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: "/var/lib/taskboard",
//	})
//	defer cupboard.Detach()
func New(name string) (types.Cupboard, error) {
	switch name {
	case types.BackendSQLite:
		return sqlite.NewBackend(), nil
	case types.BackendPostgres:
		return postgres.NewBackend(), nil
	case types.BackendRemote:
		return remote.NewBackend(), nil
	case "":
		return nil, types.ErrBackendEmpty
	default:
		return nil, types.ErrBackendUnknown
	}
}

// Open creates the backend named by cfg.Backend and attaches it.
func Open(cfg types.Config) (types.Cupboard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := New(cfg.Backend)
	if err != nil {
		return nil, err
	}
	if err := c.Attach(cfg); err != nil {
		return nil, err
	}
	return c, nil
}
