package types

import (
	"errors"
	"time"
)

// Config holds backend selection and parameters for Cupboard.Attach.
type Config struct {
	Backend       string        `json:"backend" yaml:"backend"`
	DataDir       string        `json:"data_dir" yaml:"data_dir"`
	DatabaseURL   string        `json:"database_url,omitempty" yaml:"database_url,omitempty"`
	ServiceURL    string        `json:"service_url,omitempty" yaml:"service_url,omitempty"`
	SessionSecret string        `json:"-" yaml:"session_secret,omitempty"`
	SessionTTL    time.Duration `json:"session_ttl,omitempty" yaml:"session_ttl,omitempty"`
}

// Supported backend names.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRemote   = "remote"
)

// DefaultSessionTTL is used when Config.SessionTTL is zero.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Config validation errors.
var (
	ErrBackendEmpty       = errors.New("backend must not be empty")
	ErrBackendUnknown     = errors.New("unknown backend")
	ErrDatabaseURLEmpty   = errors.New("database_url is required for the postgres backend")
	ErrServiceURLEmpty    = errors.New("service_url is required for the remote backend")
	ErrSessionSecretEmpty = errors.New("session_secret is required for the postgres backend")
	ErrSessionTTLInvalid  = errors.New("session_ttl must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite:   true,
	BackendPostgres: true,
	BackendRemote:   true,
}

// Validate checks that the Config is well-formed for its backend. It returns
// a sentinel error from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.SessionTTL < 0 {
		return ErrSessionTTLInvalid
	}
	switch c.Backend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return ErrDatabaseURLEmpty
		}
		if c.SessionSecret == "" {
			return ErrSessionSecretEmpty
		}
	case BackendRemote:
		if c.ServiceURL == "" {
			return ErrServiceURLEmpty
		}
	}
	return nil
}

// GetSessionTTL returns the session lifetime, applying the default when unset.
func (c Config) GetSessionTTL() time.Duration {
	if c.SessionTTL <= 0 {
		return DefaultSessionTTL
	}
	return c.SessionTTL
}
