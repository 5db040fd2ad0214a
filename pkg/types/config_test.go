package types

import (
	"errors"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "mysql", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: BackendSQLite, DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "sqlite with empty DataDir is valid at config level",
			config:  Config{Backend: BackendSQLite, DataDir: ""},
			wantErr: nil,
		},
		{
			name:    "postgres without database url",
			config:  Config{Backend: BackendPostgres, SessionSecret: "s"},
			wantErr: ErrDatabaseURLEmpty,
		},
		{
			name:    "postgres without session secret",
			config:  Config{Backend: BackendPostgres, DatabaseURL: "postgres://localhost/tb"},
			wantErr: ErrSessionSecretEmpty,
		},
		{
			name:    "valid postgres config",
			config:  Config{Backend: BackendPostgres, DatabaseURL: "postgres://localhost/tb", SessionSecret: "s"},
			wantErr: nil,
		},
		{
			name:    "remote without service url",
			config:  Config{Backend: BackendRemote},
			wantErr: ErrServiceURLEmpty,
		},
		{
			name:    "negative session ttl",
			config:  Config{Backend: BackendSQLite, SessionTTL: -time.Second},
			wantErr: ErrSessionTTLInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigGetSessionTTL(t *testing.T) {
	if got := (Config{}).GetSessionTTL(); got != DefaultSessionTTL {
		t.Errorf("default ttl = %v, want %v", got, DefaultSessionTTL)
	}
	if got := (Config{SessionTTL: time.Hour}).GetSessionTTL(); got != time.Hour {
		t.Errorf("ttl = %v, want 1h", got)
	}
}
