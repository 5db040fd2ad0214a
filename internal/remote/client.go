// Package remote implements a Cupboard backed by a hosted taskboard service
// reached over HTTP (see internal/httpapi).
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mesh-intelligence/taskboard/internal/wire"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

var (
	_ types.Cupboard = (*Backend)(nil)
	_ types.Accounts = (*accounts)(nil)
	_ types.Table    = (*table)(nil)
)

// Backend is a Cupboard that forwards every call to a hosted service.
// Table calls carry the token of the most recent Register, Login or Verify
// (or the one set with SetToken).
type Backend struct {
	mu       sync.RWMutex
	attached bool
	baseURL  *url.URL
	http     *http.Client
	token    string
}

// Option configures a Backend.
type Option func(*Backend)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Backend) { b.http = c }
}

// NewBackend creates a detached remote backend.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{http: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach validates config and records the service URL. No request is made.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	u, err := url.Parse(strings.TrimRight(config.ServiceURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("service_url %q: invalid URL", config.ServiceURL)
	}
	b.baseURL = u
	b.attached = true
	return nil
}

// Detach forgets the service URL and token. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.attached = false
	b.token = ""
	return nil
}

// GetTable returns a Table proxy for a standard table name.
func (b *Backend) GetTable(name string) (types.Table, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrCupboardDetached
	}
	if !types.IsStandardTable(name) {
		return nil, types.ErrTableNotFound
	}
	return &table{backend: b, name: name}, nil
}

// Accounts returns the credential service proxy.
func (b *Backend) Accounts() (types.Accounts, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrCupboardDetached
	}
	return &accounts{backend: b}, nil
}

// SetToken sets the bearer token sent with table requests.
func (b *Backend) SetToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
}

func (b *Backend) currentToken() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.token
}

// do sends a JSON request and decodes a JSON response into out. Error
// responses are mapped back to the sentinel errors of package types.
func (b *Backend) do(ctx context.Context, method, path string, query url.Values, token string, body, out any) error {
	b.mu.RLock()
	base, attached := b.baseURL, b.attached
	b.mu.RUnlock()
	if !attached {
		return types.ErrCupboardDetached
	}

	u := *base
	u.Path = base.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var eb wire.ErrorBody
		if json.Unmarshal(data, &eb) != nil || eb.Error == "" {
			return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
		}
		return wire.ErrorFromCode(eb.Error, eb.Message)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	switch o := out.(type) {
	case *[]byte:
		*o = data
		return nil
	default:
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	}
}
