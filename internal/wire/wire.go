// Package wire defines the JSON and query-string encoding shared by the
// hosted HTTP service and its remote client.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// Route prefixes of the hosted service.
const (
	AuthPrefix = "/auth/v1"
	RestPrefix = "/rest/v1"
)

// Credentials is the body of the signup and token endpoints.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CodeInternal is reported for errors without a sentinel.
const CodeInternal = "internal"

var errorCodes = []struct {
	code   string
	err    error
	status int
}{
	{"not_found", types.ErrNotFound, http.StatusNotFound},
	{"table_not_found", types.ErrTableNotFound, http.StatusNotFound},
	{"invalid_id", types.ErrInvalidID, http.StatusBadRequest},
	{"invalid_data", types.ErrInvalidData, http.StatusBadRequest},
	{"invalid_title", types.ErrInvalidTitle, http.StatusBadRequest},
	{"invalid_position", types.ErrInvalidPosition, http.StatusBadRequest},
	{"invalid_reference", types.ErrInvalidReference, http.StatusUnprocessableEntity},
	{"invalid_filter", types.ErrInvalidFilter, http.StatusBadRequest},
	{"not_authenticated", types.ErrNotAuthenticated, http.StatusUnauthorized},
	{"session_expired", types.ErrSessionExpired, http.StatusUnauthorized},
	{"invalid_credentials", types.ErrInvalidCredentials, http.StatusUnauthorized},
	{"email_taken", types.ErrEmailTaken, http.StatusConflict},
	{"invalid_email", types.ErrInvalidEmail, http.StatusBadRequest},
	{"weak_password", types.ErrWeakPassword, http.StatusBadRequest},
	{"detached", types.ErrCupboardDetached, http.StatusServiceUnavailable},
}

// ErrorCode maps err to its wire code and HTTP status.
func ErrorCode(err error) (string, int) {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code, c.status
		}
	}
	return CodeInternal, http.StatusInternalServerError
}

// ErrorFromCode rebuilds the sentinel named by code. Unknown codes produce
// a plain error carrying message.
func ErrorFromCode(code, message string) error {
	for _, c := range errorCodes {
		if c.code == code {
			return c.err
		}
	}
	if message == "" {
		message = code
	}
	return errors.New(message)
}

// NewEntity returns an empty entity for a standard table.
func NewEntity(table string) (any, error) {
	switch table {
	case types.TableBoards:
		return &types.Board{}, nil
	case types.TableLists:
		return &types.List{}, nil
	case types.TableCards:
		return &types.Card{}, nil
	default:
		return nil, types.ErrTableNotFound
	}
}

// ParseEntityJSON decodes data into the entity type of table.
func ParseEntityJSON(table string, data []byte) (any, error) {
	e, err := NewEntity(table)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	return e, nil
}

// ParseEntityList decodes a JSON array of entities of table.
func ParseEntityList(table string, data []byte) ([]any, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	out := make([]any, 0, len(raw))
	for _, r := range raw {
		e, err := ParseEntityJSON(table, r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
