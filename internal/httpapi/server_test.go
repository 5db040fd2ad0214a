package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/taskboard/internal/sqlite"
	"github.com/mesh-intelligence/taskboard/internal/wire"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

type client struct {
	t      *testing.T
	server *httptest.Server
	token  string
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })
	srv := httptest.NewServer(New(b))
	t.Cleanup(srv.Close)
	return srv
}

func (c *client) do(method, path string, body any) (int, []byte) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.server.URL+path, &buf)
	require.NoError(c.t, err)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, out.Bytes()
}

func (c *client) decode(data []byte, v any) {
	c.t.Helper()
	require.NoError(c.t, json.Unmarshal(data, v), string(data))
}

func (c *client) errorCode(data []byte) string {
	c.t.Helper()
	var eb wire.ErrorBody
	c.decode(data, &eb)
	return eb.Error
}

func signup(t *testing.T, srv *httptest.Server, email string) *client {
	t.Helper()
	c := &client{t: t, server: srv}
	status, body := c.do(http.MethodPost, "/auth/v1/signup", wire.Credentials{Email: email, Password: "password1"})
	require.Equal(t, http.StatusCreated, status, string(body))
	var s types.Session
	c.decode(body, &s)
	c.token = s.AccessToken
	return c
}

func (c *client) create(table string, entity any) {
	c.t.Helper()
	status, body := c.do(http.MethodPost, "/rest/v1/"+table, entity)
	require.Equal(c.t, http.StatusCreated, status, string(body))
	c.decode(body, entity)
}

func TestAuthFlow(t *testing.T) {
	srv := newServer(t)
	c := signup(t, srv, "ann@example.com")

	status, body := c.do(http.MethodGet, "/auth/v1/user", nil)
	require.Equal(t, http.StatusOK, status)
	var s types.Session
	c.decode(body, &s)
	assert.Equal(t, "ann@example.com", s.User.Email)

	anon := &client{t: t, server: srv}
	status, body = anon.do(http.MethodPost, "/auth/v1/token", wire.Credentials{Email: "ann@example.com", Password: "password1"})
	require.Equal(t, http.StatusOK, status)
	anon.decode(body, &s)
	assert.NotEmpty(t, s.AccessToken)

	status, body = anon.do(http.MethodPost, "/auth/v1/token", wire.Credentials{Email: "ann@example.com", Password: "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_credentials", anon.errorCode(body))

	status, body = anon.do(http.MethodPost, "/auth/v1/signup", wire.Credentials{Email: "ann@example.com", Password: "password1"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "email_taken", anon.errorCode(body))

	status, _ = c.do(http.MethodPost, "/auth/v1/logout", nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, body = c.do(http.MethodGet, "/auth/v1/user", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "not_authenticated", c.errorCode(body))
}

func TestRestRequiresBearer(t *testing.T) {
	srv := newServer(t)
	anon := &client{t: t, server: srv}
	status, body := anon.do(http.MethodGet, "/rest/v1/boards", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "not_authenticated", anon.errorCode(body))

	anon.token = "garbage"
	status, _ = anon.do(http.MethodGet, "/rest/v1/boards", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRestCRUD(t *testing.T) {
	srv := newServer(t)
	c := signup(t, srv, "ann@example.com")

	board := &types.Board{Title: "Roadmap"}
	c.create(types.TableBoards, board)
	assert.NotEmpty(t, board.BoardID)
	assert.NotEmpty(t, board.UserID, "owner stamped by the service")

	list := &types.List{Title: "To Do", BoardID: board.BoardID}
	c.create(types.TableLists, list)
	card := &types.Card{Title: "Write docs", ListID: list.ListID}
	c.create(types.TableCards, card)

	status, body := c.do(http.MethodGet, "/rest/v1/cards?board_id=eq."+board.BoardID+"&order=position.asc", nil)
	require.Equal(t, http.StatusOK, status)
	var cards []types.Card
	c.decode(body, &cards)
	require.Len(t, cards, 1)
	assert.Equal(t, card.CardID, cards[0].CardID)

	status, body = c.do(http.MethodPatch, "/rest/v1/cards/"+card.CardID, map[string]any{"title": "Write more docs", "position": 3})
	require.Equal(t, http.StatusOK, status, string(body))
	var updated types.Card
	c.decode(body, &updated)
	assert.Equal(t, "Write more docs", updated.Title)
	assert.Equal(t, 3, updated.Position)

	status, _ = c.do(http.MethodGet, "/rest/v1/cards/"+card.CardID, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = c.do(http.MethodDelete, "/rest/v1/cards/"+card.CardID, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, body = c.do(http.MethodGet, "/rest/v1/cards/"+card.CardID, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", c.errorCode(body))
}

func TestRestUpsert(t *testing.T) {
	srv := newServer(t)
	c := signup(t, srv, "ann@example.com")
	board := &types.Board{Title: "Roadmap"}
	c.create(types.TableBoards, board)

	board.Title = "Renamed"
	status, body := c.do(http.MethodPut, "/rest/v1/boards/"+board.BoardID, board)
	require.Equal(t, http.StatusOK, status, string(body))
	var got types.Board
	c.decode(body, &got)
	assert.Equal(t, "Renamed", got.Title)
	assert.True(t, board.CreatedAt.Equal(got.CreatedAt))
}

func TestRestOwnerScoping(t *testing.T) {
	srv := newServer(t)
	ann := signup(t, srv, "ann@example.com")
	bob := signup(t, srv, "bob@example.com")

	board := &types.Board{Title: "Ann's"}
	ann.create(types.TableBoards, board)
	list := &types.List{Title: "To Do", BoardID: board.BoardID}
	ann.create(types.TableLists, list)
	bob.create(types.TableBoards, &types.Board{Title: "Bob's"})

	status, body := bob.do(http.MethodGet, "/rest/v1/boards", nil)
	require.Equal(t, http.StatusOK, status)
	var boards []types.Board
	bob.decode(body, &boards)
	require.Len(t, boards, 1)
	assert.Equal(t, "Bob's", boards[0].Title)

	// Filtering on another user cannot widen the result.
	status, body = bob.do(http.MethodGet, "/rest/v1/boards?user_id=eq."+board.UserID, nil)
	require.Equal(t, http.StatusOK, status)
	bob.decode(body, &boards)
	assert.Len(t, boards, 1)

	status, _ = bob.do(http.MethodGet, "/rest/v1/boards/"+board.BoardID, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = bob.do(http.MethodDelete, "/rest/v1/lists/"+list.ListID, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = bob.do(http.MethodGet, "/rest/v1/lists?board_id=eq."+board.BoardID, nil)
	require.Equal(t, http.StatusOK, status)
	var lists []types.List
	bob.decode(body, &lists)
	assert.Empty(t, lists)

	status, body = bob.do(http.MethodPost, "/rest/v1/cards", &types.Card{Title: "sneaky", ListID: list.ListID})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "invalid_reference", bob.errorCode(body))

	status, body = ann.do(http.MethodPatch, "/rest/v1/boards/"+board.BoardID, map[string]any{"user_id": boards[0].UserID})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_data", ann.errorCode(body))
}

func TestRestFetchLimitAfterOwnership(t *testing.T) {
	srv := newServer(t)
	ann := signup(t, srv, "ann@example.com")
	bob := signup(t, srv, "bob@example.com")

	for _, c := range []*client{bob, ann} {
		board := &types.Board{Title: "Board"}
		c.create(types.TableBoards, board)
		for i := 0; i < 2; i++ {
			c.create(types.TableLists, &types.List{Title: "L", Position: i, BoardID: board.BoardID})
		}
	}

	status, body := ann.do(http.MethodGet, "/rest/v1/lists?limit=2", nil)
	require.Equal(t, http.StatusOK, status)
	var lists []types.List
	ann.decode(body, &lists)
	assert.Len(t, lists, 2)
	status, body = ann.do(http.MethodGet, "/rest/v1/lists?limit=1", nil)
	require.Equal(t, http.StatusOK, status)
	ann.decode(body, &lists)
	assert.Len(t, lists, 1)
}

func TestRestErrors(t *testing.T) {
	srv := newServer(t)
	c := signup(t, srv, "ann@example.com")

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"unknown table", http.MethodGet, "/rest/v1/widgets", nil, http.StatusNotFound, "table_not_found"},
		{"unknown filter", http.MethodGet, "/rest/v1/boards?color=eq.red", nil, http.StatusBadRequest, "invalid_filter"},
		{"bad order", http.MethodGet, "/rest/v1/boards?order=color.asc", nil, http.StatusBadRequest, "invalid_filter"},
		{"bad limit", http.MethodGet, "/rest/v1/boards?limit=x", nil, http.StatusBadRequest, "invalid_filter"},
		{"empty title", http.MethodPost, "/rest/v1/boards", map[string]any{"title": " "}, http.StatusBadRequest, "invalid_title"},
		{"bad json", http.MethodPost, "/rest/v1/boards", "not an object", http.StatusBadRequest, "invalid_data"},
		{"missing list", http.MethodPost, "/rest/v1/cards", map[string]any{"title": "x", "list_id": "nope"}, http.StatusUnprocessableEntity, "invalid_reference"},
		{"patch missing", http.MethodPatch, "/rest/v1/cards/nope", map[string]any{"title": "x"}, http.StatusNotFound, "not_found"},
		{"no route", http.MethodGet, "/nowhere", nil, http.StatusNotFound, "route_not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := c.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, status, string(body))
			assert.Equal(t, tt.wantCode, c.errorCode(body))
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newServer(t)
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/rest/v1/boards", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
