package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/mesh-intelligence/taskboard/internal/wire"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

type table struct {
	backend *Backend
	name    string
}

func (t *table) path(id string) string {
	p := wire.RestPrefix + "/" + t.name
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

func (t *table) call(ctx context.Context, method, id string, query url.Values, body any) ([]byte, error) {
	var data []byte
	err := t.backend.do(ctx, method, t.path(id), query, t.backend.currentToken(), body, &data)
	return data, err
}

func (t *table) Get(ctx context.Context, id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	data, err := t.call(ctx, http.MethodGet, id, nil, nil)
	if err != nil {
		return nil, err
	}
	return wire.ParseEntityJSON(t.name, data)
}

// Set posts new entities and puts existing ones. The stored row returned by
// the service is copied back into data.
func (t *table) Set(ctx context.Context, id string, data any) (string, error) {
	if e, err := wire.NewEntity(t.name); err != nil || !copyEntity(e, data) {
		return "", types.ErrInvalidData
	}
	if id == "" {
		id = entityID(data)
	}
	method := http.MethodPut
	if id == "" {
		method = http.MethodPost
	}
	body, err := t.call(ctx, method, id, nil, data)
	if err != nil {
		return "", err
	}
	stored, err := wire.ParseEntityJSON(t.name, body)
	if err != nil {
		return "", err
	}
	if !copyEntity(data, stored) {
		return "", types.ErrInvalidData
	}
	return entityID(stored), nil
}

func (t *table) Update(ctx context.Context, id string, patch types.Patch) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	if patch == nil {
		patch = types.Patch{}
	}
	data, err := t.call(ctx, http.MethodPatch, id, nil, patch)
	if err != nil {
		return nil, err
	}
	return wire.ParseEntityJSON(t.name, data)
}

func (t *table) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	_, err := t.call(ctx, http.MethodDelete, id, nil, nil)
	return err
}

func (t *table) Fetch(ctx context.Context, q types.Query) ([]any, error) {
	query, err := wire.EncodeQuery(q)
	if err != nil {
		return nil, err
	}
	data, err := t.call(ctx, http.MethodGet, "", query, nil)
	if err != nil {
		return nil, err
	}
	return wire.ParseEntityList(t.name, data)
}

func entityID(e any) string {
	switch x := e.(type) {
	case *types.Board:
		return x.BoardID
	case *types.List:
		return x.ListID
	case *types.Card:
		return x.CardID
	default:
		return ""
	}
}

// copyEntity overwrites dst with src when both are the same entity type.
func copyEntity(dst, src any) bool {
	switch d := dst.(type) {
	case *types.Board:
		s, ok := src.(*types.Board)
		if ok {
			*d = *s
		}
		return ok
	case *types.List:
		s, ok := src.(*types.List)
		if ok {
			*d = *s
		}
		return ok
	case *types.Card:
		s, ok := src.(*types.Card)
		if ok {
			*d = *s
		}
		return ok
	default:
		return false
	}
}
