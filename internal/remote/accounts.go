package remote

import (
	"context"
	"net/http"

	"github.com/mesh-intelligence/taskboard/internal/wire"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

type accounts struct {
	backend *Backend
}

func (a *accounts) Register(ctx context.Context, email, password string) (*types.Session, error) {
	return a.open(ctx, "/signup", email, password)
}

func (a *accounts) Login(ctx context.Context, email, password string) (*types.Session, error) {
	return a.open(ctx, "/token", email, password)
}

func (a *accounts) open(ctx context.Context, path, email, password string) (*types.Session, error) {
	var s types.Session
	err := a.backend.do(ctx, http.MethodPost, wire.AuthPrefix+path, nil, "",
		wire.Credentials{Email: email, Password: password}, &s)
	if err != nil {
		return nil, err
	}
	a.backend.SetToken(s.AccessToken)
	return &s, nil
}

func (a *accounts) Verify(ctx context.Context, token string) (*types.Session, error) {
	if token == "" {
		return nil, types.ErrNotAuthenticated
	}
	var s types.Session
	if err := a.backend.do(ctx, http.MethodGet, wire.AuthPrefix+"/user", nil, token, nil, &s); err != nil {
		return nil, err
	}
	a.backend.SetToken(token)
	return &s, nil
}

func (a *accounts) Revoke(ctx context.Context, token string) error {
	if err := a.backend.do(ctx, http.MethodPost, wire.AuthPrefix+"/logout", nil, token, nil, nil); err != nil {
		return err
	}
	if a.backend.currentToken() == token {
		a.backend.SetToken("")
	}
	return nil
}
