package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/mesh-intelligence/taskboard/internal/wire"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

func (s *Server) readCredentials(w http.ResponseWriter, r *http.Request) (wire.Credentials, bool) {
	var creds wire.Credentials
	data, err := readBody(w, r)
	if err == nil {
		err = json.Unmarshal(data, &creds)
	}
	if err != nil {
		s.writeError(w, r, types.ErrInvalidData)
		return creds, false
	}
	return creds, true
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	creds, ok := s.readCredentials(w, r)
	if !ok {
		return
	}
	accounts, err := s.cupboard.Accounts()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := accounts.Register(r.Context(), creds.Email, creds.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("user registered", "user_id", session.User.UserID)
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	creds, ok := s.readCredentials(w, r)
	if !ok {
		return
	}
	accounts, err := s.cupboard.Accounts()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := accounts.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// handleLogout revokes the bearer token. Unknown or expired tokens succeed.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.cupboard.Accounts()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := accounts.Revoke(r.Context(), bearerToken(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r.Context()))
}
