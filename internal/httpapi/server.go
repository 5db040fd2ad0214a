// Package httpapi serves a taskboard backend over HTTP so that clients can
// attach to it with the remote backend.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/mesh-intelligence/taskboard/internal/wire"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

const maxBodyBytes = 1 << 20

// Server routes auth and table requests to an attached Cupboard.
type Server struct {
	cupboard types.Cupboard
	log      *slog.Logger
	origins  []string
	handler  http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithCORSOrigins sets the origins allowed to call the API from a browser.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// New builds the HTTP handler for cupboard, which must be attached.
func New(cupboard types.Cupboard, opts ...Option) *Server {
	s := &Server{
		cupboard: cupboard,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		origins:  []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	auth := r.PathPrefix(wire.AuthPrefix).Subrouter()
	auth.HandleFunc("/signup", s.handleSignup).Methods(http.MethodPost)
	auth.HandleFunc("/token", s.handleToken).Methods(http.MethodPost)
	auth.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	auth.HandleFunc("/user", s.requireSession(s.handleUser)).Methods(http.MethodGet)

	rest := r.PathPrefix(wire.RestPrefix).Subrouter()
	rest.HandleFunc("/{table}", s.requireSession(s.handleFetch)).Methods(http.MethodGet)
	rest.HandleFunc("/{table}", s.requireSession(s.handleInsert)).Methods(http.MethodPost)
	rest.HandleFunc("/{table}/{id}", s.requireSession(s.handleGet)).Methods(http.MethodGet)
	rest.HandleFunc("/{table}/{id}", s.requireSession(s.handleUpsert)).Methods(http.MethodPut)
	rest.HandleFunc("/{table}/{id}", s.requireSession(s.handleUpdate)).Methods(http.MethodPatch)
	rest.HandleFunc("/{table}/{id}", s.requireSession(s.handleDelete)).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, wire.ErrorBody{Error: "route_not_found", Message: "no such route"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, wire.ErrorBody{Error: "method_not_allowed", Message: "method not allowed"})
	})

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	s.handler = withLogging(s.log, c.Handler(r))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// NewHTTPServer wraps handler in an http.Server with conservative timeouts.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

type sessionKey struct{}

func sessionFrom(ctx context.Context) *types.Session {
	s, _ := ctx.Value(sessionKey{}).(*types.Session)
	return s
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// requireSession verifies the bearer token and stores the session in the
// request context.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.writeError(w, r, types.ErrNotAuthenticated)
			return
		}
		accounts, err := s.cupboard.Accounts()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		session, err := accounts.Verify(r.Context(), token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
	}
}

func withLogging(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		log.Info("http", "method", r.Method, "path", r.URL.Path, "status", sw.status, "dur_ms", time.Since(start).Milliseconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) { w.status = code; w.ResponseWriter.WriteHeader(code) }

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, types.ErrInvalidData
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, status := wire.ErrorCode(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, wire.ErrorBody{Error: code, Message: err.Error()})
}
