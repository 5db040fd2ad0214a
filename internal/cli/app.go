package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/taskboard/internal/board"
	"github.com/mesh-intelligence/taskboard/internal/session"
	"github.com/mesh-intelligence/taskboard/pkg/backend"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// app is the attached backend and signed-in state shared by the commands
// of one invocation.
type app struct {
	flags    *rootFlags
	settings *settings
	log      *slog.Logger
	out      io.Writer
	cupboard types.Cupboard
	session  *session.Client
}

var timeNow = time.Now

// userErrors are reported with exitUserError; anything else is a system
// failure.
var userErrors = []error{
	types.ErrNotAuthenticated,
	types.ErrSessionExpired,
	types.ErrInvalidCredentials,
	types.ErrEmailTaken,
	types.ErrInvalidEmail,
	types.ErrWeakPassword,
	types.ErrNotFound,
	types.ErrInvalidID,
	types.ErrInvalidData,
	types.ErrInvalidTitle,
	types.ErrInvalidPosition,
	types.ErrInvalidReference,
	types.ErrInvalidFilter,
}

// exitCodeFor returns the exit code the kind of err calls for.
func exitCodeFor(err error) int {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	return exitSysError
}

// failure wraps err with a message and the exit code its kind calls for.
func failure(err error, format string, args ...any) error {
	return &exitCodeError{code: exitCodeFor(err), err: fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)}
}

// newLogger returns the stderr logger of the CLI.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openApp loads the configuration, attaches the configured backend and
// restores the session saved in the config directory. The caller must
// call Close.
func openApp(cmd *cobra.Command, flags *rootFlags) (*app, error) {
	s, err := loadSettings(flags)
	if err != nil {
		return nil, err
	}
	log := newLogger(cmd.ErrOrStderr(), flags.verbose)

	cupboard, err := backend.Open(s.backend)
	if err != nil {
		return nil, exitError(exitSysError, "attach %s backend: %w", s.backend.Backend, err)
	}
	accounts, err := cupboard.Accounts()
	if err != nil {
		cupboard.Detach()
		return nil, exitError(exitSysError, "open accounts: %w", err)
	}
	log.Debug("backend attached", "backend", s.backend.Backend, "config_dir", s.configDir)

	return &app{
		flags:    flags,
		settings: s,
		log:      log,
		out:      cmd.OutOrStdout(),
		cupboard: cupboard,
		session:  session.New(accounts, session.NewFileTokenStore(s.configDir), session.WithLogger(log)),
	}, nil
}

// Close detaches the backend.
func (a *app) Close() {
	if err := a.cupboard.Detach(); err != nil {
		a.log.Warn("detaching backend", "error", err)
	}
}

// requireUser returns the signed-in session. The remote backend receives
// the restored token as a side effect of verifying it.
func (a *app) requireUser(ctx context.Context) (*types.Session, error) {
	s, err := a.session.Session(ctx)
	if err != nil {
		return nil, failure(err, "restore session")
	}
	if s == nil {
		return nil, exitError(exitUserError, "not signed in; run taskboard signin")
	}
	return s, nil
}

// newStore returns an entity state store for the signed-in user.
func (a *app) newStore() *board.Store {
	return board.New(a.cupboard, a.session,
		board.WithLogger(a.log),
		board.WithSeedDelay(a.settings.seedDelay))
}

// printJSON writes v as indented JSON.
func (a *app) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return exitError(exitSysError, "marshal output: %w", err)
	}
	fmt.Fprintln(a.out, string(data))
	return nil
}

// interactive reports whether output goes to a terminal.
func (a *app) interactive() bool {
	f, ok := a.out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// formatTime renders t relative to now on a terminal and as RFC 3339
// otherwise, so piped output stays stable.
func (a *app) formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	if a.interactive() {
		return humanize.Time(t)
	}
	return t.UTC().Format(time.RFC3339)
}

// truncate shortens s to n runes with a trailing ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
