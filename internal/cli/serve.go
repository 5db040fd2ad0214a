package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/taskboard/internal/httpapi"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured backend over HTTP",
		Long: `Serve exposes the sqlite or postgres backend as a taskboard service that
clients reach with backend: remote. Requests are logged to stderr as JSON.

Example:
  taskboard serve --addr :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.settings.backend.Backend == types.BackendRemote {
				return exitError(exitUserError, "serve needs a sqlite or postgres backend, not remote")
			}
			if !cmd.Flags().Changed("addr") {
				addr = a.settings.listenAddr
			}

			level := slog.LevelInfo
			if flags.verbose {
				level = slog.LevelDebug
			}
			log := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			handler := httpapi.New(a.cupboard,
				httpapi.WithLogger(log),
				httpapi.WithCORSOrigins(a.settings.corsOrigins))
			srv := httpapi.NewHTTPServer(addr, handler)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, srv, log)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultListenAddr, "listen address (default: listen_addr from config.yaml)")
	return cmd
}

// serve runs srv until ctx is done and then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, log *slog.Logger) error {
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return exitError(exitSysError, "serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return exitError(exitSysError, "shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return exitError(exitSysError, "serve: %w", err)
	}
	return nil
}
