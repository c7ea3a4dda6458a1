package cmd

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"reflect"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/autoclean-api/internal/config"
	"github.com/tjfontaine/autoclean-api/internal/database"
	"github.com/tjfontaine/autoclean-api/internal/server"
	"github.com/tjfontaine/autoclean-api/internal/telemetry"
)

func newServeCommand(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")

	return cmd
}

func (a *app) serve(ctx context.Context) error {
	logger := a.logger

	shutdownTracer, err := telemetry.InitTracer(a.cfg.Telemetry, a.out, logger)
	if err != nil {
		return err
	}

	db := database.NewManager(a.cfg.Database, database.WithLogger(logger))

	watcher, err := a.watchConfig(ctx, db)
	if err != nil {
		return err
	}
	if watcher != nil {
		defer watcher.Close()
	}

	srv := server.New(a.cfg.Server, logger,
		server.WithHealth(server.NewHealthHandlers(db)),
		server.WithStages(server.RateLimitFromConfig(a.cfg.RateLimit)),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.String("error", err.Error()))
	}
	if err := db.Release(shutdownCtx); err != nil {
		logger.Error("database release failed", slog.String("error", err.Error()))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Error("tracer shutdown failed", slog.String("error", err.Error()))
	}

	logger.Info("shutdown complete")
	return serveErr
}

// watchConfig reconfigures db whenever the database section of the config
// file changes. It returns nil when there is no config file to watch.
func (a *app) watchConfig(ctx context.Context, db *database.Manager) (*config.Watcher, error) {
	if _, err := os.Stat(a.configPath); errors.Is(err, fs.ErrNotExist) {
		a.logger.Debug("no config file, hot reload disabled", slog.String("path", a.configPath))
		return nil, nil
	}

	w, err := config.NewWatcher(a.configPath, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}

	previous := a.cfg.Database
	err = w.Watch(ctx, func(cfg *config.Config) {
		if reflect.DeepEqual(previous, cfg.Database) {
			return
		}
		previous = cfg.Database
		a.logger.Info("database configuration changed, releasing pool",
			slog.String("driver", cfg.Database.Driver))
		if err := db.Reconfigure(ctx, cfg.Database); err != nil {
			a.logger.Error("database reconfigure failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}
