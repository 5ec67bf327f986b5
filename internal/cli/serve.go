package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dukerupert/daybook/internal/database"
	"github.com/dukerupert/daybook/internal/scheduler"
	"github.com/dukerupert/daybook/internal/server"
	"github.com/dukerupert/daybook/internal/tracker"
	"github.com/spf13/cobra"
)

func newServeCommand(app *App) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:         "serve",
		Short:       "Run the daybook server",
		Annotations: map[string]string{annotationNoCheck: "true"},
		GroupID:     groupAdmin,
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port != "" {
				app.cfg.Port = port
			}
			return app.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Listen port (default from config)")
	return cmd
}

func (a *App) serve(ctx context.Context) error {
	logger := a.logger
	cfg := a.cfg

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if v, err := database.SchemaVersion(ctx, db); err != nil {
		logger.Warn("read schema version", "error", err)
	} else {
		logger.Debug("database ready", "path", cfg.DBPath, "schema_version", v)
	}

	srv := server.New(db, server.Config{
		Location:    a.loc,
		Archive:     cfg.ArchiveS3(),
		ExportLimit: cfg.ExportLimit,
	}, logger, tracker.WithClock(a.now))

	sched := scheduler.New(a.loc, srv.Tracker(), srv.Profiles(), logger, cfg.User)
	if _, err := sched.ScheduleDaily(cfg.RolloverSchedule); err != nil {
		return err
	}
	limiter := srv.RateLimiter()
	if _, err := sched.Every(10*time.Minute, func() {
		if n := limiter.Cleanup(); n > 0 {
			logger.Debug("rate limiter cleanup", "removed", n, "remaining", limiter.Len())
		}
	}); err != nil {
		return err
	}
	sched.RunOnce(ctx)
	sched.Start()
	defer sched.Stop()

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("daybook listening", "addr", httpServer.Addr, "db", cfg.DBPath,
			"timezone", a.loc.String(), "next_rollover", sched.Next())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
