package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"upcwatch/internal/models"
	"upcwatch/internal/server"
	"upcwatch/internal/tasks"
)

// Serve runs the HTTP API alongside the background queue worker. The worker
// re-checks due queue entries on the configured interval while the API accepts
// new codes and serves recorded hits; both stop on SIGINT/SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	host := cmd.String("host")
	if host == "" {
		host = r.config.Server.Host
	}
	port := int(cmd.Int("port"))
	if port == 0 {
		port = r.config.Server.Port
	}

	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(server.NewTrackerHandler(r.engine, r.hits, r.queue))

	serverAddr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	interval := time.Duration(r.config.Checker.IntervalSeconds) * time.Second
	worker := tasks.NewWorker(r.engine, r.queue, interval, r.notifyHit)
	go worker.Start(ctx)

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting tracker API at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	return nil
}

// notifyHit announces a placement the background worker found. The original
// deployment pushed these to a chat; here they land in the server log where an
// operator tails them.
func (r *Runner) notifyHit(hit *models.Hit) {
	r.logger.Info("placement recorded",
		"upc", hit.UPC,
		"artist", hit.Artist,
		"release", hit.ReleaseTitle,
		"week", hit.WeekLabel,
		"playlists", len(hit.Playlists),
	)
}
