package tasks

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"upcwatch/internal/models"
	"upcwatch/internal/repositories"
	"upcwatch/internal/shared"
)

// defaultInterval is how often the worker scans for due queue entries.
const defaultInterval = 60 * time.Second

// Worker periodically re-processes queue entries whose next check date has
// come due. At most one scan runs at a time; a tick that fires while a scan
// is still in flight is skipped.
type Worker struct {
	engine   *Engine
	queue    *repositories.QueueRepository
	interval time.Duration
	onHit    func(*models.Hit)
	running  atomic.Bool
	logger   *log.Logger
}

// NewWorker creates a Worker scanning at the given interval. onHit, when
// non-nil, is called for every placement found during a background scan.
func NewWorker(engine *Engine, queue *repositories.QueueRepository, interval time.Duration, onHit func(*models.Hit)) *Worker {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Worker{
		engine:   engine,
		queue:    queue,
		interval: interval,
		onHit:    onHit,
		logger:   shared.NewLogger(nil),
	}
}

// Start runs an immediate scan and then keeps scanning on the configured
// interval until the context is cancelled. It blocks; run it in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("queue worker started", "interval", w.interval)

	if err := w.RunOnce(ctx); err != nil {
		w.logger.Error("queue scan failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("queue worker stopped")
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error("queue scan failed", "error", err)
			}
		}
	}
}

// RunOnce processes every due queue entry sequentially. Per-entry failures
// are logged and do not stop the scan. Returns immediately when a previous
// scan is still running.
func (w *Worker) RunOnce(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		w.logger.Debug("previous scan still running, skipping")
		return nil
	}
	defer w.running.Store(false)

	today := shared.Today()
	due, err := w.queue.ListDue(today)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	w.logger.Info("processing due queue entries", "count", len(due))
	for _, entry := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		result, err := w.engine.Process(ctx, entry.UPC, today)
		if err != nil {
			w.logger.Error("failed to process queue entry", "upc", entry.UPC, "error", err)
			continue
		}

		if result.Hit != nil {
			w.logger.Info("background scan found playlists", "upc", entry.UPC, "artist", result.Hit.Artist)
			if w.onHit != nil {
				w.onHit(result.Hit)
			}
		} else if result.Note != "" {
			w.logger.Info("background scan note", "upc", entry.UPC, "note", result.Note)
		}
	}

	return nil
}
