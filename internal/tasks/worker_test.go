package tasks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"upcwatch/internal/models"
	"upcwatch/internal/shared"
)

func TestWorkerRunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("Processes Due Entries Only", func(t *testing.T) {
		f := setupEngine(t)
		today := shared.Today()
		released := shared.AddDays(today, -2)

		f.catalog.releases["DUE"] = &models.Release{Artist: "A", Title: "T", ReleaseDate: released}
		f.catalog.releases["LATER"] = &models.Release{Artist: "B", Title: "T2", ReleaseDate: released}
		f.charts.lines = []string{"«Новинки» (ВКонтакте) (позиция 1)"}

		for _, entry := range []*models.QueueEntry{
			{UPC: "DUE", Artist: "A", ReleaseTitle: "T", ReleaseDate: released, NextCheck: today, AttemptsRemaining: 2},
			{UPC: "LATER", Artist: "B", ReleaseTitle: "T2", ReleaseDate: released, NextCheck: shared.AddDays(today, 3), AttemptsRemaining: 2},
		} {
			if err := f.queue.Upsert(entry); err != nil {
				t.Fatalf("failed to seed queue: %v", err)
			}
		}

		var hits []*models.Hit
		worker := NewWorker(f.engine, f.queue, time.Minute, func(hit *models.Hit) {
			hits = append(hits, hit)
		})

		if err := worker.RunOnce(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(hits) != 1 || hits[0].UPC != "DUE" {
			t.Fatalf("expected one hit for DUE, got %+v", hits)
		}

		// The due entry is resolved, the future one untouched.
		if entry, _ := f.queue.Get("DUE"); entry != nil {
			t.Errorf("expected DUE removed from queue, got %+v", entry)
		}
		if entry, _ := f.queue.Get("LATER"); entry == nil {
			t.Error("expected LATER to remain queued")
		}
	})

	t.Run("Entry Failure Does Not Stop Scan", func(t *testing.T) {
		f := setupEngine(t)
		today := shared.Today()
		released := shared.AddDays(today, -2)

		f.catalog.errFor["BAD"] = fmt.Errorf("lookup blew up")
		f.catalog.releases["GOOD"] = &models.Release{Artist: "A", Title: "T", ReleaseDate: released}
		f.charts.lines = []string{"line"}

		for _, upc := range []string{"BAD", "GOOD"} {
			if err := f.queue.Upsert(&models.QueueEntry{
				UPC: upc, Artist: "A", ReleaseTitle: "T",
				ReleaseDate: released, NextCheck: today, AttemptsRemaining: 2,
			}); err != nil {
				t.Fatalf("failed to seed queue: %v", err)
			}
		}

		var hits []*models.Hit
		worker := NewWorker(f.engine, f.queue, time.Minute, func(hit *models.Hit) {
			hits = append(hits, hit)
		})

		if err := worker.RunOnce(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hits) != 1 || hits[0].UPC != "GOOD" {
			t.Errorf("expected GOOD processed despite BAD failing, got %+v", hits)
		}
		// BAD stays queued for the next scan.
		if entry, _ := f.queue.Get("BAD"); entry == nil {
			t.Error("expected BAD to remain queued")
		}
	})

	t.Run("Skips While Previous Scan Running", func(t *testing.T) {
		f := setupEngine(t)
		worker := NewWorker(f.engine, f.queue, time.Minute, nil)

		worker.running.Store(true)
		defer worker.running.Store(false)

		if err := worker.RunOnce(ctx); err != nil {
			t.Fatalf("expected overlapping scan to be skipped, got %v", err)
		}
	})

	t.Run("Empty Queue Is A No Op", func(t *testing.T) {
		f := setupEngine(t)
		worker := NewWorker(f.engine, f.queue, time.Minute, nil)

		if err := worker.RunOnce(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestWorkerStart(t *testing.T) {
	t.Run("Stops On Context Cancel", func(t *testing.T) {
		f := setupEngine(t)
		worker := NewWorker(f.engine, f.queue, 10*time.Millisecond, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			worker.Start(ctx)
			close(done)
		}()

		time.Sleep(30 * time.Millisecond)
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("worker did not stop after cancel")
		}
	})
}
