package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"upcwatch/internal/models"
	"upcwatch/internal/repositories"
	"upcwatch/internal/services"
	"upcwatch/internal/shared"
)

// freshAttempts is the retry budget granted to a newly queued code. Together
// with the one-week cutoff it bounds polling to a small, predictable number
// of remote calls per code.
const freshAttempts = 2

// noteDateLayout renders dates inside user-facing notes.
const noteDateLayout = "02.01.2006"

// Engine runs the check algorithm for single codes and batches.
type Engine struct {
	queue   *repositories.QueueRepository
	hits    *repositories.HitRepository
	catalog services.Catalog
	charts  services.Charts
	logger  *log.Logger
}

// NewEngine creates an Engine over the given stores and API clients.
func NewEngine(queue *repositories.QueueRepository, hits *repositories.HitRepository, catalog services.Catalog, charts services.Charts) *Engine {
	return &Engine{
		queue:   queue,
		hits:    hits,
		catalog: catalog,
		charts:  charts,
		logger:  shared.NewLogger(nil),
	}
}

// ProcessBatch runs Process for each code against the same reference date and
// returns one result per code, in input order. An authentication failure
// aborts the batch; every other failure is folded into the per-code result.
func (e *Engine) ProcessBatch(ctx context.Context, upcs []string, today time.Time) ([]*models.LookupResult, error) {
	results := make([]*models.LookupResult, 0, len(upcs))
	for _, upc := range upcs {
		result, err := e.Process(ctx, upc, today)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// Process runs the check algorithm for one code against a reference "today"
// date. The returned result carries either a recorded hit or a status note;
// the only error it returns is an authentication failure.
func (e *Engine) Process(ctx context.Context, upc string, today time.Time) (*models.LookupResult, error) {
	e.logger.Info("processing code", "upc", upc)
	result := &models.LookupResult{UPC: upc}

	existing, err := e.queue.Get(upc)
	if err != nil {
		return nil, err
	}

	release, err := e.catalog.Lookup(ctx, upc)
	if err != nil {
		return nil, err
	}
	if release == nil {
		result.Note = fmt.Sprintf("%s: альбом не найден", upc)
		return result, nil
	}
	if release.ReleaseDate.IsZero() {
		e.logger.Warn("release has no sales start date", "upc", upc)
		result.Note = fmt.Sprintf("%s: нет даты начала продаж", upc)
		return result, nil
	}

	if existing == nil {
		entry := &models.QueueEntry{
			UPC:               upc,
			Artist:            release.Artist,
			ReleaseTitle:      release.Title,
			ReleaseDate:       release.ReleaseDate,
			AttemptsRemaining: freshAttempts,
		}

		if release.ReleaseDate.After(today) {
			entry.NextCheck = release.ReleaseDate
			if err := e.queue.Upsert(entry); err != nil {
				return nil, err
			}
			e.logger.Info("release not out yet, check deferred", "upc", upc, "next_check", shared.FormatDate(entry.NextCheck))
			result.Note = fmt.Sprintf("%s: релиз ещё не вышел, проверка запланирована на %s", upc, entry.NextCheck.Format(noteDateLayout))
			return result, nil
		}

		entry.NextCheck = today
		if err := e.queue.Upsert(entry); err != nil {
			return nil, err
		}
	}

	queryDate := shared.PlaylistQueryDate(release.ReleaseDate, today)
	placements, err := e.charts.Placements(ctx, release.Artist, release.Title, queryDate)
	if err != nil {
		return nil, err
	}

	if len(placements) > 0 {
		hit := &models.Hit{
			UPC:          upc,
			Artist:       release.Artist,
			ReleaseTitle: release.Title,
			ReleaseDate:  release.ReleaseDate,
			WeekLabel:    shared.WeekLabel(release.ReleaseDate),
			Playlists:    placements,
		}
		if err := e.hits.Record(hit); err != nil {
			return nil, err
		}
		if err := e.queue.Delete(upc); err != nil {
			return nil, err
		}
		e.logger.Info("playlists found", "upc", upc, "count", len(placements))
		result.Hit = hit
		return result, nil
	}

	cutoff := shared.Cutoff(release.ReleaseDate)
	attempts := freshAttempts
	if existing != nil {
		attempts = existing.AttemptsRemaining
	}

	if !queryDate.Before(cutoff) || attempts <= 0 {
		if err := e.queue.Delete(upc); err != nil {
			return nil, err
		}
		e.logger.Info("release window passed, giving up", "upc", upc)
		result.Note = fmt.Sprintf("%s: плейлисты не найдены в течение недели после релиза", upc)
		return result, nil
	}

	nextCheck := shared.AddDays(today, 7)
	if nextCheck.After(cutoff) {
		nextCheck = cutoff
	}

	entry := &models.QueueEntry{
		UPC:               upc,
		Artist:            release.Artist,
		ReleaseTitle:      release.Title,
		ReleaseDate:       release.ReleaseDate,
		NextCheck:         nextCheck,
		AttemptsRemaining: attempts - 1,
	}
	if err := e.queue.Upsert(entry); err != nil {
		return nil, err
	}

	e.logger.Info("retry scheduled", "upc", upc, "next_check", shared.FormatDate(nextCheck), "attempts_remaining", entry.AttemptsRemaining)
	result.Note = fmt.Sprintf("%s: плейлисты пока не найдены, повторная проверка %s", upc, nextCheck.Format(noteDateLayout))
	return result, nil
}
