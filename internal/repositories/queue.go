package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"upcwatch/internal/models"
	"upcwatch/internal/shared"
)

// QueueRepository persists pending UPC checks.
//
// Upsert semantics are keyed on the UPC code: re-submitting a tracked code
// replaces its schedule rather than adding a second row.
type QueueRepository struct {
	db *sql.DB
}

// NewQueueRepository creates a new QueueRepository with the given database connection
func NewQueueRepository(db *sql.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// Upsert inserts or replaces the queue entry for entry.UPC.
func (r *QueueRepository) Upsert(entry *models.QueueEntry) error {
	if entry.UPC == "" {
		return fmt.Errorf("%w: queue entry without UPC", shared.ErrInvalidInput)
	}
	if entry.ID == "" {
		entry.ID = shared.GenerateID()
	}

	query := `
		INSERT INTO queue (id, upc, artist, release_title, release_date, next_check, attempts_remaining, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(upc) DO UPDATE SET
			artist = excluded.artist,
			release_title = excluded.release_title,
			release_date = excluded.release_date,
			next_check = excluded.next_check,
			attempts_remaining = excluded.attempts_remaining,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query,
		entry.ID,
		entry.UPC,
		entry.Artist,
		entry.ReleaseTitle,
		shared.FormatDate(entry.ReleaseDate),
		shared.FormatDate(entry.NextCheck),
		entry.AttemptsRemaining,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert queue entry: %w", err)
	}

	return nil
}

// Get retrieves the queue entry for a UPC, or nil when the code is not queued.
func (r *QueueRepository) Get(upc string) (*models.QueueEntry, error) {
	query := `
		SELECT id, upc, artist, release_title, release_date, next_check, attempts_remaining
		FROM queue
		WHERE upc = ?
	`

	entry, err := scanQueueEntry(r.db.QueryRow(query, upc))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan queue entry: %w", err)
	}
	return entry, nil
}

// Delete removes the queue entry for a UPC. Deleting an absent entry is not
// an error.
func (r *QueueRepository) Delete(upc string) error {
	if _, err := r.db.Exec("DELETE FROM queue WHERE upc = ?", upc); err != nil {
		return fmt.Errorf("failed to delete queue entry: %w", err)
	}
	return nil
}

// ListDue retrieves all entries whose next check date has passed as of today.
func (r *QueueRepository) ListDue(today time.Time) ([]*models.QueueEntry, error) {
	query := `
		SELECT id, upc, artist, release_title, release_date, next_check, attempts_remaining
		FROM queue
		WHERE next_check <= ?
		ORDER BY next_check ASC, upc ASC
	`
	return r.list(query, shared.FormatDate(today))
}

// List retrieves all pending entries ordered by next check date.
func (r *QueueRepository) List() ([]*models.QueueEntry, error) {
	query := `
		SELECT id, upc, artist, release_title, release_date, next_check, attempts_remaining
		FROM queue
		ORDER BY next_check ASC, upc ASC
	`
	return r.list(query)
}

func (r *QueueRepository) list(query string, args ...any) ([]*models.QueueEntry, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue: %w", err)
	}
	defer rows.Close()

	var entries []*models.QueueEntry
	for rows.Next() {
		entry, err := scanQueueEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

func scanQueueEntry(row scanner) (*models.QueueEntry, error) {
	var (
		entry       models.QueueEntry
		releaseDate string
		nextCheck   string
	)

	err := row.Scan(&entry.ID, &entry.UPC, &entry.Artist, &entry.ReleaseTitle, &releaseDate, &nextCheck, &entry.AttemptsRemaining)
	if err != nil {
		return nil, err
	}

	if entry.ReleaseDate, err = shared.ParseDate(releaseDate); err != nil {
		return nil, err
	}
	if entry.NextCheck, err = shared.ParseDate(nextCheck); err != nil {
		return nil, err
	}

	return &entry, nil
}
