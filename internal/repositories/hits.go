package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"upcwatch/internal/models"
	"upcwatch/internal/shared"
)

// HitRepository persists confirmed playlist placements, keyed on UPC.
type HitRepository struct {
	db *sql.DB
}

// NewHitRepository creates a new HitRepository with the given database connection
func NewHitRepository(db *sql.DB) *HitRepository {
	return &HitRepository{db: db}
}

// Record inserts or replaces the hit for hit.UPC and stamps RecordedAt.
func (r *HitRepository) Record(hit *models.Hit) error {
	if hit.UPC == "" {
		return fmt.Errorf("%w: hit without UPC", shared.ErrInvalidInput)
	}
	if hit.ID == "" {
		hit.ID = shared.GenerateID()
	}
	hit.RecordedAt = time.Now().UTC()

	playlists, err := json.Marshal(hit.Playlists)
	if err != nil {
		return fmt.Errorf("failed to marshal playlists: %w", err)
	}

	query := `
		INSERT INTO hits (id, upc, artist, release_title, release_date, week_label, playlists, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(upc) DO UPDATE SET
			artist = excluded.artist,
			release_title = excluded.release_title,
			release_date = excluded.release_date,
			week_label = excluded.week_label,
			playlists = excluded.playlists,
			recorded_at = excluded.recorded_at
	`

	_, err = r.db.Exec(query,
		hit.ID,
		hit.UPC,
		hit.Artist,
		hit.ReleaseTitle,
		shared.FormatDate(hit.ReleaseDate),
		hit.WeekLabel,
		string(playlists),
		hit.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record hit: %w", err)
	}

	return nil
}

// Get retrieves the hit for a UPC, or nil when none is recorded.
func (r *HitRepository) Get(upc string) (*models.Hit, error) {
	query := `
		SELECT id, upc, artist, release_title, release_date, week_label, playlists, recorded_at
		FROM hits
		WHERE upc = ?
	`

	hit, err := scanHit(r.db.QueryRow(query, upc))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan hit: %w", err)
	}
	return hit, nil
}

// List retrieves all recorded hits, most recent release first.
func (r *HitRepository) List() ([]*models.Hit, error) {
	query := `
		SELECT id, upc, artist, release_title, release_date, week_label, playlists, recorded_at
		FROM hits
		ORDER BY release_date DESC, artist ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query hits: %w", err)
	}
	defer rows.Close()

	var hits []*models.Hit
	for rows.Next() {
		hit, err := scanHit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return hits, nil
}

func scanHit(row scanner) (*models.Hit, error) {
	var (
		hit         models.Hit
		releaseDate string
		playlists   string
	)

	err := row.Scan(&hit.ID, &hit.UPC, &hit.Artist, &hit.ReleaseTitle, &releaseDate, &hit.WeekLabel, &playlists, &hit.RecordedAt)
	if err != nil {
		return nil, err
	}

	if hit.ReleaseDate, err = shared.ParseDate(releaseDate); err != nil {
		return nil, err
	}

	// A corrupt playlists column degrades to an empty list rather than
	// failing the whole listing.
	if err := json.Unmarshal([]byte(playlists), &hit.Playlists); err != nil {
		hit.Playlists = []string{}
	}

	return &hit, nil
}
