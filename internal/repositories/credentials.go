package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"upcwatch/internal/models"
)

// CredentialRepository persists the OAuth token state as a single JSON payload
// row. The payload is replaced wholesale on every refresh and cleared entirely
// when a refresh fails.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new CredentialRepository with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Get retrieves the stored token set. Returns nil when no tokens are stored;
// a corrupt payload is treated the same as an absent one.
func (r *CredentialRepository) Get() (*models.TokenSet, error) {
	var payload string
	err := r.db.QueryRow("SELECT payload FROM credentials WHERE id = 1").Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var tokens models.TokenSet
	if err := json.Unmarshal([]byte(payload), &tokens); err != nil {
		return nil, nil
	}
	return &tokens, nil
}

// Set replaces the stored token set.
func (r *CredentialRepository) Set(tokens *models.TokenSet) error {
	payload, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	query := `
		INSERT INTO credentials (id, payload, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, string(payload), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	return nil
}

// Clear erases the stored token set, forcing a fresh login.
func (r *CredentialRepository) Clear() error {
	if _, err := r.db.Exec("DELETE FROM credentials WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}
