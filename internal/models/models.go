package models

import "time"

// TokenSet is the stored OAuth credential state.
//
// ExpiresAt is always derived as now + expires_in at the moment the tokens
// were issued, never written directly by callers.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ExpiresWithin reports whether the access token is absent or will expire
// within the given margin of now.
func (t *TokenSet) ExpiresWithin(now time.Time, margin time.Duration) bool {
	if t == nil || t.AccessToken == "" {
		return true
	}
	return !now.Add(margin).Before(t.ExpiresAt)
}

// Release is a catalog record for a UPC code.
//
// ReleaseDate is the sales-start date (falling back to the plain release date
// field); zero when the catalog carries neither.
type Release struct {
	Artist      string
	Title       string
	ReleaseDate time.Time
}

// QueueEntry is the pending retry state for a code awaiting a future check.
// Exactly one entry exists per UPC at any time.
type QueueEntry struct {
	ID                string
	UPC               string
	Artist            string
	ReleaseTitle      string
	ReleaseDate       time.Time
	NextCheck         time.Time
	AttemptsRemaining int
}

// Hit is a confirmed playlist placement for a code. At most one Hit exists
// per UPC; recording a hit removes the corresponding QueueEntry.
type Hit struct {
	ID           string
	UPC          string
	Artist       string
	ReleaseTitle string
	ReleaseDate  time.Time
	WeekLabel    string
	Playlists    []string
	RecordedAt   time.Time
}

// LookupResult is the outcome of processing a single code: either a Hit or a
// human-readable status note.
type LookupResult struct {
	UPC  string
	Hit  *Hit
	Note string
}
