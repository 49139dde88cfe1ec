package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"upcwatch/internal/models"
	"upcwatch/internal/repositories"
	"upcwatch/internal/shared"
	"upcwatch/internal/tasks"
)

// hitPayload is the wire form of a recorded hit. FoundAt is only populated
// on the hits listing, not on fresh submission results.
type hitPayload struct {
	UPC          string   `json:"upc"`
	Artist       string   `json:"artist"`
	ReleaseTitle string   `json:"release_title"`
	WeekLabel    string   `json:"week_label"`
	ReleaseDate  string   `json:"release_date"`
	Playlists    []string `json:"playlists"`
	FoundAt      string   `json:"found_at,omitempty"`
}

// queuePayload is the wire form of a pending queue entry.
type queuePayload struct {
	UPC               string `json:"upc"`
	Artist            string `json:"artist"`
	ReleaseTitle      string `json:"release_title"`
	ReleaseDate       string `json:"release_date"`
	NextCheck         string `json:"next_check"`
	AttemptsRemaining int    `json:"attempts_remaining"`
}

// TrackerHandler serves the tracker's JSON API. Implements [Handler].
type TrackerHandler struct {
	engine *tasks.Engine
	hits   *repositories.HitRepository
	queue  *repositories.QueueRepository
	logger *log.Logger
}

// NewTrackerHandler creates the API handler over the given engine and stores.
func NewTrackerHandler(engine *tasks.Engine, hits *repositories.HitRepository, queue *repositories.QueueRepository) *TrackerHandler {
	return &TrackerHandler{
		engine: engine,
		hits:   hits,
		queue:  queue,
		logger: shared.NewLogger(nil),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *TrackerHandler) Routes() []string {
	return []string{"/api/upcs", "/api/hits", "/api/queue"}
}

// ServeHTTP dispatches to the endpoint implementations.
func (h *TrackerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/upcs" && r.Method == http.MethodPost:
		h.submitCodes(w, r)
	case r.URL.Path == "/api/hits" && r.Method == http.MethodGet:
		h.listHits(w, r)
	case r.URL.Path == "/api/queue" && r.Method == http.MethodGet:
		h.listQueue(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// submitCodes checks a batch of codes immediately and returns the resulting
// hits and status notes.
func (h *TrackerHandler) submitCodes(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UPCs []string `json:"upcs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload.UPCs) == 0 {
		writeError(w, http.StatusBadRequest, "Body must include list 'upcs'")
		return
	}

	results, err := h.engine.ProcessBatch(r.Context(), payload.UPCs, shared.Today())
	if err != nil {
		h.logger.Error("batch processing failed", "error", err)
		status := http.StatusInternalServerError
		if isAuthError(err) {
			status = http.StatusUnauthorized
		}
		writeError(w, status, err.Error())
		return
	}

	hits := []hitPayload{}
	notes := []string{}
	for _, result := range results {
		if result.Hit != nil {
			hits = append(hits, serializeHit(result.Hit, false))
		}
		if result.Note != "" {
			notes = append(notes, result.Note)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"hits": hits, "notes": notes})
}

// listHits returns all recorded hits, most recent release first.
func (h *TrackerHandler) listHits(w http.ResponseWriter, r *http.Request) {
	records, err := h.hits.List()
	if err != nil {
		h.logger.Error("failed to list hits", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list hits")
		return
	}

	hits := []hitPayload{}
	for _, hit := range records {
		hits = append(hits, serializeHit(hit, true))
	}
	writeJSON(w, http.StatusOK, map[string]any{"hits": hits})
}

// listQueue returns all codes still awaiting a scheduled check.
func (h *TrackerHandler) listQueue(w http.ResponseWriter, r *http.Request) {
	records, err := h.queue.List()
	if err != nil {
		h.logger.Error("failed to list queue", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list queue")
		return
	}

	entries := []queuePayload{}
	for _, entry := range records {
		entries = append(entries, queuePayload{
			UPC:               entry.UPC,
			Artist:            entry.Artist,
			ReleaseTitle:      entry.ReleaseTitle,
			ReleaseDate:       shared.FormatDate(entry.ReleaseDate),
			NextCheck:         shared.FormatDate(entry.NextCheck),
			AttemptsRemaining: entry.AttemptsRemaining,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"queue": entries})
}

// isAuthError reports whether a batch failure came from the credential layer,
// as opposed to storage or request construction.
func isAuthError(err error) bool {
	for _, sentinel := range []error{
		shared.ErrMissingCredentials,
		shared.ErrAuthFailed,
		shared.ErrRefreshFailed,
		shared.ErrNoRefreshToken,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func serializeHit(hit *models.Hit, withFoundAt bool) hitPayload {
	payload := hitPayload{
		UPC:          hit.UPC,
		Artist:       hit.Artist,
		ReleaseTitle: hit.ReleaseTitle,
		WeekLabel:    hit.WeekLabel,
		ReleaseDate:  shared.FormatDate(hit.ReleaseDate),
		Playlists:    hit.Playlists,
	}
	if payload.Playlists == nil {
		payload.Playlists = []string{}
	}
	if withFoundAt && !hit.RecordedAt.IsZero() {
		payload.FoundAt = hit.RecordedAt.UTC().Format(time.RFC3339)
	}
	return payload
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
