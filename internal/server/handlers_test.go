package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"upcwatch/internal/models"
	"upcwatch/internal/repositories"
	"upcwatch/internal/shared"
	"upcwatch/internal/tasks"
)

type fakeCatalog struct {
	releases map[string]*models.Release
	err      error
}

func (f *fakeCatalog) Lookup(ctx context.Context, upc string) (*models.Release, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.releases[upc], nil
}

type fakeCharts struct {
	lines []string
}

func (f *fakeCharts) Placements(ctx context.Context, artist, releaseTitle string, date time.Time) ([]string, error) {
	return f.lines, nil
}

type apiFixture struct {
	db      *sql.DB
	queue   *repositories.QueueRepository
	hits    *repositories.HitRepository
	catalog *fakeCatalog
	charts  *fakeCharts
	router  *BasicRouter
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	f := &apiFixture{
		db:      db,
		queue:   repositories.NewQueueRepository(db),
		hits:    repositories.NewHitRepository(db),
		catalog: &fakeCatalog{releases: map[string]*models.Release{}},
		charts:  &fakeCharts{},
	}

	engine := tasks.NewEngine(f.queue, f.hits, f.catalog, f.charts)
	f.router = NewBasicRouter()
	f.router.Handler(NewTrackerHandler(engine, f.hits, f.queue))
	return f
}

func TestSubmitCodes(t *testing.T) {
	t.Run("Returns Hits And Notes", func(t *testing.T) {
		f := setupAPI(t)
		released := shared.AddDays(shared.Today(), -10)
		f.catalog.releases["H1"] = &models.Release{Artist: "A", Title: "T", ReleaseDate: released}
		f.charts.lines = []string{"«Новинки» (ВКонтакте) (позиция 3)"}

		body := strings.NewReader(`{"upcs": ["H1", "MISSING"]}`)
		req := httptest.NewRequest("POST", "/api/upcs", body)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var response struct {
			Hits []struct {
				UPC         string   `json:"upc"`
				WeekLabel   string   `json:"week_label"`
				ReleaseDate string   `json:"release_date"`
				Playlists   []string `json:"playlists"`
				FoundAt     string   `json:"found_at"`
			} `json:"hits"`
			Notes []string `json:"notes"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if len(response.Hits) != 1 || response.Hits[0].UPC != "H1" {
			t.Fatalf("expected one hit for H1, got %+v", response.Hits)
		}
		if response.Hits[0].ReleaseDate != shared.FormatDate(released) {
			t.Errorf("unexpected release date %q", response.Hits[0].ReleaseDate)
		}
		if response.Hits[0].FoundAt != "" {
			t.Errorf("submission results should not carry found_at, got %q", response.Hits[0].FoundAt)
		}
		if len(response.Notes) != 1 || response.Notes[0] != "MISSING: альбом не найден" {
			t.Errorf("unexpected notes %v", response.Notes)
		}
	})

	t.Run("Rejects Missing Body", func(t *testing.T) {
		f := setupAPI(t)

		for _, body := range []string{"", "{}", `{"upcs": []}`, "not json"} {
			req := httptest.NewRequest("POST", "/api/upcs", strings.NewReader(body))
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("body %q: expected 400, got %d", body, rec.Code)
			}
		}
	})

	t.Run("Auth Failure Returns 401", func(t *testing.T) {
		f := setupAPI(t)
		f.catalog.err = fmt.Errorf("%w: no stored tokens, run login first", shared.ErrMissingCredentials)

		req := httptest.NewRequest("POST", "/api/upcs", strings.NewReader(`{"upcs": ["H1"]}`))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Non-Auth Failure Returns 500", func(t *testing.T) {
		f := setupAPI(t)
		f.catalog.err = errors.New("database is locked")

		req := httptest.NewRequest("POST", "/api/upcs", strings.NewReader(`{"upcs": ["H1"]}`))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Rejects Wrong Method", func(t *testing.T) {
		f := setupAPI(t)
		req := httptest.NewRequest("GET", "/api/upcs", nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestListHits(t *testing.T) {
	f := setupAPI(t)
	released := shared.AddDays(shared.Today(), -10)
	if err := f.hits.Record(&models.Hit{
		UPC: "H1", Artist: "A", ReleaseTitle: "T",
		ReleaseDate: released, WeekLabel: "Неделя 17.08 - 23.08",
		Playlists: []string{"line"},
	}); err != nil {
		t.Fatalf("failed to seed hit: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/hits", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var response struct {
		Hits []struct {
			UPC     string `json:"upc"`
			FoundAt string `json:"found_at"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Hits) != 1 || response.Hits[0].UPC != "H1" {
		t.Fatalf("expected one hit, got %+v", response.Hits)
	}
	if response.Hits[0].FoundAt == "" {
		t.Error("expected found_at on listing")
	}
}

func TestListQueue(t *testing.T) {
	f := setupAPI(t)
	today := shared.Today()
	if err := f.queue.Upsert(&models.QueueEntry{
		UPC: "Q1", Artist: "A", ReleaseTitle: "T",
		ReleaseDate: today, NextCheck: shared.AddDays(today, 7),
		AttemptsRemaining: 2,
	}); err != nil {
		t.Fatalf("failed to seed queue: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/queue", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var response struct {
		Queue []struct {
			UPC               string `json:"upc"`
			NextCheck         string `json:"next_check"`
			AttemptsRemaining int    `json:"attempts_remaining"`
		} `json:"queue"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Queue) != 1 || response.Queue[0].UPC != "Q1" {
		t.Fatalf("expected one entry, got %+v", response.Queue)
	}
	if response.Queue[0].AttemptsRemaining != 2 {
		t.Errorf("unexpected attempts %d", response.Queue[0].AttemptsRemaining)
	}
}

func TestRouterMiddleware(t *testing.T) {
	router := NewBasicRouter()

	var order []string
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "first")
			next.ServeHTTP(w, r)
		})
	})
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "second")
			next.ServeHTTP(w, r)
		})
	})

	router.HandleFunc("GET", "/ping", func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/ping", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "handler" {
		t.Errorf("unexpected middleware order %v", order)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/ping", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for wrong method, got %d", rec.Code)
	}
}
