package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"upcwatch/internal/models"
	"upcwatch/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// fakeCatalog resolves a fixed set of codes.
type fakeCatalog struct {
	releases map[string]*models.Release
}

func (f *fakeCatalog) Lookup(ctx context.Context, upc string) (*models.Release, error) {
	return f.releases[upc], nil
}

// fakeCharts returns the same placement lines for every query.
type fakeCharts struct {
	lines []string
	err   error
}

func (f *fakeCharts) Placements(ctx context.Context, artist, releaseTitle string, date time.Time) ([]string, error) {
	return f.lines, f.err
}

// fWriter fails every write.
type fWriter struct{}

func (fWriter) Write(p []byte) (int, error) {
	return 0, errors.New("write failed")
}

func testRunner(t *testing.T, catalog *fakeCatalog, charts *fakeCharts) (*Runner, *bytes.Buffer) {
	t.Helper()

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		DB:      setupTestDB(t),
		Catalog: catalog,
		Charts:  charts,
		Output:  output,
	})

	return runner, output
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			input := &bytes.Buffer{}
			catalog := &fakeCatalog{}
			charts := &fakeCharts{}

			runner := NewRunner(RunnerOpts{
				Config:  config,
				DB:      setupTestDB(t),
				Catalog: catalog,
				Charts:  charts,
				Logger:  logger,
				Output:  output,
				Input:   input,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.input != input {
				t.Error("expected input to be set")
			}
			if runner.catalog != catalog {
				t.Error("expected catalog to be set")
			}
			if runner.charts != charts {
				t.Error("expected charts to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{DB: setupTestDB(t)})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{DB: setupTestDB(t)})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{DB: setupTestDB(t)})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("builds real services when none injected", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{DB: setupTestDB(t)})

			if runner.catalog == nil {
				t.Error("expected catalog service to be built")
			}
			if runner.charts == nil {
				t.Error("expected charts service to be built")
			}
			if runner.engine == nil {
				t.Error("expected check engine to be built")
			}
			if runner.manager == nil {
				t.Error("expected credential manager to be built")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{DB: setupTestDB(t), Output: output})

			data := map[string]string{"key": "value"}
			if err := runner.writeJSON(data); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{DB: setupTestDB(t), Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int))

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{DB: setupTestDB(t), Output: &fWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"})

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{DB: setupTestDB(t), Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{DB: setupTestDB(t), Output: &fWriter{}})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{DB: setupTestDB(t)})
		commands := runner.register()

		if len(commands) != 7 {
			t.Errorf("expected 7 commands, got %d", len(commands))
		}

		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
			}
		}
	})

	t.Run("notifyHit logs the placement", func(t *testing.T) {
		logBuf := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			DB:     setupTestDB(t),
			Logger: shared.NewLogger(logBuf),
		})

		runner.notifyHit(&models.Hit{
			UPC:          "0190295000009",
			Artist:       "Artist",
			ReleaseTitle: "Release",
			WeekLabel:    "Неделя 17.08 - 23.08",
			Playlists:    []string{"«Чарт» (Звук) (позиция 1)"},
		})

		logged := logBuf.String()
		if !strings.Contains(logged, "0190295000009") {
			t.Errorf("expected log to carry the UPC, got %q", logged)
		}
		if !strings.Contains(logged, "placement recorded") {
			t.Errorf("expected placement log line, got %q", logged)
		}
	})

	t.Run("SetLogger", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{DB: setupTestDB(t)})
		replacement := shared.NewLogger(&bytes.Buffer{})

		runner.SetLogger(replacement)

		if runner.logger != replacement {
			t.Error("expected logger to be replaced")
		}
	})
}

func TestRunnerActions(t *testing.T) {
	ctx := context.Background()

	t.Run("Check", func(t *testing.T) {
		t.Run("records a hit and prints the digest", func(t *testing.T) {
			release := &models.Release{
				Artist:      "Тестовый Артист",
				Title:       "Новый Альбом",
				ReleaseDate: shared.AddDays(shared.Today(), -3),
			}
			catalog := &fakeCatalog{releases: map[string]*models.Release{"0190295000000": release}}
			charts := &fakeCharts{lines: []string{"«Хиты недели» (ВКонтакте) (позиция 5)"}}
			runner, output := testRunner(t, catalog, charts)

			cmd := checkCommand(runner)
			if err := cmd.Run(ctx, []string{"check", "0190295000000"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, "Тестовый Артист - Новый Альбом") {
				t.Errorf("expected digest to name the release, got %q", result)
			}
			if !strings.Contains(result, "«Хиты недели» (ВКонтакте) (позиция 5)") {
				t.Errorf("expected digest to list the placement, got %q", result)
			}

			hit, err := runner.hits.Get("0190295000000")
			if err != nil {
				t.Fatalf("failed to read back hit: %v", err)
			}
			if hit == nil {
				t.Fatal("expected hit to be recorded")
			}
		})

		t.Run("prints note for unknown code", func(t *testing.T) {
			runner, output := testRunner(t, &fakeCatalog{}, &fakeCharts{})

			cmd := checkCommand(runner)
			if err := cmd.Run(ctx, []string{"check", "0000000000000"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if !strings.Contains(output.String(), "альбом не найден") {
				t.Errorf("expected missing-album note, got %q", output.String())
			}
		})

		t.Run("fails without arguments", func(t *testing.T) {
			runner, _ := testRunner(t, &fakeCatalog{}, &fakeCharts{})

			cmd := checkCommand(runner)
			err := cmd.Run(ctx, []string{"check"})

			if !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})

		t.Run("json output", func(t *testing.T) {
			release := &models.Release{
				Artist:      "Artist",
				Title:       "Release",
				ReleaseDate: shared.AddDays(shared.Today(), -1),
			}
			catalog := &fakeCatalog{releases: map[string]*models.Release{"0190295000001": release}}
			charts := &fakeCharts{lines: []string{"«Чарт» (Звук) (позиция 1)"}}
			runner, output := testRunner(t, catalog, charts)

			cmd := checkCommand(runner)
			if err := cmd.Run(ctx, []string{"check", "--json", "0190295000001"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if !strings.Contains(output.String(), `"UPC": "0190295000001"`) {
				t.Errorf("expected JSON result, got %q", output.String())
			}
		})
	})

	t.Run("Hits", func(t *testing.T) {
		t.Run("empty", func(t *testing.T) {
			runner, output := testRunner(t, &fakeCatalog{}, &fakeCharts{})

			cmd := hitsCommand(runner)
			if err := cmd.Run(ctx, []string{"hits"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if !strings.Contains(output.String(), "Нет сохранённых плейлистов.") {
				t.Errorf("expected empty-state line, got %q", output.String())
			}
		})

		t.Run("lists recorded hits", func(t *testing.T) {
			runner, output := testRunner(t, &fakeCatalog{}, &fakeCharts{})
			hit := &models.Hit{
				UPC:          "0190295000002",
				Artist:       "Artist",
				ReleaseTitle: "Release",
				ReleaseDate:  shared.AddDays(shared.Today(), -10),
				WeekLabel:    shared.WeekLabel(shared.AddDays(shared.Today(), -10)),
				Playlists:    []string{"«Чарт» (Звук) (позиция 1)"},
			}
			if err := runner.hits.Record(hit); err != nil {
				t.Fatalf("failed to seed hit: %v", err)
			}

			cmd := hitsCommand(runner)
			if err := cmd.Run(ctx, []string{"hits"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if !strings.Contains(output.String(), "Artist - Release") {
				t.Errorf("expected hit listing, got %q", output.String())
			}
		})
	})

	t.Run("Queue", func(t *testing.T) {
		t.Run("empty", func(t *testing.T) {
			runner, output := testRunner(t, &fakeCatalog{}, &fakeCharts{})

			cmd := queueCommand(runner)
			if err := cmd.Run(ctx, []string{"queue"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if !strings.Contains(output.String(), "Очередь проверок пуста.") {
				t.Errorf("expected empty-state line, got %q", output.String())
			}
		})

		t.Run("lists queued codes", func(t *testing.T) {
			runner, output := testRunner(t, &fakeCatalog{}, &fakeCharts{})
			entry := &models.QueueEntry{
				UPC:               "0190295000003",
				Artist:            "Queued Artist",
				ReleaseTitle:      "Queued Release",
				ReleaseDate:       shared.AddDays(shared.Today(), 2),
				NextCheck:         shared.AddDays(shared.Today(), 2),
				AttemptsRemaining: 2,
			}
			if err := runner.queue.Upsert(entry); err != nil {
				t.Fatalf("failed to seed queue entry: %v", err)
			}

			cmd := queueCommand(runner)
			if err := cmd.Run(ctx, []string{"queue"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if !strings.Contains(output.String(), "Queued Artist - Queued Release") {
				t.Errorf("expected queue listing, got %q", output.String())
			}
		})
	})

	t.Run("AuthStatus", func(t *testing.T) {
		t.Run("not signed in", func(t *testing.T) {
			runner, output := testRunner(t, &fakeCatalog{}, &fakeCharts{})

			if err := runner.AuthStatus(ctx, nil); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if !strings.Contains(output.String(), "Not signed in") {
				t.Errorf("expected not-signed-in message, got %q", output.String())
			}
		})

		t.Run("signed in", func(t *testing.T) {
			runner, output := testRunner(t, &fakeCatalog{}, &fakeCharts{})
			tokens := &models.TokenSet{
				AccessToken:  "access",
				RefreshToken: "refresh",
				ExpiresAt:    time.Now().Add(time.Hour),
			}
			if err := runner.manager.SetTokens(tokens); err != nil {
				t.Fatalf("failed to store tokens: %v", err)
			}

			if err := runner.AuthStatus(ctx, nil); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, "Signed in.") {
				t.Errorf("expected signed-in message, got %q", result)
			}
			if !strings.Contains(result, "Refresh token: stored") {
				t.Errorf("expected refresh token state, got %q", result)
			}
		})
	})

	t.Run("AuthLogout clears tokens", func(t *testing.T) {
		runner, output := testRunner(t, &fakeCatalog{}, &fakeCharts{})
		tokens := &models.TokenSet{AccessToken: "access", ExpiresAt: time.Now().Add(time.Hour)}
		if err := runner.manager.SetTokens(tokens); err != nil {
			t.Fatalf("failed to store tokens: %v", err)
		}

		if err := runner.AuthLogout(ctx, nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !strings.Contains(output.String(), "Tokens cleared.") {
			t.Errorf("expected confirmation, got %q", output.String())
		}

		stored, err := runner.creds.Get()
		if err != nil {
			t.Fatalf("failed to read credentials: %v", err)
		}
		if stored != nil {
			t.Error("expected stored tokens to be gone")
		}
	})
}
