package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"upcwatch/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config.toml, using defaults", "error", err)
		}
	}

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		logger.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	runner := NewRunner(RunnerOpts{
		Config: config,
		DB:     db,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "upcwatch",
		Usage:    "Track music releases on editorial playlists by UPC code",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
