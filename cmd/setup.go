package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"upcwatch/internal/shared"
)

// Setup creates the config file from the embedded template and verifies the
// database schema. Migrations were already applied when the database opened,
// so this mostly exists to hand the user an editable config.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err == nil {
		r.logger.Info("config file already exists", "path", configPath)
	} else {
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		r.logger.Info("config file created", "path", configPath)
	}

	r.logger.Info("database ready", "path", r.config.Database.Path)

	r.writePlain("✓ Setup complete\n")
	r.writePlain("1. Fill in auth.client_id, auth.username and auth.password in %s\n", configPath)
	r.writePlain("2. Run 'upcwatch auth login' to sign in\n")
	r.writePlain("3. Run 'upcwatch check <UPC>' to track a release\n")

	return nil
}
