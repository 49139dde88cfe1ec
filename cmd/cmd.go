// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// configFlag is shared by every command that reads the TOML config.
func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles initial setup: config file, database and migrations.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file, initialize the database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// authCommand handles the OAuth credential lifecycle.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication with the distribution account",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in and store OAuth tokens",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "username",
						Usage: "Account username (defaults to config)",
					},
					&cli.StringFlag{
						Name:  "password",
						Usage: "Account password (defaults to config)",
					},
					&cli.BoolFlag{
						Name:  "manual",
						Usage: "Open the login page in a browser and paste the redirect URL back",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the stored credential state",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Discard the stored tokens",
				Action: r.AuthLogout,
			},
		},
	}
}

// checkCommand submits UPC codes for an immediate check.
func checkCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Check UPC codes for playlist placements",
		ArgsUsage: "UPC [UPC...]",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Check,
	}
}

// hitsCommand lists recorded playlist placements.
func hitsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "hits",
		Usage: "List recorded playlist placements, most recent release first",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Hits,
	}
}

// queueCommand lists codes awaiting a scheduled check.
func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "List codes awaiting a scheduled check",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Queue,
	}
}

// serveCommand runs the HTTP API together with the background queue worker.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web API and the background queue worker",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (defaults to config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (defaults to config)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for browsing hits and the queue.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive browser over recorded hits and the check queue",
		Action:  r.TUI,
	}
}
