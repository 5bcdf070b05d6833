// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func serverFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "server",
		Usage: "Base URL of a running tracksync server (e.g. http://localhost:8000)",
	}
}

// setupCommand initializes the config file and the cache database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file and initialize the cache database",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// loginCommand runs the Spotify OAuth flow
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "login",
		Usage:  "Authenticate with Spotify using OAuth2",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Login,
	}
}

// serveCommand starts the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the sync HTTP API",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Bind address (overrides config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Bind port (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// workerCommand runs a durable execution worker
func workerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "worker",
		Usage:  "Run a Temporal worker hosting the sync workflow",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Worker,
	}
}

// syncCommand submits a song placement request
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Place a song into a playlist",
		Flags: []cli.Flag{
			configFlag(),
			serverFlag(),
			&cli.StringFlag{
				Name:     "title",
				Aliases:  []string{"t"},
				Usage:    "Song title",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "artist",
				Aliases:  []string{"a"},
				Usage:    "Artist name",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "album",
				Usage: "Album name (improves matching)",
			},
			&cli.StringFlag{
				Name:  "isrc",
				Usage: "ISRC code for exact matching",
			},
			&cli.StringFlag{
				Name:     "playlist",
				Aliases:  []string{"p"},
				Usage:    "Target playlist ID",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "requester",
				Usage: "Requester identifier, used in the workflow id",
			},
			&cli.FloatFlag{
				Name:  "threshold",
				Usage: "Match score threshold override (0-1)",
			},
			&cli.BoolFlag{
				Name:  "no-ai",
				Usage: "Disable AI disambiguation for this request",
			},
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "Wait for the workflow to finish",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
		},
		Action: r.Sync,
	}
}

// statusCommand reports workflow status once
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the status of a workflow",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags: []cli.Flag{
			configFlag(),
			serverFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
		},
		Action: r.Status,
	}
}

// watchCommand follows a workflow in a TUI
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Watch a workflow until it finishes",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags:  []cli.Flag{configFlag(), serverFlag()},
		Action: r.Watch,
	}
}

// cacheCommand manages the local search cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the local search cache",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cache entry count",
				Flags:  []cli.Flag{configFlag()},
				Action: r.CacheStats,
			},
			{
				Name:   "purge",
				Usage:  "Remove expired cache entries",
				Flags:  []cli.Flag{configFlag()},
				Action: r.CachePurge,
			},
			{
				Name:   "clear",
				Usage:  "Remove all cache entries",
				Flags:  []cli.Flag{configFlag()},
				Action: r.CacheClear,
			},
		},
	}
}
