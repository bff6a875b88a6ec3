// submodule cmd contains command definitions
package main

import (
	"strings"
	"time"

	"github.com/desertthunder/spindb/internal/formatter"
	"github.com/urfave/cli/v3"
)

// serveCommand starts the dashboard
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the dashboard web server",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the dashboard in the default browser",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides config)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles setup operations for the database and configuration file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write a config.toml from the built-in template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output path",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize with Spotify in the browser and store the token",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: 2 * time.Minute,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show whether a token is stored and when it expires",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Remove the stored token",
				Action: r.AuthLogout,
			},
		},
	}
}

// refreshCommand runs an aggregation without the dashboard
func refreshCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Fetch spin playlists and replace the stored snapshot",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only print the summary",
			},
		},
		Action: r.Refresh,
	}
}

// reportCommand prints stored reports
func reportCommand(r *Runner) *cli.Command {
	names := make([]string, len(formatter.Formats))
	for i, f := range formatter.Formats {
		names[i] = string(f)
	}

	formatFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (" + strings.Join(names, ", ") + ")",
			Value:   string(formatter.FormatTable),
		}
	}

	return &cli.Command{
		Name:  "report",
		Usage: "Print the stored reports",
		Commands: []*cli.Command{
			{
				Name:   "home",
				Usage:  "Recent playlists and top artists",
				Flags:  []cli.Flag{formatFlag()},
				Action: r.ReportHome,
			},
			{
				Name:   "playlists",
				Usage:  "All spin playlists",
				Flags:  []cli.Flag{formatFlag()},
				Action: r.ReportPlaylists,
			},
			{
				Name:   "tracks",
				Usage:  "Tracks ranked by spin count",
				Flags:  []cli.Flag{formatFlag()},
				Action: r.ReportTracks,
			},
			{
				Name:  "artists",
				Usage: "Artists ranked by spin count",
				Flags: []cli.Flag{
					formatFlag(),
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of artists",
						Value:   50,
					},
				},
				Action: r.ReportArtists,
			},
		},
	}
}
