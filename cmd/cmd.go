// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/weekcopy/internal/formatter"
	"github.com/desertthunder/weekcopy/internal/models"
	"github.com/urfave/cli/v3"
)

const version = "0.1.0"

// app returns the root command. Configuration is loaded once in Before.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "weekcopy",
		Usage:   "Copy a Spotify playlist into a new playlist named after the ISO week",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a dotenv file with CLIENT_ID, CLIENT_SECRET, ...",
				Value: ".env",
			},
		},
		Before:   r.load,
		Commands: r.register(),
	}
}

// serveCommand runs the weekly scheduler until interrupted.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Authorize if needed, then copy the playlist on the configured schedule",
		Action: r.Serve,
	}
}

// authCommand runs the browser consent flow.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize with Spotify in the browser and save the refresh token",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the consent URL without opening a browser",
			},
		},
		Action: r.Auth,
	}
}

// copyCommand runs a single copy immediately.
func copyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "copy",
		Usage:  "Copy the source playlist now",
		Action: r.Copy,
	}
}

// statusCommand checks the stored credential and the schedule.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Check the refresh token, the authenticated user and the next scheduled run",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Status,
	}
}

// historyCommand renders the run journal.
func historyCommand(r *Runner) *cli.Command {
	formats := make([]string, len(formatter.Formats))
	for i, f := range formatter.Formats {
		formats[i] = string(f)
	}

	return &cli.Command{
		Name:    "history",
		Aliases: []string{"runs"},
		Usage:   "Show recorded copy runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of runs to show",
				Value:   20,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (" + strings.Join(formats, ", ") + ")",
				Value:   string(formatter.FormatText),
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only show runs with this status (" + strings.Join(runStatuses(), ", ") + ")",
			},
			&cli.StringFlag{
				Name:  "trigger",
				Usage: "Only show scheduled or manual runs",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to a file instead of stdout",
			},
		},
		Action: r.History,
	}
}

// setupCommand writes the config template and migrates the journal.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the configuration file and initialize the run journal",
		Action: r.Setup,
	}
}

func runStatuses() []string {
	return []string{
		string(models.RunPending),
		string(models.RunSucceeded),
		string(models.RunSkipped),
		string(models.RunFailed),
	}
}
