// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func projectArg() cli.Argument {
	return &cli.StringArg{Name: "project", UsageText: "path to a .lap descriptor"}
}

func kindFlag(value string) cli.Flag {
	return &cli.StringFlag{
		Name:    "kind",
		Aliases: []string{"k"},
		Usage:   "Remote file: chart, backup or music",
		Value:   value,
	}
}

// openCommand loads a project through the pipeline.
func openCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "Open a project and load its chart, backgrounds and music",
		Arguments: []cli.Argument{projectArg()},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Do not print progress",
			},
			&cli.StringFlag{
				Name:  "save-as",
				Usage: "Save the loaded chart to a new .txt path",
			},
			&cli.BoolFlag{
				Name:  "backup",
				Usage: "Keep running and back the chart up to the cloud periodically",
			},
			&cli.BoolFlag{
				Name:   directFlag,
				Usage:  "Skip the background and descriptor checks",
				Hidden: true,
			},
		},
		Action: r.Open,
	}
}

// newCommand creates a project in a folder.
func newCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "Create a project with an empty chart in a folder",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "folder"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "designer",
				Aliases: []string{"d"},
				Usage:   "Chart designer (defaults to the remembered designer)",
			},
			&cli.StringFlag{
				Name:  "music",
				Usage: "Music file (.wav, .ogg or .mp3)",
			},
			&cli.StringSliceFlag{
				Name:  "bga",
				Usage: "Background image; repeat for up to three layers, outermost first",
			},
		},
		Action: r.New,
	}
}

// importCommand turns an unpacked release folder into a project.
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Create a project descriptor from an unpacked release folder",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "folder"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the project after importing",
			},
		},
		Action: r.Import,
	}
}

// projectCommand handles descriptor editing.
func projectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "project",
		Aliases: []string{"p"},
		Usage:   "Inspect and edit project descriptors",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Print a project descriptor",
				Arguments: []cli.Argument{projectArg()},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ProjectShow,
			},
			{
				Name:      "set",
				Usage:     "Change descriptor fields",
				Arguments: []cli.Argument{projectArg()},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Chart name"},
					&cli.StringFlag{Name: "designer", Usage: "Chart designer"},
					&cli.StringFlag{Name: "folder", Usage: "Project folder"},
					&cli.StringFlag{Name: "chart", Usage: "Chart file"},
					&cli.StringFlag{Name: "music", Usage: "Music file"},
				},
				Action: r.ProjectSet,
			},
			{
				Name:  "bga",
				Usage: "Manage background layers",
				Commands: []*cli.Command{
					{
						Name:  "add",
						Usage: "Add an image as the new outermost layer",
						Arguments: []cli.Argument{
							projectArg(),
							&cli.StringArg{Name: "image"},
						},
						Action: r.BGAAdd,
					},
					{
						Name:      "remove",
						Aliases:   []string{"rm"},
						Usage:     "Remove the outermost layer",
						Arguments: []cli.Argument{projectArg()},
						Action:    r.BGARemove,
					},
					{
						Name:  "swap",
						Usage: "Swap layer INDEX with the next one",
						Arguments: []cli.Argument{
							projectArg(),
							&cli.IntArg{Name: "index"},
						},
						Action: r.BGASwap,
					},
				},
			},
		},
	}
}

// releaseCommand handles .larelease packaging.
func releaseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "release",
		Aliases: []string{"rel"},
		Usage:   "Package, inspect and unpack releases",
		Commands: []*cli.Command{
			{
				Name:      "pack",
				Usage:     "Write <name>.larelease next to the chart",
				Arguments: []cli.Argument{projectArg()},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "reveal",
						Usage: "Show the release in the file browser",
					},
				},
				Action: r.ReleasePack,
			},
			{
				Name:  "inspect",
				Usage: "Print what a release contains",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "release"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "markdown",
						Usage: "Output a Markdown table",
					},
				},
				Action: r.ReleaseInspect,
			},
			{
				Name:  "unpack",
				Usage: "Extract a release into a folder",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "release"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Destination folder (default: release path without extension)",
					},
					&cli.BoolFlag{
						Name:  "import",
						Usage: "Create a project descriptor for the extracted files",
					},
				},
				Action: r.ReleaseUnpack,
			},
		},
	}
}

// cloudCommand handles cloud backup and sync.
func cloudCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cloud",
		Usage: "Back up and restore charts through the cloud service",
		Commands: []*cli.Command{
			{
				Name:      "status",
				Usage:     "Show sync readiness and remote modification times",
				Arguments: []cli.Argument{projectArg()},
				Action:    r.CloudStatus,
			},
			{
				Name:      "mtime",
				Usage:     "Print when a remote file was last uploaded",
				Arguments: []cli.Argument{projectArg()},
				Flags: []cli.Flag{
					kindFlag("chart"),
					&cli.BoolFlag{
						Name:  "raw",
						Usage: "Print the wire value",
					},
				},
				Action: r.CloudMtime,
			},
			{
				Name:      "upload",
				Usage:     "Upload the chart, a backup or the music",
				Arguments: []cli.Argument{projectArg()},
				Flags: []cli.Flag{
					kindFlag("chart"),
					&cli.BoolFlag{
						Name:    "quiet",
						Aliases: []string{"q"},
						Usage:   "Do not print progress",
					},
				},
				Action: r.CloudUpload,
			},
			{
				Name:      "download",
				Usage:     "Download the remote chart or backup",
				Arguments: []cli.Argument{projectArg()},
				Flags: []cli.Flag{
					kindFlag("chart"),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to this .txt path instead of stdout",
					},
				},
				Action: r.CloudDownload,
			},
			{
				Name:      "backup",
				Usage:     "Back the chart up periodically until interrupted",
				Arguments: []cli.Argument{projectArg()},
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "delay",
						Usage: "Wait before the first backup (default: cloud.backup_delay_seconds)",
					},
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "Time between backups (default: cloud.backup_interval_seconds)",
					},
				},
				Action: r.CloudBackup,
			},
			{
				Name:  "serve",
				Usage: "Run a local cloud emulator backed by a folder",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "root",
						Usage: "Storage folder",
						Value: "./cloud-store",
					},
					&cli.StringFlag{
						Name:  "host",
						Usage: "Listen host (default: server.host)",
					},
					&cli.IntFlag{
						Name:  "port",
						Usage: "Listen port (default: server.port)",
					},
				},
				Action: r.CloudServe,
			},
		},
	}
}

// recentCommand lists recently opened projects.
func recentCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "recent",
		Usage: "List recently opened projects",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of projects to list",
				Value: 20,
			},
			&cli.StringFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "Fuzzy match against name and path",
			},
			&cli.BoolFlag{
				Name:  "prune",
				Usage: "Forget projects whose descriptor is gone",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Recent,
	}
}

// historyCommand lists the cloud transfer log.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show the cloud transfer log",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of records",
				Value: 50,
			},
			&cli.StringFlag{Name: "project", Usage: "Only this project name"},
			&cli.StringFlag{Name: "direction", Usage: "upload or download"},
			&cli.StringFlag{Name: "kind", Usage: "chart, backup or music"},
			&cli.StringFlag{Name: "outcome", Usage: "succeeded, failed or not_found"},
			&cli.BoolFlag{
				Name:  "csv",
				Usage: "Output CSV",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
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

// setupCommand handles setup operations for the history database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Revert the most recent database migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for picking a recent project.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Pick a recent project interactively and open it",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of projects to list",
				Value: 50,
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where logs go while the TUI is running",
				Value: "./tmp/lapx-tui.log",
			},
			&cli.BoolFlag{
				Name:  "backup",
				Usage: "After opening, back the chart up periodically until interrupted",
			},
		},
		Action: r.TUI,
	}
}
