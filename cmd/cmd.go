// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// mediaCommand handles media lifecycle operations
func mediaCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "media",
		Usage: "Manage lesson and course videos",
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Reconcile and report the media state for one owner",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "kind"},
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.MediaStatus,
			},
			{
				Name:  "check",
				Usage: "Run a one-off gateway status check for one owner",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "kind"},
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.MediaCheck,
			},
			{
				Name:  "upload",
				Usage: "Upload a video and wait for it to go live",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "kind"},
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "file"},
				},
				Action: r.MediaUpload,
			},
			{
				Name:  "delete",
				Usage: "Delete the video attached to one owner",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "kind"},
					&cli.StringArg{Name: "id"},
				},
				Action: r.MediaDelete,
			},
			{
				Name:  "audit",
				Usage: "Sweep backend records and verify media references against the gateway",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Owner kind to audit (lesson, course, level, post or all)",
						Value: "all",
					},
					&cli.BoolFlag{
						Name:  "heal",
						Usage: "Clear broken references instead of only reporting them",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Report format (json, csv or markdown)",
						Value:   "markdown",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the report to a file instead of stdout",
					},
				},
				Action: r.MediaAudit,
			},
		},
	}
}

// feedCommand handles community feed operations
func feedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Community feed operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List community feed posts",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.FeedList,
			},
			{
				Name:  "post",
				Usage: "Publish a post to the community feed",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "body"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "author",
						Usage: "Author attributed to the post",
					},
				},
				Action: r.FeedPost,
			},
			{
				Name:  "delete",
				Usage: "Delete a feed post",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.FeedDelete,
			},
			{
				Name:  "react",
				Usage: "Add an emoji reaction to a post",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "emoji"},
				},
				Action: r.FeedReact,
			},
			{
				Name:  "unreact",
				Usage: "Remove an emoji reaction from a post",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "emoji"},
				},
				Action: r.FeedUnreact,
			},
		},
	}
}

// setupCommand handles setup operations for configuration and the local cache.
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
		},
	}
}

// listenCommand starts the gateway webhook listener.
func listenCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "listen",
		Usage: "Run the gateway webhook listener",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides config)",
			},
		},
		Action: r.Listen,
	}
}

// tuiCommand returns the top-level TUI command for interactive media management.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for media management",
		Action:  r.TUI,
	}
}
