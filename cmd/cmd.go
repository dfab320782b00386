// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func guestFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "guest",
		Usage: "Act as a guest: at most two stones, nothing is saved",
	}
}

// setupCommand handles setup operations for the config file and database.
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
				Name:  "config",
				Usage: "Write a config file from the built-in template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// serveCommand runs the HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the board over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default from [server] in config)",
			},
			&cli.DurationFlag{
				Name:  "session-ttl",
				Usage: "Forget browser sessions idle for this long",
				Value: 30 * time.Minute,
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"ui"},
		Usage:   "Launch the interactive board",
		Flags:   []cli.Flag{guestFlag()},
		Action:  r.TUI,
	}
}

// stonesCommand edits the board one operation at a time.
func stonesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "stones",
		Aliases: []string{"st"},
		Usage:   "List and move stones",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Show the bowl and the stones",
				Flags: []cli.Flag{
					guestFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.StonesList,
			},
			{
				Name:      "add",
				Usage:     "Add a stone to the end of the list",
				ArgsUsage: "<text>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "text"},
				},
				Flags:  []cli.Flag{guestFlag()},
				Action: r.StonesAdd,
			},
			{
				Name:      "move",
				Usage:     "Move a stone to just before another",
				ArgsUsage: "<id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					guestFlag(),
					&cli.StringFlag{
						Name:     "before",
						Usage:    "ID of the stone to land in front of",
						Required: true,
					},
				},
				Action: r.StonesMove,
			},
			{
				Name:      "focus",
				Usage:     "Put a stone in the empty bowl",
				ArgsUsage: "<id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{guestFlag()},
				Action: r.StonesFocus,
			},
			{
				Name:      "swap",
				Usage:     "Put a stone in the bowl, returning the current task to the list",
				ArgsUsage: "<id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{guestFlag()},
				Action: r.StonesSwap,
			},
			{
				Name:   "done",
				Usage:  "Complete the task in the bowl",
				Flags:  []cli.Flag{guestFlag()},
				Action: r.StonesDone,
			},
		},
	}
}

// exportCommand writes the board to a file.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the board as text, markdown, csv or json",
		Flags: []cli.Flag{
			guestFlag(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (text, markdown, csv, json)",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path (default: bowl-<date>.<ext>)",
			},
			&cli.BoolFlag{
				Name:  "stdout",
				Usage: "Print instead of writing a file",
			},
		},
		Action: r.Export,
	}
}

// reflectCommand prints today's reflection.
func reflectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "reflect",
		Usage:  "Print a short reflection",
		Action: r.Reflect,
	}
}

// accountCommand handles sign-in operations.
func accountCommand(r *Runner) *cli.Command {
	credentials := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{
				Name:     "email",
				Aliases:  []string{"e"},
				Usage:    "Account email",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "password",
				Aliases:  []string{"p"},
				Usage:    "Account password",
				Sources:  cli.EnvVars("BOWL_PASSWORD"),
				Required: true,
			},
		}
	}

	return &cli.Command{
		Name:  "account",
		Usage: "Manage the signed-in account",
		Commands: []*cli.Command{
			{
				Name:   "signup",
				Usage:  "Create an account and sign in",
				Flags:  credentials(),
				Action: r.AccountSignUp,
			},
			{
				Name:  "signin",
				Usage: "Sign in with email and password, or through a provider",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "email",
						Aliases: []string{"e"},
						Usage:   "Account email",
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password",
						Sources: cli.EnvVars("BOWL_PASSWORD"),
					},
					&cli.StringFlag{
						Name:  "provider",
						Usage: "Sign in through google or facebook",
					},
				},
				Action: r.AccountSignIn,
			},
			{
				Name:   "signout",
				Usage:  "Sign out",
				Action: r.AccountSignOut,
			},
			{
				Name:   "whoami",
				Usage:  "Show the signed-in account and tier",
				Action: r.AccountWhoAmI,
			},
		},
	}
}

// upgradeCommand handles the one-time pro unlock.
func upgradeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "upgrade",
		Usage: "Lift the guest limit with a one-time PayPal payment",
		Commands: []*cli.Command{
			{
				Name:  "order",
				Usage: "Create an order and open its approval page",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the approval link without opening it",
					},
				},
				Action: r.UpgradeOrder,
			},
			{
				Name:  "capture",
				Usage: "Capture an approved order and record the unlock",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "order",
						Usage:    "Approved order ID",
						Required: true,
					},
				},
				Action: r.UpgradeCapture,
			},
		},
	}
}
