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

// setupCommand initializes configuration and the database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize config file, database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// migrateCommand handles schema migrations
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Database schema migrations",
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply pending migrations",
				Action: r.MigrateUp,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.MigrateRollback,
			},
		},
	}
}

// accountsCommand handles account management
func accountsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "accounts",
		Aliases: []string{"acct"},
		Usage:   "Manage synchronized accounts",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List registered accounts",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.AccountsList,
			},
			{
				Name:  "add",
				Usage: "Register a new account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "type",
						Usage:    "Account type (microsoft, google, caldav)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "username",
						Usage:    "Account username or email",
						Required: true,
					},
				},
				Action: r.AccountsAdd,
			},
			{
				Name:  "remove",
				Usage: "Remove an account",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.AccountsRemove,
			},
		},
	}
}

// listsCommand shows local list mirrors
func listsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "lists",
		Usage: "Show synchronized task lists",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "account",
				Usage: "Restrict to one account ID",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Lists,
	}
}

// tasksCommand handles local task edits
func tasksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "Work with local tasks",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Create a task in a list",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "list",
						Usage: "Target list ID (defaults to the default list)",
					},
					&cli.IntFlag{
						Name:  "parent",
						Usage: "Parent task ID for a subtask",
					},
					&cli.StringFlag{
						Name:  "notes",
						Usage: "Task notes",
					},
				},
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "title",
					},
				},
				Action: r.TasksAdd,
			},
			{
				Name:  "done",
				Usage: "Mark a task completed",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.TasksDone,
			},
			{
				Name:  "rm",
				Usage: "Delete a task (removed remotely on next sync)",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.TasksRemove,
			},
		},
	}
}

// syncCommand runs sync passes
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Run a sync pass",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "account",
				Usage: "Sync a single account by ID",
			},
		},
		Action: r.Sync,
	}
}
