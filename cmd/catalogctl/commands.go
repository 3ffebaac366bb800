package main

import (
	"github.com/hafizmfadli/go-catalog/internal/data"
	"github.com/urfave/cli/v3"
)

func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "catalogctl",
		Usage:   "Operate the catalog service database",
		Version: version,
		Writer:  r.output,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db-driver",
				Usage:   "Database driver (postgres|sqlite3)",
				Value:   data.DriverPostgres,
				Sources: cli.EnvVars("CATALOG_DB_DRIVER"),
			},
			&cli.StringFlag{
				Name:    "db-dsn",
				Usage:   "Database DSN",
				Sources: cli.EnvVars("CATALOG_DB_DSN"),
			},
		},
		Commands: []*cli.Command{migrateCommand(r), keyCommand(r), hashCommand(r)},
	}
}

// migrateCommand manages the embedded schema migrations
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Schema migrations",
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply all pending migrations",
				Action: r.MigrateUp,
			},
			{
				Name:   "down",
				Usage:  "Roll back the most recent migration",
				Action: r.MigrateDown,
			},
			{
				Name:   "status",
				Usage:  "Show the state of every migration",
				Action: r.MigrateStatus,
			},
		},
	}
}

// keyCommand issues and revokes API keys
func keyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "key",
		Usage: "API key management",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a key and print its bearer token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Usage:    "Key holder, recorded as the uploader of entries they create",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "role",
						Aliases: []string{"r"},
						Usage:   "Key role (developer|admin)",
						Value:   string(data.RoleAdmin),
					},
				},
				Action: r.KeyCreate,
			},
			{
				Name:  "revoke",
				Usage: "Delete a key",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Key id, the part of the token before the dot",
						Required: true,
					},
				},
				Action: r.KeyRevoke,
			},
		},
	}
}

// hashCommand prints the correlation tag stored for a record id
func hashCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "hash",
		Usage: "Print the id hash of a record id",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "id",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "secret",
				Usage:   "Hash secret",
				Sources: cli.EnvVars("ID_HASH_SECRET"),
			},
		},
		Action: r.Hash,
	}
}
