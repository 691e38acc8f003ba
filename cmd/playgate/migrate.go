// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package main

import (
	"os"
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/playgate/playgate/internal/config"
	"github.com/playgate/playgate/internal/crypto"
	"github.com/playgate/playgate/internal/store"
)

// NewMigrateCmd creates the migrate subcommand with its actions.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  `Apply, roll back, or inspect schema migrations on the PostgreSQL database.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(func(m *store.Migrator) error {
					if err := m.Up(); err != nil {
						return err
					}
					cmd.Println("Migrations applied")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations (destroys data)",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(func(m *store.Migrator) error {
					if err := m.Down(); err != nil {
						return err
					}
					cmd.Println("Migrations rolled back")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show current and available migration versions",
			RunE:  runMigrateStatus,
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Force the schema version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil {
					return oops.Code("INVALID_VERSION").
						With("argument", args[0]).
						Wrap(err)
				}
				return withMigrator(func(m *store.Migrator) error {
					if err := m.Force(version); err != nil {
						return err
					}
					cmd.Printf("Schema version forced to %d\n", version)
					return nil
				})
			},
		},
	)

	return cmd
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	return withMigrator(func(m *store.Migrator) error {
		current, dirty, err := m.Version()
		if err != nil {
			return err
		}

		versions, err := store.Versions()
		if err != nil {
			return err
		}

		cmd.Printf("Current version: %d (dirty: %t)\n", current, dirty)
		cmd.Println("Available migrations:")
		for _, v := range versions {
			name, nameErr := store.MigrationName(v)
			if nameErr != nil {
				return nameErr
			}
			marker := " "
			if v <= current {
				marker = "*"
			}
			cmd.Printf("  %s %s\n", marker, name)
		}
		return nil
	})
}

// withMigrator resolves the database URL, opens a migrator, and runs fn
// against it.
func withMigrator(fn func(*store.Migrator) error) error {
	databaseURL, err := resolveDatabaseURL()
	if err != nil {
		return err
	}

	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = migrator.Close() }()

	return fn(migrator)
}

// resolveDatabaseURL reads the database URL from the config file when one
// was given, falling back to the DATABASE_URL environment variable.
func resolveDatabaseURL() (string, error) {
	if configFile != "" {
		cfg, err := config.Load(configFile, nil, crypto.DefaultRegistry())
		if err != nil {
			return "", err
		}
		if cfg.Database.URL != "" {
			return cfg.Database.URL, nil
		}
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url, nil
	}

	return "", oops.Code("CONFIG_INVALID").
		Errorf("database.url or DATABASE_URL environment variable is required")
}
