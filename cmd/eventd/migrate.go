package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/eventd/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Apply or roll back the schema. Other commands migrate up on their own;
this is for explicit upgrades and for tearing the schema down.`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runMigration("up", storage.MigrateUp)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runMigration("down", storage.MigrateDown)
		},
	})
	return cmd
}

func runMigration(direction string, migrate func(*sql.DB) error) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	slog.Info("running migrations", "direction", direction, "database", cfg.Database)
	if err := migrate(store.DB()); err != nil {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}
	slog.Info("migrations complete", "direction", direction)
	return nil
}
