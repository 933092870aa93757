package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/desertthunder/serenitune/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded default configuration to disk.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", configPath)
	return r.writePlain("✓ Wrote %s\n", configPath)
}

// SetupDatabase initializes the database and runs migrations.
// With --status it only reports migration state; with --rollback it reverts the newest migration.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	switch {
	case cmd.Bool("status"):
		return r.migrationStatus(ctx, db)
	case cmd.Bool("rollback"):
		m, err := shared.Rollback(ctx, db)
		if err != nil {
			return fmt.Errorf("failed to roll back: %w", err)
		}
		r.logger.Info("rolled back migration", "version", m.Version, "name", m.Name)
		return r.writePlain("✓ Rolled back %04d %s\n", m.Version, m.Name)
	}

	r.logger.Info("running database migrations")
	n, err := shared.Migrate(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Info("setup complete", "path", config.Database.Path, "applied", n)
	return r.writePlain("✓ Applied %d migration(s) to %s\n", n, config.Database.Path)
}

// migrationStatus lists every embedded migration with the time it was applied, if it was.
func (r *Runner) migrationStatus(ctx context.Context, db *sql.DB) error {
	migrations, err := shared.Migrations()
	if err != nil {
		return err
	}
	applied, err := shared.AppliedMigrations(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		i := slices.IndexFunc(applied, func(a shared.AppliedMigration) bool { return a.Version == m.Version })
		if i < 0 {
			r.writePlain("· %04d %s (pending)\n", m.Version, m.Name)
			continue
		}
		r.writePlain("✓ %04d %s (applied %s)\n", m.Version, m.Name, applied[i].AppliedAt.Format(time.DateTime))
	}
	return nil
}
