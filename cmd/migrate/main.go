package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/ogurasousui/codex-employee-api/internal/platform/config"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	configPath    string
	migrationsDir string
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "employee-migrate",
		Short:        "Apply PostgreSQL schema migrations for the employee store",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
	cmd.PersistentFlags().StringVar(&opts.migrationsDir, "dir", "assets/migrations", "directory containing migration files")

	for _, action := range []struct{ name, short string }{
		{"up", "Apply all pending migrations"},
		{"down", "Roll back all migrations"},
		{"drop", "Drop everything in the database"},
		{"version", "Print the current migration version"},
	} {
		cmd.AddCommand(&cobra.Command{
			Use:   action.name,
			Short: action.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				dsn, err := loadDSN(opts.configPath)
				if err != nil {
					return err
				}
				if err := runMigration(cmd.OutOrStdout(), action.name, opts.migrationsDir, dsn); err != nil {
					return fmt.Errorf("migration %s failed: %w", action.name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "migration %s completed\n", action.name)
				return nil
			},
		})
	}

	return cmd
}

func loadDSN(configPath string) (string, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load(config.ResolvePath(configPath))
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return "", fmt.Errorf("migrations target postgres only; driver %q applies its schema on open", cfg.Database.Driver)
	}
	return cfg.Database.DSN(), nil
}

var actions = []string{"up", "down", "drop", "version"}

func runMigration(out io.Writer, action, dir, dsn string) error {
	if !slices.Contains(actions, action) {
		return fmt.Errorf("unsupported action %q", action)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve path for %s: %w", dir, err)
	}
	absDir = filepath.ToSlash(absDir)

	m, err := migrate.New(fmt.Sprintf("file://%s", absDir), dsn)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	switch action {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		return nil
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		return nil
	case "drop":
		return m.Drop()
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			if errors.Is(err, migrate.ErrNilVersion) {
				fmt.Fprintln(out, "no migration applied")
				return nil
			}
			return err
		}
		fmt.Fprintf(out, "version=%d dirty=%t\n", version, dirty)
		return nil
	}
	return nil
}
