package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/storage"
	"fintrack/internal/storage/mysql"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
		Long: `Bring the configured database schema up to date and exit. SQLite uses the
embedded migration files; MySQL is synchronised from the table model.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := cli.LoadAndValidateConfig()
			if err != nil {
				return fmt.Errorf("configuration: %w", err)
			}

			switch backend.BackendType(cfg.DataBackend) {
			case backend.SQLiteBackend:
				version, err := storage.RunMigrations(cfg.SQLiteDBPath)
				if err != nil {
					return err
				}
				logger.Info("SQLite schema up to date", "path", cfg.SQLiteDBPath, "version", version)
				fmt.Fprintf(cmd.OutOrStdout(), "sqlite schema at version %d\n", version)
			case backend.MySQLBackend:
				repo, err := mysql.Open(cfg.MySQLDSN, mysql.DefaultPoolConfig())
				if err != nil {
					return err
				}
				defer repo.Close()
				logger.Info("MySQL schema up to date")
				fmt.Fprintln(cmd.OutOrStdout(), "mysql schema up to date")
			default:
				return fmt.Errorf("backend %q has no schema to migrate", cfg.DataBackend)
			}
			return nil
		},
	}
}
