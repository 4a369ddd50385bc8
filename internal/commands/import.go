package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"salesdash/internal/config"
	"salesdash/internal/dataset"
	"salesdash/internal/storage"
)

func newImportCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "import [csv-file]",
		Short: "Replace the SQLite dataset with the rows of a CSV file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(cmd.ErrOrStderr(), func(c *config.Config) {
				if dbPath != "" {
					c.SQLiteDBPath = dbPath
				}
				if len(args) > 0 {
					c.DataFile = args[0]
				}
			}, (*config.Config).Validate)
			if err != nil {
				return err
			}

			src := dataset.CSVSource{Path: cfg.DataFile}
			rows, err := src.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("read %s: %w", cfg.DataFile, err)
			}

			repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.ReplaceAll(cmd.Context(), rows); err != nil {
				return err
			}
			n, err := repo.Count(cmd.Context())
			if err != nil {
				return err
			}

			logger.Debug("Import finished", "source", cfg.DataFile, "db", cfg.SQLiteDBPath)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows into %s\n", n, cfg.SQLiteDBPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides SQLITE_DB_PATH)")

	return cmd
}
