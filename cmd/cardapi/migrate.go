package main

import (
	"errors"
	"fmt"

	"github.com/deppfellow/cardapi/internal/config"
	"github.com/deppfellow/cardapi/internal/database"
	"github.com/deppfellow/cardapi/internal/logger"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var target int32

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long: `Apply the embedded PostgreSQL migrations.

Examples:
  cardapi migrate
  cardapi migrate --target 0   # roll everything back`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Database == nil {
				return errors.New("migrate requires the database configuration block")
			}

			log := logger.NewLoggerWithService(cfg.Observability, nil)
			return database.Migrate(cmd.Context(), &log, cfg.Database, target)
		},
	}

	cmd.Flags().Int32Var(&target, "target", -1, "schema version to migrate to, -1 for latest")
	return cmd
}
