package cli

import (
	"github.com/spf13/cobra"

	"online-quiz/internal/infra/postgres"
	"online-quiz/internal/logger"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run postgres migrations for the quiz_events table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := logger.New(serviceName, cfg.Log.Level, cfg.Log.Format)
			return postgres.Migrate(cmd.Context(), cfg.Postgres.URL, log)
		},
	}
}
