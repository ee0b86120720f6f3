package main

import (
	"github.com/spf13/cobra"

	"github.com/waleedsbi/atm-master/internal/db"
	"github.com/waleedsbi/atm-master/internal/db/migrations"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations for the service tables and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			pool, err := openPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.RunMigrations(cmd.Context(), pool, log, migrations.FS); err != nil {
				return err
			}

			version, err := db.SchemaVersion(cmd.Context(), pool, migrations.FS)
			if err != nil {
				return err
			}

			log.WithField("schema_version", version).Info("migrations complete")
			return nil
		},
	}
}
