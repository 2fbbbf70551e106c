package main

import (
	"github.com/spf13/cobra"

	"github.com/ghga-de/dcs-go/internal/config"
	"github.com/ghga-de/dcs-go/internal/database"
)

// NewMigrateCmd applies the drs_objects schema, ahead of the pgxpool-backed
// DAO taking over query traffic.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			return database.Migrate(cfg.Database.DSN)
		},
	}
}
