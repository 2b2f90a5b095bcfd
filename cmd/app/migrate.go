package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wichananm65/user-api/internal/database"
)

func newMigrateCmd(v *viper.Viper) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	for _, direction := range []string{database.DirectionUp, database.DirectionDown} {
		migrateCmd.AddCommand(&cobra.Command{
			Use:   direction,
			Short: "Apply all " + direction + " migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(v)
				if err != nil {
					return err
				}
				return database.Migrate(cfg.DatabaseURL, direction)
			},
		})
	}

	return migrateCmd
}
