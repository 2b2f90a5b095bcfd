package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wichananm65/user-api/internal/config"
)

// newRootCmd builds the user-api command tree. With no subcommand it serves.
func newRootCmd() *cobra.Command {
	v := config.NewViper()

	serve := newServeCmd(v)
	rootCmd := &cobra.Command{
		Use:           "user-api",
		Short:         "User account API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	rootCmd.Flags().AddFlagSet(serve.Flags())

	rootCmd.AddCommand(serve)
	rootCmd.AddCommand(newMigrateCmd(v))
	return rootCmd
}

func loadConfig(v *viper.Viper) (config.Config, error) {
	return config.FromViper(v)
}
