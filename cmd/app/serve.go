package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wichananm65/user-api/internal/server"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.Run(ctx, cfg)
		},
	}

	cmd.Flags().String("addr", "", "listen address (overrides ADDR)")
	cmd.Flags().String("store", "", "user store: postgres or memory (overrides STORE)")
	_ = v.BindPFlag("ADDR", cmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("STORE", cmd.Flags().Lookup("store"))

	return cmd
}
