package handlers

import (
	"context"
	"os/signal"
	"syscall"

	"radar/internal/config"
	"radar/internal/server"

	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			serverCfg := cfg.Server
			if port > 0 {
				serverCfg.Port = port
			}

			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return server.New(s, cfg.App.DataDir, serverCfg).Start(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config)")
	return cmd
}
