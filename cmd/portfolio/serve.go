package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/pbaille/portfolio/internal/api"
	"github.com/pbaille/portfolio/internal/notify"
	"github.com/pbaille/portfolio/internal/store"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the website and API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			server := api.New(s, notify.FromConfig(cfg, logger.Named("notify")), api.Options{
				Port:         cfg.Port,
				PortAttempts: cfg.PortAttempts,
				PublicDir:    cfg.PublicDir,
			}, logger.Named("api"))
			return server.Run(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 3000, "port to listen on (overrides PORT)")
	return cmd
}

func openStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, store.Options{
		DatabaseURL:    cfg.DatabaseURL,
		DatabaseName:   cfg.DatabaseName,
		ConnectTimeout: cfg.DatabaseConnectTimeout,
		DataDir:        cfg.DataDir,
	}, logger.Named("store"))
}
