package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vulnsight/vulnsight/api/schemas"
	"github.com/vulnsight/vulnsight/internal/mailer"
	"github.com/vulnsight/vulnsight/internal/observability"
	"github.com/vulnsight/vulnsight/internal/server"
)

// newServeCmd creates the `serve` command: run the HTTP API until
// interrupted.
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs the VulnSight HTTP API",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := observability.GetLogger()
			if listen := viper.GetString("server.listen"); listen != "" {
				cfg.Server.Listen = listen
			}

			components, err := initializeComponents(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer components.Shutdown()

			var mail *mailer.Mailer
			if cfg.Mailer.Host != "" {
				mail = mailer.New(cfg.Mailer, logger)
			} else {
				logger.Info("No SMTP host configured, report mail disabled")
			}

			// Assign only when non-nil so the server sees a true nil
			// interface, not a typed nil pointer.
			var scanStore schemas.ScanStore
			if components.Store != nil {
				scanStore = components.Store
			}

			srv := server.New(cfg.Server, logger, components.Coordinator, scanStore, mail)
			return srv.ListenAndServe(ctx)
		},
	}

	serveCmd.Flags().String("listen", "", "Listen address (overrides config/env)")
	return serveCmd
}
