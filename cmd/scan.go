package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vulnsight/vulnsight/api/schemas"
	"github.com/vulnsight/vulnsight/internal/config"
	"github.com/vulnsight/vulnsight/internal/coordinator"
	"github.com/vulnsight/vulnsight/internal/enrichment"
	"github.com/vulnsight/vulnsight/internal/observability"
	"github.com/vulnsight/vulnsight/internal/registry"
	"github.com/vulnsight/vulnsight/internal/scan"
	"github.com/vulnsight/vulnsight/internal/store"
)

// newScanCmd creates the one-shot `scan` command: run the probe set against
// a single target and print the report as JSON.
func newScanCmd() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan [target]",
		Short: "Runs the probe set against a target and prints the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			probes, err := cmd.Flags().GetStringSlice("probes")
			if err != nil {
				return err
			}

			components, err := initializeComponents(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer components.Shutdown()

			report, err := components.Coordinator.Run(ctx, schemas.ScanRequest{
				Target:   args[0],
				ProbeIDs: probes,
			})
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to render report: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}

	scanCmd.Flags().StringSlice("probes", nil, "Probe IDs to run (default: all registered probes)")
	return scanCmd
}

// components holds the initialized service graph.
type components struct {
	Registry    *registry.Registry
	Coordinator *coordinator.Coordinator
	Store       *store.Store
}

// Shutdown releases held resources.
func (c *components) Shutdown() {
	if c.Store != nil {
		c.Store.Close()
	}
}

// initializeComponents handles dependency injection for scan and serve.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*components, error) {
	c := &components{}

	c.Registry = registry.New(logger)
	dispatcher := scan.NewDispatcher(c.Registry, logger, cfg.Probes)

	opts := []coordinator.Option{
		coordinator.WithToolVersion("VulnSight v" + Version),
		coordinator.WithIntel(enrichment.NewURLScanClient(cfg.Enrichment.URLScan, logger)),
	}

	if cfg.Enrichment.LLM.APIKey != "" {
		summarizer, err := enrichment.NewLLMSummarizer(cfg.Enrichment.LLM, logger)
		if err != nil {
			return c, fmt.Errorf("failed to initialize summarizer: %w", err)
		}
		opts = append(opts, coordinator.WithSummarizer(summarizer))
	} else {
		logger.Info("No LLM API key configured, summaries disabled")
	}

	if cfg.Database.URL != "" {
		dbStore, err := store.Connect(ctx, cfg.Database.URL, logger)
		if err != nil {
			return c, fmt.Errorf("failed to initialize database store: %w", err)
		}
		c.Store = dbStore
		opts = append(opts, coordinator.WithStore(dbStore))
	} else {
		logger.Info("No database URL configured, scan persistence disabled")
	}

	coord, err := coordinator.New(logger, c.Registry, dispatcher, opts...)
	if err != nil {
		return c, fmt.Errorf("failed to create coordinator: %w", err)
	}
	c.Coordinator = coord

	return c, nil
}
