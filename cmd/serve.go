// -- cmd/serve.go --
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/vulnexplain/api/schemas"
	"github.com/xkilldash9x/vulnexplain/internal/audit"
	"github.com/xkilldash9x/vulnexplain/internal/config"
	"github.com/xkilldash9x/vulnexplain/internal/impact"
	"github.com/xkilldash9x/vulnexplain/internal/llmclient"
	"github.com/xkilldash9x/vulnexplain/internal/observability"
	"github.com/xkilldash9x/vulnexplain/internal/repofetch"
	"github.com/xkilldash9x/vulnexplain/internal/server"
	"github.com/xkilldash9x/vulnexplain/internal/store"
)

const shutdownGrace = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the VulnExplain HTTP API server.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewConfigFromViper(viper.GetViper())
		if err != nil {
			return err
		}
		logger := observability.GetLogger()
		defer observability.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		llm, err := llmclient.NewClient(cfg.LLM, logger)
		if err != nil {
			return fmt.Errorf("failed to create LLM client: %w", err)
		}

		// Persistence is optional; an unset database URL disables it.
		var resultStore schemas.ResultStore
		if cfg.Database.URL != "" {
			pgStore, err := store.Connect(ctx, cfg.Database.URL, logger)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pgStore.Close()
			if err := pgStore.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("failed to prepare database schema: %w", err)
			}
			resultStore = pgStore
		} else {
			logger.Info("No database configured; audit results will not be persisted")
		}

		auditor, err := audit.New(llm, resultStore, ratesFromConfig(cfg.Audit), generationOptions(cfg.LLM), logger)
		if err != nil {
			return fmt.Errorf("failed to create auditor: %w", err)
		}

		fetcher := repofetch.New(cfg.GitHub, logger)

		srv, err := server.New(cfg.Server, auditor, fetcher, logger)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Listen()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			logger.Info("Shutdown signal received, draining requests")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		}
	},
}

// ratesFromConfig maps the audit configuration onto the financial model.
func ratesFromConfig(a config.AuditConfig) impact.Rates {
	return impact.Rates{
		HourlyRate:               a.HourlyRate,
		DowntimeRatePerHour:      a.DowntimeRatePerHour,
		DowntimeHoursPerCritical: a.DowntimeHoursPerCritical,
		FinePerCritical:          a.FinePerCritical,
		ReputationPerIncident:    a.ReputationPerIncident,
	}
}

// generationOptions maps the LLM configuration onto per-request sampling
// parameters.
func generationOptions(l config.LLMConfig) schemas.GenerationOptions {
	return schemas.GenerationOptions{
		Temperature: l.Temperature,
		TopP:        l.TopP,
		MaxTokens:   l.MaxTokens,
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
