package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/orwatch/orwatch/internal/alerts"
	"github.com/orwatch/orwatch/internal/config"
	"github.com/orwatch/orwatch/internal/core"
	"github.com/orwatch/orwatch/internal/logging"
	"github.com/orwatch/orwatch/internal/monitor"
	"github.com/orwatch/orwatch/internal/openrouter"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the polling daemon in the foreground.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			}
			logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
			log := logging.Component("run")

			ledger, err := alerts.OpenLedger(config.LedgerPath())
			if err != nil {
				return err
			}
			defer ledger.Close()

			detector := alerts.NewDetector(detectorConfig(cfg), ledger, alerts.NewNotifier(cfg.NotifyCommand))
			store := core.NewSnapshotStore()
			manager := monitor.NewManager(store, detector, func(apiKey string) monitor.Client {
				return openrouter.NewClient(cfg.BaseURL, apiKey)
			})

			manager.Apply(managerSettings(cfg))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info().
				Int("interval_seconds", cfg.Monitor.IntervalSeconds).
				Bool("enabled", cfg.Monitor.Enabled).
				Bool("has_credential", config.APIKey() != "").
				Msg("daemon_started")

			if err := config.Watch(ctx, func() {
				reloaded, err := config.Load()
				if err != nil {
					log.Warn().Err(err).Msg("reload_failed")
					return
				}
				logging.Init(logging.Config{Level: reloaded.Log.Level, Format: reloaded.Log.Format})
				manager.Apply(managerSettings(reloaded))
				log.Info().Msg("config_reloaded")
			}); err != nil {
				log.Warn().Err(err).Msg("watch_unavailable")
			}

			<-ctx.Done()
			manager.Stop()
			log.Info().Msg("daemon_stopped")
			return nil
		},
	}
}

func managerSettings(cfg config.Config) monitor.Settings {
	return monitor.Settings{
		Enabled:  cfg.Monitor.Enabled,
		APIKey:   config.APIKey(),
		Interval: time.Duration(cfg.Monitor.IntervalSeconds) * time.Second,
		Alerts:   detectorConfig(cfg),
	}
}

func detectorConfig(cfg config.Config) alerts.Config {
	return alerts.Config{
		WarnThreshold: cfg.Monitor.WarnThreshold,
		BalanceAlerts: cfg.Monitor.BalanceAlerts,
		SpikeAlerts:   cfg.Monitor.SpikeAlerts,
	}
}
