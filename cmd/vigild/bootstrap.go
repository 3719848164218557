package main

import (
	"context"
	"fmt"
	"log/slog"

	"vigil/internal/alerts"
	"vigil/internal/config"
	"vigil/internal/daemon"
	"vigil/internal/logging"
	"vigil/internal/store"
)

// buildDaemon opens the configured store and wires the alert dispatcher.
func buildDaemon(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger.Info("store opened",
		logging.String("driver", cfg.Store.Driver),
		logging.String("reports_backend", reportsBackend(cfg)),
	)

	dispatcher := alerts.NewDispatcher(alerts.NewSender(cfg), logger)
	if !dispatcher.Enabled() {
		logging.WarnWithContext(logger, "alerting disabled", "alerting_disabled",
			logging.String(logging.FieldErrorHint, "set notifications.webhook_url or SLACK_ALERT_WEBHOOK_URL"),
			logging.String(logging.FieldImpact, "SLO breaches and job failures are only logged"),
		)
	}

	d, err := daemon.New(cfg, st, logger, dispatcher)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return d, nil
}

func reportsBackend(cfg *config.Config) string {
	if cfg.Reports.Backend == "" {
		return cfg.Store.Driver
	}
	return cfg.Reports.Backend
}
