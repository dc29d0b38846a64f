// Package maintenance schedules the periodic cache sweep: re-trimming
// every conversation's history to the cap and refreshing the cache size
// gauges. Trimming also happens inline on every append, so the sweep only
// catches conversations whose cap was lowered since they were last
// written.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"chatsync/pkg/config"
	"chatsync/pkg/logger"
	"chatsync/pkg/store"
	"chatsync/pkg/telemetry"
)

// Start starts the sweep scheduler if enabled. Returns a cancel func.
func Start(ctx context.Context, cfg config.MaintenanceConfig) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("maintenance_disabled")
		return func() {}, nil
	}

	// map empty cron to default daily @02:00
	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = "0 2 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("maintenance_invalid_cron", "cron", cfg.Cron)
		return nil, fmt.Errorf("invalid maintenance cron expression: %s", cfg.Cron)
	}

	logger.Info("maintenance_enabled", "cron", cronExpr, "dry_run", cfg.DryRun)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cfg, cronExpr)
	return cancel, nil
}

// RunOnce performs a single sweep immediately.
func RunOnce(cfg config.MaintenanceConfig) error {
	return runOnce(cfg)
}

// runScheduler uses gronx to compute the next tick for the configured
// cron expression and sleeps until that time.
func runScheduler(ctx context.Context, cfg config.MaintenanceConfig, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("maintenance_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("maintenance_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if err := runOnce(cfg); err != nil {
				logger.Error("maintenance_run_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("maintenance_scheduler_stopping")
			return
		}
	}
}

func runOnce(cfg config.MaintenanceConfig) error {
	start := time.Now()
	trimmed := 0
	if !cfg.DryRun {
		var err error
		trimmed, err = store.TrimAll()
		if err != nil {
			return err
		}
	}
	m := store.GetCacheMetrics()
	telemetry.CacheDiskBytes.Set(float64(m.DiskBytes))
	telemetry.CacheConversations.Set(float64(m.Conversations))
	logger.Info("maintenance_sweep_done",
		"trimmed", trimmed,
		"conversations", m.Conversations,
		"disk_bytes", m.DiskBytes,
		"dry_run", cfg.DryRun,
		"elapsed", time.Since(start).String())
	return nil
}
