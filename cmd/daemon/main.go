package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexlevels/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	// Load daemon config
	daemonCfg := LoadDaemonConfig()

	logger.Info("daemon configuration loaded",
		zap.Int("scheduleHour", daemonCfg.ScheduleHour),
		zap.Int("scheduleMinute", daemonCfg.ScheduleMinute),
		zap.String("timezone", daemonCfg.Timezone),
		zap.String("configPath", daemonCfg.ConfigPath),
		zap.String("stateFile", daemonCfg.StateFile),
		zap.Bool("runOnStartup", daemonCfg.RunOnStartup),
	)

	// Load analysis config
	cfg, err := config.Load(daemonCfg.ConfigPath)
	if err != nil {
		logger.Error("failed to load config", zap.Error(err))
		return 1
	}

	logger.Info("analysis configuration loaded",
		zap.String("outputDir", cfg.Scan.OutputDir),
		zap.Int("workers", cfg.Scan.Workers),
		zap.Int("symbols", len(cfg.Symbols)),
	)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Create scheduler and tracker
	scheduler := NewScheduler(daemonCfg.ScheduleHour, daemonCfg.ScheduleMinute, daemonCfg.Timezone)
	tracker := NewScanTracker(daemonCfg.StateFile)

	logger.Info("daemon started",
		zap.String("schedule", fmt.Sprintf("%02d:%02d %s", daemonCfg.ScheduleHour, daemonCfg.ScheduleMinute, daemonCfg.Timezone)),
	)

	// Check on startup if enabled
	if daemonCfg.RunOnStartup {
		logger.Info("checking for missed scan on startup")
		if shouldScan(scheduler, tracker, logger) {
			runScan(ctx, cfg, scheduler, tracker, logger)
		}
	}

	// Main loop - check every minute
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", zap.String("signal", sig.String()))
			cancel()
			return 0

		case <-ticker.C:
			if shouldScan(scheduler, tracker, logger) {
				runScan(ctx, cfg, scheduler, tracker, logger)
			}

		case <-ctx.Done():
			logger.Info("context cancelled, shutting down")
			return 0
		}
	}
}

// shouldScan checks if conditions are met for triggering a scan
func shouldScan(scheduler *Scheduler, tracker *ScanTracker, logger *zap.Logger) bool {
	today := scheduler.TodayDate()

	// Check if already scanned today
	if tracker.AlreadyScanned(today) {
		return false
	}

	// Check if it's a market day
	if !scheduler.IsMarketDay(today) {
		logger.Debug("not a market day", zap.String("date", today))
		return false
	}

	// Check if it's the scheduled time
	if !scheduler.IsScheduledTime() {
		return false
	}

	logger.Info("scan conditions met",
		zap.String("date", today),
		zap.String("time", time.Now().In(scheduler.Location()).Format("15:04:05")),
	)

	return true
}

// runScan executes the scan and updates the tracker
func runScan(ctx context.Context, cfg *config.Config, scheduler *Scheduler, tracker *ScanTracker, logger *zap.Logger) {
	today := scheduler.TodayDate()

	result, err := executeScan(ctx, cfg, tracker, today, logger)
	if err != nil {
		logger.Error("scan failed", zap.String("date", today), zap.Error(err))
		return
	}

	// Record the date only when at least one symbol succeeded, so a
	// fully failed run is retried on the next tick.
	if result != nil && result.Success > 0 {
		if err := tracker.SetLastScanDate(today); err != nil {
			logger.Error("failed to update state file", zap.Error(err))
		}
	}
}
