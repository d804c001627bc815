package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexlevels/internal/config"
	"github.com/dgnsrekt/gexlevels/internal/engine"
	"github.com/dgnsrekt/gexlevels/internal/gex"
	"github.com/dgnsrekt/gexlevels/internal/notify"
	"github.com/dgnsrekt/gexlevels/internal/provider"
	"github.com/dgnsrekt/gexlevels/internal/scan"
	"github.com/dgnsrekt/gexlevels/internal/snapshot"
)

// ScanTracker tracks the last successfully scanned date
type ScanTracker struct {
	stateFile string
}

// NewScanTracker creates a new tracker with the given state file path
func NewScanTracker(stateFile string) *ScanTracker {
	return &ScanTracker{stateFile: stateFile}
}

// GetLastScanDate reads the last successful scan date from state file
func (t *ScanTracker) GetLastScanDate() string {
	data, err := os.ReadFile(t.stateFile)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// SetLastScanDate writes the date to the state file
func (t *ScanTracker) SetLastScanDate(date string) error {
	dir := filepath.Dir(t.stateFile)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}
	return os.WriteFile(t.stateFile, []byte(date+"\n"), 0600)
}

// AlreadyScanned checks if the given date was already scanned
func (t *ScanTracker) AlreadyScanned(date string) bool {
	return t.GetLastScanDate() == date
}

// executeScan runs the batch scan for the given date, persists snapshots
// and alerts on significant regime changes since the previous scan.
func executeScan(ctx context.Context, cfg *config.Config, tracker *ScanTracker, date string, logger *zap.Logger) (*scan.BatchResult, error) {
	logger.Info("starting scan", zap.String("date", date))

	chains, err := provider.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer chains.Close()

	eng := engine.New(cfg.Engine, chains, logger)
	scanner := scan.NewScanner(eng, cfg.Scan.Workers, logger)
	store := snapshot.NewStore(cfg.Scan.OutputDir)
	notifier := notify.NewClient(&cfg.Notify, logger)

	start := time.Now()
	result, err := scanner.Execute(ctx, cfg.Symbols)
	if err != nil {
		return result, err
	}
	elapsed := time.Since(start)

	prevDate := tracker.GetLastScanDate()

	for symbol, analysis := range result.Analyses {
		if prevDate != "" && prevDate != date {
			notifyRegimeChange(ctx, store, notifier, prevDate, symbol, analysis, logger)
		}

		if err := store.Write(date, analysis); err != nil {
			logger.Error("snapshot write failed",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
		}
	}

	if result.Failed > 0 {
		if err := notifier.SendScanFailure(ctx, result, elapsed); err != nil {
			logger.Warn("failure notification failed", zap.Error(err))
		}
	}

	logger.Info("scan complete",
		zap.Int("total", result.Total),
		zap.Int("success", result.Success),
		zap.Int("noData", result.NoData),
		zap.Int("failed", result.Failed),
		zap.Duration("elapsed", elapsed),
	)

	return result, nil
}

// notifyRegimeChange compares today's analysis against the previous
// scan's snapshot and alerts when the shift is significant.
func notifyRegimeChange(ctx context.Context, store *snapshot.Store, notifier *notify.Client, prevDate, symbol string, curr *engine.Analysis, logger *zap.Logger) {
	prev, err := store.Read(prevDate, symbol)
	if err != nil || prev == nil {
		return
	}

	diff := gex.CompareRegimes(&prev.RegimeAnalysis, &curr.RegimeAnalysis)
	if !diff.Significant {
		return
	}

	logger.Info("significant regime change",
		zap.String("symbol", symbol),
		zap.String("prevRegime", string(prev.RegimeAnalysis.Regime)),
		zap.String("currRegime", string(curr.RegimeAnalysis.Regime)),
	)

	if err := notifier.SendRegimeChange(ctx, symbol, &prev.RegimeAnalysis, &curr.RegimeAnalysis, diff); err != nil {
		logger.Warn("regime change notification failed",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
	}
}
