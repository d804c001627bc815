package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/gexlevels/internal/engine"
	"github.com/dgnsrekt/gexlevels/internal/gex"
	"github.com/dgnsrekt/gexlevels/internal/notify"
	"github.com/dgnsrekt/gexlevels/internal/provider"
	"github.com/dgnsrekt/gexlevels/internal/scan"
	"github.com/dgnsrekt/gexlevels/internal/snapshot"
)

func scanCmd() *cobra.Command {
	var (
		symbols []string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Analyze all configured symbols and persist snapshots",
		Long: `Run the batch scanner over the configured symbol list, write one
snapshot per symbol and alert on significant regime changes.

Examples:
  # Scan everything in the config
  gexlevels scan

  # Override the symbol list
  gexlevels scan --symbols SPX,NDX

  # See what would be scanned
  gexlevels scan --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			targets := cfg.Symbols
			if len(symbols) > 0 {
				targets = symbols
			}
			if len(targets) == 0 {
				return fmt.Errorf("no symbols configured")
			}

			if dryRun {
				for _, s := range targets {
					fmt.Printf("Would scan: %s\n", s)
				}
				return nil
			}

			chains, err := provider.NewFromConfig(cfg, logger)
			if err != nil {
				return err
			}
			defer chains.Close()

			eng := engine.New(cfg.Engine, chains, logger)
			scanner := scan.NewScanner(eng, cfg.Scan.Workers, logger)
			store := snapshot.NewStore(cfg.Scan.OutputDir)
			notifier := notify.NewClient(&cfg.Notify, logger)

			start := time.Now()
			result, err := scanner.Execute(ctx, targets)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			date := time.Now().Format("2006-01-02")
			for symbol, analysis := range result.Analyses {
				checkRegimeChange(ctx, store, notifier, date, symbol, analysis)

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

			fmt.Printf("Scanned %d symbols: %d ok, %d no data, %d failed (%s)\n",
				result.Total, result.Success, result.NoData, result.Failed, elapsed.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "override configured symbol list")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list symbols without scanning")

	return cmd
}

// checkRegimeChange compares against the previous snapshot for the day
// and alerts when the shift is significant.
func checkRegimeChange(ctx context.Context, store *snapshot.Store, notifier *notify.Client, date, symbol string, curr *engine.Analysis) {
	prev, err := store.Read(date, symbol)
	if err != nil || prev == nil {
		return
	}

	diff := gex.CompareRegimes(&prev.RegimeAnalysis, &curr.RegimeAnalysis)
	if !diff.Significant {
		return
	}

	if err := notifier.SendRegimeChange(ctx, symbol, &prev.RegimeAnalysis, &curr.RegimeAnalysis, diff); err != nil {
		logger.Warn("regime change notification failed",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
	}
}
