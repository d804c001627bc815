package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/gexlevels/internal/engine"
	"github.com/dgnsrekt/gexlevels/internal/provider"
)

func analyzeCmd() *cobra.Command {
	var levelsOnly bool

	cmd := &cobra.Command{
		Use:   "analyze SYMBOL",
		Short: "Analyze gamma exposure for one symbol",
		Long: `Run a one-shot gamma exposure analysis and print the result as JSON.

Examples:
  # Full analysis
  gexlevels analyze SPX

  # Key levels only
  gexlevels analyze --levels SPX`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			symbol := strings.ToUpper(args[0])

			chains, err := provider.NewFromConfig(cfg, logger)
			if err != nil {
				return err
			}
			defer chains.Close()

			eng := engine.New(cfg.Engine, chains, logger)

			analysis, err := eng.Analyze(ctx, symbol)
			if err != nil {
				return fmt.Errorf("analyzing %s: %w", symbol, err)
			}

			var out interface{} = analysis
			if levelsOnly {
				out = map[string]interface{}{
					"symbol":     analysis.Symbol,
					"spot_price": analysis.SpotPrice,
					"levels":     analysis.Levels,
					"timestamp":  analysis.Timestamp,
				}
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return err
			}

			logger.Debug("analysis complete",
				zap.String("symbol", symbol),
				zap.Float64("netGEX", analysis.NetGEX),
			)
			return nil
		},
	}

	cmd.Flags().BoolVar(&levelsOnly, "levels", false, "print key levels only")

	return cmd
}
