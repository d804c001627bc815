package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/dgnsrekt/gexlevels/internal/gex"
	"github.com/dgnsrekt/gexlevels/internal/scan"
)

// FormatRegimeChangeMessage builds the regime transition notification body.
func FormatRegimeChangeMessage(symbol string, prev, curr *gex.RegimeAnalysis, diff gex.RegimeDiff) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s: %s/%s -> %s/%s\n",
		symbol, prev.Regime, prev.Magnitude, curr.Regime, curr.Magnitude))
	sb.WriteString(fmt.Sprintf("Bias: %s\n", curr.Bias))
	sb.WriteString(fmt.Sprintf("Changed: %s\n", strings.Join(diff.Changed, ", ")))
	sb.WriteString(fmt.Sprintf("Confidence: %.2f", curr.Confidence))

	if len(curr.Recommendations) > 0 {
		sb.WriteString(fmt.Sprintf("\nTop strategy: %s", curr.Recommendations[0].Strategy))
	}

	return sb.String()
}

// FormatScanFailureMessage builds the failed-scan notification body.
func FormatScanFailureMessage(result *scan.BatchResult, duration time.Duration) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Total: %d symbols\n", result.Total))
	sb.WriteString(fmt.Sprintf("Success: %d\n", result.Success))
	sb.WriteString(fmt.Sprintf("No data: %d\n", result.NoData))
	sb.WriteString(fmt.Sprintf("Failed: %d\n", result.Failed))
	sb.WriteString(fmt.Sprintf("Duration: %s", duration.Round(time.Second)))

	if len(result.Errors) > 0 {
		sb.WriteString("\n\nErrors:\n")
		limit := 3
		if len(result.Errors) < limit {
			limit = len(result.Errors)
		}
		for i := 0; i < limit; i++ {
			sb.WriteString(fmt.Sprintf("- %s\n", result.Errors[i]))
		}
		if len(result.Errors) > 3 {
			sb.WriteString(fmt.Sprintf("... and %d more errors", len(result.Errors)-3))
		}
	}

	return sb.String()
}
