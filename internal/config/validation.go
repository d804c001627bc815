package config

import (
	"fmt"
	"strings"
)

// ValidationErrors collects all validation errors so a broken config
// reports every problem at once.
type ValidationErrors struct {
	Problems []string
}

func (e *ValidationErrors) HasErrors() bool {
	return len(e.Problems) > 0
}

func (e *ValidationErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, p := range e.Problems {
		sb.WriteString(fmt.Sprintf("  - %s\n", p))
	}
	return sb.String()
}

func (e *ValidationErrors) add(format string, args ...interface{}) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	if c.Engine.DefaultContractMultiplier < 1 {
		errs.add("engine.default_contract_multiplier must be >= 1, got %d",
			c.Engine.DefaultContractMultiplier)
	}
	for symbol, m := range c.Engine.ContractMultipliers {
		if m < 1 {
			errs.add("engine.contract_multipliers[%s] must be >= 1, got %d", symbol, m)
		}
	}
	if c.Engine.UseZeroDTEMultiplier && c.Engine.ZeroDTEMultiplier <= 0 {
		errs.add("engine.dte_multiplier must be > 0 when 0DTE amplification is enabled")
	}
	if c.Engine.MinGEXThreshold < 0 {
		errs.add("engine.min_gex_threshold must be >= 0")
	}
	if c.Engine.NegligibleGEX < 0 {
		errs.add("engine.negligible_gex must be >= 0")
	}

	t := c.Engine.RegimeThresholds
	if !(t.Moderate > 0 && t.Moderate < t.High && t.High < t.Extreme) {
		errs.add("engine.regime_thresholds must be ascending: 0 < moderate < high < extreme, got %v < %v < %v",
			t.Moderate, t.High, t.Extreme)
	}
	if c.Engine.CacheTTLMinutes < 0 {
		errs.add("engine.cache_ttl_minutes must be >= 0")
	}

	switch c.Provider.Mode {
	case "file":
		if c.Provider.DataDir == "" {
			errs.add("provider.data_dir is required in file mode")
		}
	case "http":
		if c.Provider.BaseURL == "" {
			errs.add("provider.base_url is required in http mode")
		}
		if c.Provider.APIKey == "" {
			errs.add("provider.api_key is required in http mode (set GEXLEVELS_API_KEY env var)")
		}
	default:
		errs.add("provider.mode must be 'file' or 'http', got %q", c.Provider.Mode)
	}

	if c.Scan.Workers < 1 {
		errs.add("scan.workers must be >= 1, got %d", c.Scan.Workers)
	}

	if c.Notify.Enabled && c.Notify.Topic == "" {
		errs.add("notify.topic is required when notifications are enabled")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
