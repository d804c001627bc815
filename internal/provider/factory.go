package provider

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexlevels/internal/config"
)

// NewFromConfig builds the configured chain provider.
func NewFromConfig(cfg *config.Config, logger *zap.Logger) (ChainProvider, error) {
	switch cfg.Provider.Mode {
	case "file":
		return NewFileProvider(cfg.Provider.DataDir, cfg.Provider.DataDate, logger)
	case "http":
		return NewHTTPProvider(
			cfg.Provider.BaseURL,
			cfg.Provider.APIKey,
			cfg.Provider.RatePerSecond,
			time.Duration(cfg.Provider.TimeoutSec)*time.Second,
			time.Duration(cfg.Provider.RetryDelaySec)*time.Second,
			cfg.Provider.RetryCount,
			logger,
		), nil
	default:
		return nil, fmt.Errorf("unknown provider mode: %q", cfg.Provider.Mode)
	}
}
