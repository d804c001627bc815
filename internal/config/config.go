package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"`
	Provider ProviderConfig `mapstructure:"provider"`
	Symbols  []string       `mapstructure:"symbols"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Server   ServerConfig   `mapstructure:"server"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type EngineConfig struct {
	// ContractMultipliers overrides the per-contract scaling per symbol;
	// unknown symbols fall back to DefaultContractMultiplier.
	ContractMultipliers       map[string]int `mapstructure:"contract_multipliers"`
	DefaultContractMultiplier int            `mapstructure:"default_contract_multiplier"`
	UseZeroDTEMultiplier      bool           `mapstructure:"use_0dte_multiplier"`
	ZeroDTEMultiplier         float64        `mapstructure:"dte_multiplier"`
	MinGEXThreshold           float64        `mapstructure:"min_gex_threshold"`
	NegligibleGEX             float64        `mapstructure:"negligible_gex"`
	RegimeThresholds          Thresholds     `mapstructure:"regime_thresholds"`
	CacheTTLMinutes           int            `mapstructure:"cache_ttl_minutes"`
}

type Thresholds struct {
	Moderate float64 `mapstructure:"moderate"`
	High     float64 `mapstructure:"high"`
	Extreme  float64 `mapstructure:"extreme"`
}

type ProviderConfig struct {
	Mode          string `mapstructure:"mode"` // "file" or "http"
	BaseURL       string `mapstructure:"base_url"`
	APIKey        string `mapstructure:"api_key"`
	TimeoutSec    int    `mapstructure:"timeout_sec"`
	RetryCount    int    `mapstructure:"retry_count"`
	RetryDelaySec int    `mapstructure:"retry_delay_sec"`
	RatePerSecond int    `mapstructure:"rate_per_second"`
	DataDir       string `mapstructure:"data_dir"`
	DataDate      string `mapstructure:"data_date"`
}

type ScanConfig struct {
	Workers   int    `mapstructure:"workers"`
	OutputDir string `mapstructure:"output_dir"`
}

type ServerConfig struct {
	Port             string `mapstructure:"port"`
	WSEnabled        bool   `mapstructure:"ws_enabled"`
	WSStreamInterval string `mapstructure:"ws_stream_interval"`
}

type NotifyConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Server   string `mapstructure:"server"`
	Topic    string `mapstructure:"topic"`
	Token    string `mapstructure:"token"`
	Priority string `mapstructure:"priority"`
	Tags     string `mapstructure:"tags"`
}

type LoggingConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
	Level     string `mapstructure:"level"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("engine.default_contract_multiplier", 100)
	v.SetDefault("engine.contract_multipliers", DefaultContractMultipliers)
	v.SetDefault("engine.use_0dte_multiplier", true)
	v.SetDefault("engine.dte_multiplier", 8.0)
	v.SetDefault("engine.min_gex_threshold", 1e6)
	v.SetDefault("engine.negligible_gex", 1e6)
	v.SetDefault("engine.regime_thresholds.moderate", 500e6)
	v.SetDefault("engine.regime_thresholds.high", 1e9)
	v.SetDefault("engine.regime_thresholds.extreme", 5e9)
	v.SetDefault("engine.cache_ttl_minutes", 5)
	v.SetDefault("provider.mode", "file")
	v.SetDefault("provider.timeout_sec", 30)
	v.SetDefault("provider.retry_count", 3)
	v.SetDefault("provider.retry_delay_sec", 2)
	v.SetDefault("provider.rate_per_second", 5)
	v.SetDefault("provider.data_dir", "data")
	v.SetDefault("provider.data_date", "latest")
	v.SetDefault("symbols", DefaultSymbols)
	v.SetDefault("scan.workers", 3)
	v.SetDefault("scan.output_dir", "out")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.ws_enabled", true)
	v.SetDefault("server.ws_stream_interval", "5s")
	v.SetDefault("notify.server", "https://ntfy.sh")
	v.SetDefault("notify.priority", "default")
	v.SetDefault("notify.tags", "chart_with_upwards_trend")
	v.SetDefault("logging.enabled", true)
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "info")

	// Environment variable support
	v.SetEnvPrefix("GEXLEVELS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Explicitly bind nested keys to env vars
	_ = v.BindEnv("provider.api_key", "GEXLEVELS_API_KEY")
	_ = v.BindEnv("notify.token", "GEXLEVELS_NTFY_TOKEN")

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// ContractMultiplier resolves the per-contract scaling for a symbol.
func (c *EngineConfig) ContractMultiplier(symbol string) float64 {
	if m, ok := c.ContractMultipliers[strings.ToUpper(symbol)]; ok && m > 0 {
		return float64(m)
	}
	return float64(c.DefaultContractMultiplier)
}

// CacheTTL returns the configured result cache TTL.
func (c *EngineConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// StreamInterval parses the WebSocket stream interval, falling back to
// five seconds on a bad or empty value.
func (c *ServerConfig) StreamInterval() time.Duration {
	d, err := time.ParseDuration(c.WSStreamInterval)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}
