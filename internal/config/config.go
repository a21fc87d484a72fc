// Package config defines all configuration for the exchange simulator.
// Config is loaded from a YAML file (default: config.yaml) with env var
// overrides, in the style of 0xtitan6-polymarket-mm's config.go. The
// secrets (api_key, store.mongo_uri) may also be set in YAML; when
// EXSIM_API_KEY or EXSIM_MONGO_URI is set, it overrides the YAML value.
//
// Grounded on 0xtitan6-polymarket-mm/internal/config/config.go (viper +
// mapstructure tags, Load(path)/Validate() shape) and on
// original_source/api/routes.py's config.yaml (symbols, api_key) and
// the strategies' risk-parameter defaults, promoted here from hardcoded
// constants into typed, overridable config.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration, mapping directly to the YAML
// file structure.
type Config struct {
	Symbols    map[string]string `mapstructure:"symbols"`
	APIKey     string            `mapstructure:"api_key"`
	Server     ServerConfig      `mapstructure:"server"`
	MarketData MarketDataConfig  `mapstructure:"market_data"`
	Risk       RiskConfig        `mapstructure:"risk"`
	Store      StoreConfig       `mapstructure:"store"`
	Logging    LoggingConfig     `mapstructure:"logging"`
	Seed       int64             `mapstructure:"seed"`
}

// ServerConfig controls the dashboard/API HTTP server.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// MarketDataConfig controls the intraday reference-price collaborator.
type MarketDataConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	CacheDir string `mapstructure:"cache_dir"`
}

// RiskConfig carries the strategy base-risk defaults, promoted from the
// original's hardcoded constants so they're tunable per deployment
// without a code change.
type RiskConfig struct {
	MaxOrderQty         int           `mapstructure:"max_order_qty"`
	MaxPriceDeviation   float64       `mapstructure:"max_price_deviation"`
	MaxDailyOrders      int           `mapstructure:"max_daily_orders"`
	MaxPositionDuration time.Duration `mapstructure:"max_position_duration"`
	DailyLossLimit      float64       `mapstructure:"daily_loss_limit"`
	MinOrderInterval    time.Duration `mapstructure:"min_order_interval"`
	DrawdownLimit       float64       `mapstructure:"drawdown_limit"`
	CooldownPeriod      time.Duration `mapstructure:"cooldown_period"`
	TrailingStopPct     float64       `mapstructure:"trailing_stop_pct"`
	PerTradeStopLoss    float64       `mapstructure:"per_trade_stop_loss"`
	PerTradeTakeProfit  float64       `mapstructure:"per_trade_take_profit"`
	MaxVolatility       float64       `mapstructure:"max_volatility"`
	LiquidityFraction   float64       `mapstructure:"liquidity_fraction"`
}

// StoreConfig sets the optional durable persistence sink. Empty URI
// disables persistence entirely.
type StoreConfig struct {
	MongoURI      string        `mapstructure:"mongo_uri"`
	Database      string        `mapstructure:"database"`
	RetentionDays int           `mapstructure:"retention_days"`
	Archive       ArchiveConfig `mapstructure:"archive"`
}

// ArchiveConfig controls the opt-in trade archiver, which moves trades
// older than AfterHours from MongoDB to gzipped NDJSON files under Dir,
// trimming the oldest archive files once their total size exceeds MaxGB.
// Empty Dir disables archiving.
type ArchiveConfig struct {
	Dir           string `mapstructure:"dir"`
	MaxGB         int    `mapstructure:"max_gb"`
	IntervalHours int    `mapstructure:"interval_hours"`
	AfterHours    int    `mapstructure:"after_hours"`
}

// LoggingConfig controls the rotating text log sink.
type LoggingConfig struct {
	Path string `mapstructure:"path"`
}

// Load reads config from a YAML file with EXSIM_* env var overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("EXSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("EXSIM_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	if uri := os.Getenv("EXSIM_MONGO_URI"); uri != "" {
		cfg.Store.MongoURI = uri
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8200)
	v.SetDefault("market_data.base_url", "https://eodhistoricaldata.com/api")
	v.SetDefault("market_data.cache_dir", "data/cache")
	v.SetDefault("store.database", "exsim")
	v.SetDefault("store.retention_days", 0)
	v.SetDefault("store.archive.max_gb", 10)
	v.SetDefault("store.archive.interval_hours", 6)
	v.SetDefault("store.archive.after_hours", 24)
	v.SetDefault("logging.path", "logs/exchange.log")

	v.SetDefault("risk.max_order_qty", 1000)
	v.SetDefault("risk.max_price_deviation", 0.02)
	v.SetDefault("risk.max_daily_orders", 1000)
	v.SetDefault("risk.max_position_duration", 60*time.Second)
	v.SetDefault("risk.daily_loss_limit", -10000.0)
	v.SetDefault("risk.min_order_interval", time.Second)
	v.SetDefault("risk.drawdown_limit", 500.0)
	v.SetDefault("risk.cooldown_period", 60*time.Second)
	v.SetDefault("risk.trailing_stop_pct", 0.01)
	v.SetDefault("risk.per_trade_stop_loss", 100.0)
	v.SetDefault("risk.per_trade_take_profit", 150.0)
	v.SetDefault("risk.max_volatility", 0.1)
	v.SetDefault("risk.liquidity_fraction", 0.20)
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols: at least one symbol is required")
	}
	if c.Risk.MaxOrderQty <= 0 {
		return fmt.Errorf("risk.max_order_qty must be > 0")
	}
	if c.Risk.MaxPriceDeviation <= 0 {
		return fmt.Errorf("risk.max_price_deviation must be > 0")
	}
	return nil
}
