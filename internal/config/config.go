// Package config defines the matching engine's configuration. Config is
// loaded from a YAML file with overrides from ME_* environment variables.
// Grounded on 0xtitan6-polymarket-mm's internal/config/config.go viper
// usage (SetConfigFile/SetEnvPrefix/AutomaticEnv/Unmarshal).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration, mapped directly from the YAML
// file structure. Field names follow spec.md §6.
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// HTTPConfig controls the REST intake/read surface.
type HTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// EngineConfig tunes the matching core.
//
//   - Symbols: the set of order books to stand up at startup.
//   - MatchingIntervalUs: accepted and loaded for compatibility, but not
//     read by the engine; per-symbol workers process commands as they
//     arrive.
//   - MaxOrdersPerSymbol: resting-order capacity per book; intake is
//     rejected with CHANNEL_FULL once a book holds this many orders.
//   - CommandBufferSize: per-symbol command channel capacity.
type EngineConfig struct {
	Symbols             []string      `mapstructure:"symbols"`
	MatchingIntervalUs  int           `mapstructure:"matching_interval_us"`
	MaxOrdersPerSymbol  int           `mapstructure:"max_orders_per_symbol"`
	CommandBufferSize   int           `mapstructure:"command_buffer_size"`
	SubmitTimeout       time.Duration `mapstructure:"submit_timeout"`
	RatePerUserPerSecond float64      `mapstructure:"rate_per_user_per_second"`
	RateBurstPerUser     int          `mapstructure:"rate_burst_per_user"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig controls zerolog's global level/format.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Defaults returns a Config populated with the engine's built-in
// defaults, used when no config file is supplied.
func Defaults() Config {
	return Config{
		HTTP: HTTPConfig{Host: "0.0.0.0", Port: 8080},
		Engine: EngineConfig{
			Symbols:              []string{"BTC-USDT", "ETH-USDT"},
			MatchingIntervalUs:   0,
			MaxOrdersPerSymbol:   100_000,
			CommandBufferSize:    4096,
			SubmitTimeout:        2 * time.Second,
			RatePerUserPerSecond: 50,
			RateBurstPerUser:     100,
		},
		Metrics: MetricsConfig{Port: 9090},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads config from a YAML file at path, overlaying ME_*
// environment variables, falling back to Defaults() for anything the
// file and environment leave unset. An empty path loads defaults only.
func Load(path string) (*Config, error) {
	v := viper.New()
	cfg := Defaults()
	setViperDefaults(v, cfg)

	v.SetEnvPrefix("ME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setViperDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("http.host", cfg.HTTP.Host)
	v.SetDefault("http.port", cfg.HTTP.Port)
	v.SetDefault("engine.symbols", cfg.Engine.Symbols)
	v.SetDefault("engine.matching_interval_us", cfg.Engine.MatchingIntervalUs)
	v.SetDefault("engine.max_orders_per_symbol", cfg.Engine.MaxOrdersPerSymbol)
	v.SetDefault("engine.command_buffer_size", cfg.Engine.CommandBufferSize)
	v.SetDefault("engine.submit_timeout", cfg.Engine.SubmitTimeout)
	v.SetDefault("engine.rate_per_user_per_second", cfg.Engine.RatePerUserPerSecond)
	v.SetDefault("engine.rate_burst_per_user", cfg.Engine.RateBurstPerUser)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if len(c.Engine.Symbols) == 0 {
		return fmt.Errorf("engine.symbols must list at least one symbol")
	}
	if c.Engine.MaxOrdersPerSymbol <= 0 {
		return fmt.Errorf("engine.max_orders_per_symbol must be > 0")
	}
	if c.Engine.CommandBufferSize <= 0 {
		return fmt.Errorf("engine.command_buffer_size must be > 0")
	}
	if c.HTTP.Port <= 0 {
		return fmt.Errorf("http.port must be > 0")
	}
	return nil
}
