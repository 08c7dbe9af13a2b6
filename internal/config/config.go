// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all harvester configuration knobs loaded via Viper.
type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Retry     RetryConfig     `mapstructure:"retry"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Inputs    InputsConfig    `mapstructure:"inputs"`
	Output    OutputConfig    `mapstructure:"output"`
	Status    StatusConfig    `mapstructure:"status"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	// Concurrency is the worker pool size; dispatch timing stays
	// serialized by the rate limiter regardless.
	Concurrency int `mapstructure:"concurrency"`
}

// HTTPConfig configures the DBLP clients.
type HTTPConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// RetryConfig configures the retry policy.
type RetryConfig struct {
	MaxAttempts      int     `mapstructure:"max_attempts"`
	BackoffInitialMs int     `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int     `mapstructure:"backoff_max_ms"`
	Multiplier       float64 `mapstructure:"multiplier"`
	JitterMs         int     `mapstructure:"jitter_ms"`
}

// RateLimitConfig configures request pacing.
type RateLimitConfig struct {
	MinIntervalMs int `mapstructure:"min_interval_ms"`
	JitterMs      int `mapstructure:"jitter_ms"`
	MaxSlowdown   int `mapstructure:"max_slowdown"`
}

// LedgerConfig selects and configures the progress ledger backend.
type LedgerConfig struct {
	// Driver is one of sqlite, postgres, memory.
	Driver string `mapstructure:"driver"`
	// Path is the sqlite database file.
	Path string `mapstructure:"path"`
	// DSN is the postgres connection string.
	DSN string `mapstructure:"dsn"`
}

// InputsConfig names the stage inputs.
type InputsConfig struct {
	SchoolsFile string `mapstructure:"schools_file"`
}

// OutputConfig names the stage outputs.
type OutputConfig struct {
	DataDir     string `mapstructure:"data_dir"`
	HTMLDir     string `mapstructure:"html_dir"`
	FinalCSV    string `mapstructure:"final_csv"`
	FailsPath   string `mapstructure:"fails_path"`
	FailsAppend bool   `mapstructure:"fails_append"`
}

// StatusConfig controls the optional status HTTP server.
type StatusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features and the optional log file.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.endpoint", "https://sparql.dblp.org/sparql")
	v.SetDefault("http.user_agent", "Mozilla/5.0 (compatible; Academic Research Bot; +https://example.org/bot)")
	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.backoff_initial_ms", 5000)
	v.SetDefault("retry.backoff_max_ms", 60000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_ms", 0)
	v.SetDefault("ratelimit.min_interval_ms", 1000)
	v.SetDefault("ratelimit.jitter_ms", 0)
	v.SetDefault("ratelimit.max_slowdown", 10)
	v.SetDefault("ledger.driver", "sqlite")
	v.SetDefault("ledger.path", "harvester.db")
	v.SetDefault("inputs.schools_file", "us-schools")
	v.SetDefault("output.data_dir", "faculty_data")
	v.SetDefault("output.html_dir", "faculty_html")
	v.SetDefault("output.final_csv", "output/faculty_data.csv")
	v.SetDefault("output.fails_path", "fails")
	v.SetDefault("output.fails_append", false)
	v.SetDefault("status.enabled", false)
	v.SetDefault("status.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("concurrency", 1)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be > 0")
	}
	if c.Retry.Multiplier <= 1 {
		return fmt.Errorf("retry.multiplier must be > 1")
	}
	if c.RateLimit.MinIntervalMs < 0 {
		return fmt.Errorf("ratelimit.min_interval_ms must be >= 0")
	}
	switch c.Ledger.Driver {
	case "sqlite":
		if strings.TrimSpace(c.Ledger.Path) == "" {
			return fmt.Errorf("ledger.path is required for the sqlite driver")
		}
	case "postgres":
		if strings.TrimSpace(c.Ledger.DSN) == "" {
			return fmt.Errorf("ledger.dsn is required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown ledger.driver %q", c.Ledger.Driver)
	}
	if c.Status.Enabled && c.Status.Port <= 0 {
		return fmt.Errorf("status.port must be > 0 when the status server is enabled")
	}
	return nil
}

// HTTPTimeout returns the client timeout as a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
