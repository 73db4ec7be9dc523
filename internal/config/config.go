package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	ClickUp  ClickUpConfig  `yaml:"clickup" mapstructure:"clickup"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend. SQLite is the default; set
// driver to "postgres" and database_url for shared deployments.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ClickUpConfig holds ClickUp API credentials and upload tuning.
type ClickUpConfig struct {
	Token       string        `yaml:"token" mapstructure:"token"`
	ListID      string        `yaml:"list_id" mapstructure:"list_id"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec  float64       `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	BatchSize   int           `yaml:"batch_size" mapstructure:"batch_size"`
	Concurrency int           `yaml:"concurrency" mapstructure:"concurrency"`
	MappingFile string        `yaml:"mapping_file" mapstructure:"mapping_file"`
	Retry       RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Circuit     CircuitConfig `yaml:"circuit" mapstructure:"circuit"`
}

// RetryConfig holds raw retry knobs for outbound API calls.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// CircuitConfig holds raw circuit breaker knobs.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// PipelineConfig configures file processing.
type PipelineConfig struct {
	InputDir string `yaml:"input_dir" mapstructure:"input_dir"`
	Output   string `yaml:"output" mapstructure:"output"`
}

// ServerConfig configures the HTTP intake server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secrets default to empty so the env bindings resolve.
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "leadgen.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("clickup.token", "")
	v.SetDefault("clickup.list_id", "")
	v.SetDefault("clickup.base_url", "https://api.clickup.com/api/v2")
	v.SetDefault("clickup.rate_per_sec", 2)
	v.SetDefault("clickup.batch_size", 5)
	v.SetDefault("clickup.concurrency", 3)
	v.SetDefault("clickup.mapping_file", ".clickup_fields.yaml")
	v.SetDefault("clickup.retry.max_attempts", 3)
	v.SetDefault("clickup.retry.initial_backoff_ms", 500)
	v.SetDefault("clickup.retry.max_backoff_ms", 10000)
	v.SetDefault("clickup.retry.multiplier", 2.0)
	v.SetDefault("clickup.retry.jitter_fraction", 0.25)
	v.SetDefault("clickup.circuit.failure_threshold", 5)
	v.SetDefault("clickup.circuit.reset_timeout_secs", 30)
	v.SetDefault("pipeline.input_dir", ".")
	v.SetDefault("pipeline.output", "processed_leads.csv")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration is usable for the given mode.
// Problems are accumulated so a misconfigured run reports everything at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch c.Store.Driver {
	case "sqlite":
		check(c.Store.Path != "", "store.path is required for the sqlite driver")
	case "postgres":
		check(c.Store.DatabaseURL != "", "store.database_url is required for the postgres driver")
	default:
		problems = append(problems, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}

	switch mode {
	case "process", "analyze":
		// Store checks above are enough.
	case "discover":
		check(c.ClickUp.Token != "", "clickup.token is required")
	case "upload":
		check(c.ClickUp.Token != "", "clickup.token is required")
		check(c.ClickUp.ListID != "", "clickup.list_id is required")
		check(c.ClickUp.BatchSize >= 1 && c.ClickUp.BatchSize <= 100, "clickup.batch_size must be between 1 and 100")
		check(c.ClickUp.Concurrency >= 1 && c.ClickUp.Concurrency <= 10, "clickup.concurrency must be between 1 and 10")
	case "serve":
		check(c.Server.Port > 0 && c.Server.Port < 65536, "server.port must be between 1 and 65535")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
