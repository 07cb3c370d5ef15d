package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sucolo/hexfeat/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Elastic ElasticConfig `yaml:"elastic" mapstructure:"elastic"`
	Redis   RedisConfig   `yaml:"redis" mapstructure:"redis"`
	Grid    GridConfig    `yaml:"grid" mapstructure:"grid"`
	Engine  EngineConfig  `yaml:"engine" mapstructure:"engine"`
	Upload  UploadConfig  `yaml:"upload" mapstructure:"upload"`
	Ready   ReadyConfig   `yaml:"ready" mapstructure:"ready"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ElasticConfig configures the attribute store connection.
type ElasticConfig struct {
	Hosts          []string `yaml:"hosts" mapstructure:"hosts"`
	User           string   `yaml:"user" mapstructure:"user"`
	Password       string   `yaml:"password" mapstructure:"password"`
	CACert         string   `yaml:"ca_cert" mapstructure:"ca_cert"`
	TimeoutSecs    int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PageSize       int      `yaml:"page_size" mapstructure:"page_size"`
	BulkWorkers    int      `yaml:"bulk_workers" mapstructure:"bulk_workers"`
	BulkFlushBytes int      `yaml:"bulk_flush_bytes" mapstructure:"bulk_flush_bytes"`
}

// RedisConfig configures the spatial index connection.
type RedisConfig struct {
	Addr          string `yaml:"addr" mapstructure:"addr"`
	Password      string `yaml:"password" mapstructure:"password"`
	DB            int    `yaml:"db" mapstructure:"db"`
	PipelineBatch int    `yaml:"pipeline_batch" mapstructure:"pipeline_batch"`
}

// GridConfig configures hex grid materialization.
type GridConfig struct {
	Resolution int `yaml:"resolution" mapstructure:"resolution"`
}

// EngineConfig configures feature computation.
type EngineConfig struct {
	Parallelism int `yaml:"parallelism" mapstructure:"parallelism"`
}

// UploadConfig configures city uploads.
type UploadConfig struct {
	WheelchairValues []string `yaml:"wheelchair_values" mapstructure:"wheelchair_values"`
	DistrictField    string   `yaml:"district_field" mapstructure:"district_field"`
}

// ReadyConfig configures the startup wait for both stores.
type ReadyConfig struct {
	Attempts         int `yaml:"attempts" mapstructure:"attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	RateLimit   float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst   int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and the environment, in
// increasing order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("HEXFEAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("elastic.hosts", []string{"https://localhost:9200"})
	v.SetDefault("elastic.user", "elastic")
	v.SetDefault("elastic.password", "")
	v.SetDefault("elastic.ca_cert", "certs/ca.crt")
	v.SetDefault("elastic.timeout_secs", 30)
	v.SetDefault("elastic.page_size", 10000)
	v.SetDefault("elastic.bulk_workers", 2)
	v.SetDefault("elastic.bulk_flush_bytes", 5<<20)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pipeline_batch", 1000)
	v.SetDefault("grid.resolution", 9)
	v.SetDefault("engine.parallelism", 1)
	v.SetDefault("upload.wheelchair_values", []string{"yes"})
	v.SetDefault("upload.district_field", "district")
	v.SetDefault("ready.attempts", 10)
	v.SetDefault("ready.initial_backoff_ms", 500)
	v.SetDefault("ready.max_backoff_ms", 10000)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.cors_origins", []string{"*"})
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

// Validate checks the settings a command needs. mode is one of "read"
// (metadata and features), "upload" (writes, grid materialization) or
// "serve" (read plus the HTTP server). All problems are reported together.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "read", "upload", "serve":
	default:
		return eris.Wrapf(model.ErrConfiguration, "config: unknown mode %q", mode)
	}

	problems = append(problems, c.validateElastic()...)
	if c.Redis.Addr == "" {
		problems = append(problems, "redis.addr is required")
	}
	if c.Redis.PipelineBatch < 1 {
		problems = append(problems, "redis.pipeline_batch must be >= 1")
	}
	if c.Engine.Parallelism < 1 {
		problems = append(problems, "engine.parallelism must be >= 1")
	}

	switch mode {
	case "upload":
		if c.Grid.Resolution < 0 || c.Grid.Resolution > 15 {
			problems = append(problems, "grid.resolution must be between 0 and 15")
		}
		if c.Elastic.BulkWorkers < 1 {
			problems = append(problems, "elastic.bulk_workers must be >= 1")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Server.RateLimit <= 0 || c.Server.RateBurst < 1 {
			problems = append(problems, "server.rate_limit and server.rate_burst must be > 0")
		}
	}

	if len(problems) > 0 {
		return eris.Wrapf(model.ErrConfiguration, "config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateElastic() []string {
	var problems []string
	if len(c.Elastic.Hosts) == 0 {
		problems = append(problems, "elastic.hosts is required")
	}
	if c.Elastic.User == "" {
		problems = append(problems, "elastic.user is required")
	}
	if c.Elastic.Password == "" {
		problems = append(problems, "elastic.password is required")
	}
	if c.Elastic.PageSize < 1 || c.Elastic.PageSize > 10000 {
		problems = append(problems, "elastic.page_size must be between 1 and 10000")
	}
	if c.Elastic.UsesTLS() {
		if c.Elastic.CACert == "" {
			problems = append(problems, "elastic.ca_cert is required for https hosts")
		} else if _, err := os.Stat(c.Elastic.CACert); err != nil {
			problems = append(problems, "elastic.ca_cert is not readable: "+c.Elastic.CACert)
		}
	}
	return problems
}

// UsesTLS reports whether any configured host is an https URL.
func (e ElasticConfig) UsesTLS() bool {
	for _, h := range e.Hosts {
		if strings.HasPrefix(strings.ToLower(h), "https://") {
			return true
		}
	}
	return false
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
