package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"NavGuard/pkg/logger"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvAPIURL overrides predictor.base_url. It is the only environment variable read.
const EnvAPIURL = "NAVGUARD_API_URL"

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
		CORS            bool          `yaml:"cors" default:"true"`
		CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]" validate:"dive,required"`
	} `yaml:"server"`
	Log     logger.Config `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Predictor struct {
		BaseURL        string        `yaml:"base_url" default:"http://localhost:8000" validate:"required,url"`
		HealthTimeout  time.Duration `yaml:"health_timeout" default:"3s" validate:"gt=0"`
		HealthCacheTTL time.Duration `yaml:"health_cache_ttl" default:"5s" validate:"gte=0"`
	} `yaml:"predictor"`
	Stream struct {
		PingInterval time.Duration `yaml:"ping_interval" default:"30s" validate:"gt=0"`
		WriteWait    time.Duration `yaml:"write_wait" default:"10s" validate:"gt=0"`
		ClientBuffer int           `yaml:"client_buffer" default:"16" validate:"gte=1"`
		EventBuffer  int           `yaml:"event_buffer" default:"256" validate:"gte=1"`
	} `yaml:"stream"`
	RateLimit struct {
		Enabled   bool    `yaml:"enabled" default:"true"`
		Burst     float64 `yaml:"burst" default:"5" validate:"gt=0"`
		PerSecond float64 `yaml:"per_second" default:"1" validate:"gt=0"`
	} `yaml:"ratelimit"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers" validate:"required_if=Enabled true"`
		Topic        string        `yaml:"topic" default:"navguard.verdicts"`
		RequiredAcks int           `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
		Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3" validate:"gte=1"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"100ms"`
	} `yaml:"kafka"`
}

var validate = validator.New()

// Default returns a config populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and applies the API URL override.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		c.Predictor.BaseURL = strings.TrimRight(v, "/")
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("validate %s: %w", EnvAPIURL, err)
		}
	}
	return c, nil
}

// Validate checks struct tags.
func (c *Config) Validate() error {
	return validate.Struct(c)
}
