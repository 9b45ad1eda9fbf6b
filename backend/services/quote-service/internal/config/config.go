package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "sunquote/backend/libs/config"
	"sunquote/backend/services/quote-service/internal/quote"
)

// Reference data sources.
const (
	SourcePostgres = "postgres"
	SourceFile     = "file"
	SourceS3       = "s3"
	SourceSeed     = "seed"
)

// Config defines quote service configuration.
type Config struct {
	HTTP struct {
		Port            string        `yaml:"port" env:"QUOTE_HTTP_PORT"`
		AllowedOrigins  []string      `yaml:"allowedOrigins" env:"QUOTE_CORS_ORIGINS"`
		ReadTimeout     time.Duration `yaml:"readTimeout" env:"QUOTE_HTTP_READ_TIMEOUT"`
		WriteTimeout    time.Duration `yaml:"writeTimeout" env:"QUOTE_HTTP_WRITE_TIMEOUT"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"QUOTE_HTTP_SHUTDOWN_TIMEOUT"`
	} `yaml:"http"`
	Database struct {
		DSN          string `yaml:"dsn" env:"QUOTE_POSTGRES_DSN"`
		MaxOpenConns int    `yaml:"maxOpenConns" env:"QUOTE_POSTGRES_MAX_OPEN"`
		Migrate      bool   `yaml:"migrate" env:"QUOTE_POSTGRES_MIGRATE"`
		SeedIfEmpty  bool   `yaml:"seedIfEmpty" env:"QUOTE_POSTGRES_SEED"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr" env:"QUOTE_REDIS_ADDR"`
		Password string `yaml:"password" env:"QUOTE_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"QUOTE_REDIS_DB"`
		TTL      int    `yaml:"ttlSeconds" env:"QUOTE_REDIS_TTL"`
	} `yaml:"redis"`
	Reference struct {
		Source  string        `yaml:"source" env:"QUOTE_REFERENCE_SOURCE"`
		File    string        `yaml:"file" env:"QUOTE_REFERENCE_FILE"`
		Bucket  string        `yaml:"bucket" env:"QUOTE_REFERENCE_S3_BUCKET"`
		Key     string        `yaml:"key" env:"QUOTE_REFERENCE_S3_KEY"`
		Region  string        `yaml:"region" env:"QUOTE_REFERENCE_S3_REGION"`
		MemoTTL time.Duration `yaml:"memoTTL" env:"QUOTE_REFERENCE_MEMO_TTL"`
	} `yaml:"reference"`
	JWT struct {
		Secret string `yaml:"secret" env:"QUOTE_JWT_SECRET"`
	} `yaml:"jwt"`
	Pricing quote.Pricing `yaml:"pricing"`
}

// Load reads configuration via shared helper.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8085"
	cfg.Redis.TTL = 300
	cfg.Reference.Source = SourcePostgres
	cfg.Reference.Key = "reference/current.yaml"
	cfg.Reference.Region = "ap-southeast-2"
	cfg.Reference.MemoTTL = time.Minute
	cfg.Pricing = quote.DefaultPricing()

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Pricing = cfg.Pricing.WithDefaults()
	return cfg, nil
}

// Validate checks that the selected reference source is fully configured.
func (c *Config) Validate() error {
	c.Reference.Source = strings.ToLower(strings.TrimSpace(c.Reference.Source))
	switch c.Reference.Source {
	case SourcePostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return errors.New("config: database dsn required")
		}
	case SourceFile:
		if strings.TrimSpace(c.Reference.File) == "" {
			return errors.New("config: reference file required")
		}
	case SourceS3:
		if strings.TrimSpace(c.Reference.Bucket) == "" || strings.TrimSpace(c.Reference.Key) == "" {
			return errors.New("config: reference s3 bucket and key required")
		}
	case SourceSeed:
	default:
		return fmt.Errorf("config: unknown reference source %q", c.Reference.Source)
	}
	if c.Redis.DB < 0 {
		return errors.New("config: redis db must be >= 0")
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8085"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// SnapshotCacheTTL returns the redis entry lifetime.
func (c *Config) SnapshotCacheTTL() time.Duration {
	if c.Redis.TTL <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Redis.TTL) * time.Second
}

// RedisEnabled reports whether a shared snapshot cache is configured.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}
