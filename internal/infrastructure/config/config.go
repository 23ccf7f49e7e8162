package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Fraud    FraudConfig    `koanf:"fraud"`
	Lookup   LookupConfig   `koanf:"lookup"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url" validate:"required"`
	MaxConns        int           `koanf:"max_conns" validate:"gte=1"`
	MinConns        int           `koanf:"min_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL          string        `koanf:"url" validate:"required"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	MaxRetries   int           `koanf:"max_retries"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type FraudConfig struct {
	// LookupTimeout bounds each external lookup within an evaluation.
	LookupTimeout time.Duration `koanf:"lookup_timeout" validate:"gt=0"`
	// NotifyQueueSize is the outbound alert notification queue capacity.
	NotifyQueueSize int `koanf:"notify_queue_size" validate:"gte=1"`
	// ActivityRetention is how long event activity is kept for velocity
	// and reuse counting. Must cover the one-hour counting window.
	ActivityRetention time.Duration `koanf:"activity_retention" validate:"gte=3600000000000"`
}

type LookupConfig struct {
	GeolocationURL    string        `koanf:"geolocation_url"`
	ReputationURL     string        `koanf:"reputation_url"`
	RequestTimeout    time.Duration `koanf:"request_timeout" validate:"gt=0"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gt=0"`
	Burst             int           `koanf:"burst" validate:"gte=1"`
}

// Load builds configuration from defaults, an optional YAML file, and
// FRAUD_-prefixed environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Database: DatabaseConfig{
			MaxConns:        25,
			MinConns:        5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			DB:           0,
			PoolSize:     10,
			MinIdleConns: 2,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Fraud: FraudConfig{
			LookupTimeout:     500 * time.Millisecond,
			NotifyQueueSize:   1024,
			ActivityRetention: 2 * time.Hour,
		},
		Lookup: LookupConfig{
			RequestTimeout:    2 * time.Second,
			RequestsPerSecond: 50,
			Burst:             100,
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("loading config file %s: %w", path, err)
			}
		}
	}

	// FRAUD_DATABASE__MAX_CONNS -> database.max_conns: a double underscore
	// separates nesting levels so key names may still contain underscores.
	if err := k.Load(env.Provider("FRAUD_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "FRAUD_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}
