// Package config loads application configuration from defaults, an optional
// YAML file, and ELECTIVES_-prefixed environment variables, in that order of
// precedence.
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

// EnvPrefix is the prefix for environment variable overrides, e.g.
// ELECTIVES_SERVER__ADDR maps to server.addr.
const EnvPrefix = "ELECTIVES_"

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Records   RecordsConfig   `koanf:"records"`
	Market    MarketConfig    `koanf:"market"`
	Resolver  ResolverConfig  `koanf:"resolver"`
	LogLevel  string          `koanf:"log_level" validate:"oneof=trace debug info warn error"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

type CatalogConfig struct {
	SubjectsPath string `koanf:"subjects_path" validate:"required"`
	TaxonomyPath string `koanf:"taxonomy_path" validate:"required"`
}

type RecordsConfig struct {
	DBPath string `koanf:"db_path" validate:"required"`
}

type MarketConfig struct {
	SignalBaseURL    string        `koanf:"signal_base_url" validate:"required,url"`
	LookupTimeout    time.Duration `koanf:"lookup_timeout" validate:"gt=0"`
	LookupsPerSecond float64       `koanf:"lookups_per_second" validate:"gte=0"`
	FallbackScore    float64       `koanf:"fallback_score" validate:"gte=0,lte=100"`
	CacheDir         string        `koanf:"cache_dir" validate:"required"`
}

type ResolverConfig struct {
	SimilarityThreshold float64 `koanf:"similarity_threshold" validate:"gt=0,lte=1"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Catalog: CatalogConfig{
			SubjectsPath: "data/catalog.json",
			TaxonomyPath: "data/taxonomy.json",
		},
		Records: RecordsConfig{
			DBPath: "data/grades.db",
		},
		Market: MarketConfig{
			SignalBaseURL:    "http://localhost:9090",
			LookupTimeout:    10 * time.Second,
			LookupsPerSecond: 5,
			FallbackScore:    60.0,
			CacheDir:         "data/market-cache",
		},
		Resolver: ResolverConfig{
			SimilarityThreshold: 0.70,
		},
		LogLevel: "info",
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and environment overrides apply; a named file that does not exist
// is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load default config: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// ELECTIVES_MARKET__SIGNAL_BASE_URL -> market.signal_base_url; the double
	// underscore separates nesting levels from words.
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}
