package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/nevindra/kitabi"
)

type Config struct {
	Pipeline kitabi.Config  `toml:"pipeline"`
	Azure    AzureConfig    `toml:"azure"`
	Retry    RetryConfig    `toml:"retry"`
	Lingua   LinguaConfig   `toml:"lingua"`
	Database DatabaseConfig `toml:"database"`
	Batch    BatchConfig    `toml:"batch"`
	Observer ObserverConfig `toml:"observer"`
}

type AzureConfig struct {
	Endpoint     string        `toml:"endpoint"`
	Key          string        `toml:"key"`
	Model        string        `toml:"model"`
	APIVersion   string        `toml:"api_version"`
	PollInterval time.Duration `toml:"poll_interval"`
	Timeout      time.Duration `toml:"timeout"`

	// Client-side budgets per minute; 0 disables a limit.
	RequestsPerMinute int `toml:"requests_per_minute"`
	PagesPerMinute    int `toml:"pages_per_minute"`
}

// Enabled reports whether enough is configured to call the service.
func (a AzureConfig) Enabled() bool { return a.Endpoint != "" && a.Key != "" }

type RetryConfig struct {
	MaxAttempts int           `toml:"max_attempts"`
	BaseDelay   time.Duration `toml:"base_delay"`
}

type LinguaConfig struct {
	Languages   []string `toml:"languages"`
	LowAccuracy bool     `toml:"low_accuracy"`
}

// DatabaseConfig selects the record store. A non-empty URL selects
// PostgreSQL; otherwise the SQLite file at Path is used.
type DatabaseConfig struct {
	Path string `toml:"path"`
	URL  string `toml:"url"`
}

type BatchConfig struct {
	Workers int `toml:"workers"`
}

type ObserverConfig struct {
	Enabled bool                       `toml:"enabled"`
	Pricing map[string]ObserverPricing `toml:"pricing"`
}

type ObserverPricing struct {
	PerThousandPages float64 `toml:"per_thousand_pages"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Pipeline: kitabi.DefaultConfig(),
		Azure: AzureConfig{
			Model:        "prebuilt-layout",
			APIVersion:   "2024-11-30",
			PollInterval: 2 * time.Second,
			Timeout:      5 * time.Minute,
		},
		Retry:    RetryConfig{MaxAttempts: 3, BaseDelay: time.Second},
		Lingua:   LinguaConfig{Languages: []string{"ar", "en", "fa", "ur", "fr", "de", "es", "id", "ms", "tr"}},
		Database: DatabaseConfig{Path: "kitabi.db"},
		Batch:    BatchConfig{Workers: 4},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins). An empty
// path means $KITABI_CONFIG, then kitabi.toml. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("KITABI_CONFIG")
	}
	if path == "" {
		path = "kitabi.toml"
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return Config{}, fmt.Errorf("config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("KITABI_AZURE_ENDPOINT"); v != "" {
		cfg.Azure.Endpoint = v
	}
	if v := os.Getenv("KITABI_AZURE_KEY"); v != "" {
		cfg.Azure.Key = v
	}
	if v := os.Getenv("KITABI_AZURE_MODEL"); v != "" {
		cfg.Azure.Model = v
	}
	if v := os.Getenv("KITABI_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("KITABI_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("KITABI_LINGUA_LANGUAGES"); v != "" {
		var langs []string
		for _, l := range strings.Split(v, ",") {
			if l = strings.TrimSpace(l); l != "" {
				langs = append(langs, strings.ToLower(l))
			}
		}
		cfg.Lingua.Languages = langs
	}
	if v := os.Getenv("KITABI_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("config: KITABI_WORKERS must be a positive integer, got %q", v)
		}
		cfg.Batch.Workers = n
	}
	if v := os.Getenv("KITABI_AZURE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: KITABI_AZURE_TIMEOUT: %w", err)
		}
		cfg.Azure.Timeout = d
	}
	if v := os.Getenv("KITABI_OBSERVER_ENABLED"); v == "true" || v == "1" {
		cfg.Observer.Enabled = true
	}
	return nil
}
