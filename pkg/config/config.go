// Package config reads the updater settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/geniass/offers-updater/pkg/logx"
	"github.com/geniass/offers-updater/pkg/scraper"
)

type Config struct {
	OffersPath   string        `envconfig:"OFFERS_PATH" default:"offers.json"`
	TargetDomain string        `envconfig:"TARGET_DOMAIN" default:"drankdozijn.nl"`
	UserAgent    string        `envconfig:"USER_AGENT"`
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"20s"`
	// ExtractProfile is a YAML profile path; empty selects the built-in one.
	ExtractProfile string `envconfig:"EXTRACT_PROFILE"`
	CacheDir       string `envconfig:"CACHE_DIR"`
	HistoryDB      string `envconfig:"HISTORY_DB"`

	Log LogConfig `envconfig:"LOG"`
}

type LogConfig struct {
	Level   string `envconfig:"LEVEL" default:"info"`
	Format  string `envconfig:"FORMAT" default:"text"`
	NoColor bool   `envconfig:"NO_COLOR" default:"false"`
}

// Load preloads envFiles (".env" when none are given) and processes the
// environment. A missing env file is not an error; variables already set
// in the environment win over the files.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("processing environment: %w", err)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = scraper.DefaultUserAgent
	}
	if cfg.FetchTimeout <= 0 {
		return Config{}, fmt.Errorf("FETCH_TIMEOUT must be positive, got %s", cfg.FetchTimeout)
	}
	if _, err := cfg.LogOptions().ParseLevel(); err != nil {
		return Config{}, err
	}
	if cfg.Log.Format != logx.FormatText && cfg.Log.Format != logx.FormatJSON {
		return Config{}, fmt.Errorf("LOG_FORMAT must be %q or %q, got %q", logx.FormatText, logx.FormatJSON, cfg.Log.Format)
	}
	return cfg, nil
}

func (c Config) LogOptions() logx.Options {
	return logx.Options{Level: c.Log.Level, Format: c.Log.Format, NoColor: c.Log.NoColor}
}

func (c Config) ScraperConfig() scraper.Config {
	return scraper.Config{UserAgent: c.UserAgent, Timeout: c.FetchTimeout, CacheDir: c.CacheDir}
}
