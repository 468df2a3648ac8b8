package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geniass/offers-updater/pkg/scraper"
)

var vars = []string{
	"OFFERS_PATH", "TARGET_DOMAIN", "USER_AGENT", "FETCH_TIMEOUT", "EXTRACT_PROFILE",
	"CACHE_DIR", "HISTORY_DB", "LOG_LEVEL", "LOG_FORMAT", "LOG_NO_COLOR",
}

// clearEnv unsets every variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range vars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "offers.json", cfg.OffersPath)
	assert.Equal(t, "drankdozijn.nl", cfg.TargetDomain)
	assert.Equal(t, scraper.DefaultUserAgent, cfg.UserAgent)
	assert.Equal(t, 20*time.Second, cfg.FetchTimeout)
	assert.Empty(t, cfg.ExtractProfile)
	assert.Empty(t, cfg.HistoryDB)
	assert.Equal(t, LogConfig{Level: "info", Format: "text"}, cfg.Log)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("TARGET_DOMAIN", "example.com")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(`
OFFERS_PATH=data/offers.json
TARGET_DOMAIN=ignored.example
FETCH_TIMEOUT=5s
HISTORY_DB=history.db
LOG_LEVEL=debug
LOG_NO_COLOR=true
`), 0o600))
	t.Cleanup(func() {
		for _, v := range vars {
			os.Unsetenv(v)
		}
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/offers.json", cfg.OffersPath)
	assert.Equal(t, "example.com", cfg.TargetDomain, "environment wins over the file")
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "history.db", cfg.HistoryDB)
	assert.True(t, cfg.Log.NoColor)

	sc := cfg.ScraperConfig()
	assert.Equal(t, 5*time.Second, sc.Timeout)
	assert.Equal(t, "debug", cfg.LogOptions().Level)
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string][2]string{
		"timeout":      {"FETCH_TIMEOUT", "soon"},
		"zero timeout": {"FETCH_TIMEOUT", "0s"},
		"level":        {"LOG_LEVEL", "loud"},
		"format":       {"LOG_FORMAT", "xml"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
