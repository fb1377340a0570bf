package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2*time.Hour, cfg.TTL())
	assert.Equal(t, 15*time.Second, cfg.Timeout())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty scraper url", func(c *Config) { c.ScraperURL = "" }},
		{"empty catalog url", func(c *Config) { c.CatalogURL = "" }},
		{"zero ttl", func(c *Config) { c.CacheTTL = 0 }},
		{"zero timeout", func(c *Config) { c.ScraperTimeout = 0 }},
		{"unknown player", func(c *Config) { c.Player = "wmplayer" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().ScraperURL, cfg.ScraperURL)
}
