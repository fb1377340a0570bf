// Package config handles TOML-based configuration loading and validation.
// Config is parsed as data only; values are merged defaults < file < flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration.
type Config struct {
	// Scraper is the stream-resolution backend.
	ScraperURL     string `toml:"scraper_url"`
	BypassHeader   string `toml:"bypass_header"`
	BypassValue    string `toml:"bypass_value"`
	ScraperTimeout int    `toml:"scraper_timeout_seconds"`

	// Catalog is the metadata service (TMDB-style).
	CatalogURL string `toml:"catalog_url"`
	CatalogKey string `toml:"catalog_key"`

	// Auxiliary collaborators.
	DubbingURL  string `toml:"dubbing_url"`
	AnalysisURL string `toml:"analysis_url"`

	// ProxyURL rewrites provider links whose origin blocks direct fetches.
	// HostRanks orders same-provider links by hosting domain reliability;
	// earlier substrings rank better. Both are empirical, tunable data.
	ProxyURL  string   `toml:"proxy_url"`
	HostRanks []string `toml:"host_ranks"`

	// Playback preferences.
	Providers    []string `toml:"providers"` // preference order, by provider id
	SubsLanguage string   `toml:"subs_language"`
	DubLanguage  string   `toml:"dub_language"`
	Player       string   `toml:"player"`
	CacheTTL     int      `toml:"cache_ttl_hours"`

	History     bool   `toml:"history"`
	DownloadDir string `toml:"download_dir"`
	LogLevel    string `toml:"log_level"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		ScraperURL:     "https://scraper.cinestream.local/scrape",
		BypassHeader:   "ngrok-skip-browser-warning",
		BypassValue:    "true",
		ScraperTimeout: 15,
		CatalogURL:     "https://api.themoviedb.org/3",
		DubbingURL:     "https://dub.cinestream.local/dub",
		AnalysisURL:    "https://analysis.cinestream.local/skips",
		HostRanks:      []string{"valiw.", "hakunaymatata.com"},
		SubsLanguage:   "en",
		Player:         "mpv",
		CacheTTL:       2,
		History:        true,
		DownloadDir:    "~/Videos/cinestream",
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cinestream"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "cinestream"), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file and merges with defaults.
// If the config file doesn't exist, defaults are returned.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	if c.ScraperURL == "" {
		return fmt.Errorf("scraper_url cannot be empty")
	}
	if c.CatalogURL == "" {
		return fmt.Errorf("catalog_url cannot be empty")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl_hours must be positive, got %d", c.CacheTTL)
	}
	if c.ScraperTimeout <= 0 {
		return fmt.Errorf("scraper_timeout_seconds must be positive, got %d", c.ScraperTimeout)
	}
	if c.Player != "" && strings.ToLower(c.Player) != "mpv" {
		return fmt.Errorf("unsupported player %q (valid: mpv)", c.Player)
	}
	return nil
}

// TTL returns the cache time-to-live as a duration.
func (c *Config) TTL() time.Duration {
	return time.Duration(c.CacheTTL) * time.Hour
}

// Timeout returns the per-provider request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.ScraperTimeout) * time.Second
}

// ExpandDownloadDir resolves ~ in the download directory path.
func (c *Config) ExpandDownloadDir() (string, error) {
	dir := c.DownloadDir
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding home dir: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	return filepath.Abs(dir)
}

// DataPath returns the path to a file in the XDG data directory.
func DataPath(name string) (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "cinestream", name), nil
}
