// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cinestream/internal/cache"
	"cinestream/internal/catalog"
	"cinestream/internal/config"
	"cinestream/internal/log"
	"cinestream/internal/resolver"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagType        string
	flagSeason      int
	flagEpisode     int
	flagProvider    string
	flagQuality     string
	flagLanguage    string
	flagNoSubs      bool
	flagDub         bool
	flagAutoSkip    bool
	flagContinue    bool
	flagJSON        bool
	flagInteractive bool
	flagLogLevel    string
)

// cfg holds the loaded configuration (merged: defaults < config file < flags).
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "cinestream",
	Short: "Resolve and play streams from the terminal",
	Long: `Cinestream resolves movie and series streams through a provider
chain, plays them with mpv, and layers on subtitles, skip detection,
and AI dubbing.`,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagType, "type", "t", "movie", "Content type: movie | series")
	rootCmd.PersistentFlags().IntVarP(&flagSeason, "season", "s", 0, "Season number (series)")
	rootCmd.PersistentFlags().IntVarP(&flagEpisode, "episode", "e", 0, "Episode number (series)")
	rootCmd.PersistentFlags().StringVarP(&flagProvider, "provider", "p", "", "Resolve through this provider only")
	rootCmd.PersistentFlags().StringVarP(&flagQuality, "quality", "q", "", "Preferred quality label, e.g. 1080P")
	rootCmd.PersistentFlags().StringVarP(&flagLanguage, "language", "l", "", "Subtitle language code (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&flagNoSubs, "no-subs", "n", false, "Disable subtitles")
	rootCmd.PersistentFlags().BoolVar(&flagDub, "dub", false, "Enable AI dub overlay")
	rootCmd.PersistentFlags().BoolVar(&flagAutoSkip, "auto-skip", false, "Skip detected intro/outro segments automatically")
	rootCmd.PersistentFlags().BoolVarP(&flagContinue, "continue", "c", false, "Resume from watch history")
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "Output metadata as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagInteractive, "interactive", "i", false, "Pick quality and subtitles via fzf")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: trace | debug | info | warn | error")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration: defaults < config file < CLI flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if flagLanguage != "" {
		cfg.SubsLanguage = flagLanguage
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log.Configure(log.Config{Level: cfg.LogLevel, Output: os.Stderr})
	return nil
}

// openCache opens the persistent stream cache. The sqlite handle is shared
// with the history store.
func openCache() (*cache.SQLiteStore, *cache.Cache, error) {
	path, err := config.DataPath("cinestream.db")
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("creating data dir: %w", err)
	}
	store, err := cache.OpenSQLite(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening stream cache: %w", err)
	}
	return store, cache.New(store, cfg.TTL()), nil
}

// newResolver wires the resolver with the catalog title source and the
// persistent cache.
func newResolver(c *cache.Cache) *resolver.Resolver {
	return resolver.New(resolver.Options{
		ScraperURL:   cfg.ScraperURL,
		BypassHeader: cfg.BypassHeader,
		BypassValue:  cfg.BypassValue,
		Timeout:      cfg.Timeout(),
		Cache:        c,
		Titles:       catalog.New(cfg.CatalogURL, cfg.CatalogKey),
		ProxyURL:     cfg.ProxyURL,
		HostRanks:    cfg.HostRanks,
	})
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cinestream %s\n", Version)
	},
}
