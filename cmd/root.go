package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/theirongolddev/copilot-usage/internal/config"
	"github.com/theirongolddev/copilot-usage/internal/github"
	"github.com/theirongolddev/copilot-usage/internal/logger"
	"github.com/theirongolddev/copilot-usage/internal/refresh"
	"github.com/theirongolddev/copilot-usage/internal/store"
	"github.com/theirongolddev/copilot-usage/internal/tui"
	"github.com/theirongolddev/copilot-usage/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagConfig      string
	flagLogLevel    string
	flagRefresh     bool
	flagWaybar      bool
	flagTheme       string
	flagCacheStatus bool
)

var rootCmd = &cobra.Command{
	Use:   "copilot-usage",
	Short: "GitHub Copilot premium request usage",
	Long: "Track GitHub Copilot premium request usage for the current billing month.\n" +
		"Runs an interactive dashboard by default; --waybar prints one JSON line for status bars.",
	SilenceUsage: true,
	RunE:         runDashboard,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default $XDG_CONFIG_HOME/copilot-usage/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.Flags().BoolVarP(&flagRefresh, "refresh", "r", false, "Fetch fresh data even if the cache is valid")
	rootCmd.Flags().BoolVar(&flagWaybar, "waybar", false, "Print one JSON line for waybar and exit")
	rootCmd.Flags().StringVar(&flagTheme, "theme", "", "Theme for this session")
	rootCmd.Flags().BoolVar(&flagCacheStatus, "cache-status", false, "Show cache status and exit")
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.ConfigPath()
}

func configExists() bool {
	_, err := os.Stat(configPath())
	return err == nil
}

// loadConfig reads and validates the config file.
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadFrom(configPath())
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", configPath(), err)
	}
	return cfg, nil
}

// newLogger logs to the dashboard log file when toFile is set, else stderr.
func newLogger(cfg config.Config, toFile bool) (*zap.Logger, error) {
	level := cfg.Log.Level
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	path := ""
	if toFile {
		path = config.LogPath(cfg)
	}
	return logger.NewLogger(level, path)
}

func openStore(cfg config.Config, log *zap.Logger) (store.Store, error) {
	return store.Open(cfg.Cache.Backend, config.CacheDir(cfg), log)
}

func newClient(cfg config.Config) *github.Client {
	return github.NewClient(config.Token(cfg),
		github.WithBaseURL(cfg.GitHub.BaseURL),
		github.WithTimeout(cfg.Timeout()),
	)
}

func newFetcher(cfg config.Config) *github.Fetcher {
	return github.NewFetcher(newClient(cfg), cfg.GitHub.Username, config.ResolvePlan(cfg))
}

// loadThemes returns the built-in themes plus any YAML themes in the
// config directory's themes/ folder.
func loadThemes(log *zap.Logger) []theme.Theme {
	dir := filepath.Join(filepath.Dir(configPath()), "themes")
	custom, err := theme.LoadDir(dir)
	if err != nil {
		log.Warn("loading custom themes", zap.String("dir", dir), zap.Error(err))
	}
	return theme.Merge(theme.Builtin, custom)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	switch {
	case flagWaybar:
		return runExport(cmd, args)
	case flagCacheStatus:
		return runCacheStatus(cmd, args)
	}

	if !configExists() && config.Token(config.DefaultConfig()) == "" {
		if err := runSetupWizard(); err != nil {
			return err
		}
	}

	for {
		action, err := runTUIOnce()
		if err != nil {
			return err
		}
		if action != tui.ActionReconfigure {
			return nil
		}
		if err := runSetupWizard(); err != nil && !errors.Is(err, errSetupAborted) {
			return err
		}
	}
}

func runTUIOnce() (tui.Action, error) {
	cfg, err := loadConfig()
	if err != nil {
		return tui.ActionQuit, err
	}
	log, err := newLogger(cfg, true)
	if err != nil {
		return tui.ActionQuit, err
	}
	defer func() { _ = log.Sync() }()

	st, err := openStore(cfg, log)
	if err != nil {
		return tui.ActionQuit, err
	}

	coord := refresh.New(refresh.Config{
		Fetcher: newFetcher(cfg),
		Store:   st,
		TTL:     cfg.TTL(),
		Logger:  log.Named("refresh"),
	})
	coord.SetAutoRefresh(cfg.Appearance.AutoRefresh)
	coord.Start(flagRefresh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed, err := config.Watch(ctx, configPath())
	if err != nil {
		log.Warn("config watcher disabled", zap.Error(err))
	}

	themeName := cfg.Appearance.Theme
	if flagTheme != "" {
		themeName = flagTheme
	}

	lipgloss.SetColorProfile(termenv.TrueColor)

	app := tui.NewApp(tui.Options{
		Coordinator:  coord,
		Themes:       loadThemes(log),
		Theme:        themeName,
		CacheBackend: cfg.Cache.Backend,
		OveragePrice: config.ResolvePlan(cfg).OveragePrice,
		Logger:       log.Named("tui"),
		SaveTheme: func(name string) error {
			return config.SaveTheme(configPath(), name)
		},
		SaveAutoRefresh: func(on bool) error {
			return config.SaveAutoRefresh(configPath(), on)
		},
		ConfigChanged: changed,
		LoadSettings: func() (tui.Settings, error) {
			c, err := loadConfig()
			if err != nil {
				return tui.Settings{}, err
			}
			return tui.Settings{Theme: c.Appearance.Theme, TTL: c.TTL(), AutoRefresh: c.Appearance.AutoRefresh}, nil
		},
	})

	final, err := tea.NewProgram(app, tea.WithAltScreen()).Run()
	if err != nil {
		return tui.ActionQuit, fmt.Errorf("TUI error: %w", err)
	}
	if a, ok := final.(tui.App); ok {
		return a.Action(), nil
	}
	return tui.ActionQuit, nil
}
