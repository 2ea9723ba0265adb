// Package cmd implements the copilot-usage CLI commands.
package cmd

import (
	"fmt"

	"github.com/theirongolddev/copilot-usage/internal/cli"
	"github.com/theirongolddev/copilot-usage/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadFrom(configPath())
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", configPath())
	if configExists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("  Problems: %v\n", err)
	}
	fmt.Println()

	fmt.Println("  [GitHub]")
	token := config.Token(cfg)
	switch {
	case token == "":
		fmt.Println("    Token:    not configured")
	case token != cfg.GitHub.Token:
		fmt.Printf("    Token:    %s (from environment)\n", cli.MaskToken(token))
	default:
		fmt.Printf("    Token:    %s\n", cli.MaskToken(token))
	}
	if cfg.GitHub.Username != "" {
		fmt.Printf("    Username: %s\n", cfg.GitHub.Username)
	} else {
		fmt.Println("    Username: resolved from token")
	}
	if cfg.GitHub.BaseURL != "" {
		fmt.Printf("    API:      %s\n", cfg.GitHub.BaseURL)
	}
	fmt.Printf("    Timeout:  %s\n", cfg.Timeout())
	fmt.Println()

	plan := config.ResolvePlan(cfg)
	fmt.Println("  [Plan]")
	fmt.Printf("    Name:          %s\n", cfg.Plan.Name)
	fmt.Printf("    Monthly limit: %s requests\n", cli.FormatRequests(plan.Limit))
	fmt.Printf("    Overage price: %s per request\n", cli.FormatCost(plan.OveragePrice))
	fmt.Println()

	fmt.Println("  [Cache]")
	fmt.Printf("    Backend: %s\n", cfg.Cache.Backend)
	fmt.Printf("    TTL:     %s\n", cfg.TTL())
	fmt.Printf("    Dir:     %s\n", config.CacheDir(cfg))
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme:        %s\n", cfg.Appearance.Theme)
	fmt.Printf("    Auto refresh: %v\n", cfg.Appearance.AutoRefresh)
	fmt.Println()

	fmt.Println("  [Export]")
	fmt.Printf("    Format: %s\n", cfg.Export.Format)
	fmt.Println()

	fmt.Println("  [Log]")
	fmt.Printf("    Level: %s\n", cfg.Log.Level)
	fmt.Printf("    File:  %s\n", config.LogPath(cfg))
	fmt.Println()

	fmt.Println("  Run `copilot-usage setup` to reconfigure.")
	return nil
}
