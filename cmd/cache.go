package cmd

import (
	"fmt"
	"time"

	"github.com/theirongolddev/copilot-usage/internal/cli"
	"github.com/theirongolddev/copilot-usage/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Show cache status",
	RunE:  runCacheStatus,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the cached snapshot",
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStatus(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg, zap.NewNop())
	if err != nil {
		return err
	}

	now := time.Now()
	entry, ok := st.Load()
	status := store.StatusOf(entry, ok, cfg.TTL(), now)

	fmt.Printf("  Cache file: %s\n", st.Path())
	fmt.Printf("  Backend:    %s\n", cfg.Cache.Backend)
	fmt.Printf("  TTL:        %d minutes\n", int(cfg.TTL().Minutes()))
	fmt.Printf("  Status:     %s\n", status)
	if !ok {
		return nil
	}

	fmt.Printf("  Updated:    %s (%s)\n", entry.Timestamp.Local().Format("2006-01-02 15:04:05"), cli.FormatAge(entry.Timestamp, now))
	if status == store.StatusFresh {
		fmt.Printf("  Expires in: %s\n", cli.FormatCountdown(entry.Timestamp.Add(cfg.TTL()).Sub(now)))
	}
	s := entry.Snapshot
	fmt.Printf("  Usage:      %s / %s (%s)\n", cli.FormatRequests(s.Used), cli.FormatRequests(s.Limit), cli.FormatPercent(s.Percent))
	return nil
}

func runCacheClear(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg, zap.NewNop())
	if err != nil {
		return err
	}
	if err := st.Clear(); err != nil {
		return err
	}
	fmt.Printf("  Cleared %s\n", st.Path())
	return nil
}
