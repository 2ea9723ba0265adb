package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/theirongolddev/copilot-usage/internal/cli"
	"github.com/theirongolddev/copilot-usage/internal/config"
	"github.com/theirongolddev/copilot-usage/internal/refresh"
	"github.com/theirongolddev/copilot-usage/internal/usage"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print premium request usage as plain tables",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVarP(&flagRefresh, "refresh", "r", false, "Fetch fresh data even if the cache is valid")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out, err := refresh.Resolve(ctx, refresh.ResolveConfig{
		Store:   st,
		Fetcher: newFetcher(cfg),
		TTL:     cfg.TTL(),
		Force:   flagRefresh,
		Logger:  log.Named("status"),
	})
	if err != nil {
		return err
	}

	printStatus(out, config.ResolvePlan(cfg), time.Now())
	return nil
}

func printStatus(out refresh.Outcome, plan usage.Plan, now time.Time) {
	s := out.Snapshot

	fmt.Println()
	fmt.Println(cli.RenderTitle("COPILOT PREMIUM REQUESTS"))
	fmt.Println()

	if s.Username != "" {
		fmt.Printf("  Account: %s\n", s.Username)
	}
	fmt.Printf("  %s  %s of %s (%s)\n\n",
		cli.RenderMiniBar(s.Percent, 30),
		cli.FormatRequests(s.Used), cli.FormatRequests(s.Limit), cli.FormatPercent(s.Percent))

	rows := [][]string{
		{"Used", cli.FormatRequests(s.Used)},
		{"Remaining", cli.FormatRequests(s.Remaining)},
		{"Resets", fmt.Sprintf("%s (in %s)", s.ResetAt.Local().Format("Jan 2 15:04"), cli.FormatCountdown(s.ResetAt.Sub(now)))},
	}
	if cost := s.EstimatedCost(plan.OveragePrice); cost > 0 {
		rows = append(rows, []string{"Estimated cost", cli.FormatCost(cost)})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "This Month",
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}))

	if models := s.Models(); len(models) > 0 {
		mrows := make([][]string, 0, len(models))
		for _, m := range models {
			share := 0.0
			if s.Used > 0 {
				share = m.Used / s.Used * 100
			}
			mrows = append(mrows, []string{m.Model, cli.FormatRequests(m.Used), cli.FormatPercent(share), cli.RenderMiniBar(share, 16)})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "By Model",
			Headers: []string{"Model", "Requests", "Share", ""},
			Rows:    mrows,
		}))
	}

	if out.FetchErr != nil {
		warnStyle := lipgloss.NewStyle().Foreground(cli.ColorOrange)
		fmt.Printf("  %s\n\n", warnStyle.Render("Showing cached data: "+out.FetchErr.Error()))
	}

	fmt.Printf("  Source: %s · updated %s\n\n", out.Source, cli.FormatAge(s.FetchedAt, now))
}
