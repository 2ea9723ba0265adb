// Package export renders usage as a single JSON line for status bars such as
// waybar.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/copilot-usage/internal/cli"
	"github.com/theirongolddev/copilot-usage/internal/refresh"
	"github.com/theirongolddev/copilot-usage/internal/store"
	"github.com/theirongolddev/copilot-usage/internal/usage"

	"go.uber.org/zap"
)

// DefaultFormat is the text template used when none is configured.
const DefaultFormat = "{percentage}%"

// CSS classes, from most to least severe.
const (
	ClassCritical = "copilot-critical"
	ClassWarning  = "copilot-warning"
	ClassNormal   = "copilot-normal"
	ClassLow      = "copilot-low"
	ClassStale    = "copilot-stale"
)

// Output is the waybar custom module payload.
type Output struct {
	Text       string `json:"text"`
	Tooltip    string `json:"tooltip"`
	Class      string `json:"class"`
	Percentage int    `json:"percentage"`
}

// Class maps a usage percentage to its CSS class.
func Class(pct float64, stale bool) string {
	var c string
	switch {
	case pct >= 90:
		c = ClassCritical
	case pct >= 75:
		c = ClassWarning
	case pct >= 50:
		c = ClassNormal
	default:
		c = ClassLow
	}
	if stale {
		c += " " + ClassStale
	}
	return c
}

// Text expands the placeholders in tmpl.
func Text(tmpl string, s usage.Snapshot) string {
	if tmpl == "" {
		tmpl = DefaultFormat
	}
	return strings.NewReplacer(
		"{percentage}", strconv.Itoa(int(s.Percent)),
		"{used}", cli.FormatRequests(s.Used),
		"{limit}", cli.FormatRequests(s.Limit),
		"{remaining}", cli.FormatRequests(s.Remaining),
	).Replace(tmpl)
}

// Tooltip is the multi-line hover text.
func Tooltip(s usage.Snapshot, price float64, stale bool, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "GitHub Copilot Usage\n%s / %s (%.1f%%)\nResets: %s",
		cli.FormatRequests(s.Used), cli.FormatRequests(s.Limit), s.Percent,
		s.ResetAt.UTC().Format("January 02, 2006 at 15:04 UTC"))

	if models := s.Models(); len(models) > 0 {
		b.WriteString("\n\nPer-model usage:")
		for _, m := range models {
			share := 0.0
			if s.Used > 0 {
				share = m.Used / s.Used * 100
			}
			fmt.Fprintf(&b, "\n  %s: %.0f (%.1f%%)", m.Model, m.Used, share)
		}
	}

	if cost := s.EstimatedCost(price); cost > 0 {
		fmt.Fprintf(&b, "\n\nEstimated cost: %s", cli.FormatCost(cost))
	}

	if stale {
		fmt.Fprintf(&b, "\n\nData is stale (updated %s)", cli.FormatAge(s.FetchedAt, now))
	}
	return b.String()
}

// Format builds the full payload for a snapshot.
func Format(s usage.Snapshot, tmpl string, price float64, stale bool, now time.Time) Output {
	return Output{
		Text:       Text(tmpl, s),
		Tooltip:    Tooltip(s, price, stale, now),
		Class:      Class(s.Percent, stale),
		Percentage: int(s.Percent),
	}
}

// Options configures a single export run.
type Options struct {
	Store        store.Store
	Fetcher      refresh.Fetcher
	TTL          time.Duration
	FetchTimeout time.Duration
	Force        bool
	Format       string
	OveragePrice float64
	Now          func() time.Time
	Logger       *zap.Logger
}

// Run resolves usage once and writes one JSON line to w. It fails only when
// no data is available at all.
func Run(ctx context.Context, opts Options, w io.Writer) error {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	out, err := refresh.Resolve(ctx, refresh.ResolveConfig{
		Store:        opts.Store,
		Fetcher:      opts.Fetcher,
		TTL:          opts.TTL,
		FetchTimeout: opts.FetchTimeout,
		Force:        opts.Force,
		Now:          opts.Now,
		Logger:       opts.Logger,
	})
	if err != nil {
		if usage.IsUnauthorized(err) {
			return fmt.Errorf("export: GitHub rejected the token, run `copilot-usage setup` to update it: %w", err)
		}
		return fmt.Errorf("export: no usage data available: %w", err)
	}

	payload := Format(out.Snapshot, opts.Format, opts.OveragePrice, out.Stale, opts.Now())
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		return fmt.Errorf("export: writing output: %w", err)
	}
	return nil
}
