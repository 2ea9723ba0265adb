package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/copilot-usage/internal/cli"
	"github.com/theirongolddev/copilot-usage/internal/refresh"
	"github.com/theirongolddev/copilot-usage/internal/store"
	"github.com/theirongolddev/copilot-usage/internal/tui/components"
	"github.com/theirongolddev/copilot-usage/internal/tui/theme"
	"github.com/theirongolddev/copilot-usage/internal/usage"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Layout thresholds.
const (
	minWidth        = 40
	minHeight       = 8
	compactWidth    = 60
	maxContentWidth = 100
)

var spinnerFrames = spinner.MiniDot.Frames

// Frame is everything Render needs to draw one screen.
type Frame struct {
	State refresh.State
	Modal Modal
	Theme theme.Theme

	Width  int
	Height int
	Now    time.Time

	SpinnerFrame int
	Fetching     bool // a fetch is in flight, including background refreshes
	AutoRefresh  bool
	TTL          time.Duration
	LastUpdated  time.Time
	CachePath    string
	CacheBackend string
	OveragePrice float64

	ThemeNames  []string
	ThemeCursor int
	MenuCursor  int
	TableOffset int
	ShowDetail  bool
	Keys        keyMap
}

// Render draws the dashboard. It is a pure function of f.
func Render(f Frame) string {
	if f.Width <= 0 || f.Height <= 0 {
		return ""
	}
	if f.Width < minWidth || f.Height < minHeight {
		return renderTiny(f)
	}

	bodyH := f.Height - 1
	var body string
	if f.Modal != ModalNone {
		body = lipgloss.Place(f.Width, bodyH, lipgloss.Center, lipgloss.Center, renderModal(f),
			lipgloss.WithWhitespaceBackground(f.Theme.Background))
	} else {
		body = renderBody(f, bodyH)
	}
	body = padHeight(truncateHeight(body, bodyH), bodyH)

	return body + "\n" + renderStatusBar(f)
}

func renderBody(f Frame, h int) string {
	switch st := f.State.(type) {
	case refresh.Loading:
		return centered(f, loadingCard(f, "Fetching Copilot usage"), h)

	case refresh.Ready:
		return dashboard(f, st.Snapshot, st.Stale, h)

	case refresh.Refreshing:
		if st.Previous == nil {
			return centered(f, loadingCard(f, "Refreshing usage"), h)
		}
		return dashboard(f, *st.Previous, staleAt(f), h)

	case refresh.Failed:
		banner := errorBanner(f, st.Err)
		if st.Previous == nil {
			return centered(f, banner, h)
		}
		rest := h - lipgloss.Height(banner)
		return banner + "\n" + dashboard(f, *st.Previous, staleAt(f), rest)

	default:
		return centered(f, "unknown state", h)
	}
}

func staleAt(f Frame) bool {
	return !store.IsFresh(store.Entry{Timestamp: f.LastUpdated}, f.TTL, f.Now)
}

func busy(f Frame) bool {
	_, refreshing := f.State.(refresh.Refreshing)
	return refreshing || f.Fetching
}

func spinnerGlyph(f Frame) string {
	return spinnerFrames[f.SpinnerFrame%len(spinnerFrames)]
}

func contentWidth(f Frame) int {
	return min(f.Width, maxContentWidth)
}

func centered(f Frame, block string, h int) string {
	return lipgloss.Place(f.Width, h, lipgloss.Center, lipgloss.Center, block,
		lipgloss.WithWhitespaceBackground(f.Theme.Background))
}

func loadingCard(f Frame, label string) string {
	t := f.Theme
	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderFocus).
		Padding(1, 3)

	logo := lipgloss.NewStyle().Foreground(t.Accent).Bold(true).Render("◈ Copilot Usage")
	spin := lipgloss.NewStyle().Foreground(t.Accent).Render(spinnerGlyph(f))
	text := lipgloss.NewStyle().Foreground(t.TextMuted).Render(" " + label + "...")

	return cardStyle.Render(logo + "\n\n" + spin + text)
}

func errorTitle(fe *usage.FetchError) string {
	if fe == nil {
		return "Refresh failed"
	}
	switch fe.Kind {
	case usage.KindUnauthorized:
		return "GitHub rejected the token"
	case usage.KindRateLimited:
		return "GitHub rate limit reached"
	case usage.KindMalformedResponse:
		return "GitHub returned an unexpected response"
	default:
		return "Could not reach GitHub"
	}
}

func errorBanner(f Frame, fe *usage.FetchError) string {
	t := f.Theme
	w := contentWidth(f)

	title := "✗ " + errorTitle(fe)
	if fe != nil && fe.Status != 0 {
		title += fmt.Sprintf(" (HTTP %d)", fe.Status)
	}

	lines := []string{lipgloss.NewStyle().Foreground(t.Error).Bold(true).Render(title)}
	if fe != nil && fe.Hint != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(t.TextMuted).Render(fe.Hint))
	}

	hint := "r retry  ·  d details"
	if fe != nil && fe.Kind == usage.KindUnauthorized {
		hint = "c reconfigure  ·  " + hint
	}
	lines = append(lines, lipgloss.NewStyle().Foreground(t.TextDim).Render(hint))

	if f.ShowDetail && fe != nil {
		detail := ansi.Wordwrap(fe.Error(), max(w-4, 10), " ")
		lines = append(lines, "", lipgloss.NewStyle().Foreground(t.TextMuted).Render(detail))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Error).
		Padding(0, 1).
		Width(w - 2).
		Render(strings.Join(lines, "\n"))
}

func header(f Frame, snap usage.Snapshot, stale bool) string {
	t := f.Theme
	w := contentWidth(f)

	left := lipgloss.NewStyle().Foreground(t.Accent).Bold(true).Render("◈ Copilot Usage")
	if snap.Username != "" && w >= compactWidth {
		left += lipgloss.NewStyle().Foreground(t.TextMuted).Render(" · " + snap.Username)
	}

	var badges []string
	if busy(f) {
		badges = append(badges, lipgloss.NewStyle().Foreground(t.Accent).Render(spinnerGlyph(f)+" refreshing"))
	}
	if stale {
		badges = append(badges, components.Badge("STALE", t.Background, t.Warning))
	}
	right := strings.Join(badges, " ")

	gap := w - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return ansi.Truncate(left+" "+right, w, "…")
	}
	return left + strings.Repeat(" ", gap) + right
}

func dashboard(f Frame, snap usage.Snapshot, stale bool, h int) string {
	t := f.Theme
	w := contentWidth(f)
	muted := lipgloss.NewStyle().Foreground(t.TextMuted)
	text := lipgloss.NewStyle().Foreground(t.TextPrimary)

	reset := snap.ResetAt.Sub(f.Now)
	parts := []string{
		header(f, snap, stale),
		"",
		muted.Render("Premium requests  ") +
			text.Bold(true).Render(cli.FormatRequests(snap.Used)) +
			muted.Render(" of "+cli.FormatRequests(snap.Limit)),
		components.UsageBar(t, snap.Percent, w),
	}

	if w < compactWidth {
		parts = append(parts, muted.Render(fmt.Sprintf("%s left · resets in %s",
			cli.FormatRequests(snap.Remaining), cli.FormatCountdown(reset))))
	} else {
		widths := components.LayoutRow(w, 4)
		price := f.OveragePrice
		if price <= 0 {
			price = usage.DefaultOveragePrice
		}
		cost := snap.EstimatedCost(price)
		costColor := t.TextPrimary
		if cost > 0 {
			costColor = t.Warning
		}
		parts = append(parts, components.CardRow([]string{
			components.MetricCard(t, "Used", cli.FormatRequests(snap.Used), cli.FormatPercent(snap.Percent), components.ColorForPct(t, snap.Percent), widths[0]),
			components.MetricCard(t, "Remaining", cli.FormatRequests(snap.Remaining), "of "+cli.FormatRequests(snap.Limit), "", widths[1]),
			components.MetricCard(t, "Resets in", cli.FormatCountdown(reset), snap.ResetAt.Format("Jan 2"), "", widths[2]),
			components.MetricCard(t, "Est. overage", cli.FormatCost(cost), cli.FormatRequests(snap.Overage())+" over", costColor, widths[3]),
		}))
	}

	top := strings.Join(parts, "\n")
	// card border (2) + title (1) + table header (1)
	rows := h - lipgloss.Height(top) - 4
	if rows < 1 {
		return top
	}
	table := components.ModelTable(t, snap.Models(), f.TableOffset, rows-1, components.CardInnerWidth(w))
	return top + "\n" + components.ContentCard(t, "Models", table, w)
}

func renderStatusBar(f Frame) string {
	hints := "[r]efresh [t]heme [/]menu [?]help [q]uit"
	if f.Width < compactWidth {
		hints = "[r] [t] [/] [?] [q]"
	}

	right := "updated " + cli.FormatAge(f.LastUpdated, f.Now)
	if f.LastUpdated.IsZero() {
		right = "no data"
	}
	if !f.AutoRefresh {
		right += " · auto off"
	}
	return components.RenderStatusBar(f.Theme, f.Width, hints, right)
}

// renderTiny is the fallback for terminals below the usable size: one line,
// truncated to the width.
func renderTiny(f Frame) string {
	var line string
	switch st := f.State.(type) {
	case refresh.Loading:
		line = spinnerGlyph(f) + " loading"
	case refresh.Ready:
		line = tinySummary(st.Snapshot)
		if st.Stale {
			line += " (stale)"
		}
	case refresh.Refreshing:
		line = spinnerGlyph(f)
		if st.Previous != nil {
			line += " " + tinySummary(*st.Previous)
		}
	case refresh.Failed:
		line = "! " + errorTitle(st.Err)
		if st.Previous != nil {
			line = "! " + tinySummary(*st.Previous)
		}
	}
	return ansi.Truncate(line, f.Width, "…")
}

func tinySummary(s usage.Snapshot) string {
	return fmt.Sprintf("Copilot %.0f%% (%s/%s)", s.Percent, cli.FormatRequests(s.Used), cli.FormatRequests(s.Limit))
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}
