package components

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/copilot-usage/internal/tui/theme"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ColorForPct returns the usage color for a percentage on the 0-100 scale.
func ColorForPct(t theme.Theme, pct float64) lipgloss.Color {
	switch {
	case pct >= 90:
		return t.Error
	case pct >= 75:
		return t.Warning
	case pct >= 50:
		return t.Caution
	default:
		return t.Success
	}
}

func clampUnit(pct float64) float64 {
	return min(max(pct/100, 0), 1)
}

// UsageBar renders a solid bar for pct (0-100 scale, clamped) followed by
// the percentage.
func UsageBar(t theme.Theme, pct float64, width int) string {
	color := ColorForPct(t, pct)
	pctStr := fmt.Sprintf("%5.1f%%", pct)
	barW := max(width-lipgloss.Width(pctStr)-1, 4)

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(barW),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.BarEmpty)

	pctStyle := lipgloss.NewStyle().Foreground(color).Bold(true)
	return bar.ViewAs(clampUnit(pct)) + " " + pctStyle.Render(pctStr)
}

// MiniBar renders a plain block bar without the bubbles renderer, for table
// cells.
func MiniBar(t theme.Theme, pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(clampUnit(pct)*float64(width) + 0.5)
	color := ColorForPct(t, pct)
	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(t.BarEmpty).Render(strings.Repeat("░", width-filled))
}
