package components

import (
	"strings"

	"github.com/theirongolddev/copilot-usage/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// RenderStatusBar renders the bottom status bar: key hints on the left,
// data age on the right. The right side wins when space runs out.
func RenderStatusBar(t theme.Theme, width int, hints, right string) string {
	style := lipgloss.NewStyle().Foreground(t.TextMuted)

	left := " " + hints
	if right != "" {
		right += " "
	}
	room := width - lipgloss.Width(right)
	if room < 0 {
		return style.Render(ansi.Truncate(right, width, ""))
	}
	if lipgloss.Width(left) > room {
		left = ansi.Truncate(left, room, "…")
	}

	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	return style.Render(left + strings.Repeat(" ", max(padding, 0)) + right)
}
