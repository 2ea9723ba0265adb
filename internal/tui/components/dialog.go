package components

import (
	"github.com/theirongolddev/copilot-usage/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Dialog renders a focused, bordered box with a title and a footer hint.
func Dialog(t theme.Theme, title, body, footer string, width int) string {
	inner := max(width-4, 10)

	titleStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	footerStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	content := titleStyle.Render(title) + "\n\n" + body
	if footer != "" {
		content += "\n\n" + footerStyle.Render(footer)
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderFocus).
		Padding(0, 1).
		Width(inner + 2).
		Render(content)
}

// Badge renders a short inverted label such as STALE.
func Badge(text string, fg, bg lipgloss.Color) string {
	return lipgloss.NewStyle().
		Foreground(fg).
		Background(bg).
		Bold(true).
		Padding(0, 1).
		Render(text)
}

// MenuItem is one selectable line in a list dialog.
type MenuItem struct {
	Key   string
	Label string
}

// Menu renders items with the selected one highlighted.
func Menu(t theme.Theme, items []MenuItem, selected, width int) string {
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)
	selStyle := lipgloss.NewStyle().Background(t.Highlight).Width(max(width, 10))

	lines := make([]string, len(items))
	for i, it := range items {
		line := "  "
		if i == selected {
			line = "› "
		}
		if it.Key != "" {
			line += keyStyle.Render(it.Key) + "  "
		}
		line += labelStyle.Render(it.Label)
		if i == selected {
			line = selStyle.Render(line)
		}
		lines[i] = line
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
