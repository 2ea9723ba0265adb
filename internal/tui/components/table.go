package components

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/copilot-usage/internal/tui/theme"
	"github.com/theirongolddev/copilot-usage/internal/usage"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
)

// ModelTable renders the per-model breakdown starting at row offset, at most
// maxRows rows, within width columns. A footer notes hidden rows.
func ModelTable(t theme.Theme, rows []usage.ModelUsage, offset, maxRows, width int) string {
	muted := lipgloss.NewStyle().Foreground(t.TextMuted)
	text := lipgloss.NewStyle().Foreground(t.TextPrimary)

	if len(rows) == 0 {
		return muted.Render("No premium requests this month")
	}

	const usedW, pctW = 8, 7
	barW := 0
	nameW := width - usedW - pctW - 2
	if width >= 60 {
		barW = min(20, width/4)
		nameW -= barW + 1
	}
	nameW = max(nameW, 6)

	offset = max(min(offset, len(rows)-1), 0)
	end := min(offset+max(maxRows, 1), len(rows))

	var b strings.Builder
	b.WriteString(muted.Render(fmt.Sprintf("%-*s %*s %*s", nameW, "Model", usedW, "Used", pctW, "Quota")))
	for _, r := range rows[offset:end] {
		b.WriteString("\n")
		name := ansi.Truncate(r.Model, nameW, "…")
		line := text.Render(fmt.Sprintf("%-*s", nameW, name)) + " " +
			text.Render(fmt.Sprintf("%*s", usedW, humanize.FormatFloat("#,###.#", r.Used))) + " " +
			lipgloss.NewStyle().Foreground(ColorForPct(t, r.Percent)).Render(fmt.Sprintf("%*.1f%%", pctW-1, r.Percent))
		if barW > 0 {
			line += " " + MiniBar(t, r.Percent, barW)
		}
		b.WriteString(line)
	}

	if hidden := len(rows) - (end - offset); hidden > 0 {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(t.TextDim).Render(
			fmt.Sprintf("rows %d-%d of %d  (j/k to scroll)", offset+1, end, len(rows))))
	}
	return b.String()
}
