package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/copilot-usage/internal/cli"
	"github.com/theirongolddev/copilot-usage/internal/store"
	"github.com/theirongolddev/copilot-usage/internal/tui/components"

	"github.com/charmbracelet/lipgloss"
)

// Modal is the overlay currently shown over the dashboard.
type Modal int

const (
	ModalNone Modal = iota
	ModalThemePicker
	ModalCommandMenu
	ModalHelp
	ModalCacheInfo
)

// command is an entry of the command menu.
type command int

const (
	cmdRefresh command = iota
	cmdTheme
	cmdAutoRefresh
	cmdCacheInfo
	cmdReconfigure
	cmdHelp
	cmdQuit
)

var commandMenu = []struct {
	cmd   command
	key   string
	label string
}{
	{cmdRefresh, "r", "Refresh now"},
	{cmdTheme, "t", "Change theme"},
	{cmdAutoRefresh, "R", "Toggle auto refresh"},
	{cmdCacheInfo, "s", "Cache info"},
	{cmdReconfigure, "c", "Reconfigure token"},
	{cmdHelp, "h", "Help"},
	{cmdQuit, "q", "Quit"},
}

const dialogWidth = 46

func renderModal(f Frame) string {
	w := min(dialogWidth, f.Width-2)
	switch f.Modal {
	case ModalThemePicker:
		return themePicker(f, w)
	case ModalCommandMenu:
		items := make([]components.MenuItem, len(commandMenu))
		for i, c := range commandMenu {
			items[i] = components.MenuItem{Key: c.key, Label: c.label}
		}
		return components.Dialog(f.Theme, "Commands", components.Menu(f.Theme, items, f.MenuCursor, w-4),
			"j/k move · enter run · esc close", w)
	case ModalHelp:
		return helpDialog(f, w)
	case ModalCacheInfo:
		return cacheInfoDialog(f, w)
	default:
		return ""
	}
}

func themePicker(f Frame, w int) string {
	items := make([]components.MenuItem, len(f.ThemeNames))
	for i, name := range f.ThemeNames {
		items[i] = components.MenuItem{Label: name}
	}
	return components.Dialog(f.Theme, "Theme", components.Menu(f.Theme, items, f.ThemeCursor, w-4),
		"j/k preview · enter apply · esc cancel", w)
}

func helpDialog(f Frame, w int) string {
	t := f.Theme
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted)

	var b strings.Builder
	for i, bind := range f.Keys.helpBindings() {
		h := bind.Help()
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s  %s", keyStyle.Render(fmt.Sprintf("%-7s", h.Key)), descStyle.Render(h.Desc))
	}
	return components.Dialog(t, "Keyboard Shortcuts", b.String(), "Press any key to close", w)
}

func cacheInfoDialog(f Frame, w int) string {
	t := f.Theme
	label := lipgloss.NewStyle().Foreground(t.TextMuted)
	value := lipgloss.NewStyle().Foreground(t.TextPrimary)

	entry := store.Entry{Timestamp: f.LastUpdated}
	status := store.StatusOf(entry, !f.LastUpdated.IsZero(), f.TTL, f.Now)
	statusColor := t.Success
	switch status {
	case store.StatusExpired:
		statusColor = t.Warning
	case store.StatusMissing:
		statusColor = t.Error
	}

	next := "paused"
	if f.AutoRefresh {
		switch {
		case f.Fetching:
			next = "in progress"
		case status == store.StatusFresh:
			next = "in " + cli.FormatCountdown(f.LastUpdated.Add(f.TTL).Sub(f.Now))
		default:
			next = "due"
		}
	}

	updated := "never"
	if !f.LastUpdated.IsZero() {
		updated = f.LastUpdated.Local().Format("2006-01-02 15:04:05") + " (" + cli.FormatAge(f.LastUpdated, f.Now) + ")"
	}

	rows := []struct{ k, v string }{
		{"Status", lipgloss.NewStyle().Foreground(statusColor).Bold(true).Render(status.String())},
		{"Last updated", value.Render(updated)},
		{"TTL", value.Render(fmt.Sprintf("%d minutes", int(f.TTL.Minutes())))},
		{"Next refresh", value.Render(next)},
		{"Backend", value.Render(f.CacheBackend)},
		{"Location", value.Render(f.CachePath)},
	}
	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(label.Render(fmt.Sprintf("%-13s", r.k)) + r.v)
	}
	return components.Dialog(t, "Cache", b.String(), "Press any key to close", w)
}
