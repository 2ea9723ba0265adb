// Package theme defines the dashboard color themes.
package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color roles used throughout the TUI.
type Theme struct {
	Name        string         `yaml:"name"`
	Background  lipgloss.Color `yaml:"background"`   // Main app background
	Surface     lipgloss.Color `yaml:"surface"`      // Card/dialog backgrounds
	Highlight   lipgloss.Color `yaml:"highlight"`    // Selected row, active menu item
	Border      lipgloss.Color `yaml:"border"`       // Subtle borders
	BorderFocus lipgloss.Color `yaml:"border_focus"` // Dialog borders
	TextDim     lipgloss.Color `yaml:"text_dim"`     // Hints, disabled
	TextMuted   lipgloss.Color `yaml:"text_muted"`   // Labels, metadata
	TextPrimary lipgloss.Color `yaml:"text_primary"`
	Accent      lipgloss.Color `yaml:"accent"`
	Success     lipgloss.Color `yaml:"success"`
	Warning     lipgloss.Color `yaml:"warning"`
	Caution     lipgloss.Color `yaml:"caution"`
	Error       lipgloss.Color `yaml:"error"`
	BarEmpty    lipgloss.Color `yaml:"bar_empty"`
}

// Dark is the default theme.
var Dark = Theme{
	Name:        "dark",
	Background:  lipgloss.Color("#1E1E1E"),
	Surface:     lipgloss.Color("#252526"),
	Highlight:   lipgloss.Color("#44475A"),
	Border:      lipgloss.Color("#44475A"),
	BorderFocus: lipgloss.Color("#6272A4"),
	TextDim:     lipgloss.Color("#6272A4"),
	TextMuted:   lipgloss.Color("#A0A4B8"),
	TextPrimary: lipgloss.Color("#F8F8F2"),
	Accent:      lipgloss.Color("#8BE9FD"),
	Success:     lipgloss.Color("#50FA7B"),
	Warning:     lipgloss.Color("#FFB86C"),
	Caution:     lipgloss.Color("#F1FA8C"),
	Error:       lipgloss.Color("#FF5555"),
	BarEmpty:    lipgloss.Color("#282A36"),
}

// Light is a high-key theme for bright terminals.
var Light = Theme{
	Name:        "light",
	Background:  lipgloss.Color("#FAFAFA"),
	Surface:     lipgloss.Color("#F0F0F0"),
	Highlight:   lipgloss.Color("#E6E6E6"),
	Border:      lipgloss.Color("#C8C8C8"),
	BorderFocus: lipgloss.Color("#787878"),
	TextDim:     lipgloss.Color("#A0A0A0"),
	TextMuted:   lipgloss.Color("#808080"),
	TextPrimary: lipgloss.Color("#3C3C3C"),
	Accent:      lipgloss.Color("#2A6FDB"),
	Success:     lipgloss.Color("#228B22"),
	Warning:     lipgloss.Color("#FF8C00"),
	Caution:     lipgloss.Color("#B8860B"),
	Error:       lipgloss.Color("#DC143C"),
	BarEmpty:    lipgloss.Color("#DCDCDC"),
}

// Dracula follows the Dracula palette.
var Dracula = Theme{
	Name:        "dracula",
	Background:  lipgloss.Color("#282A36"),
	Surface:     lipgloss.Color("#303241"),
	Highlight:   lipgloss.Color("#44475A"),
	Border:      lipgloss.Color("#44475A"),
	BorderFocus: lipgloss.Color("#BD93F9"),
	TextDim:     lipgloss.Color("#6272A4"),
	TextMuted:   lipgloss.Color("#9AA3C7"),
	TextPrimary: lipgloss.Color("#F8F8F2"),
	Accent:      lipgloss.Color("#BD93F9"),
	Success:     lipgloss.Color("#50FA7B"),
	Warning:     lipgloss.Color("#FFB86C"),
	Caution:     lipgloss.Color("#F1FA8C"),
	Error:       lipgloss.Color("#FF5555"),
	BarEmpty:    lipgloss.Color("#44475A"),
}

// Nord is a cool arctic theme.
var Nord = Theme{
	Name:        "nord",
	Background:  lipgloss.Color("#2E3440"),
	Surface:     lipgloss.Color("#3B4252"),
	Highlight:   lipgloss.Color("#434C5E"),
	Border:      lipgloss.Color("#4C566A"),
	BorderFocus: lipgloss.Color("#88C0D0"),
	TextDim:     lipgloss.Color("#4C566A"),
	TextMuted:   lipgloss.Color("#A3ABB9"),
	TextPrimary: lipgloss.Color("#D8DEE9"),
	Accent:      lipgloss.Color("#88C0D0"),
	Success:     lipgloss.Color("#A3BE8C"),
	Warning:     lipgloss.Color("#D08770"),
	Caution:     lipgloss.Color("#EBCB8B"),
	Error:       lipgloss.Color("#BF616A"),
	BarEmpty:    lipgloss.Color("#3B4252"),
}

// Monokai follows the classic Monokai palette.
var Monokai = Theme{
	Name:        "monokai",
	Background:  lipgloss.Color("#272822"),
	Surface:     lipgloss.Color("#2F302A"),
	Highlight:   lipgloss.Color("#49483E"),
	Border:      lipgloss.Color("#49483E"),
	BorderFocus: lipgloss.Color("#66D9EF"),
	TextDim:     lipgloss.Color("#75715E"),
	TextMuted:   lipgloss.Color("#A59F85"),
	TextPrimary: lipgloss.Color("#F8F8F2"),
	Accent:      lipgloss.Color("#66D9EF"),
	Success:     lipgloss.Color("#A6E22E"),
	Warning:     lipgloss.Color("#FD971F"),
	Caution:     lipgloss.Color("#E6DB74"),
	Error:       lipgloss.Color("#F92672"),
	BarEmpty:    lipgloss.Color("#49483E"),
}

// Gruvbox is a retro warm theme.
var Gruvbox = Theme{
	Name:        "gruvbox",
	Background:  lipgloss.Color("#282828"),
	Surface:     lipgloss.Color("#32302F"),
	Highlight:   lipgloss.Color("#504945"),
	Border:      lipgloss.Color("#665C54"),
	BorderFocus: lipgloss.Color("#83A598"),
	TextDim:     lipgloss.Color("#7C6F64"),
	TextMuted:   lipgloss.Color("#A89984"),
	TextPrimary: lipgloss.Color("#EBDBB2"),
	Accent:      lipgloss.Color("#83A598"),
	Success:     lipgloss.Color("#B8BB26"),
	Warning:     lipgloss.Color("#FE8019"),
	Caution:     lipgloss.Color("#FABD2F"),
	Error:       lipgloss.Color("#FB4934"),
	BarEmpty:    lipgloss.Color("#3C3836"),
}

// CatppuccinMocha is a warm pastel theme with soft, soothing colors.
var CatppuccinMocha = Theme{
	Name:        "catppuccin",
	Background:  lipgloss.Color("#1E1E2E"),
	Surface:     lipgloss.Color("#313244"),
	Highlight:   lipgloss.Color("#45475A"),
	Border:      lipgloss.Color("#585B70"),
	BorderFocus: lipgloss.Color("#89B4FA"),
	TextDim:     lipgloss.Color("#6C7086"),
	TextMuted:   lipgloss.Color("#A6ADC8"),
	TextPrimary: lipgloss.Color("#CDD6F4"),
	Accent:      lipgloss.Color("#89B4FA"),
	Success:     lipgloss.Color("#A6E3A1"),
	Warning:     lipgloss.Color("#FAB387"),
	Caution:     lipgloss.Color("#F9E2AF"),
	Error:       lipgloss.Color("#F38BA8"),
	BarEmpty:    lipgloss.Color("#45475A"),
}

// TokyoNight is a deep blue night theme.
var TokyoNight = Theme{
	Name:        "tokyonight",
	Background:  lipgloss.Color("#1A1B26"),
	Surface:     lipgloss.Color("#24283B"),
	Highlight:   lipgloss.Color("#292E42"),
	Border:      lipgloss.Color("#3B4261"),
	BorderFocus: lipgloss.Color("#7AA2F7"),
	TextDim:     lipgloss.Color("#565F89"),
	TextMuted:   lipgloss.Color("#A9B1D6"),
	TextPrimary: lipgloss.Color("#C0CAF5"),
	Accent:      lipgloss.Color("#7AA2F7"),
	Success:     lipgloss.Color("#9ECE6A"),
	Warning:     lipgloss.Color("#FF9E64"),
	Caution:     lipgloss.Color("#E0AF68"),
	Error:       lipgloss.Color("#F7768E"),
	BarEmpty:    lipgloss.Color("#292E42"),
}

// Builtin lists the shipped themes in picker order.
var Builtin = []Theme{Dark, Light, Dracula, Nord, Monokai, Gruvbox, CatppuccinMocha, TokyoNight}

// Find returns the theme called name from list, or Dark if there is none.
func Find(list []Theme, name string) Theme {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, t := range list {
		if t.Name == name {
			return t
		}
	}
	return Dark
}

// Index returns the position of name in list, or 0.
func Index(list []Theme, name string) int {
	for i, t := range list {
		if t.Name == name {
			return i
		}
	}
	return 0
}

// Names returns the names of list in order.
func Names(list []Theme) []string {
	out := make([]string, len(list))
	for i, t := range list {
		out[i] = t.Name
	}
	return out
}
