package tui

import (
	"errors"
	"strings"

	"github.com/theirongolddev/copilot-usage/internal/github"

	"github.com/charmbracelet/huh"
)

// SetupValues holds the answers collected by the setup form.
type SetupValues struct {
	Token    string
	Username string
	Plan     string
	Theme    string
}

// NewSetupForm builds the first-run wizard. Answers are written into v,
// which should be pre-filled with the current settings.
func NewSetupForm(v *SetupValues, plans, themes []string) *huh.Form {
	planOpts := make([]huh.Option[string], len(plans))
	for i, p := range plans {
		planOpts[i] = huh.NewOption(p, p)
	}
	themeOpts := make([]huh.Option[string], len(themes))
	for i, name := range themes {
		themeOpts[i] = huh.NewOption(name, name)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to copilot-usage").
				Description("Track your GitHub Copilot premium request usage.\n\n"+
					"Create a fine-grained token with the \"Plan\" user permission (read)\n"+
					"at github.com/settings/personal-access-tokens."),
			huh.NewInput().
				Title("GitHub token").
				Placeholder("github_pat_... or ghp_...").
				EchoMode(huh.EchoModePassword).
				Value(&v.Token).
				Validate(validateToken),
			huh.NewInput().
				Title("GitHub username").
				Description("Leave blank to use the token's account.").
				Value(&v.Username),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Copilot plan").
				Options(planOpts...).
				Value(&v.Plan),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&v.Theme),
		),
	)
}

func validateToken(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("a token is required")
	}
	if !github.ValidToken(s) {
		return errors.New("token should start with ghp_ or github_pat_")
	}
	return nil
}
