package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/copilot-usage/internal/config"
	"github.com/theirongolddev/copilot-usage/internal/tui"
	"github.com/theirongolddev/copilot-usage/internal/tui/theme"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errSetupAborted = errors.New("setup aborted")

var setupCmd = &cobra.Command{
	Use:     "setup",
	Aliases: []string{"reset", "reconfigure"},
	Short:   "Configure the GitHub token, plan and theme",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runSetupWizard()
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetupWizard() error {
	cfg, err := config.LoadFrom(configPath())
	if err != nil {
		return err
	}

	vals := tui.SetupValues{
		Token:    cfg.GitHub.Token,
		Username: cfg.GitHub.Username,
		Plan:     strings.ToLower(cfg.Plan.Name),
		Theme:    cfg.Appearance.Theme,
	}
	form := tui.NewSetupForm(&vals, config.PlanNames(), theme.Names(loadThemes(zap.NewNop())))
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errSetupAborted
		}
		return fmt.Errorf("setup form: %w", err)
	}

	cfg.GitHub.Token = strings.TrimSpace(vals.Token)
	cfg.GitHub.Username = strings.TrimSpace(vals.Username)
	cfg.Plan.Name = vals.Plan
	cfg.Appearance.Theme = vals.Theme

	if err := config.SaveTo(configPath(), cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", configPath())
	verifyToken(cfg)
	fmt.Println("  Run `copilot-usage setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}

// verifyToken resolves the login behind the saved token and prints it.
func verifyToken(cfg config.Config) {
	client := newClient(cfg)
	if client == nil {
		return
	}

	var (
		login string
		err   error
	)
	_ = spinner.New().
		Title("Checking token...").
		Action(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			login, err = client.AuthenticatedUser(ctx)
		}).
		Run()

	if err != nil {
		fmt.Printf("  Token check failed: %v\n", err)
		return
	}
	fmt.Printf("  Authenticated as %s\n", login)
}
