package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/aifinance/finctl/internal/cli"
	"github.com/aifinance/finctl/internal/config"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func validateURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("enter an http(s) URL")
	}
	return nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return errors.New("enter a positive whole number")
	}
	return nil
}

func runSetup(_ *cobra.Command, _ []string) error {
	// Start from the file only so env overrides are not persisted.
	cfg, err := config.LoadFile(config.ConfigPath())
	if err != nil {
		cfg = config.DefaultConfig()
	}

	baseURL := cfg.API.BaseURL
	revalidate := strconv.Itoa(cfg.Session.RevalidateMinutes)
	theme := cfg.Appearance.Theme
	logLevel := cfg.LogLevel

	themes := make([]huh.Option[string], 0, len(cli.Palettes))
	for _, p := range cli.Palettes {
		themes = append(themes, huh.NewOption(p.Name, p.Name))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to finctl!").
				Description("Point finctl at your AI Finance Manager backend."),
			huh.NewInput().
				Title("Backend URL").
				Value(&baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Revalidate session every (minutes)").
				Value(&revalidate).
				Validate(validatePositiveInt),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themes...).
				Value(&theme),
			huh.NewSelect[string]().
				Title("Log level").
				Options(huh.NewOptions("debug", "info", "warn", "error")...).
				Value(&logLevel),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	cfg.Session.RevalidateMinutes, _ = strconv.Atoi(strings.TrimSpace(revalidate))
	cfg.Appearance.Theme = theme
	cfg.LogLevel = logLevel

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `finctl setup` anytime to reconfigure.")
	fmt.Println("  Next: `finctl login` or `finctl register`.")
	fmt.Println()
	return nil
}
