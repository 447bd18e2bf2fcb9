// Package cmd implements the finctl CLI commands.
package cmd

import (
	"fmt"

	"github.com/aifinance/finctl/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [API]")
	fmt.Printf("    Base URL:         %s\n", cfg.API.BaseURL)
	fmt.Printf("    Timeout:          %s\n", cfg.API.Timeout())
	fmt.Printf("    Market timeout:   %s\n", cfg.API.MarketTimeout())
	fmt.Printf("    Predict timeout:  %s\n", cfg.API.PredictTimeout())
	fmt.Printf("    Slow call log:    %s\n", cfg.API.SlowCall())
	if cfg.API.RateLimitRPS > 0 {
		fmt.Printf("    Rate limit:       %.1f req/s\n", cfg.API.RateLimitRPS)
	}
	fmt.Println()

	fmt.Println("  [Session]")
	fmt.Printf("    Store:            %s\n", cfg.StorePath())
	fmt.Printf("    Revalidate every: %s\n", cfg.Session.RevalidateInterval())
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address: %s\n", cfg.Daemon.Addr)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Printf("  Log level: %s\n", cfg.LogLevel)
	fmt.Println()

	fmt.Println("  Run `finctl setup` to reconfigure.")
	return nil
}
