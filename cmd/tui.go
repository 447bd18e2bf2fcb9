package cmd

import (
	"github.com/aifinance/finctl/internal/tui"

	"github.com/spf13/cobra"
)

var flagRefresh int

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive dashboard",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().IntVar(&flagRefresh, "refresh", 60, "Auto-refresh interval in seconds (0 disables)")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	return withSession(cmd.Context(), func(a *app) error {
		states, unsubscribe := a.session.Subscribe()
		defer unsubscribe()

		ctx := cmd.Context()
		a.session.StartRevalidation(ctx, a.cfg.Session.RevalidateInterval())

		return tui.Run(ctx, a.client, tui.Options{
			User:            a.session.User(),
			States:          states,
			RefreshInterval: secondsFlag(flagRefresh),
		})
	})
}
