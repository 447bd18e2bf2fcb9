package cmd

import (
	"fmt"

	"github.com/aifinance/finctl/internal/cli"
	"github.com/aifinance/finctl/internal/model"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the backend is reachable",
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	return withClient(func(a *app) error {
		h, err := a.client.Health(cmd.Context())
		if err != nil {
			fmt.Printf("  Backend %s: %s\n", a.client.BaseURL(), cli.Bad("unreachable"))
			return err
		}
		fmt.Printf("  Backend %s: %s", a.client.BaseURL(), cli.Good(h.Status))
		if h.Version != "" {
			fmt.Printf(" (v%s)", h.Version)
		}
		fmt.Println()
		return nil
	})
}

// runDashboard is the default command: balances, budget alerts and the
// next-month forecast on one screen.
func runDashboard(cmd *cobra.Command, _ []string) error {
	return withSession(cmd.Context(), func(a *app) error {
		ctx := cmd.Context()
		u := a.session.User()
		currency := u.PreferredCurrency

		fmt.Println()
		fmt.Println(cli.RenderTitle("FINANCE  " + u.DisplayName()))
		fmt.Println()

		sum, err := a.client.BalanceSummary(ctx)
		if err != nil {
			return err
		}
		rows := [][]string{
			{"Accounts", cli.FormatNumber(int64(sum.AccountCount))},
			{"Total balance", cli.FormatMoney(sum.TotalBalance, currency)},
		}

		statuses, err := a.client.BudgetStatus(ctx)
		if err != nil {
			return err
		}
		over := 0
		for _, st := range statuses {
			if st.Alert {
				over++
			}
		}
		if len(statuses) > 0 {
			alerts := cli.Good("none")
			if over > 0 {
				alerts = cli.Warn(fmt.Sprintf("%d of %d", over, len(statuses)))
			}
			rows = append(rows, cli.Separator, []string{"Budget alerts", alerts})
		}

		pred := a.client.PredictExpenses(ctx, model.PredictionRequest{MonthsAhead: 1})
		total := cli.FormatMoney(pred.Value.Total, currency)
		if pred.Fallback {
			total += " " + cli.Muted("(default)")
		}
		rows = append(rows, cli.Separator, []string{"Next month (predicted)", total})

		fmt.Print(cli.RenderTable(cli.Table{Rows: rows}))
		return nil
	})
}
