package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aifinance/finctl/internal/cli"
	"github.com/aifinance/finctl/internal/model"
	"github.com/aifinance/finctl/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	flagBudgetLimit     string
	flagBudgetPeriod    string
	flagBudgetThreshold float64
)

var budgetsCmd = &cobra.Command{
	Use:     "budgets",
	Aliases: []string{"budget"},
	Short:   "List budgets",
	RunE:    runBudgetsList,
}

var budgetsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Spend against each budget",
	RunE:  runBudgetsStatus,
}

var budgetsForecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Project each budget to the end of its period",
	RunE:  runBudgetsForecast,
}

var budgetsCreateCmd = &cobra.Command{
	Use:   "create <category>",
	Short: "Set a spending limit for a category",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetsCreate,
}

var budgetsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a budget's limit, period or alert threshold",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetsUpdate,
}

var budgetsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a budget",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetsDelete,
}

func init() {
	for _, c := range []*cobra.Command{budgetsCreateCmd, budgetsUpdateCmd} {
		c.Flags().StringVar(&flagBudgetLimit, "limit", "", "Spending limit")
		c.Flags().StringVar(&flagBudgetPeriod, "period", string(model.BudgetMonthly), "weekly, monthly or yearly")
		c.Flags().Float64Var(&flagBudgetThreshold, "alert", 0.8, "Alert threshold as a fraction of the limit")
	}
	_ = budgetsCreateCmd.MarkFlagRequired("limit")

	budgetsCmd.AddCommand(budgetsStatusCmd, budgetsForecastCmd, budgetsCreateCmd, budgetsUpdateCmd, budgetsDeleteCmd)
	rootCmd.AddCommand(budgetsCmd)
}

func parsePeriod(s string) (model.BudgetPeriod, error) {
	p := model.BudgetPeriod(strings.ToLower(s))
	switch p {
	case model.BudgetWeekly, model.BudgetMonthly, model.BudgetYearly:
		return p, nil
	}
	return "", fmt.Errorf("invalid period %q", s)
}

func parseThreshold(v float64) (float64, error) {
	if v <= 0 || v > 1 {
		return 0, fmt.Errorf("alert threshold %.2f out of range (0, 1]", v)
	}
	return v, nil
}

func runBudgetsList(cmd *cobra.Command, _ []string) error {
	return withSession(cmd.Context(), func(a *app) error {
		budgets, err := a.client.ListBudgets(cmd.Context())
		if err != nil {
			return err
		}
		if len(budgets) == 0 {
			fmt.Println("\n  No budgets yet. Create one with `finctl budgets create <category> --limit ...`.")
			return nil
		}
		currency := a.session.User().PreferredCurrency

		rows := make([][]string, 0, len(budgets))
		for _, b := range budgets {
			rows = append(rows, []string{
				strconv.Itoa(b.ID),
				b.Category,
				string(b.Period),
				cli.FormatMoney(b.LimitAmount, currency),
				cli.FormatPercent(b.AlertThreshold * 100),
			})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Budgets",
			Headers: []string{"ID", "Category", "Period", "Limit", "Alert at"},
			Rows:    rows,
		}))
		return nil
	})
}

func runBudgetsStatus(cmd *cobra.Command, _ []string) error {
	return withSession(cmd.Context(), func(a *app) error {
		statuses, err := a.client.BudgetStatus(cmd.Context())
		if err != nil {
			return err
		}
		if len(statuses) == 0 {
			fmt.Println("\n  No budgets to report on.")
			return nil
		}
		currency := a.session.User().PreferredCurrency

		rows := make([][]string, 0, len(statuses))
		alerts := 0
		for _, st := range statuses {
			flag := ""
			if st.Alert {
				alerts++
				flag = cli.Bad("!")
			}
			rows = append(rows, []string{
				st.Budget.Category,
				cli.FormatMoney(st.Spent, currency),
				cli.FormatMoney(st.Budget.LimitAmount, currency),
				cli.RenderUsageBar(st.PercentageUsed, 20),
				cli.FormatPercent(st.PercentageUsed),
				flag,
			})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Budget Status",
			Headers: []string{"Category", "Spent", "Limit", "Usage", "Used", ""},
			Rows:    rows,
		}))
		if alerts > 0 {
			fmt.Println(cli.Warn(fmt.Sprintf("  %d of %d budgets past their alert threshold.", alerts, len(statuses))))
		}
		return nil
	})
}

func runBudgetsForecast(cmd *cobra.Command, _ []string) error {
	now := time.Now()
	return withSession(cmd.Context(), func(a *app) error {
		budgets, err := a.client.ListBudgets(cmd.Context())
		if err != nil {
			return err
		}
		if len(budgets) == 0 {
			fmt.Println("\n  No budgets to forecast.")
			return nil
		}

		earliest := now
		for _, b := range budgets {
			if start, _ := pipeline.PeriodBounds(b.Period, now); start.Before(earliest) {
				earliest = start
			}
		}
		res, err := loadWindow(a, cmd, model.TransactionFilter{
			Type:      model.TransactionExpense,
			StartDate: model.NewDate(earliest),
			EndDate:   model.NewDate(now),
		})
		if err != nil {
			return err
		}
		currency := a.session.User().PreferredCurrency

		forecasts := pipeline.ForecastBudgets(budgets, res.Transactions, now)
		rows := make([][]string, 0, len(forecasts))
		for _, f := range forecasts {
			projected := cli.FormatMoney(f.ProjectedSpend, currency)
			if f.OnTrack {
				projected = cli.Good(projected)
			} else {
				projected = cli.Bad(projected)
			}
			rows = append(rows, []string{
				f.Category,
				cli.FormatMoney(f.CurrentSpend, currency),
				cli.FormatMoney(f.DailyBurnRate, currency) + "/day",
				projected,
				cli.FormatMoney(f.Limit, currency),
				strconv.Itoa(f.DaysRemaining) + "d",
			})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Budget Forecast",
			Headers: []string{"Category", "Spent", "Burn", "Projected", "Limit", "Left"},
			Rows:    rows,
		}))
		return nil
	})
}

func runBudgetsCreate(cmd *cobra.Command, args []string) error {
	limit, err := parseAmount(flagBudgetLimit)
	if err != nil {
		return err
	}
	period, err := parsePeriod(flagBudgetPeriod)
	if err != nil {
		return err
	}
	threshold, err := parseThreshold(flagBudgetThreshold)
	if err != nil {
		return err
	}

	return withSession(cmd.Context(), func(a *app) error {
		b, err := a.client.CreateBudget(cmd.Context(), model.BudgetCreate{
			Category:       args[0],
			LimitAmount:    limit,
			Period:         period,
			AlertThreshold: threshold,
		})
		if err != nil {
			return err
		}
		fmt.Printf("  Created %s budget %d for %s: %s\n",
			b.Period, b.ID, b.Category, cli.FormatMoney(b.LimitAmount, a.session.User().PreferredCurrency))
		return nil
	})
}

func runBudgetsUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	var in model.BudgetUpdate
	flags := cmd.Flags()
	if flags.Changed("limit") {
		limit, err := parseAmount(flagBudgetLimit)
		if err != nil {
			return err
		}
		in.LimitAmount = &limit
	}
	if flags.Changed("period") {
		p, err := parsePeriod(flagBudgetPeriod)
		if err != nil {
			return err
		}
		in.Period = &p
	}
	if flags.Changed("alert") {
		t, err := parseThreshold(flagBudgetThreshold)
		if err != nil {
			return err
		}
		in.AlertThreshold = &t
	}
	if in == (model.BudgetUpdate{}) {
		return errors.New("nothing to update")
	}

	return withSession(cmd.Context(), func(a *app) error {
		b, err := a.client.UpdateBudget(cmd.Context(), id, in)
		if err != nil {
			return err
		}
		fmt.Printf("  Updated budget %d (%s)\n", b.ID, b.Category)
		return nil
	})
}

func runBudgetsDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return withSession(cmd.Context(), func(a *app) error {
		if err := a.client.DeleteBudget(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("  Deleted budget %d\n", id)
		return nil
	})
}
