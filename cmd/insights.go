package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aifinance/finctl/internal/cli"
	"github.com/aifinance/finctl/internal/model"

	"github.com/spf13/cobra"
)

var (
	flagMonthsAhead int
	flagTrendMonths int
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predicted expenses for the coming months",
	RunE:  runPredict,
}

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Month-over-month spending trends by category",
	RunE:  runTrends,
}

var categorizeCmd = &cobra.Command{
	Use:   "categorize <description>...",
	Short: "Suggest categories for transaction descriptions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCategorize,
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the categories the backend assigns",
	RunE:  runCategories,
}

func init() {
	predictCmd.Flags().IntVar(&flagMonthsAhead, "months", 1, "Months ahead to predict")
	predictCmd.Flags().StringSlice("category", nil, "Restrict to categories")
	trendsCmd.Flags().IntVar(&flagTrendMonths, "months", 6, "Months of history to compare")

	rootCmd.AddCommand(predictCmd, trendsCmd, categorizeCmd, categoriesCmd)
}

func runPredict(cmd *cobra.Command, _ []string) error {
	cats, _ := cmd.Flags().GetStringSlice("category")
	return withSession(cmd.Context(), func(a *app) error {
		res := a.client.PredictExpenses(cmd.Context(), model.PredictionRequest{
			MonthsAhead: flagMonthsAhead,
			Categories:  cats,
		})
		p := res.Value
		currency := a.session.User().PreferredCurrency

		names := make([]string, 0, len(p.Predictions))
		for k := range p.Predictions {
			names = append(names, k)
		}
		sort.Slice(names, func(i, j int) bool {
			return p.Predictions[names[i]].GreaterThan(p.Predictions[names[j]])
		})

		rows := make([][]string, 0, len(names)+2)
		for _, n := range names {
			rows = append(rows, []string{n, cli.FormatMoney(p.Predictions[n], currency)})
		}
		rows = append(rows, cli.Separator)
		rows = append(rows, []string{"Total", cli.FormatMoney(p.Total, currency)})

		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   fmt.Sprintf("Predicted Expenses  %s", cli.FormatDate(p.PredictionDate)),
			Headers: []string{"Category", "Predicted"},
			Rows:    rows,
		}))
		fmt.Printf("  Confidence: %s\n", p.Confidence)
		if p.Message != "" {
			fmt.Println(cli.Muted("  " + p.Message))
		}
		fallbackNote(res.Fallback)
		return nil
	})
}

func runTrends(cmd *cobra.Command, _ []string) error {
	return withSession(cmd.Context(), func(a *app) error {
		res := a.client.SpendingTrends(cmd.Context(), flagTrendMonths)
		if len(res.Value) == 0 {
			fmt.Println("\n  Not enough history to compute trends.")
			fallbackNote(res.Fallback)
			return nil
		}
		currency := a.session.User().PreferredCurrency

		rows := make([][]string, 0, len(res.Value))
		for _, t := range res.Value {
			rows = append(rows, []string{
				t.Category,
				cli.FormatMoney(t.MonthlyAverage, currency),
				cli.FormatMoney(t.LastMonthAmount, currency),
				cli.FormatTrend(t.Trend),
				cli.FormatPercent(t.PercentageChange),
			})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   fmt.Sprintf("Spending Trends  %d months", flagTrendMonths),
			Headers: []string{"Category", "Monthly avg", "Last month", "Trend", "Change"},
			Rows:    rows,
		}))
		return nil
	})
}

func runCategorize(cmd *cobra.Command, args []string) error {
	return withSession(cmd.Context(), func(a *app) error {
		var (
			results  []model.CategoryResult
			fallback bool
		)
		if len(args) == 1 {
			res := a.client.Categorize(cmd.Context(), args[0])
			results, fallback = []model.CategoryResult{res.Value}, res.Fallback
		} else {
			res := a.client.CategorizeBatch(cmd.Context(), args)
			results, fallback = res.Value, res.Fallback
		}

		rows := make([][]string, 0, len(results))
		for _, r := range results {
			rows = append(rows, []string{
				cli.Truncate(r.Description, 40),
				r.Category,
				cli.FormatPercent(r.Confidence * 100),
			})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Headers: []string{"Description", "Category", "Confidence"},
			Rows:    rows,
		}))
		fallbackNote(fallback)
		return nil
	})
}

func runCategories(cmd *cobra.Command, _ []string) error {
	return withSession(cmd.Context(), func(a *app) error {
		res := a.client.Categories(cmd.Context())
		fmt.Println()
		fmt.Printf("  %s\n", strings.Join(res.Value, ", "))
		fallbackNote(res.Fallback)
		return nil
	})
}
