package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aifinance/finctl/internal/cli"
	"github.com/aifinance/finctl/internal/model"
	"github.com/aifinance/finctl/internal/pipeline"

	"github.com/spf13/cobra"
)

var flagShowDaily bool

var spendingCmd = &cobra.Command{
	Use:   "spending",
	Short: "Spending stats computed from every account's transactions",
	RunE:  runSpending,
}

func init() {
	spendingCmd.Flags().IntVarP(&flagDays, "days", "n", 30, "Time window in days")
	spendingCmd.Flags().StringVarP(&flagCategory, "category", "c", "", "Filter to category (substring match)")
	spendingCmd.Flags().BoolVar(&flagShowDaily, "daily", false, "Include a per-day breakdown")
	rootCmd.AddCommand(spendingCmd)
}

// loadWindow pages in all transactions for the window across accounts.
func loadWindow(a *app, cmd *cobra.Command, f model.TransactionFilter) (*pipeline.LoadResult, error) {
	progress("  Loading transactions...\n")
	res, err := pipeline.LoadTransactions(cmd.Context(), a.client, f, func(current, total int) {
		progress("\r  Accounts [%d/%d]", current, total)
	})
	if err != nil {
		return nil, err
	}
	progress("\r  Loaded %s transactions from %d accounts    \n",
		cli.FormatNumber(int64(len(res.Transactions))), len(res.Accounts))
	if res.AccountErrors > 0 {
		fmt.Println(cli.Warn(fmt.Sprintf("  %d accounts could not be loaded; totals are partial.", res.AccountErrors)))
	}
	return res, nil
}

func runSpending(cmd *cobra.Command, _ []string) error {
	now := time.Now()
	since := now.AddDate(0, 0, -flagDays)
	prevSince := since.AddDate(0, 0, -flagDays)
	f := model.TransactionFilter{StartDate: model.NewDate(prevSince), EndDate: model.NewDate(now)}

	return withSession(cmd.Context(), func(a *app) error {
		res, err := loadWindow(a, cmd, f)
		if err != nil {
			return err
		}
		txns := res.Transactions
		if flagCategory != "" {
			txns = pipeline.FilterByCategory(txns, flagCategory)
		}
		stats := pipeline.Summarize(txns, since, now)
		if stats.Transactions == 0 {
			fmt.Printf("\n  No transactions in the last %d days.\n", flagDays)
			return nil
		}
		prev := pipeline.Summarize(txns, prevSince, since.AddDate(0, 0, -1))
		currency := a.session.User().PreferredCurrency

		fmt.Println()
		fmt.Println(cli.RenderTitle(fmt.Sprintf("SPENDING  Last %dd", flagDays)))
		fmt.Println()

		perDay := cli.FormatMoney(stats.ExpensePerDay, currency) + "/day"
		if prev.ExpensePerDay.IsPositive() {
			perDay += fmt.Sprintf("  (%s vs prev %dd)",
				cli.FormatSigned(stats.ExpensePerDay.Sub(prev.ExpensePerDay), currency), flagDays)
		}

		fmt.Print(cli.RenderTable(cli.Table{
			Rows: [][]string{
				{"Transactions", cli.FormatNumber(int64(stats.Transactions))},
				{"Active days", strconv.Itoa(stats.ActiveDays)},
				cli.Separator,
				{"Income", cli.FormatMoney(stats.Income, currency)},
				{"Expenses", cli.FormatMoney(stats.Expenses, currency)},
				{"Net", cli.FormatSigned(stats.Net, currency)},
				cli.Separator,
				{"Spend/day", perDay},
				{"Average expense", cli.FormatMoney(stats.AverageExpense, currency)},
				{"Largest expense", cli.FormatMoney(stats.LargestExpense, currency)},
				{"Projected monthly", cli.FormatMoney(stats.ProjectedMonthly, currency)},
			},
		}))

		cats := pipeline.AggregateCategories(txns, since, now)
		if len(cats) > 0 {
			rows := make([][]string, 0, len(cats))
			for _, c := range cats {
				rows = append(rows, []string{
					c.Category,
					strconv.Itoa(c.Transactions),
					cli.FormatMoney(c.Expenses, currency),
					cli.FormatPercent(c.SharePercent),
				})
			}
			fmt.Println()
			fmt.Print(cli.RenderTable(cli.Table{
				Title:   "By Category",
				Headers: []string{"Category", "Count", "Expenses", "Share"},
				Rows:    rows,
			}))
		}

		if flagShowDaily {
			days := pipeline.AggregateDays(txns, since, now)
			rows := make([][]string, 0, len(days))
			for _, d := range days {
				rows = append(rows, []string{
					d.Date.Format("2006-01-02"),
					cli.FormatDayOfWeek(int(d.Date.Weekday())),
					strconv.Itoa(d.Transactions),
					cli.FormatMoney(d.Income, currency),
					cli.FormatMoney(d.Expenses, currency),
				})
			}
			fmt.Println()
			fmt.Print(cli.RenderTable(cli.Table{
				Title:   "Daily",
				Headers: []string{"Date", "Day", "Count", "Income", "Expenses"},
				Rows:    rows,
			}))
		}
		return nil
	})
}
