package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aifinance/finctl/internal/cli"
	"github.com/aifinance/finctl/internal/model"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	flagDays        int
	flagCategory    string
	flagTxnType     string
	flagAccountID   int
	flagLimit       int
	flagAmount      string
	flagDescription string
	flagDate        string
)

var transactionsCmd = &cobra.Command{
	Use:     "transactions",
	Aliases: []string{"txn", "tx"},
	Short:   "List recent transactions",
	RunE:    runTransactionsList,
}

var transactionsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Income and expense totals by category",
	RunE:  runTransactionsSummary,
}

var transactionsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Record a transaction",
	Long:  "Record a transaction. Without --category the backend's categorizer suggests one from the description.",
	RunE:  runTransactionsCreate,
}

var transactionsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a transaction",
	Args:  cobra.ExactArgs(1),
	RunE:  runTransactionsUpdate,
}

var transactionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a transaction",
	Args:  cobra.ExactArgs(1),
	RunE:  runTransactionsDelete,
}

var transactionsCategorizeCmd = &cobra.Command{
	Use:   "categorize <id>...",
	Short: "Re-categorize transactions with the backend model",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTransactionsCategorize,
}

func init() {
	transactionsCmd.PersistentFlags().IntVarP(&flagDays, "days", "n", 30, "Time window in days")
	transactionsCmd.PersistentFlags().StringVarP(&flagCategory, "category", "c", "", "Filter to category")
	transactionsCmd.PersistentFlags().StringVarP(&flagTxnType, "type", "t", "", "income or expense")
	transactionsCmd.PersistentFlags().IntVar(&flagAccountID, "account", 0, "Filter to account ID")
	transactionsCmd.Flags().IntVar(&flagLimit, "limit", 50, "Maximum rows")

	for _, c := range []*cobra.Command{transactionsCreateCmd, transactionsUpdateCmd} {
		c.Flags().StringVar(&flagAmount, "amount", "", "Amount")
		c.Flags().StringVar(&flagDescription, "description", "", "Description")
		c.Flags().StringVar(&flagDate, "date", "", "Date (YYYY-MM-DD, default today)")
	}
	_ = transactionsCreateCmd.MarkFlagRequired("amount")

	transactionsCmd.AddCommand(
		transactionsSummaryCmd,
		transactionsCreateCmd,
		transactionsUpdateCmd,
		transactionsDeleteCmd,
		transactionsCategorizeCmd,
	)
	rootCmd.AddCommand(transactionsCmd)
}

// windowFilter builds the filter for the --days window and filter flags.
func windowFilter(now time.Time) (model.TransactionFilter, time.Time) {
	since := now.AddDate(0, 0, -flagDays)
	return model.TransactionFilter{
		Category:  flagCategory,
		Type:      strings.ToLower(flagTxnType),
		AccountID: flagAccountID,
		StartDate: model.NewDate(since),
		EndDate:   model.NewDate(now),
	}, since
}

func validTxnType(s string) bool {
	return s == "" || s == model.TransactionIncome || s == model.TransactionExpense
}

func runTransactionsList(cmd *cobra.Command, _ []string) error {
	f, _ := windowFilter(time.Now())
	if !validTxnType(f.Type) {
		return fmt.Errorf("invalid type %q", flagTxnType)
	}
	f.Limit = flagLimit

	return withSession(cmd.Context(), func(a *app) error {
		txns, err := a.client.ListTransactions(cmd.Context(), f)
		if err != nil {
			return err
		}
		if len(txns) == 0 {
			fmt.Printf("\n  No transactions in the last %d days.\n", flagDays)
			return nil
		}
		currency := a.session.User().PreferredCurrency

		rows := make([][]string, 0, len(txns))
		for _, t := range txns {
			amount := t.Amount
			if t.IsExpense() {
				amount = amount.Neg()
			}
			desc := ""
			if t.Description != nil {
				desc = *t.Description
			}
			rows = append(rows, []string{
				cli.FormatDate(t.Date),
				strconv.Itoa(t.ID),
				cli.Truncate(desc, 32),
				t.Category,
				cli.FormatSigned(amount, currency),
			})
		}

		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   fmt.Sprintf("Transactions  Last %dd", flagDays),
			Headers: []string{"Date", "ID", "Description", "Category", "Amount"},
			Rows:    rows,
		}))
		return nil
	})
}

func runTransactionsSummary(cmd *cobra.Command, _ []string) error {
	now := time.Now()
	since := now.AddDate(0, 0, -flagDays)

	return withSession(cmd.Context(), func(a *app) error {
		sum, err := a.client.TransactionSummary(cmd.Context(), model.NewDate(since), model.NewDate(now))
		if err != nil {
			return err
		}
		currency := a.session.User().PreferredCurrency

		cats := make([]string, 0, len(sum.ByCategory))
		for c := range sum.ByCategory {
			cats = append(cats, c)
		}
		sort.Slice(cats, func(i, j int) bool {
			return sum.ByCategory[cats[i]].Expenses.GreaterThan(sum.ByCategory[cats[j]].Expenses)
		})

		rows := make([][]string, 0, len(cats)+4)
		for _, c := range cats {
			ct := sum.ByCategory[c]
			rows = append(rows, []string{
				c,
				strconv.Itoa(ct.Count),
				cli.FormatMoney(ct.Income, currency),
				cli.FormatMoney(ct.Expenses, currency),
			})
		}
		rows = append(rows, cli.Separator)
		rows = append(rows, []string{
			"Total",
			strconv.Itoa(sum.TransactionCount),
			cli.FormatMoney(sum.TotalIncome, currency),
			cli.FormatMoney(sum.TotalExpenses, currency),
		})

		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   fmt.Sprintf("Summary  Last %dd", flagDays),
			Headers: []string{"Category", "Count", "Income", "Expenses"},
			Rows:    rows,
		}))
		fmt.Printf("  Net: %s\n", cli.FormatSigned(sum.Net, currency))
		return nil
	})
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("invalid amount %q (must be positive)", s)
	}
	return d, nil
}

func parseDateFlag(s string, now time.Time) (model.Date, error) {
	if s == "" {
		return model.NewDate(now), nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return model.Date{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return d, nil
}

func runTransactionsCreate(cmd *cobra.Command, _ []string) error {
	amount, err := parseAmount(flagAmount)
	if err != nil {
		return err
	}
	date, err := parseDateFlag(flagDate, time.Now())
	if err != nil {
		return err
	}
	typ := strings.ToLower(flagTxnType)
	if typ == "" {
		typ = model.TransactionExpense
	}
	if !validTxnType(typ) {
		return fmt.Errorf("invalid type %q", flagTxnType)
	}
	if flagAccountID <= 0 {
		return errors.New("--account is required")
	}

	return withSession(cmd.Context(), func(a *app) error {
		in := model.TransactionCreate{
			AccountID:   flagAccountID,
			Amount:      amount,
			Type:        typ,
			Category:    flagCategory,
			Description: flagDescription,
			Date:        date,
		}
		if in.Category == "" && in.Description != "" {
			res := a.client.Categorize(cmd.Context(), in.Description)
			in.Category = res.Value.Category
			if !res.Fallback {
				fmt.Printf("  Suggested category: %s (%s confidence)\n",
					in.Category, cli.FormatPercent(res.Value.Confidence*100))
			}
		}

		t, err := a.client.CreateTransaction(cmd.Context(), in)
		if err != nil {
			return err
		}
		fmt.Printf("  Recorded transaction %d: %s %s in %s\n",
			t.ID, t.Type, cli.FormatMoney(t.Amount, a.session.User().PreferredCurrency), t.Category)
		return nil
	})
}

func runTransactionsUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	var in model.TransactionUpdate
	flags := cmd.Flags()
	if flags.Changed("amount") {
		amount, err := parseAmount(flagAmount)
		if err != nil {
			return err
		}
		in.Amount = &amount
	}
	if flags.Changed("type") {
		typ := strings.ToLower(flagTxnType)
		if !validTxnType(typ) || typ == "" {
			return fmt.Errorf("invalid type %q", flagTxnType)
		}
		in.Type = &typ
	}
	if flags.Changed("category") {
		in.Category = &flagCategory
	}
	if flags.Changed("description") {
		in.Description = &flagDescription
	}
	if flags.Changed("date") {
		d, err := parseDateFlag(flagDate, time.Now())
		if err != nil {
			return err
		}
		in.Date = &d
	}
	if in == (model.TransactionUpdate{}) {
		return errors.New("nothing to update")
	}

	return withSession(cmd.Context(), func(a *app) error {
		t, err := a.client.UpdateTransaction(cmd.Context(), id, in)
		if err != nil {
			return err
		}
		fmt.Printf("  Updated transaction %d\n", t.ID)
		return nil
	})
}

func runTransactionsDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return withSession(cmd.Context(), func(a *app) error {
		if err := a.client.DeleteTransaction(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("  Deleted transaction %d\n", id)
		return nil
	})
}

func runTransactionsCategorize(cmd *cobra.Command, args []string) error {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	return withSession(cmd.Context(), func(a *app) error {
		res, err := a.client.BulkCategorize(cmd.Context(), ids)
		if err != nil {
			return err
		}
		fmt.Printf("  Categorized %d of %d transactions", res.Updated, res.Total)
		if res.Failed > 0 {
			fmt.Printf(" (%s)", cli.Warn(fmt.Sprintf("%d failed", res.Failed)))
		}
		fmt.Println()
		return nil
	})
}
