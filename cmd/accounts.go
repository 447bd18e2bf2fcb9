package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aifinance/finctl/internal/cli"
	"github.com/aifinance/finctl/internal/model"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	flagAccountName    string
	flagAccountType    string
	flagAccountBalance string
)

var accountsCmd = &cobra.Command{
	Use:     "accounts",
	Aliases: []string{"acct"},
	Short:   "List accounts",
	RunE:    runAccountsList,
}

var accountsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Balance totals by account type",
	RunE:  runAccountsSummary,
}

var accountsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Open a new account",
	RunE:  runAccountsCreate,
}

var accountsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Rename an account or change its balance or type",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountsUpdate,
}

var accountsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountsDelete,
}

func init() {
	for _, c := range []*cobra.Command{accountsCreateCmd, accountsUpdateCmd} {
		c.Flags().StringVar(&flagAccountName, "name", "", "Account name")
		c.Flags().StringVar(&flagAccountType, "type", string(model.AccountChecking), "Account type")
		c.Flags().StringVar(&flagAccountBalance, "balance", "0", "Balance")
		c.Flags().StringVar(&flagCurrency, "currency", "", "Currency code")
	}
	_ = accountsCreateCmd.MarkFlagRequired("name")

	accountsCmd.AddCommand(accountsSummaryCmd, accountsCreateCmd, accountsUpdateCmd, accountsDeleteCmd)
	rootCmd.AddCommand(accountsCmd)
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseAccountType(s string) (model.AccountType, error) {
	t := model.AccountType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		names := make([]string, len(model.AccountTypes))
		for i, v := range model.AccountTypes {
			names[i] = string(v)
		}
		return "", fmt.Errorf("unknown account type %q (want one of %s)", s, strings.Join(names, ", "))
	}
	return t, nil
}

func runAccountsList(cmd *cobra.Command, _ []string) error {
	return withSession(cmd.Context(), func(a *app) error {
		accounts, err := a.client.ListAccounts(cmd.Context())
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			fmt.Println("\n  No accounts yet. Create one with `finctl accounts create --name ...`.")
			return nil
		}

		rows := make([][]string, 0, len(accounts))
		for _, acc := range accounts {
			rows = append(rows, []string{
				strconv.Itoa(acc.ID),
				acc.Name,
				string(acc.Type),
				cli.FormatMoney(acc.Balance, acc.Currency),
			})
		}

		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Accounts",
			Headers: []string{"ID", "Name", "Type", "Balance"},
			Rows:    rows,
		}))
		return nil
	})
}

func runAccountsSummary(cmd *cobra.Command, _ []string) error {
	return withSession(cmd.Context(), func(a *app) error {
		sum, err := a.client.BalanceSummary(cmd.Context())
		if err != nil {
			return err
		}
		currency := a.session.User().PreferredCurrency

		types := make([]string, 0, len(sum.ByType))
		for t := range sum.ByType {
			types = append(types, t)
		}
		sort.Strings(types)

		rows := make([][]string, 0, len(types)+2)
		for _, t := range types {
			tb := sum.ByType[t]
			rows = append(rows, []string{t, strconv.Itoa(tb.Count), cli.FormatMoney(tb.Balance, currency)})
		}
		rows = append(rows, cli.Separator)
		rows = append(rows, []string{"Total", strconv.Itoa(sum.AccountCount), cli.FormatMoney(sum.TotalBalance, currency)})

		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Balances",
			Headers: []string{"Type", "Accounts", "Balance"},
			Rows:    rows,
		}))
		return nil
	})
}

func runAccountsCreate(cmd *cobra.Command, _ []string) error {
	t, err := parseAccountType(flagAccountType)
	if err != nil {
		return err
	}
	bal, err := decimal.NewFromString(flagAccountBalance)
	if err != nil {
		return fmt.Errorf("invalid balance %q", flagAccountBalance)
	}

	return withSession(cmd.Context(), func(a *app) error {
		currency := strings.ToUpper(flagCurrency)
		if currency == "" {
			currency = a.session.User().PreferredCurrency
		}
		acc, err := a.client.CreateAccount(cmd.Context(), model.AccountCreate{
			Name:     flagAccountName,
			Type:     t,
			Balance:  bal,
			Currency: currency,
		})
		if err != nil {
			return err
		}
		fmt.Printf("  Created account %d (%s, %s)\n", acc.ID, acc.Name, cli.FormatMoney(acc.Balance, acc.Currency))
		return nil
	})
}

func runAccountsUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	var in model.AccountUpdate
	flags := cmd.Flags()
	if flags.Changed("name") {
		in.Name = &flagAccountName
	}
	if flags.Changed("type") {
		t, err := parseAccountType(flagAccountType)
		if err != nil {
			return err
		}
		in.Type = &t
	}
	if flags.Changed("balance") {
		bal, err := decimal.NewFromString(flagAccountBalance)
		if err != nil {
			return fmt.Errorf("invalid balance %q", flagAccountBalance)
		}
		in.Balance = &bal
	}
	if flags.Changed("currency") {
		c := strings.ToUpper(flagCurrency)
		in.Currency = &c
	}
	if in == (model.AccountUpdate{}) {
		return errors.New("nothing to update")
	}

	return withSession(cmd.Context(), func(a *app) error {
		acc, err := a.client.UpdateAccount(cmd.Context(), id, in)
		if err != nil {
			return err
		}
		fmt.Printf("  Updated account %d (%s, %s)\n", acc.ID, acc.Name, cli.FormatMoney(acc.Balance, acc.Currency))
		return nil
	})
}

func runAccountsDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return withSession(cmd.Context(), func(a *app) error {
		if err := a.client.DeleteAccount(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("  Deleted account %d\n", id)
		return nil
	})
}
