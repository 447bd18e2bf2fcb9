package cmd

import (
	"fmt"
	"strings"

	"github.com/aifinance/finctl/internal/cli"
	"github.com/aifinance/finctl/internal/model"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Market overview of tracked stocks and crypto",
	RunE:  runMarketOverview,
}

var marketStockCmd = &cobra.Command{
	Use:   "stock <symbol>...",
	Short: "Stock quotes",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMarketStock,
}

var marketCryptoCmd = &cobra.Command{
	Use:   "crypto <symbol>...",
	Short: "Cryptocurrency quotes",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMarketCrypto,
}

func init() {
	marketCmd.AddCommand(marketStockCmd, marketCryptoCmd)
	rootCmd.AddCommand(marketCmd)
}

func colorChange(d decimal.Decimal, s string) string {
	switch {
	case d.IsPositive():
		return cli.Good(s)
	case d.IsNegative():
		return cli.Bad(s)
	}
	return s
}

func stockRow(q model.StockQuote) []string {
	if q.Unavailable {
		return []string{q.Symbol, cli.Muted("unavailable"), "", ""}
	}
	return []string{
		q.Symbol,
		cli.FormatMoney(q.Price, "USD"),
		colorChange(q.Change, cli.FormatSigned(q.Change, "USD")+" "+q.ChangePercent),
		cli.FormatNumber(q.Volume),
	}
}

func cryptoRow(q model.CryptoQuote) []string {
	if q.Unavailable {
		return []string{q.Symbol, cli.Muted("unavailable"), "", ""}
	}
	change := decimal.NewFromFloat(q.Change24h)
	return []string{
		strings.TrimSpace(q.Symbol + " " + cli.Muted(q.Name)),
		cli.FormatMoney(q.Price, "USD"),
		colorChange(change, cli.FormatPercent(q.Change24h)),
		cli.FormatMoney(q.MarketCap, "USD"),
	}
}

var (
	stockHeaders  = []string{"Symbol", "Price", "Change", "Volume"}
	cryptoHeaders = []string{"Symbol", "Price", "24h", "Market cap"}
)

func runMarketOverview(cmd *cobra.Command, _ []string) error {
	return withSession(cmd.Context(), func(a *app) error {
		res := a.client.MarketOverview(cmd.Context())
		ov := res.Value

		if len(ov.Stocks) > 0 {
			rows := make([][]string, 0, len(ov.Stocks))
			for _, q := range ov.Stocks {
				rows = append(rows, stockRow(q))
			}
			fmt.Println()
			fmt.Print(cli.RenderTable(cli.Table{Title: "Stocks", Headers: stockHeaders, Rows: rows}))
		}
		if len(ov.Cryptocurrencies) > 0 {
			rows := make([][]string, 0, len(ov.Cryptocurrencies))
			for _, q := range ov.Cryptocurrencies {
				rows = append(rows, cryptoRow(q))
			}
			fmt.Println()
			fmt.Print(cli.RenderTable(cli.Table{Title: "Crypto", Headers: cryptoHeaders, Rows: rows}))
		}
		if len(ov.Stocks) == 0 && len(ov.Cryptocurrencies) == 0 {
			fmt.Println("\n  No market data available.")
		}
		fallbackNote(res.Fallback)
		return nil
	})
}

func runMarketStock(cmd *cobra.Command, args []string) error {
	return withSession(cmd.Context(), func(a *app) error {
		rows := make([][]string, 0, len(args))
		for _, sym := range args {
			rows = append(rows, stockRow(a.client.Stock(cmd.Context(), sym).Value))
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{Title: "Stocks", Headers: stockHeaders, Rows: rows}))
		return nil
	})
}

func runMarketCrypto(cmd *cobra.Command, args []string) error {
	return withSession(cmd.Context(), func(a *app) error {
		rows := make([][]string, 0, len(args))
		for _, sym := range args {
			rows = append(rows, cryptoRow(a.client.Crypto(cmd.Context(), sym).Value))
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{Title: "Crypto", Headers: cryptoHeaders, Rows: rows}))
		return nil
	})
}
