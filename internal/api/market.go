package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/aifinance/finctl/internal/model"
)

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func marketPath(kind, symbol string) string {
	return "/market/" + kind + "/" + url.PathEscape(symbol)
}

// Stock fetches a stock quote.
func (c *Client) Stock(ctx context.Context, symbol string) Result[model.StockQuote] {
	symbol = normalizeSymbol(symbol)
	return fallbackCall(ctx, c, &Request{
		Method:  http.MethodGet,
		Path:    marketPath("stocks", symbol),
		Timeout: c.market,
	}, func() model.StockQuote {
		return model.StockQuote{Symbol: symbol, Unavailable: true}
	})
}

// Crypto fetches a cryptocurrency quote.
func (c *Client) Crypto(ctx context.Context, symbol string) Result[model.CryptoQuote] {
	symbol = normalizeSymbol(symbol)
	return fallbackCall(ctx, c, &Request{
		Method:  http.MethodGet,
		Path:    marketPath("crypto", symbol),
		Timeout: c.market,
	}, func() model.CryptoQuote {
		return model.CryptoQuote{Symbol: symbol, Unavailable: true}
	})
}

// MarketOverview fetches the headline stocks and cryptocurrencies.
func (c *Client) MarketOverview(ctx context.Context) Result[model.MarketOverview] {
	return fallbackCall(ctx, c, &Request{
		Method:  http.MethodGet,
		Path:    "/market/overview",
		Timeout: c.market,
	}, func() model.MarketOverview {
		return model.MarketOverview{Stocks: []model.StockQuote{}, Cryptocurrencies: []model.CryptoQuote{}}
	})
}
