package model

import "github.com/shopspring/decimal"

// StockQuote is returned by /market/stocks/{symbol}.
type StockQuote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent string          `json:"change_percent"`
	Volume        int64           `json:"volume"`
	LastUpdated   string          `json:"last_updated"`
	Unavailable   bool            `json:"-"`
}

// CryptoQuote is returned by /market/crypto/{symbol}.
type CryptoQuote struct {
	Symbol      string          `json:"symbol"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Change24h   float64         `json:"change_24h"`
	Volume24h   decimal.Decimal `json:"volume_24h"`
	MarketCap   decimal.Decimal `json:"market_cap"`
	Unavailable bool            `json:"-"`
}

// MarketOverview is returned by /market/overview.
type MarketOverview struct {
	Stocks           []StockQuote  `json:"stocks"`
	Cryptocurrencies []CryptoQuote `json:"cryptocurrencies"`
	Timestamp        string        `json:"timestamp"`
}
