package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/aifinance/finctl/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		amount   string
		currency string
		want     string
	}{
		{"1234.5", "USD", "$1,234.50"},
		{"0", "usd", "$0.00"},
		{"-3", "CHF", "-3.00 CHF"},
		{"1000000", "EUR", "€1,000,000.00"},
		{"12.345", "", "12.35"},
	}
	for _, c := range cases {
		got := FormatMoney(decimal.RequireFromString(c.amount), c.currency)
		assert.Equal(t, c.want, got, c.amount)
	}
}

func TestFormatSigned(t *testing.T) {
	assert.Equal(t, "+$5.00", FormatSigned(decimal.NewFromInt(5), "USD"))
	assert.Equal(t, "-$5.00", FormatSigned(decimal.NewFromInt(-5), "USD"))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "1,234,567", FormatNumber(1234567))
	assert.Equal(t, "-1,000", FormatNumber(-1000))
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "expired", FormatRemaining(0))
	assert.Equal(t, "45s", FormatRemaining(45*time.Second))
	assert.Equal(t, "1h 2m", FormatRemaining(62*time.Minute))
	assert.Equal(t, "1d 2h", FormatRemaining(26*time.Hour))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "-", FormatDate(model.Date{}))
	d := model.NewDate(time.Date(2026, 2, 20, 15, 0, 0, 0, time.UTC))
	assert.Equal(t, "2026-02-20", FormatDate(d))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "Coffee a…", Truncate("Coffee at Starbucks", 9))
}

func TestRenderTableAlignsColumns(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"Name", "Balance"},
		Rows: [][]string{
			{"Checking", "$10.00"},
			Separator,
			{"Total", "$1,010.00"},
		},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 7)
	assert.Contains(t, out, "Checking")
	assert.Contains(t, out, "$1,010.00")
}

func TestRenderTableEmpty(t *testing.T) {
	assert.Empty(t, RenderTable(Table{}))
}

func TestPaletteByName(t *testing.T) {
	assert.Equal(t, "terminal", PaletteByName("terminal").Name)
	assert.Equal(t, "flexoki-dark", PaletteByName("nope").Name)
	assert.Contains(t, PaletteNames(), "catppuccin-mocha")
}
