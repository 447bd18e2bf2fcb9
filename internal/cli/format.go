// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aifinance/finctl/internal/model"

	"github.com/shopspring/decimal"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
}

// FormatMoney formats an amount with two decimals, thousands separators and
// the currency symbol when one is known.
// e.g., (1234.5, "USD") -> "$1,234.50", (-3, "CHF") -> "-3.00 CHF"
func FormatMoney(d decimal.Decimal, currency string) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	amount := FormatAmount(d)
	currency = strings.ToUpper(currency)
	if sym, ok := currencySymbols[currency]; ok {
		return sign + sym + amount
	}
	if currency == "" {
		return sign + amount
	}
	return sign + amount + " " + currency
}

// FormatAmount formats an amount with two decimals and thousands separators.
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")
	n, err := strconv.ParseInt(intPart, 10, 64)
	if err == nil {
		intPart = FormatNumber(n)
	}
	if neg {
		return "-" + intPart + "." + frac
	}
	return intPart + "." + frac
}

// FormatSigned formats a money delta with an explicit sign.
func FormatSigned(d decimal.Decimal, currency string) string {
	if d.IsNegative() {
		return FormatMoney(d, currency)
	}
	return "+" + FormatMoney(d, currency)
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a value already expressed in percent.
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatRemaining formats a duration coarsely.
// e.g., 26h -> "1d 2h", 62m -> "1h 2m", 45s -> "45s"
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "expired"
	}
	secs := int64(d / time.Second)
	days := secs / 86400
	hours := (secs % 86400) / 3600
	mins := (secs % 3600) / 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	case mins > 0:
		return fmt.Sprintf("%dm", mins)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

// FormatDate formats a date as YYYY-MM-DD, or "-" when zero.
func FormatDate(d model.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.String()
}

// FormatTrend returns an arrow for a trend direction.
func FormatTrend(trend string) string {
	switch trend {
	case "increasing":
		return "↑ increasing"
	case "decreasing":
		return "↓ decreasing"
	default:
		return "→ " + trend
	}
}

// FormatDayOfWeek returns a 3-letter day abbreviation from a weekday number.
func FormatDayOfWeek(weekday int) string {
	days := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	if weekday >= 0 && weekday < 7 {
		return days[weekday]
	}
	return "???"
}

// Truncate shortens s to n runes with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n || n < 1 {
		return s
	}
	return string(r[:n-1]) + "…"
}
