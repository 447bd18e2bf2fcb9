// Package pipeline aggregates fetched transactions into the spending
// summaries and budget forecasts the commands display.
package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/aifinance/finctl/internal/model"

	"github.com/shopspring/decimal"
)

const dayLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

// Summarize computes totals for transactions dated within [since, until].
func Summarize(txns []model.Transaction, since, until time.Time) model.SpendingStats {
	filtered := FilterByDate(txns, since, until)

	var stats model.SpendingStats
	activeDays := make(map[string]struct{})
	expenseCount := 0

	for _, t := range filtered {
		stats.Transactions++
		activeDays[t.Date.Format(dayLayout)] = struct{}{}
		if t.IsExpense() {
			expenseCount++
			stats.Expenses = stats.Expenses.Add(t.Amount)
			if t.Amount.GreaterThan(stats.LargestExpense) {
				stats.LargestExpense = t.Amount
			}
		} else {
			stats.Income = stats.Income.Add(t.Amount)
		}
	}

	stats.ActiveDays = len(activeDays)
	stats.Net = stats.Income.Sub(stats.Expenses)
	if expenseCount > 0 {
		stats.AverageExpense = stats.Expenses.Div(decimal.NewFromInt(int64(expenseCount))).Round(2)
	}

	// Rates use the calendar span when bounds are given, not just active days.
	days := spanDays(filtered, since, until)
	if days > 0 {
		stats.ExpensePerDay = stats.Expenses.Div(decimal.NewFromInt(int64(days))).Round(2)
		stats.ProjectedMonthly = stats.ExpensePerDay.Mul(decimal.NewFromInt(30)).Round(2)
	}
	return stats
}

func spanDays(txns []model.Transaction, since, until time.Time) int {
	if len(txns) == 0 {
		return 0
	}
	first, last := since, until
	if first.IsZero() || last.IsZero() {
		lo, hi := txns[0].Date.Time, txns[0].Date.Time
		for _, t := range txns[1:] {
			if t.Date.Before(lo) {
				lo = t.Date.Time
			}
			if t.Date.After(hi) {
				hi = t.Date.Time
			}
		}
		if first.IsZero() {
			first = lo
		}
		if last.IsZero() {
			last = hi
		}
	}
	return int(dateOnly(last).Sub(dateOnly(first)).Hours()/24) + 1
}

// AggregateDays computes per-day totals, filling days without transactions
// with zeros. Most recent first.
func AggregateDays(txns []model.Transaction, since, until time.Time) []model.DailySpend {
	filtered := FilterByDate(txns, since, until)

	dayMap := make(map[string]*model.DailySpend)
	for _, t := range filtered {
		key := t.Date.Format(dayLayout)
		ds, ok := dayMap[key]
		if !ok {
			ds = &model.DailySpend{Date: dateOnly(t.Date.Time)}
			dayMap[key] = ds
		}
		ds.Transactions++
		if t.IsExpense() {
			ds.Expenses = ds.Expenses.Add(t.Amount)
		} else {
			ds.Income = ds.Income.Add(t.Amount)
		}
	}

	if !since.IsZero() && !until.IsZero() {
		for day := dateOnly(since); !day.After(dateOnly(until)); day = day.AddDate(0, 0, 1) {
			key := day.Format(dayLayout)
			if _, ok := dayMap[key]; !ok {
				dayMap[key] = &model.DailySpend{Date: day}
			}
		}
	}

	days := make([]model.DailySpend, 0, len(dayMap))
	for _, ds := range dayMap {
		days = append(days, *ds)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.After(days[j].Date)
	})
	return days
}

// AggregateCategories computes expense totals per category, largest first.
func AggregateCategories(txns []model.Transaction, since, until time.Time) []model.CategorySpend {
	filtered := FilterByDate(txns, since, until)

	catMap := make(map[string]*model.CategorySpend)
	total := decimal.Zero
	for _, t := range filtered {
		if !t.IsExpense() {
			continue
		}
		name := t.Category
		if name == "" {
			name = "Other"
		}
		cs, ok := catMap[name]
		if !ok {
			cs = &model.CategorySpend{Category: name}
			catMap[name] = cs
		}
		cs.Transactions++
		cs.Expenses = cs.Expenses.Add(t.Amount)
		total = total.Add(t.Amount)
	}

	cats := make([]model.CategorySpend, 0, len(catMap))
	for _, cs := range catMap {
		if total.IsPositive() {
			cs.SharePercent = cs.Expenses.Div(total).Mul(hundred).InexactFloat64()
		}
		cats = append(cats, *cs)
	}
	sort.Slice(cats, func(i, j int) bool {
		if !cats[i].Expenses.Equal(cats[j].Expenses) {
			return cats[i].Expenses.GreaterThan(cats[j].Expenses)
		}
		return cats[i].Category < cats[j].Category
	})
	return cats
}

// FilterByDate returns transactions dated within [since, until]. Bounds are
// compared by calendar day; a zero bound is open.
func FilterByDate(txns []model.Transaction, since, until time.Time) []model.Transaction {
	if since.IsZero() && until.IsZero() {
		return txns
	}
	lo, hi := dateOnly(since), dateOnly(until)

	var result []model.Transaction
	for _, t := range txns {
		d := dateOnly(t.Date.Time)
		if !since.IsZero() && d.Before(lo) {
			continue
		}
		if !until.IsZero() && d.After(hi) {
			continue
		}
		result = append(result, t)
	}
	return result
}

// FilterByCategory returns transactions whose category contains the
// substring, ignoring case.
func FilterByCategory(txns []model.Transaction, category string) []model.Transaction {
	if category == "" {
		return txns
	}
	var result []model.Transaction
	for _, t := range txns {
		if containsIgnoreCase(t.Category, category) {
			result = append(result, t)
		}
	}
	return result
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// dateOnly drops the clock, keeping the calendar date in UTC.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
