package pipeline

import (
	"testing"
	"time"

	"github.com/aifinance/finctl/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func txn(id int, date, typ, category, amount string) model.Transaction {
	return model.Transaction{
		ID:       id,
		Date:     model.NewDate(day(date)),
		Type:     typ,
		Category: category,
		Amount:   decimal.RequireFromString(amount),
	}
}

func sample() []model.Transaction {
	return []model.Transaction{
		txn(1, "2026-03-01", model.TransactionIncome, "Income", "3000"),
		txn(2, "2026-03-01", model.TransactionExpense, "Food", "25.50"),
		txn(3, "2026-03-03", model.TransactionExpense, "Bills", "120"),
		txn(4, "2026-03-04", model.TransactionExpense, "Food", "14.50"),
		txn(5, "2026-02-20", model.TransactionExpense, "Travel", "400"),
	}
}

func TestSummarize(t *testing.T) {
	stats := Summarize(sample(), day("2026-03-01"), day("2026-03-10"))

	assert.Equal(t, 4, stats.Transactions)
	assert.Equal(t, 3, stats.ActiveDays)
	assert.Equal(t, "3000", stats.Income.String())
	assert.Equal(t, "160", stats.Expenses.String())
	assert.Equal(t, "2840", stats.Net.String())
	assert.Equal(t, "120", stats.LargestExpense.String())
	assert.Equal(t, "53.33", stats.AverageExpense.String())
	assert.Equal(t, "16", stats.ExpensePerDay.String())
	assert.Equal(t, "480", stats.ProjectedMonthly.String())
}

func TestSummarizeOpenRangeUsesTransactionSpan(t *testing.T) {
	stats := Summarize(sample(), time.Time{}, time.Time{})
	assert.Equal(t, 5, stats.Transactions)
	// 2026-02-20 .. 2026-03-04 is 13 days.
	assert.Equal(t, "43.08", stats.ExpensePerDay.String())
}

func TestSummarizeEmpty(t *testing.T) {
	stats := Summarize(nil, day("2026-03-01"), day("2026-03-10"))
	assert.Zero(t, stats.Transactions)
	assert.True(t, stats.ExpensePerDay.IsZero())
}

func TestAggregateDaysFillsGaps(t *testing.T) {
	days := AggregateDays(sample(), day("2026-03-01"), day("2026-03-04"))
	require.Len(t, days, 4)

	assert.Equal(t, day("2026-03-04"), days[0].Date)
	assert.Equal(t, day("2026-03-01"), days[3].Date)
	assert.Equal(t, 0, days[2].Transactions) // 03-02
	assert.Equal(t, "25.5", days[3].Expenses.String())
	assert.Equal(t, "3000", days[3].Income.String())
}

func TestAggregateCategories(t *testing.T) {
	cats := AggregateCategories(sample(), day("2026-03-01"), day("2026-03-31"))
	require.Len(t, cats, 2)

	assert.Equal(t, "Bills", cats[0].Category)
	assert.Equal(t, 75.0, cats[0].SharePercent)
	assert.Equal(t, "Food", cats[1].Category)
	assert.Equal(t, 2, cats[1].Transactions)
	assert.Equal(t, "40", cats[1].Expenses.String())
}

func TestFilterByDateInclusive(t *testing.T) {
	got := FilterByDate(sample(), day("2026-03-01"), day("2026-03-03"))
	ids := make([]int, len(got))
	for i, tx := range got {
		ids[i] = tx.ID
	}
	assert.Equal(t, []int{1, 2, 3}, ids)
}

func TestFilterByCategory(t *testing.T) {
	assert.Len(t, FilterByCategory(sample(), "food"), 2)
	assert.Len(t, FilterByCategory(sample(), ""), 5)
}
