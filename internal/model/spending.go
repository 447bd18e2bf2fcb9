package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SpendingStats holds the aggregate over a window of fetched transactions.
type SpendingStats struct {
	Transactions int
	ActiveDays   int

	Income   decimal.Decimal
	Expenses decimal.Decimal
	Net      decimal.Decimal

	ExpensePerDay    decimal.Decimal
	LargestExpense   decimal.Decimal
	AverageExpense   decimal.Decimal
	ProjectedMonthly decimal.Decimal
}

// DailySpend holds the totals for a single calendar day.
type DailySpend struct {
	Date         time.Time
	Transactions int
	Income       decimal.Decimal
	Expenses     decimal.Decimal
}

// CategorySpend holds expense totals for one category.
type CategorySpend struct {
	Category     string
	Transactions int
	Expenses     decimal.Decimal
	SharePercent float64
}
