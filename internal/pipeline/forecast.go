package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/aifinance/finctl/internal/model"

	"github.com/shopspring/decimal"
)

// PeriodBounds returns the first and last day of the calendar period that
// contains now. Weeks start on Monday.
func PeriodBounds(p model.BudgetPeriod, now time.Time) (time.Time, time.Time) {
	day := dateOnly(now)
	switch p {
	case model.BudgetWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 6)
	case model.BudgetYearly:
		start := time.Date(day.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, -1)
	default:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, -1)
	}
}

// ForecastBudgets projects each budget's spend to the end of its current
// calendar period from the burn rate so far. Worst projections first.
func ForecastBudgets(budgets []model.Budget, txns []model.Transaction, now time.Time) []model.BudgetForecast {
	out := make([]model.BudgetForecast, 0, len(budgets))
	for _, b := range budgets {
		start, end := PeriodBounds(b.Period, now)
		elapsed := int(dateOnly(now).Sub(start).Hours()/24) + 1
		total := int(end.Sub(start).Hours()/24) + 1

		spend := decimal.Zero
		for _, t := range FilterByDate(txns, start, now) {
			if t.IsExpense() && strings.EqualFold(t.Category, b.Category) {
				spend = spend.Add(t.Amount)
			}
		}

		burn := spend.Div(decimal.NewFromInt(int64(elapsed))).Round(2)
		projected := spend.Div(decimal.NewFromInt(int64(elapsed))).Mul(decimal.NewFromInt(int64(total))).Round(2)

		f := model.BudgetForecast{
			Category:       b.Category,
			Limit:          b.LimitAmount,
			CurrentSpend:   spend,
			DailyBurnRate:  burn,
			ProjectedSpend: projected,
			DaysRemaining:  total - elapsed,
			OnTrack:        !projected.GreaterThan(b.LimitAmount),
		}
		if b.LimitAmount.IsPositive() {
			f.BudgetUsedPercent = spend.Div(b.LimitAmount).Mul(hundred).Round(1).InexactFloat64()
		}
		out = append(out, f)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return ratio(out[i]) > ratio(out[j])
	})
	return out
}

func ratio(f model.BudgetForecast) float64 {
	if !f.Limit.IsPositive() {
		return 0
	}
	return f.ProjectedSpend.Div(f.Limit).InexactFloat64()
}
