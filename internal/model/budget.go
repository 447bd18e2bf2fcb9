package model

import "github.com/shopspring/decimal"

// BudgetPeriod is the window a budget limit applies to.
type BudgetPeriod string

const (
	BudgetWeekly  BudgetPeriod = "weekly"
	BudgetMonthly BudgetPeriod = "monthly"
	BudgetYearly  BudgetPeriod = "yearly"
)

// Budget is a spending limit for one category.
type Budget struct {
	ID             int             `json:"id"`
	UserID         int             `json:"user_id"`
	Category       string          `json:"category"`
	LimitAmount    decimal.Decimal `json:"limit_amount"`
	Period         BudgetPeriod    `json:"period"`
	AlertThreshold float64         `json:"alert_threshold"`
	CreatedAt      Timestamp       `json:"created_at"`
	UpdatedAt      *Timestamp      `json:"updated_at,omitempty"`
}

// BudgetCreate is the payload for POST /budgets.
type BudgetCreate struct {
	Category       string          `json:"category"`
	LimitAmount    decimal.Decimal `json:"limit_amount"`
	Period         BudgetPeriod    `json:"period,omitempty"`
	AlertThreshold float64         `json:"alert_threshold,omitempty"`
}

// BudgetUpdate is the payload for PUT /budgets/{id}.
type BudgetUpdate struct {
	Category       *string          `json:"category,omitempty"`
	LimitAmount    *decimal.Decimal `json:"limit_amount,omitempty"`
	Period         *BudgetPeriod    `json:"period,omitempty"`
	AlertThreshold *float64         `json:"alert_threshold,omitempty"`
}

// BudgetStatus is a budget with its current spending.
type BudgetStatus struct {
	Budget         Budget          `json:"budget"`
	Spent          decimal.Decimal `json:"spent"`
	Remaining      decimal.Decimal `json:"remaining"`
	PercentageUsed float64         `json:"percentage_used"`
	Alert          bool            `json:"alert"`
}

// BudgetForecast projects a budget's spend to the end of its period.
type BudgetForecast struct {
	Category          string
	Limit             decimal.Decimal
	CurrentSpend      decimal.Decimal
	DailyBurnRate     decimal.Decimal
	ProjectedSpend    decimal.Decimal
	DaysRemaining     int
	BudgetUsedPercent float64
	OnTrack           bool
}
