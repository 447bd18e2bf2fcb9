package api

import (
	"context"
	"time"

	"github.com/aifinance/finctl/internal/model"

	"github.com/shopspring/decimal"
)

// Result carries either live data or a documented fallback. Fallback is set
// when the call failed and Value holds the substitute; Err keeps the cause.
type Result[T any] struct {
	Value    T
	Fallback bool
	Err      error
}

// fallbackCall runs req quietly and substitutes fb() on any failure. Err
// still carries ErrSessionExpired when that was the cause.
func fallbackCall[T any](ctx context.Context, c *Client, req *Request, fb func() T) Result[T] {
	req.Quiet = true
	v, err := call[T](ctx, c, req)
	if err == nil {
		return Result[T]{Value: v}
	}
	c.log.Debug().Err(err).Str("path", req.Path).Msg("using fallback payload")
	return Result[T]{Value: fb(), Fallback: true, Err: err}
}

// Categories is the category list used when the backend cannot provide one.
var Categories = []string{
	"Food", "Transportation", "Shopping", "Entertainment", "Bills",
	"Healthcare", "Education", "Travel", "Income", "Other",
}

// FallbackCategory is the categorization used when the backend is unavailable.
func FallbackCategory(description string) model.CategoryResult {
	return model.CategoryResult{Description: description, Category: "Other", Confidence: 0}
}

// FallbackPrediction is the fixed expense forecast used when prediction fails.
func FallbackPrediction(now time.Time) model.ExpensePrediction {
	preds := map[string]decimal.Decimal{
		"Food":           decimal.NewFromInt(600),
		"Transportation": decimal.NewFromInt(300),
		"Shopping":       decimal.NewFromInt(400),
		"Entertainment":  decimal.NewFromInt(200),
		"Bills":          decimal.NewFromInt(800),
		"Healthcare":     decimal.NewFromInt(200),
	}
	return model.ExpensePrediction{
		Total:          decimal.RequireFromString("2500.00"),
		Predictions:    preds,
		Confidence:     "low",
		PredictionDate: model.NewDate(now.AddDate(0, 1, 0)),
		Message:        "Using default predictions",
	}
}

func fallbackCategories() []string {
	out := make([]string, len(Categories))
	copy(out, Categories)
	return out
}
