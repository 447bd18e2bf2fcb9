package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aifinance/finctl/internal/model"
)

// Categorize predicts a category for a transaction description.
func (c *Client) Categorize(ctx context.Context, description string) Result[model.CategoryResult] {
	return fallbackCall(ctx, c, &Request{
		Method:  http.MethodPost,
		Path:    "/ml/categorize",
		Query:   url.Values{"description": {description}},
		Timeout: c.predict,
	}, func() model.CategoryResult { return FallbackCategory(description) })
}

// CategorizeBatch categorizes up to 100 descriptions in one call. Any
// failure yields the fallback category for every description.
func (c *Client) CategorizeBatch(ctx context.Context, descriptions []string) Result[[]model.CategoryResult] {
	return fallbackCall(ctx, c, &Request{
		Method:  http.MethodPost,
		Path:    "/ml/categorize-batch",
		Body:    descriptions,
		Timeout: c.predict,
	}, func() []model.CategoryResult {
		out := make([]model.CategoryResult, len(descriptions))
		for i, d := range descriptions {
			out[i] = FallbackCategory(d)
		}
		return out
	})
}

// Categories lists the categories the categorizer knows.
func (c *Client) Categories(ctx context.Context) Result[[]string] {
	return fallbackCall(ctx, c, &Request{
		Method:  http.MethodGet,
		Path:    "/ml/categories",
		Timeout: c.predict,
	}, fallbackCategories)
}

// PredictExpenses forecasts expenses monthsAhead months out.
func (c *Client) PredictExpenses(ctx context.Context, in model.PredictionRequest) Result[model.ExpensePrediction] {
	if in.MonthsAhead <= 0 {
		in.MonthsAhead = 1
	}
	return fallbackCall(ctx, c, &Request{
		Method:  http.MethodPost,
		Path:    "/ml/predict-expenses",
		Body:    in,
		Timeout: c.predict,
	}, func() model.ExpensePrediction { return FallbackPrediction(time.Now()) })
}

// SpendingTrends reports per-category trends over the last months months.
func (c *Client) SpendingTrends(ctx context.Context, months int) Result[[]model.SpendingTrend] {
	if months <= 0 {
		months = 6
	}
	return fallbackCall(ctx, c, &Request{
		Method:  http.MethodGet,
		Path:    "/ml/spending-trends",
		Query:   url.Values{"months": {strconv.Itoa(months)}},
		Timeout: c.predict,
	}, func() []model.SpendingTrend { return []model.SpendingTrend{} })
}
