package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aifinance/finctl/internal/model"
)

func budgetPath(id int) string { return "/budgets/" + strconv.Itoa(id) }

// ListBudgets returns the user's budgets.
func (c *Client) ListBudgets(ctx context.Context) ([]model.Budget, error) {
	return call[[]model.Budget](ctx, c, &Request{Method: http.MethodGet, Path: "/budgets/"})
}

// GetBudget returns one budget.
func (c *Client) GetBudget(ctx context.Context, id int) (model.Budget, error) {
	return call[model.Budget](ctx, c, &Request{Method: http.MethodGet, Path: budgetPath(id)})
}

// CreateBudget creates a budget.
func (c *Client) CreateBudget(ctx context.Context, in model.BudgetCreate) (model.Budget, error) {
	return call[model.Budget](ctx, c, &Request{Method: http.MethodPost, Path: "/budgets/", Body: in})
}

// UpdateBudget applies a partial update to a budget.
func (c *Client) UpdateBudget(ctx context.Context, id int, in model.BudgetUpdate) (model.Budget, error) {
	return call[model.Budget](ctx, c, &Request{Method: http.MethodPut, Path: budgetPath(id), Body: in})
}

// DeleteBudget deletes a budget.
func (c *Client) DeleteBudget(ctx context.Context, id int) error {
	return c.exec(ctx, &Request{Method: http.MethodDelete, Path: budgetPath(id)})
}

// BudgetStatus returns every budget with its spending so far.
func (c *Client) BudgetStatus(ctx context.Context) ([]model.BudgetStatus, error) {
	return call[[]model.BudgetStatus](ctx, c, &Request{Method: http.MethodGet, Path: "/budgets/status"})
}
