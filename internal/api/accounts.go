package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aifinance/finctl/internal/model"
)

func accountPath(id int) string { return "/accounts/" + strconv.Itoa(id) }

// ListAccounts returns the user's accounts.
func (c *Client) ListAccounts(ctx context.Context) ([]model.Account, error) {
	return call[[]model.Account](ctx, c, &Request{Method: http.MethodGet, Path: "/accounts/"})
}

// GetAccount returns one account.
func (c *Client) GetAccount(ctx context.Context, id int) (model.Account, error) {
	return call[model.Account](ctx, c, &Request{Method: http.MethodGet, Path: accountPath(id)})
}

// CreateAccount creates an account.
func (c *Client) CreateAccount(ctx context.Context, in model.AccountCreate) (model.Account, error) {
	return call[model.Account](ctx, c, &Request{Method: http.MethodPost, Path: "/accounts/", Body: in})
}

// UpdateAccount applies a partial update to an account.
func (c *Client) UpdateAccount(ctx context.Context, id int, in model.AccountUpdate) (model.Account, error) {
	return call[model.Account](ctx, c, &Request{Method: http.MethodPut, Path: accountPath(id), Body: in})
}

// DeleteAccount deletes an account and its transactions.
func (c *Client) DeleteAccount(ctx context.Context, id int) error {
	return c.exec(ctx, &Request{Method: http.MethodDelete, Path: accountPath(id)})
}

// BalanceSummary returns balances grouped by account type.
func (c *Client) BalanceSummary(ctx context.Context) (model.BalanceSummary, error) {
	return call[model.BalanceSummary](ctx, c, &Request{Method: http.MethodGet, Path: "/accounts/summary/balance"})
}
