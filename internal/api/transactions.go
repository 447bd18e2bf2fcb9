package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/aifinance/finctl/internal/model"
)

func transactionPath(id int) string { return "/transactions/" + strconv.Itoa(id) }

func filterQuery(f model.TransactionFilter) url.Values {
	q := url.Values{}
	if f.Skip > 0 {
		q.Set("skip", strconv.Itoa(f.Skip))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Type != "" {
		q.Set("transaction_type", f.Type)
	}
	if !f.StartDate.IsZero() {
		q.Set("start_date", f.StartDate.String())
	}
	if !f.EndDate.IsZero() {
		q.Set("end_date", f.EndDate.String())
	}
	if f.AccountID > 0 {
		q.Set("account_id", strconv.Itoa(f.AccountID))
	}
	return q
}

// ListTransactions returns transactions matching f, newest first.
func (c *Client) ListTransactions(ctx context.Context, f model.TransactionFilter) ([]model.Transaction, error) {
	return call[[]model.Transaction](ctx, c, &Request{
		Method: http.MethodGet,
		Path:   "/transactions/",
		Query:  filterQuery(f),
	})
}

// GetTransaction returns one transaction.
func (c *Client) GetTransaction(ctx context.Context, id int) (model.Transaction, error) {
	return call[model.Transaction](ctx, c, &Request{Method: http.MethodGet, Path: transactionPath(id)})
}

// CreateTransaction records a transaction. The backend adjusts the account
// balance and auto-categorizes expenses without a category.
func (c *Client) CreateTransaction(ctx context.Context, in model.TransactionCreate) (model.Transaction, error) {
	return call[model.Transaction](ctx, c, &Request{Method: http.MethodPost, Path: "/transactions/", Body: in})
}

// UpdateTransaction applies a partial update to a transaction.
func (c *Client) UpdateTransaction(ctx context.Context, id int, in model.TransactionUpdate) (model.Transaction, error) {
	return call[model.Transaction](ctx, c, &Request{Method: http.MethodPut, Path: transactionPath(id), Body: in})
}

// DeleteTransaction deletes a transaction.
func (c *Client) DeleteTransaction(ctx context.Context, id int) error {
	return c.exec(ctx, &Request{Method: http.MethodDelete, Path: transactionPath(id)})
}

// TransactionSummary returns income and expense totals in [start, end].
// Zero dates are omitted.
func (c *Client) TransactionSummary(ctx context.Context, start, end model.Date) (model.TransactionSummary, error) {
	q := url.Values{}
	if !start.IsZero() {
		q.Set("start_date", start.String())
	}
	if !end.IsZero() {
		q.Set("end_date", end.String())
	}
	return call[model.TransactionSummary](ctx, c, &Request{Method: http.MethodGet, Path: "/transactions/summary", Query: q})
}

// BulkCategorize re-runs categorization for the given transactions.
func (c *Client) BulkCategorize(ctx context.Context, ids []int) (model.BulkCategorizeResult, error) {
	return call[model.BulkCategorizeResult](ctx, c, &Request{
		Method: http.MethodPost,
		Path:   "/transactions/bulk-categorize",
		Body:   ids,
	})
}
