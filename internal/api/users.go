package api

import (
	"context"
	"net/http"

	"github.com/aifinance/finctl/internal/model"
)

// Me fetches the current user's profile.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	return call[model.User](ctx, c, &Request{Method: http.MethodGet, Path: "/users/me"})
}

// UpdateMe applies a partial profile update.
func (c *Client) UpdateMe(ctx context.Context, in model.UserUpdate) (model.User, error) {
	return call[model.User](ctx, c, &Request{Method: http.MethodPut, Path: "/users/me", Body: in})
}

// DeleteMe deletes the current user's account.
func (c *Client) DeleteMe(ctx context.Context) error {
	return c.exec(ctx, &Request{Method: http.MethodDelete, Path: "/users/me"})
}
