package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/aifinance/finctl/internal/credstore"
	"github.com/aifinance/finctl/internal/model"
)

// Login exchanges email and password for tokens. It does not store them.
func (c *Client) Login(ctx context.Context, email, password string) (*credstore.Credentials, error) {
	return c.tokenExchange(ctx, &Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Form:   map[string]string{"username": email, "password": password},
		NoAuth: true,
	})
}

// Refresh exchanges a refresh token for a new token pair. The backend reads
// the token from the query string; the form field is sent as well.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*credstore.Credentials, error) {
	return c.tokenExchange(ctx, &Request{
		Method: http.MethodPost,
		Path:   "/auth/refresh",
		Query:  url.Values{"refresh_token": {refreshToken}},
		Form:   map[string]string{"refresh_token": refreshToken},
		NoAuth: true,
		Quiet:  true,
	})
}

// exchangeRefreshToken is the coordinator's refresh call. It bypasses the
// middleware chain so a failing refresh is neither retried nor notified.
func (c *Client) exchangeRefreshToken(ctx context.Context, refreshToken string) (*credstore.Credentials, error) {
	req := &Request{
		Method: http.MethodPost,
		Path:   "/auth/refresh",
		Query:  url.Values{"refresh_token": {refreshToken}},
		Form:   map[string]string{"refresh_token": refreshToken},
		NoAuth: true,
	}
	resp, err := c.dispatch(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeTokens(resp.Body)
}

func (c *Client) tokenExchange(ctx context.Context, req *Request) (*credstore.Credentials, error) {
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeTokens(resp.Body)
}

var errNoAccessToken = errors.New("api: token response has no access_token")

func decodeTokens(body []byte) (*credstore.Credentials, error) {
	var t model.Tokens
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, fmt.Errorf("api: decoding token response: %w", err)
	}
	if t.AccessToken == "" {
		return nil, errNoAccessToken
	}
	return &credstore.Credentials{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken}, nil
}

// Register creates a user account.
func (c *Client) Register(ctx context.Context, in model.RegisterRequest) (model.User, error) {
	return call[model.User](ctx, c, &Request{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Body:   in,
		NoAuth: true,
	})
}

// Logout asks the backend to invalidate the session. An expired access token
// is not refreshed just to log out.
func (c *Client) Logout(ctx context.Context) error {
	return c.exec(ctx, &Request{Method: http.MethodPost, Path: "/auth/logout", Quiet: true, NoRefresh: true})
}

// Health probes the backend outside the API prefix.
func (c *Client) Health(ctx context.Context) (model.Health, error) {
	return call[model.Health](ctx, c, &Request{
		Method: http.MethodGet,
		Path:   "/health",
		Root:   true,
		NoAuth: true,
		Quiet:  true,
	})
}
