// Package api is the authenticated client for the finance backend.
//
// Every call flows through an explicit middleware chain:
//
//	normalize(refreshRetry(dispatch))
//
// dispatch sends one HTTP request with bearer credentials, refreshRetry
// exchanges the refresh token once on a 401 and replays the request, and
// normalize turns failures into *apierr.Error and notifies the user.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aifinance/finctl/internal/apierr"
	"github.com/aifinance/finctl/internal/credstore"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL    = "http://localhost:8000"
	DefaultTimeout    = 30 * time.Second
	MarketTimeout     = 15 * time.Second
	PredictionTimeout = 30 * time.Second
	DefaultSlowCall   = 1000 * time.Millisecond

	apiPrefix   = "/api/v1"
	maxBodySize = 4 << 20 // 4 MB
	userAgent   = "finctl/1.0"
)

func init() {
	// The backend declares amounts as floats and expects JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Config controls client construction. Zero values take defaults.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	MarketTimeout     time.Duration
	PredictionTimeout time.Duration
	SlowCallThreshold time.Duration
	// RateLimit caps outgoing requests per second; 0 disables limiting.
	RateLimit  float64
	RateBurst  int
	HTTPClient *http.Client
	Logger     *zerolog.Logger
	Notifier   apierr.Notifier
}

// Request describes one logical API call. A Request lives for the call and
// its at most one replay after a token refresh.
type Request struct {
	Method string
	// Path is relative to /api/v1 unless Root is set.
	Path  string
	Root  bool
	Query url.Values
	// Body is JSON-encoded. Form, when set, is sent as multipart instead.
	Body    any
	Form    map[string]string
	Timeout time.Duration
	// NoAuth marks credential exchanges (login, refresh): no bearer header
	// and never refreshed.
	NoAuth bool
	// NoRefresh sends the bearer header but never refreshes on 401.
	NoRefresh bool
	// Quiet suppresses user notifications for this call.
	Quiet bool

	retried   bool
	sentToken string
}

// Retried reports whether this request is the replay after a refresh.
func (r *Request) Retried() bool { return r.retried }

// Response is a completed HTTP exchange.
type Response struct {
	Status  int
	Header  http.Header
	Body    []byte
	Elapsed time.Duration
}

// StatusError is a non-2xx response before normalization.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: %s %s: unexpected status %d", e.Method, e.Path, e.Status)
}

// Doer executes a request.
type Doer func(ctx context.Context, req *Request) (*Response, error)

// Middleware decorates a Doer.
type Middleware func(Doer) Doer

// Chain wraps base with mws; the first middleware is the outermost.
func Chain(base Doer, mws ...Middleware) Doer {
	d := base
	for i := len(mws) - 1; i >= 0; i-- {
		d = mws[i](d)
	}
	return d
}

type quietKey struct{}

// WithQuiet marks every request made with ctx as quiet.
func WithQuiet(ctx context.Context) context.Context {
	return context.WithValue(ctx, quietKey{}, true)
}

// IsQuiet reports whether ctx was marked by WithQuiet.
func IsQuiet(ctx context.Context) bool {
	q, _ := ctx.Value(quietKey{}).(bool)
	return q
}

func isQuiet(ctx context.Context, req *Request) bool {
	return req.Quiet || IsQuiet(ctx)
}

// Client talks to the finance backend.
type Client struct {
	baseURL  string
	http     *http.Client
	store    credstore.Store
	timeout  time.Duration
	market   time.Duration
	predict  time.Duration
	slowCall time.Duration
	limiter  *rate.Limiter
	log      zerolog.Logger
	notifier apierr.Notifier

	coord *Coordinator
	do    Doer
}

// New creates a client that reads and writes credentials through store.
func New(cfg Config, store credstore.Store) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		http:     cfg.HTTPClient,
		store:    store,
		timeout:  cfg.Timeout,
		market:   cfg.MarketTimeout,
		predict:  cfg.PredictionTimeout,
		slowCall: cfg.SlowCallThreshold,
		log:      zerolog.Nop(),
		notifier: cfg.Notifier,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.market <= 0 {
		c.market = MarketTimeout
	}
	if c.predict <= 0 {
		c.predict = PredictionTimeout
	}
	if c.slowCall <= 0 {
		c.slowCall = DefaultSlowCall
	}
	if cfg.Logger != nil {
		c.log = cfg.Logger.With().Str("component", "api").Logger()
	}
	if c.notifier == nil {
		c.notifier = apierr.Discard
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	c.coord = newCoordinator(store, c.exchangeRefreshToken, c.log)
	c.do = Chain(c.dispatch, c.normalize, c.coord.Middleware)
	return c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Coordinator returns the refresh coordinator for state inspection and hooks.
func (c *Client) Coordinator() *Coordinator { return c.coord }

// Do runs req through the full middleware chain.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	return c.do(ctx, req)
}

// dispatch sends one request. Transport failures become network errors;
// non-2xx statuses become *StatusError.
func (c *Client) dispatch(ctx context.Context, req *Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apierr.Network(err)
		}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.url(req), body)
	if err != nil {
		return nil, fmt.Errorf("api: creating request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	req.sentToken = ""
	if !req.NoAuth {
		creds, err := c.store.Load()
		if err != nil {
			c.log.Warn().Err(err).Msg("reading credentials; sending unauthenticated")
		} else if creds != nil {
			httpReq.Header.Set("Authorization", "Bearer "+creds.AccessToken)
			req.sentToken = creds.AccessToken
		}
	}

	start := time.Now()
	//nolint:gosec // URL is built from the configured base URL
	resp, err := c.http.Do(httpReq)
	if err != nil {
		elapsed := time.Since(start)
		c.log.Debug().Err(err).
			Str("method", req.Method).
			Str("path", req.Path).
			Str("request_id", requestID).
			Dur("elapsed", elapsed).
			Msg("api call failed without response")
		return nil, apierr.Network(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, apierr.Network(fmt.Errorf("reading response: %w", err))
	}
	elapsed := time.Since(start)
	c.observe(req, resp.StatusCode, elapsed, requestID)

	out := &Response{
		Status:  resp.StatusCode,
		Header:  resp.Header,
		Body:    data,
		Elapsed: elapsed,
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, &StatusError{Method: req.Method, Path: req.Path, Status: resp.StatusCode, Body: data}
	}
	return out, nil
}

// observe logs every completed call at debug and slow ones at warn.
func (c *Client) observe(req *Request, status int, elapsed time.Duration, requestID string) {
	ev := c.log.Debug()
	msg := "api call"
	if elapsed > c.slowCall {
		ev = c.log.Warn()
		msg = "slow api call"
	}
	ev.Str("method", req.Method).
		Str("path", req.Path).
		Int("status", status).
		Bool("retry", req.retried).
		Str("request_id", requestID).
		Dur("elapsed", elapsed).
		Msg(msg)
}

// normalize converts failures to *apierr.Error and notifies once.
func (c *Client) normalize(next Doer) Doer {
	return func(ctx context.Context, req *Request) (*Response, error) {
		resp, err := next(ctx, req)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, ErrSessionExpired) {
			return resp, err
		}

		var (
			se *StatusError
			ae *apierr.Error
		)
		switch {
		case errors.As(err, &se):
			ae = apierr.FromResponse(se.Status, se.Body)
		case errors.As(err, &ae):
		default:
			return resp, err
		}

		if !ae.Silent() && !isQuiet(ctx, req) {
			c.notifier.Notify(ae.Message)
		}
		return resp, ae
	}
}

func (c *Client) url(req *Request) string {
	path := req.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if !req.Root {
		path = apiPrefix + path
	}
	u := c.baseURL + path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

func encodeBody(req *Request) (io.Reader, string, error) {
	if req.Form != nil {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for k, v := range req.Form {
			if err := w.WriteField(k, v); err != nil {
				return nil, "", fmt.Errorf("api: encoding form: %w", err)
			}
		}
		if err := w.Close(); err != nil {
			return nil, "", fmt.Errorf("api: encoding form: %w", err)
		}
		return bytes.NewReader(buf.Bytes()), w.FormDataContentType(), nil
	}
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, "", fmt.Errorf("api: encoding body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
	return nil, "", nil
}

// call runs req and decodes a JSON response body into T.
func call[T any](ctx context.Context, c *Client, req *Request) (T, error) {
	var out T
	resp, err := c.do(ctx, req)
	if err != nil {
		return out, err
	}
	if len(resp.Body) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, fmt.Errorf("api: decoding %s %s: %w", req.Method, req.Path, err)
	}
	return out, nil
}

// exec runs req and discards the response body.
func (c *Client) exec(ctx context.Context, req *Request) error {
	_, err := c.do(ctx, req)
	return err
}
