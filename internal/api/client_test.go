package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aifinance/finctl/internal/apierr"
	"github.com/aifinance/finctl/internal/credstore"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	srv      *httptest.Server
	client   *Client
	store    *credstore.MemoryStore
	notified *apierr.Recorder
}

func newHarness(t *testing.T, h http.Handler, mutate ...func(*Config)) *harness {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	store := credstore.NewMemory()
	rec := &apierr.Recorder{}
	cfg := Config{BaseURL: srv.URL, Notifier: rec}
	for _, m := range mutate {
		m(&cfg)
	}
	return &harness{srv: srv, client: New(cfg, store), store: store, notified: rec}
}

func (h *harness) login(t *testing.T, access, refresh string) {
	t.Helper()
	require.NoError(t, h.store.Save(credstore.Credentials{AccessToken: access, RefreshToken: refresh}))
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

const userJSON = `{"id":1,"email":"a@example.com","is_active":true,"is_superuser":false,"preferred_currency":"USD","created_at":"2025-01-02T03:04:05.123456"}`

func TestDispatchAttachesHeaders(t *testing.T) {
	var got http.Header
	var path string
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		path = r.URL.Path
		writeJSON(w, http.StatusOK, userJSON)
	}))
	h.login(t, "tok-1", "ref-1")

	u, err := h.client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", u.Email)
	assert.Equal(t, "/api/v1/users/me", path)
	assert.Equal(t, "Bearer tok-1", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	_, err = uuid.Parse(got.Get("X-Request-ID"))
	assert.NoError(t, err)
}

func TestDispatchWithoutTokenSendsNoAuthorization(t *testing.T) {
	var auth string
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, `[]`)
	}))

	_, err := h.client.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, auth)
}

func TestLoginUsesMultipartForm(t *testing.T) {
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/login" {
			http.NotFound(w, r)
			return
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeJSON(w, http.StatusUnsupportedMediaType, `{"detail":"want multipart"}`)
			return
		}
		if r.Header.Get("Authorization") != "" {
			writeJSON(w, http.StatusBadRequest, `{"detail":"unexpected auth"}`)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, `{"detail":"bad form"}`)
			return
		}
		if r.FormValue("username") != "a@example.com" || r.FormValue("password") != "secret" {
			writeJSON(w, http.StatusUnauthorized, `{"detail":"Incorrect email or password"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"access_token":"acc","refresh_token":"ref","token_type":"bearer"}`)
	}))
	h.login(t, "stale", "")

	creds, err := h.client.Login(context.Background(), "a@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "acc", creds.AccessToken)
	assert.Equal(t, "ref", creds.RefreshToken)
}

func TestLoginWrongPasswordIsNotRefreshed(t *testing.T) {
	var refreshes atomic.Int32
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/refresh" {
			refreshes.Add(1)
		}
		writeJSON(w, http.StatusUnauthorized, `{"detail":"Incorrect email or password"}`)
	}))
	h.login(t, "old", "ref")

	_, err := h.client.Login(context.Background(), "a@example.com", "nope")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apierr.StatusOf(err))
	assert.Zero(t, refreshes.Load())
	assert.Empty(t, h.notified.Messages())
}

func TestNormalizedErrorNotifiedOnce(t *testing.T) {
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, `{"detail":[{"msg":"a"},{"msg":"b"}]}`)
	}))
	h.login(t, "tok", "ref")

	_, err := h.client.ListBudgets(context.Background())
	var ae *apierr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "a, b", ae.Message)
	assert.Equal(t, []string{"a, b"}, h.notified.Messages())
}

func TestQuietContextSuppressesNotification(t *testing.T) {
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"detail":"boom"}`)
	}))
	h.login(t, "tok", "ref")

	_, err := h.client.ListAccounts(WithQuiet(context.Background()))
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apierr.StatusOf(err))
	assert.Empty(t, h.notified.Messages())
}

func TestNetworkFailureIsDistinctAndNotRefreshed(t *testing.T) {
	h := newHarness(t, http.NotFoundHandler())
	h.login(t, "tok", "ref")
	h.srv.Close()

	_, err := h.client.Me(context.Background())
	require.Error(t, err)
	assert.True(t, apierr.IsNetwork(err))
	assert.Zero(t, h.client.Coordinator().Refreshes())
	assert.Equal(t, []string{apierr.MsgNetwork}, h.notified.Messages())

	creds, err := h.store.Load()
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "tok", creds.AccessToken)
}

func TestTimeoutIsNetworkFailure(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		writeJSON(w, http.StatusOK, userJSON)
	}), func(c *Config) { c.Timeout = 50 * time.Millisecond })
	defer close(release)
	h.login(t, "tok", "ref")

	_, err := h.client.Me(context.Background())
	require.Error(t, err)
	assert.True(t, apierr.IsNetwork(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Zero(t, h.client.Coordinator().Refreshes())
}

func TestSlowCallIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(30 * time.Millisecond)
		writeJSON(w, http.StatusOK, `[]`)
	}), func(c *Config) {
		c.SlowCallThreshold = 10 * time.Millisecond
		c.Logger = &logger
	})
	h.login(t, "tok", "ref")

	_, err := h.client.ListBudgets(context.Background())
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "slow api call")
	assert.Contains(t, out, `"path":"/budgets/"`)
	assert.Empty(t, h.notified.Messages())
}

func TestHealthIsOutsidePrefix(t *testing.T) {
	var path, auth string
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, `{"status":"healthy","version":"1.0.0"}`)
	}))
	h.login(t, "tok", "ref")

	health, err := h.client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/health", path)
	assert.Empty(t, auth)
	assert.Equal(t, "healthy", health.Status)
}

func TestChainOrder(t *testing.T) {
	var trace []string
	mw := func(name string) Middleware {
		return func(next Doer) Doer {
			return func(ctx context.Context, req *Request) (*Response, error) {
				trace = append(trace, name)
				return next(ctx, req)
			}
		}
	}
	base := func(context.Context, *Request) (*Response, error) {
		trace = append(trace, "base")
		return &Response{Status: http.StatusOK}, nil
	}

	_, err := Chain(base, mw("outer"), mw("inner"))(context.Background(), &Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "base"}, trace)
}
