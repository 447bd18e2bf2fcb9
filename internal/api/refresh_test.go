package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aifinance/finctl/internal/apierr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenBackend accepts only the current access token on /users/me and
// rotates tokens on /auth/refresh.
type tokenBackend struct {
	mu          sync.Mutex
	valid       string
	next        string
	refreshCode int
	refreshWait time.Duration

	meCalls   atomic.Int32
	refreshes atomic.Int32
	meTokens  []string
}

func (b *tokenBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/auth/refresh":
		b.refreshes.Add(1)
		if b.refreshWait > 0 {
			time.Sleep(b.refreshWait)
		}
		b.mu.Lock()
		code := b.refreshCode
		b.mu.Unlock()
		if code != 0 {
			writeJSON(w, code, `{"detail":"Invalid refresh token"}`)
			return
		}
		if r.URL.Query().Get("refresh_token") != "ref-1" {
			writeJSON(w, http.StatusUnauthorized, `{"detail":"Invalid refresh token"}`)
			return
		}
		b.mu.Lock()
		b.valid = b.next
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, `{"access_token":"`+b.next+`","refresh_token":"ref-2","token_type":"bearer"}`)
	case "/api/v1/users/me":
		b.meCalls.Add(1)
		auth := r.Header.Get("Authorization")
		b.mu.Lock()
		b.meTokens = append(b.meTokens, auth)
		ok := b.valid != "" && auth == "Bearer "+b.valid
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)
			return
		}
		writeJSON(w, http.StatusOK, userJSON)
	default:
		http.NotFound(w, r)
	}
}

func TestExpiredTokenRefreshesOnceAndRetries(t *testing.T) {
	b := &tokenBackend{next: "acc-2"}
	h := newHarness(t, b)
	h.login(t, "acc-1", "ref-1")

	u, err := h.client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, u.ID)

	assert.EqualValues(t, 1, b.refreshes.Load())
	assert.EqualValues(t, 2, b.meCalls.Load())
	assert.Equal(t, []string{"Bearer acc-1", "Bearer acc-2"}, b.meTokens)

	creds, err := h.store.Load()
	require.NoError(t, err)
	assert.Equal(t, "acc-2", creds.AccessToken)
	assert.Equal(t, "ref-2", creds.RefreshToken)
	assert.Equal(t, StateNormal, h.client.Coordinator().State())
	assert.Empty(t, h.notified.Messages())
}

func TestConcurrent401sShareOneRefresh(t *testing.T) {
	b := &tokenBackend{next: "acc-2", refreshWait: 50 * time.Millisecond}
	h := newHarness(t, b)
	h.login(t, "acc-1", "ref-1")

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.client.Me(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, b.refreshes.Load())
	assert.Equal(t, 1, h.client.Coordinator().Refreshes())
}

func TestRefreshFailureClearsSession(t *testing.T) {
	b := &tokenBackend{refreshCode: http.StatusBadRequest}
	h := newHarness(t, b)
	h.login(t, "acc-1", "ref-1")
	require.NoError(t, h.store.SaveUser(mustUser(t)))

	var expired atomic.Int32
	h.client.Coordinator().OnExpired(func(error) { expired.Add(1) })

	_, err := h.client.Me(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)

	assert.EqualValues(t, 1, b.refreshes.Load())
	assert.EqualValues(t, 1, b.meCalls.Load())
	assert.EqualValues(t, 1, expired.Load())
	assert.Equal(t, StateFailed, h.client.Coordinator().State())

	creds, err := h.store.Load()
	require.NoError(t, err)
	assert.Nil(t, creds)
	user, err := h.store.LoadUser()
	require.NoError(t, err)
	assert.Nil(t, user)

	// Terminal: a later 401 does not refresh again.
	_, err = h.client.Me(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.EqualValues(t, 1, b.refreshes.Load())
	assert.EqualValues(t, 1, expired.Load())
	assert.Empty(t, h.notified.Messages())
}

func TestRefreshWithoutRefreshTokenExpires(t *testing.T) {
	b := &tokenBackend{next: "acc-2"}
	h := newHarness(t, b)
	h.login(t, "acc-1", "")

	_, err := h.client.Me(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.True(t, errors.Is(err, ErrNoRefreshToken))
	assert.Zero(t, b.refreshes.Load())
}

func TestRefreshNetworkFailureExpires(t *testing.T) {
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/refresh" {
			hj, ok := w.(http.Hijacker)
			if ok {
				conn, _, _ := hj.Hijack()
				_ = conn.Close()
				return
			}
		}
		writeJSON(w, http.StatusUnauthorized, `{"detail":"expired"}`)
	}))
	h.login(t, "acc-1", "ref-1")

	_, err := h.client.Me(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.True(t, apierr.IsNetwork(err))

	creds, err := h.store.Load()
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestReplayIsNotRefreshedAgain(t *testing.T) {
	var meCalls, refreshes atomic.Int32
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/refresh":
			refreshes.Add(1)
			writeJSON(w, http.StatusOK, `{"access_token":"acc-2","token_type":"bearer"}`)
		default:
			meCalls.Add(1)
			writeJSON(w, http.StatusUnauthorized, `{"detail":"revoked"}`)
		}
	}))
	h.login(t, "acc-1", "ref-1")

	_, err := h.client.Me(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, http.StatusUnauthorized, apierr.StatusOf(err))
	assert.EqualValues(t, 1, refreshes.Load())
	assert.EqualValues(t, 2, meCalls.Load())
	assert.Empty(t, h.notified.Messages())

	// No new refresh token in the response keeps the old one.
	creds, err := h.store.Load()
	require.NoError(t, err)
	assert.Equal(t, "acc-2", creds.AccessToken)
	assert.Equal(t, "ref-1", creds.RefreshToken)
}

func TestResetAfterFailure(t *testing.T) {
	b := &tokenBackend{refreshCode: http.StatusBadRequest}
	h := newHarness(t, b)
	h.login(t, "acc-1", "ref-1")

	_, err := h.client.Me(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)

	h.client.Coordinator().Reset()
	assert.Equal(t, StateNormal, h.client.Coordinator().State())
}

func TestLoginElsewhereLeavesFailedState(t *testing.T) {
	b := &tokenBackend{refreshCode: http.StatusBadRequest, next: "acc-3"}
	h := newHarness(t, b)
	h.login(t, "acc-1", "ref-1")

	var expired atomic.Int32
	h.client.Coordinator().OnExpired(func(error) { expired.Add(1) })

	_, err := h.client.Me(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
	require.Equal(t, StateFailed, h.client.Coordinator().State())

	// Another process logs in; its access token has already expired too.
	b.mu.Lock()
	b.refreshCode = 0
	b.mu.Unlock()
	h.login(t, "acc-2", "ref-1")

	u, err := h.client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, u.ID)
	assert.EqualValues(t, 2, b.refreshes.Load())
	assert.Equal(t, StateNormal, h.client.Coordinator().State())
	assert.EqualValues(t, 1, expired.Load())

	creds, err := h.store.Load()
	require.NoError(t, err)
	assert.Equal(t, "acc-3", creds.AccessToken)
	assert.Equal(t, "ref-2", creds.RefreshToken)
}

func TestFailedStateIgnoresSameToken(t *testing.T) {
	b := &tokenBackend{refreshCode: http.StatusBadRequest}
	h := newHarness(t, b)
	h.login(t, "acc-1", "ref-1")

	_, err := h.client.Me(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)

	// The rejected token written back does not count as a new login.
	h.login(t, "acc-1", "ref-1")
	_, err = h.client.Me(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.EqualValues(t, 1, b.refreshes.Load())
	assert.Equal(t, StateFailed, h.client.Coordinator().State())
}

func TestRefreshStateString(t *testing.T) {
	assert.Equal(t, "normal", StateNormal.String())
	assert.Equal(t, "refreshing", StateRefreshing.String())
	assert.Equal(t, "failed", StateFailed.String())
}
