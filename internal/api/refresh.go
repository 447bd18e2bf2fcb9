package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/aifinance/finctl/internal/credstore"

	"github.com/rs/zerolog"
)

// ErrSessionExpired is returned when a 401 could not be recovered by
// refreshing. Credentials have been cleared by the time it is returned.
var ErrSessionExpired = errors.New("api: session expired")

// ErrNoRefreshToken means the store holds no refresh token to exchange.
var ErrNoRefreshToken = errors.New("api: no refresh token")

// RefreshState is the coordinator's state.
type RefreshState int

const (
	StateNormal RefreshState = iota
	StateRefreshing
	StateFailed
)

func (s RefreshState) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateRefreshing:
		return "refreshing"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("RefreshState(%d)", int(s))
	}
}

// RefreshFunc exchanges a refresh token for new credentials.
type RefreshFunc func(ctx context.Context, refreshToken string) (*credstore.Credentials, error)

type flight struct {
	done chan struct{}
	err  error
}

// Coordinator recovers 401 responses by refreshing the access token once and
// replaying the failed request. Concurrent 401s share one refresh.
type Coordinator struct {
	store   credstore.Store
	refresh RefreshFunc
	log     zerolog.Logger

	mu        sync.Mutex
	state     RefreshState
	inflight  *flight
	refreshes int
	hooks     []func(error)

	// failedToken is the access token whose refresh failed. Credentials
	// stored under a different token mean a login happened elsewhere.
	failedToken string
}

func newCoordinator(store credstore.Store, refresh RefreshFunc, log zerolog.Logger) *Coordinator {
	return &Coordinator{store: store, refresh: refresh, log: log}
}

// State returns the current coordinator state.
func (co *Coordinator) State() RefreshState {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.state
}

// Refreshes returns how many refresh exchanges have been issued.
func (co *Coordinator) Refreshes() int {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.refreshes
}

// OnExpired registers fn to run after an unrecoverable refresh failure.
func (co *Coordinator) OnExpired(fn func(error)) {
	co.mu.Lock()
	co.hooks = append(co.hooks, fn)
	co.mu.Unlock()
}

// Reset returns the coordinator to normal after a fresh login.
func (co *Coordinator) Reset() {
	co.mu.Lock()
	co.state = StateNormal
	co.failedToken = ""
	co.mu.Unlock()
}

// Middleware replays a request once after a successful refresh when the
// backend answers 401.
func (co *Coordinator) Middleware(next Doer) Doer {
	return func(ctx context.Context, req *Request) (*Response, error) {
		resp, err := next(ctx, req)
		if !needsRefresh(req, err) {
			return resp, err
		}

		if err := co.recover(ctx, req.sentToken); err != nil {
			return resp, err
		}

		req.retried = true
		co.log.Debug().Str("method", req.Method).Str("path", req.Path).Msg("replaying request after refresh")
		return next(ctx, req)
	}
}

func needsRefresh(req *Request, err error) bool {
	if req.NoAuth || req.NoRefresh || req.retried {
		return false
	}
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusUnauthorized
}

// recover makes sure a fresh access token is stored. sent is the token the
// failed request carried; if the store already holds a different one, a
// refresh has completed since and the request is simply replayed.
func (co *Coordinator) recover(ctx context.Context, sent string) error {
	co.mu.Lock()
	if co.state == StateFailed {
		creds, err := co.store.Load()
		if err != nil || creds == nil || creds.AccessToken == "" || creds.AccessToken == co.failedToken {
			co.mu.Unlock()
			return ErrSessionExpired
		}
		co.log.Debug().Msg("new credentials stored since refresh failure; leaving failed state")
		co.state = StateNormal
		co.failedToken = ""
	}
	if co.state == StateRefreshing {
		f := co.inflight
		co.mu.Unlock()
		select {
		case <-f.done:
			return f.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if creds, err := co.store.Load(); err == nil && creds != nil && creds.AccessToken != sent {
		co.mu.Unlock()
		return nil
	}

	f := &flight{done: make(chan struct{})}
	co.inflight = f
	co.state = StateRefreshing
	co.refreshes++
	co.mu.Unlock()

	f.err = co.runRefresh(context.WithoutCancel(ctx))

	co.mu.Lock()
	co.inflight = nil
	if f.err != nil {
		co.state = StateFailed
		co.failedToken = sent
	} else {
		co.state = StateNormal
	}
	hooks := append([]func(error){}, co.hooks...)
	co.mu.Unlock()
	close(f.done)

	if f.err != nil {
		for _, fn := range hooks {
			fn(f.err)
		}
	}
	return f.err
}

func (co *Coordinator) runRefresh(ctx context.Context) error {
	creds, err := co.store.Load()
	if err == nil && (creds == nil || !creds.HasRefreshToken()) {
		err = ErrNoRefreshToken
	}
	var next *credstore.Credentials
	if err == nil {
		next, err = co.refresh(ctx, creds.RefreshToken)
	}
	if err == nil {
		if next.RefreshToken == "" {
			next.RefreshToken = creds.RefreshToken
		}
		err = co.store.Save(*next)
	}
	if err == nil {
		co.log.Debug().Msg("access token refreshed")
		return nil
	}

	co.log.Warn().Err(err).Msg("token refresh failed; clearing session")
	if cerr := co.store.Clear(); cerr != nil {
		co.log.Error().Err(cerr).Msg("clearing credentials")
	}
	return fmt.Errorf("%w: %w", ErrSessionExpired, err)
}
