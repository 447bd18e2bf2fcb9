// Package session owns the authenticated session: who is logged in, whether
// a profile fetch is running, and the background revalidation task.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aifinance/finctl/internal/api"
	"github.com/aifinance/finctl/internal/apierr"
	"github.com/aifinance/finctl/internal/credstore"
	"github.com/aifinance/finctl/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Navigation targets.
const (
	RouteLogin     = "/login"
	RouteDashboard = "/dashboard"
)

// DefaultRevalidateInterval is how often a live session re-checks the profile.
const DefaultRevalidateInterval = 5 * time.Minute

// ErrNotAuthenticated is returned by operations that need stored credentials.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// ErrSessionExpired is reported by Err after the backend rejected the
// session and refreshing failed.
var ErrSessionExpired = api.ErrSessionExpired

// Navigator moves the user to another screen or flow.
type Navigator interface {
	Navigate(target string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(target string)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(target string) { f(target) }

// State is a snapshot of the session.
type State struct {
	User          *model.User
	Loading       bool
	Authenticated bool
	Err           error
}

// Options configures a Manager.
type Options struct {
	Navigator Navigator
	Notifier  apierr.Notifier
	Logger    *zerolog.Logger
}

// Manager is the session context object shared by commands and the daemon.
type Manager struct {
	client   *api.Client
	store    credstore.Store
	nav      Navigator
	notifier apierr.Notifier
	log      zerolog.Logger
	profile  singleflight.Group

	mu       sync.RWMutex
	user     *model.User
	loading  bool
	err      error
	returnTo string
	subs     map[int]chan State
	nextSub  int
	closed   bool

	revalMu     sync.Mutex
	revalCancel context.CancelFunc
	revalDone   chan struct{}
}

// New creates a Manager and subscribes it to the client's session expiry.
func New(client *api.Client, store credstore.Store, opts Options) *Manager {
	m := &Manager{
		client:   client,
		store:    store,
		nav:      opts.Navigator,
		notifier: opts.Notifier,
		log:      zerolog.Nop(),
		subs:     make(map[int]chan State),
	}
	if m.nav == nil {
		m.nav = NavigatorFunc(func(string) {})
	}
	if m.notifier == nil {
		m.notifier = apierr.Discard
	}
	if opts.Logger != nil {
		m.log = opts.Logger.With().Str("component", "session").Logger()
	}
	client.Coordinator().OnExpired(m.handleExpired)
	return m
}

// User returns the current profile, or nil when logged out.
func (m *Manager) User() *model.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// IsLoading reports whether a loud operation is in progress.
func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// IsAuthenticated reports whether a user profile is loaded.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil
}

// Err returns the last operation's error.
func (m *Manager) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// State returns a snapshot of the session.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() State {
	s := State{Loading: m.loading, Authenticated: m.user != nil, Err: m.err}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	return s
}

// SetReturnTo records where Login should navigate on success.
func (m *Manager) SetReturnTo(target string) {
	m.mu.Lock()
	m.returnTo = target
	m.mu.Unlock()
}

// Subscribe returns a channel of state snapshots. Slow readers miss updates
// rather than block the manager. The channel closes on Teardown.
func (m *Manager) Subscribe() (<-chan State, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan State, 8)
	if m.closed {
		close(ch)
		return ch, func() {}
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
}

// update mutates state under the lock and publishes the result.
func (m *Manager) update(fn func()) {
	m.mu.Lock()
	fn()
	s := m.snapshotLocked()
	for _, ch := range m.subs {
		select {
		case ch <- s:
		default:
		}
	}
	m.mu.Unlock()
}

func (m *Manager) setLoading(v bool) {
	m.update(func() { m.loading = v })
}

// Init resumes a persisted session. The cached profile is shown at once and
// then replaced by a fresh copy from the backend.
func (m *Manager) Init(ctx context.Context) error {
	creds, err := m.store.Load()
	if err != nil {
		return fmt.Errorf("session: loading credentials: %w", err)
	}
	if creds == nil {
		m.update(func() { m.user, m.loading = nil, false })
		return nil
	}

	cached, err := m.store.LoadUser()
	if err != nil {
		m.log.Warn().Err(err).Msg("reading cached user")
	}
	m.update(func() {
		m.user = cached
		m.loading = true
	})

	_, err = m.fetchProfile(ctx)
	m.update(func() {
		m.loading = false
		m.err = err
	})
	return err
}

// fetchProfile loads /users/me, caching it on success. Concurrent fetches
// with the same quietness share one request, which outlives any one caller.
func (m *Manager) fetchProfile(ctx context.Context) (*model.User, error) {
	key := "me"
	if api.IsQuiet(ctx) {
		key = "me:quiet"
	}
	shared := context.WithoutCancel(ctx)
	ch := m.profile.DoChan(key, func() (any, error) {
		u, err := m.client.Me(shared)
		if err != nil {
			return nil, err
		}
		return &u, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}
	u := res.Val.(*model.User)
	if err := m.store.SaveUser(*u); err != nil {
		m.log.Warn().Err(err).Msg("caching user")
	}
	m.update(func() {
		cp := *u
		m.user = &cp
	})
	return u, nil
}

// Login authenticates, stores the credentials and loads the profile, then
// navigates to the return-to target or the dashboard.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.update(func() {
		m.loading = true
		m.err = nil
	})

	err := m.login(ctx, email, password)

	var target string
	m.update(func() {
		m.loading = false
		m.err = err
		if err == nil {
			target = m.returnTo
			m.returnTo = ""
		}
	})
	if err != nil {
		return err
	}
	if target == "" {
		target = RouteDashboard
	}
	m.nav.Navigate(target)
	return nil
}

func (m *Manager) login(ctx context.Context, email, password string) error {
	creds, err := m.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if err := m.store.Save(*creds); err != nil {
		return fmt.Errorf("session: saving credentials: %w", err)
	}
	m.client.Coordinator().Reset()

	u, err := m.fetchProfile(ctx)
	if err != nil {
		return err
	}
	m.log.Info().Int("user_id", u.ID).Msg("logged in")
	return nil
}

// Register creates the account and logs in with the same credentials.
func (m *Manager) Register(ctx context.Context, in model.RegisterRequest) error {
	m.update(func() {
		m.loading = true
		m.err = nil
	})
	if _, err := m.client.Register(ctx, in); err != nil {
		m.update(func() {
			m.loading = false
			m.err = err
		})
		return err
	}
	return m.Login(ctx, in.Email, in.Password)
}

// Logout invalidates the session server-side when it can and always clears
// local credentials.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.client.Logout(ctx); err != nil {
		m.log.Debug().Err(err).Msg("server logout failed; clearing locally")
	}
	clearErr := m.store.Clear()
	m.update(func() {
		m.user = nil
		m.err = nil
		m.loading = false
	})
	m.nav.Navigate(RouteLogin)
	if clearErr != nil {
		return fmt.Errorf("session: clearing credentials: %w", clearErr)
	}
	return nil
}

// UpdateUser applies a partial profile update and caches the result.
func (m *Manager) UpdateUser(ctx context.Context, in model.UserUpdate) (*model.User, error) {
	if !m.hasCredentials() {
		return nil, ErrNotAuthenticated
	}
	u, err := m.client.UpdateMe(ctx, in)
	if err != nil {
		m.update(func() { m.err = err })
		return nil, err
	}
	if err := m.store.SaveUser(u); err != nil {
		m.log.Warn().Err(err).Msg("caching user")
	}
	m.update(func() {
		m.user = &u
		m.err = nil
	})
	out := u
	return &out, nil
}

// RefreshUser re-fetches the profile, flipping the loading flag.
func (m *Manager) RefreshUser(ctx context.Context) (*model.User, error) {
	if !m.hasCredentials() {
		return nil, ErrNotAuthenticated
	}
	m.setLoading(true)
	u, err := m.fetchProfile(ctx)
	m.update(func() {
		m.loading = false
		if !errors.Is(err, api.ErrSessionExpired) {
			m.err = err
		}
	})
	return u, err
}

func (m *Manager) hasCredentials() bool {
	creds, err := m.store.Load()
	return err == nil && creds != nil
}

// handleExpired runs when the coordinator gives up on the session.
func (m *Manager) handleExpired(cause error) {
	m.log.Warn().Err(cause).Msg("session expired")
	m.update(func() {
		m.user = nil
		m.loading = false
		m.err = ErrSessionExpired
	})
	m.notifier.Notify(apierr.MsgSessionExpired)
	m.nav.Navigate(RouteLogin)
}

// Teardown stops revalidation and closes subscriber channels.
func (m *Manager) Teardown() {
	m.StopRevalidation()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for id, ch := range m.subs {
		close(ch)
		delete(m.subs, id)
	}
}
