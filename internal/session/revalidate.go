package session

import (
	"context"
	"errors"
	"time"

	"github.com/aifinance/finctl/internal/api"
)

// StartRevalidation re-fetches the profile every interval while credentials
// are stored, without touching the loading flag or notifying. It replaces
// any running task and stops when ctx is done or on Teardown.
func (m *Manager) StartRevalidation(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRevalidateInterval
	}
	m.StopRevalidation()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	m.revalMu.Lock()
	m.revalCancel = cancel
	m.revalDone = done
	m.revalMu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Revalidate(ctx)
			}
		}
	}()
}

// StopRevalidation cancels the revalidation task and waits for it to exit.
func (m *Manager) StopRevalidation() {
	m.revalMu.Lock()
	cancel, done := m.revalCancel, m.revalDone
	m.revalCancel, m.revalDone = nil, nil
	m.revalMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Revalidate runs one silent profile check. It reports whether a check was
// made; without stored credentials it does nothing.
func (m *Manager) Revalidate(ctx context.Context) bool {
	if !m.hasCredentials() {
		return false
	}
	_, err := m.fetchProfile(api.WithQuiet(ctx))
	switch {
	case err == nil:
		m.update(func() { m.err = nil })
	case errors.Is(err, api.ErrSessionExpired):
		// handleExpired already ran.
	case ctx.Err() != nil:
	default:
		m.log.Debug().Err(err).Msg("revalidation failed")
	}
	return true
}
