package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aifinance/finctl/internal/model"
	"github.com/aifinance/finctl/internal/session"
)

type fakeSessions struct {
	mu          sync.Mutex
	state       session.State
	revalidates int
	ch          chan session.State
}

func (f *fakeSessions) State() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSessions) Subscribe() (<-chan session.State, func()) {
	return f.ch, func() {}
}

func (f *fakeSessions) StartRevalidation(context.Context, time.Duration) {}
func (f *fakeSessions) StopRevalidation()                                {}

func (f *fakeSessions) Revalidate(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.state.Authenticated {
		return false
	}
	f.revalidates++
	return true
}

func (f *fakeSessions) set(st session.State) {
	f.mu.Lock()
	f.state = st
	f.mu.Unlock()
}

type fakeProber struct {
	err error
}

func (p fakeProber) Health(context.Context) (model.Health, error) {
	if p.err != nil {
		return model.Health{}, p.err
	}
	return model.Health{Status: "healthy", Version: "1.0.0"}, nil
}

func loggedIn() session.State {
	return session.State{
		Authenticated: true,
		User:          &model.User{ID: 7, Email: "a@example.com"},
	}
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{Authenticated: true, UserID: 7, Email: "a@example.com", BackendUp: true}
	curr := Snapshot{Authenticated: false, BackendUp: true, SessionError: "api: session expired"}

	delta := diffSnapshots(prev, curr)
	if !delta.Authentication || !delta.User || !delta.Error {
		t.Fatalf("delta = %+v, want authentication, user and error changes", delta)
	}
	if delta.Backend {
		t.Fatal("backend unexpectedly reported as changed")
	}
	if eventType(delta) != "auth_changed" {
		t.Fatalf("eventType = %q, want auth_changed", eventType(delta))
	}
	if !diffSnapshots(curr, curr).isZero() {
		t.Fatal("identical snapshots reported a delta")
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{EventsBuffer: 2}, &fakeSessions{}, fakeProber{})

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestObservePublishesOnlyChanges(t *testing.T) {
	sessions := &fakeSessions{state: loggedIn()}
	s := New(Config{}, sessions, fakeProber{})

	s.probeOnce(context.Background())
	s.probeOnce(context.Background())

	sessions.set(session.State{Err: session.ErrSessionExpired})
	s.observe(sessions.State(), s.currentBackend())

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].Type != "snapshot" || s.events[1].Type != "auth_changed" {
		t.Fatalf("event types = [%s, %s]", s.events[0].Type, s.events[1].Type)
	}
	if !s.events[1].Snapshot.BackendUp {
		t.Fatal("backend state lost on session event")
	}
}

func TestProbeFailureRecordsError(t *testing.T) {
	s := New(Config{}, &fakeSessions{}, fakeProber{err: errors.New("api: network error")})
	s.probeOnce(context.Background())

	st := s.snapshotStatus()
	if st.LastError == "" {
		t.Fatal("LastError empty after failed probe")
	}
	if st.Summary.BackendUp {
		t.Fatal("backend reported up after failed probe")
	}
	if st.ProbeCount != 1 {
		t.Fatalf("ProbeCount = %d, want 1", st.ProbeCount)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := New(Config{BaseURL: "http://api"}, &fakeSessions{state: loggedIn()}, fakeProber{})
	s.probeOnce(context.Background())

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if !st.Summary.Authenticated || st.Summary.Email != "a@example.com" {
		t.Fatalf("summary = %+v", st.Summary)
	}
	if st.Summary.BackendVersion != "1.0.0" {
		t.Fatalf("backend version = %q", st.Summary.BackendVersion)
	}
	if st.RevalidateIntervalSec != 300 {
		t.Fatalf("RevalidateIntervalSec = %d, want 300", st.RevalidateIntervalSec)
	}
}

func TestRevalidateEndpoint(t *testing.T) {
	sessions := &fakeSessions{}
	s := New(Config{}, sessions, fakeProber{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/revalidate", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("logged out status = %d, want 409", resp.StatusCode)
	}

	sessions.set(loggedIn())
	resp, err = http.Post(srv.URL+"/v1/revalidate", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := s.snapshotStatus().RevalidateCount; got != 1 {
		t.Fatalf("RevalidateCount = %d, want 1", got)
	}
}

func TestStreamSendsCurrentSnapshot(t *testing.T) {
	s := New(Config{}, &fakeSessions{state: loggedIn()}, fakeProber{})
	s.probeOnce(context.Background())

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for len(lines) < 2 && sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if len(lines) < 2 || lines[0] != "event: snapshot" || !strings.Contains(lines[1], `"authenticated":true`) {
		t.Fatalf("stream lines = %q", lines)
	}
}

func TestRunFollowsSessionUpdates(t *testing.T) {
	sessions := &fakeSessions{state: loggedIn(), ch: make(chan session.State, 1)}
	s := New(Config{Addr: "127.0.0.1:0"}, sessions, fakeProber{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	sessions.ch <- session.State{}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !s.snapshotStatus().Summary.Authenticated && s.snapshotStatus().EventCount >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if s.snapshotStatus().Summary.Authenticated {
		t.Fatal("session update not observed")
	}
}
