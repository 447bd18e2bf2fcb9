// Package daemon keeps a session warm in the background and reports its
// state over HTTP and server-sent events.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aifinance/finctl/internal/model"
	"github.com/aifinance/finctl/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Sessions is the part of the session manager the daemon drives.
type Sessions interface {
	State() session.State
	Subscribe() (<-chan session.State, func())
	StartRevalidation(ctx context.Context, interval time.Duration)
	StopRevalidation()
	Revalidate(ctx context.Context) bool
}

// Prober checks backend reachability.
type Prober interface {
	Health(ctx context.Context) (model.Health, error)
}

// Config controls the daemon runtime behavior.
type Config struct {
	Addr               string
	RevalidateInterval time.Duration
	ProbeInterval      time.Duration
	EventsBuffer       int
	BaseURL            string
	Logger             *zerolog.Logger
}

// Snapshot is a compact session state for status/event payloads.
type Snapshot struct {
	At             time.Time `json:"at"`
	Authenticated  bool      `json:"authenticated"`
	UserID         int       `json:"user_id,omitempty"`
	Email          string    `json:"email,omitempty"`
	Loading        bool      `json:"loading"`
	SessionError   string    `json:"session_error,omitempty"`
	BackendUp      bool      `json:"backend_up"`
	BackendVersion string    `json:"backend_version,omitempty"`
}

// Delta flags what changed between two snapshots.
type Delta struct {
	Authentication bool `json:"authentication"`
	User           bool `json:"user"`
	Backend        bool `json:"backend"`
	Error          bool `json:"error"`
}

func (d Delta) isZero() bool {
	return !d.Authentication && !d.User && !d.Backend && !d.Error
}

// Event is emitted whenever the snapshot changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt             time.Time `json:"started_at"`
	LastProbeAt           time.Time `json:"last_probe_at"`
	RevalidateIntervalSec int       `json:"revalidate_interval_sec"`
	ProbeCount            int64     `json:"probe_count"`
	RevalidateCount       int64     `json:"revalidate_count"`
	BaseURL               string    `json:"base_url,omitempty"`
	Summary               Snapshot  `json:"summary"`
	LastError             string    `json:"last_error,omitempty"`
	EventCount            int       `json:"event_count"`
	SubscriberCount       int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg      Config
	sessions Sessions
	prober   Prober
	log      zerolog.Logger

	mu              sync.RWMutex
	startedAt       time.Time
	lastProbeAt     time.Time
	probeCount      int64
	revalidateCount int64
	lastError       string
	hasSnapshot     bool
	snapshot        Snapshot
	nextEventID     int64
	events          []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service.
func New(cfg Config, sessions Sessions, prober Prober) *Service {
	if cfg.RevalidateInterval <= 0 {
		cfg.RevalidateInterval = session.DefaultRevalidateInterval
	}
	if cfg.ProbeInterval < time.Second {
		cfg.ProbeInterval = time.Minute
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8788"
	}

	s := &Service{
		cfg:       cfg,
		sessions:  sessions,
		prober:    prober,
		log:       zerolog.Nop(),
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
	if cfg.Logger != nil {
		s.log = cfg.Logger.With().Str("component", "daemon").Logger()
	}
	return s
}

// Handler returns the daemon's HTTP routes.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/events", s.handleEvents)
		r.Get("/stream", s.handleStream)
		r.Post("/revalidate", s.handleRevalidate)
	})
	return r
}

// Run serves HTTP, keeps the session revalidated and probes the backend
// until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	states, unsubscribe := s.sessions.Subscribe()
	defer unsubscribe()

	s.sessions.StartRevalidation(ctx, s.cfg.RevalidateInterval)
	defer s.sessions.StopRevalidation()

	// Seed initial snapshot so status is useful immediately.
	s.probeOnce(ctx)

	ticker := time.NewTicker(s.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case st, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			s.observe(st, s.currentBackend())
		case <-ticker.C:
			s.probeOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

type backendState struct {
	up      bool
	version string
}

func (s *Service) currentBackend() backendState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return backendState{up: s.snapshot.BackendUp, version: s.snapshot.BackendVersion}
}

func (s *Service) probeOnce(ctx context.Context) {
	var b backendState
	h, err := s.prober.Health(ctx)
	if err == nil {
		b = backendState{up: true, version: h.Version}
	}

	s.mu.Lock()
	s.lastProbeAt = time.Now()
	s.probeCount++
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Warn().Err(err).Msg("backend probe failed")
	}
	s.observe(s.sessions.State(), b)
}

// observe records a new snapshot and publishes an event when it differs.
func (s *Service) observe(st session.State, b backendState) {
	now := time.Now()
	snap := snapshotFrom(st, b, now)

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot
	s.hasSnapshot = true
	s.snapshot = snap

	if !prevExists {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: "snapshot", Timestamp: now, Snapshot: snap}
		publish = true
	} else if delta := diffSnapshots(prev, snap); !delta.isZero() {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: eventType(delta), Timestamp: now, Snapshot: snap, Delta: delta}
		publish = true
	}
	s.mu.Unlock()

	if publish {
		s.log.Debug().Str("type", ev.Type).Bool("authenticated", snap.Authenticated).Msg("session event")
		s.publishEvent(ev)
	}
}

func eventType(d Delta) string {
	switch {
	case d.Authentication:
		return "auth_changed"
	case d.User:
		return "user_changed"
	case d.Backend:
		return "backend_changed"
	default:
		return "error_changed"
	}
}

func snapshotFrom(st session.State, b backendState, at time.Time) Snapshot {
	snap := Snapshot{
		At:             at,
		Authenticated:  st.Authenticated,
		Loading:        st.Loading,
		BackendUp:      b.up,
		BackendVersion: b.version,
	}
	if st.User != nil {
		snap.UserID = st.User.ID
		snap.Email = st.User.Email
	}
	if st.Err != nil {
		snap.SessionError = st.Err.Error()
	}
	return snap
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Authentication: prev.Authenticated != curr.Authenticated,
		User:           prev.UserID != curr.UserID || prev.Email != curr.Email,
		Backend:        prev.BackendUp != curr.BackendUp || prev.BackendVersion != curr.BackendVersion,
		Error:          prev.SessionError != curr.SessionError,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:             s.startedAt,
		LastProbeAt:           s.lastProbeAt,
		RevalidateIntervalSec: int(s.cfg.RevalidateInterval.Seconds()),
		ProbeCount:            s.probeCount,
		RevalidateCount:       s.revalidateCount,
		BaseURL:               s.cfg.BaseURL,
		Summary:               s.snapshot,
		LastError:             s.lastError,
		EventCount:            len(s.events),
		SubscriberCount:       len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

// handleRevalidate runs one silent profile check immediately.
func (s *Service) handleRevalidate(w http.ResponseWriter, r *http.Request) {
	checked := s.sessions.Revalidate(r.Context())
	if checked {
		s.mu.Lock()
		s.revalidateCount++
		s.mu.Unlock()
	}
	s.observe(s.sessions.State(), s.currentBackend())

	status := http.StatusOK
	if !checked {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]any{
		"checked":       checked,
		"authenticated": s.sessions.State().Authenticated,
	})
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	writeSSE(w, Event{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
