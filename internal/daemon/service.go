// Package daemon runs the refresh coordinator headless and serves its state
// over HTTP.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/theirongolddev/copilot-usage/internal/metrics"
	"github.com/theirongolddev/copilot-usage/internal/refresh"
	"github.com/theirongolddev/copilot-usage/internal/usage"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Coordinator  *refresh.Coordinator
	Addr         string
	Force        bool // fetch at startup even when the cache is fresh
	TickInterval time.Duration
	EventsBuffer int
	Logger       *zap.Logger
	Now          func() time.Time
}

// StateView is the JSON form of a refresh.State.
type StateView struct {
	State       string          `json:"state"`
	Stale       bool            `json:"stale"`
	InFlight    bool            `json:"in_flight"`
	Snapshot    *usage.Snapshot `json:"snapshot,omitempty"`
	Error       string          `json:"error,omitempty"`
	ErrorKind   string          `json:"error_kind,omitempty"`
	LastUpdated time.Time       `json:"last_updated"`
}

// Event is emitted on every coordinator transition.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	Trigger   string    `json:"trigger,omitempty"`
	State     StateView `json:"state"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastTickAt      time.Time `json:"last_tick_at"`
	TTLSec          int       `json:"ttl_sec"`
	AutoRefresh     bool      `json:"auto_refresh"`
	CachePath       string    `json:"cache_path"`
	State           StateView `json:"state"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service drives a Coordinator from its own loop goroutine. HTTP handlers
// never touch the coordinator; they read the view the loop publishes.
type Service struct {
	cfg   Config
	coord *refresh.Coordinator
	log   *zap.Logger

	refreshReq chan struct{}

	mu          sync.RWMutex
	startedAt   time.Time
	lastTickAt  time.Time
	status      Status
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a daemon service. The coordinator must not be started yet.
func New(cfg Config) *Service {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 250 * time.Millisecond
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Service{
		cfg:        cfg,
		coord:      cfg.Coordinator,
		log:        cfg.Logger,
		refreshReq: make(chan struct{}, 1),
		startedAt:  cfg.Now(),
		subs:       make(map[int]chan Event),
	}
	s.coord.Subscribe(s.onTransition)
	return s
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.handleHealth)
	r.Get("/v1/status", s.handleStatus)
	r.Post("/v1/refresh", s.handleRefresh)
	r.Get("/v1/events", s.handleEvents)
	r.Get("/v1/stream", s.handleStream)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Run starts the coordinator, the HTTP endpoints and the tick loop until ctx
// is canceled.
func (s *Service) Run(ctx context.Context) error {
	metrics.Register()

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("serving", zap.String("addr", s.cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.coord.Start(s.cfg.Force)
	s.publishStatus()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.log.Info("shutting down")
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.step()
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

// step is one loop iteration: apply requests, tick, publish.
func (s *Service) step() {
	select {
	case <-s.refreshReq:
		s.coord.Refresh(refresh.TriggerManual)
	default:
	}
	s.coord.Tick()
	s.publishStatus()
}

func (s *Service) onTransition(tr refresh.Transition) {
	s.mu.Lock()
	s.nextEventID++
	ev := Event{
		ID:        s.nextEventID,
		Type:      "transition",
		Timestamp: tr.At,
		From:      refresh.Name(tr.From),
		To:        refresh.Name(tr.To),
		Trigger:   tr.Trigger.String(),
		State:     s.viewOf(tr.To),
	}
	s.mu.Unlock()

	s.log.Info("state changed",
		zap.String("from", ev.From),
		zap.String("to", ev.To),
		zap.String("trigger", ev.Trigger),
	)
	s.publishEvent(ev)
}

// viewOf must be called from the loop goroutine.
func (s *Service) viewOf(st refresh.State) StateView {
	v := StateView{
		State:       refresh.Name(st),
		InFlight:    s.coord.InFlight(),
		LastUpdated: s.coord.LastUpdated(),
	}
	if snap, ok := refresh.SnapshotOf(st); ok {
		v.Snapshot = &snap
	}
	switch st := st.(type) {
	case refresh.Ready:
		v.Stale = st.Stale
	case refresh.Failed:
		v.Stale = st.Previous != nil
		if st.Err != nil {
			v.Error = st.Err.Error()
			v.ErrorKind = st.Err.Kind.String()
		}
	}
	return v
}

func (s *Service) publishStatus() {
	view := s.viewOf(s.coord.State())
	ttl := s.coord.TTL()
	auto := s.coord.AutoRefresh()
	path := s.coord.CachePath()

	s.mu.Lock()
	s.lastTickAt = s.cfg.Now()
	s.status = Status{
		StartedAt:   s.startedAt,
		LastTickAt:  s.lastTickAt,
		TTLSec:      int(ttl.Seconds()),
		AutoRefresh: auto,
		CachePath:   path,
		State:       view,
	}
	s.mu.Unlock()
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

	st := s.status
	st.EventCount = len(s.events)
	st.SubscriberCount = len(s.subs)
	return st
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	select {
	case s.refreshReq <- struct{}{}:
	default:
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
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

	// Send current state immediately.
	current := s.snapshotStatus()
	writeSSE(w, Event{
		Type:      "state",
		Timestamp: current.LastTickAt,
		To:        current.State.State,
		State:     current.State,
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
