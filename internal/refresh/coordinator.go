package refresh

import (
	"context"
	"time"

	"github.com/theirongolddev/copilot-usage/internal/metrics"
	"github.com/theirongolddev/copilot-usage/internal/store"
	"github.com/theirongolddev/copilot-usage/internal/usage"

	"go.uber.org/zap"
)

// DefaultFetchTimeout bounds one fetch when Config.FetchTimeout is unset.
const DefaultFetchTimeout = 30 * time.Second

// Fetcher performs one usage query.
type Fetcher interface {
	Fetch(ctx context.Context) (usage.Snapshot, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (usage.Snapshot, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context) (usage.Snapshot, error) { return f(ctx) }

// Config wires a Coordinator.
type Config struct {
	Fetcher      Fetcher
	Store        store.Store
	TTL          time.Duration
	FetchTimeout time.Duration
	Now          func() time.Time
	Logger       *zap.Logger
}

type phase int

const (
	phaseLoading phase = iota
	phaseReady
	phaseRefreshing
	phaseFailed
)

type result struct {
	snap    usage.Snapshot
	err     error
	trigger Trigger
	elapsed time.Duration
}

// Coordinator owns the usage State. Every method must be called from the
// same goroutine (the render loop or the service loop); the only other
// goroutine is the fetch itself, which hands back exactly one result over a
// one-slot channel.
type Coordinator struct {
	fetcher      Fetcher
	store        store.Store
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	logger       *zap.Logger

	phase  phase
	snap   *usage.Snapshot
	snapAt time.Time
	err    *usage.FetchError

	inflight    bool
	lastAttempt time.Time
	autoRefresh bool
	results     chan result
	listeners   []Listener
}

// New creates a coordinator in the Loading state. Call Start to begin.
func New(cfg Config) *Coordinator {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &Coordinator{
		fetcher:      cfg.Fetcher,
		store:        cfg.Store,
		ttl:          cfg.TTL,
		fetchTimeout: cfg.FetchTimeout,
		now:          cfg.Now,
		logger:       cfg.Logger,
		autoRefresh:  true,
		results:      make(chan result, 1),
	}
}

// Start consults the cache. A fresh entry becomes Ready with no fetch; a
// stale one becomes Ready (stale) with a background fetch; no entry means
// Loading and a fetch. force fetches even when the entry is fresh.
func (c *Coordinator) Start(force bool) {
	from := c.State()

	entry, ok := c.store.Load()
	if !ok {
		c.logger.Info("no cached usage, fetching")
		c.phase = phaseLoading
		c.spawn(TriggerStartup)
		c.notify(from, TriggerStartup)
		return
	}

	snap := entry.Snapshot
	c.snap = &snap
	c.snapAt = entry.Timestamp
	c.phase = phaseReady
	metrics.SetUsage(snap.Used, snap.Limit, snap.Remaining, snap.FetchedAt)
	c.notify(from, TriggerStartup)

	fresh := store.IsFresh(entry, c.ttl, c.now())
	c.logger.Info("loaded cached usage",
		zap.Time("stored_at", entry.Timestamp),
		zap.Bool("fresh", fresh),
	)
	switch {
	case force:
		c.Refresh(TriggerForced)
	case !fresh:
		c.Refresh(TriggerStartup)
	}
}

// Refresh starts a fetch unless one is already in flight, in which case the
// request is dropped and false is returned.
func (c *Coordinator) Refresh(trigger Trigger) bool {
	if c.inflight {
		metrics.RefreshesRejectedTotal.Inc()
		c.logger.Debug("refresh dropped, fetch in flight", zap.Stringer("trigger", trigger))
		return false
	}

	from := c.State()
	switch c.phase {
	case phaseReady:
		if !trigger.background() {
			c.phase = phaseRefreshing
		}
	case phaseFailed:
		c.phase = phaseRefreshing
	}
	c.spawn(trigger)
	c.notify(from, trigger)
	return true
}

func (c *Coordinator) spawn(trigger Trigger) {
	c.inflight = true
	c.lastAttempt = c.now()

	fetcher, timeout, out := c.fetcher, c.fetchTimeout, c.results
	go func() {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		snap, err := fetcher.Fetch(ctx)
		out <- result{snap: snap, err: err, trigger: trigger, elapsed: time.Since(start)}
	}()
}

// Poll applies a completed fetch if one is waiting. It never blocks and
// reports whether the state changed.
func (c *Coordinator) Poll() bool {
	select {
	case res := <-c.results:
		c.apply(res)
		return true
	default:
		return false
	}
}

// Tick polls and then starts an automatic refresh when the data has gone
// stale or the last failure is at least one TTL old.
func (c *Coordinator) Tick() bool {
	changed := c.Poll()
	if c.autoRefresh && !c.inflight && c.due(c.now()) {
		if c.Refresh(TriggerAuto) {
			changed = true
		}
	}
	return changed
}

func (c *Coordinator) due(now time.Time) bool {
	if now.Sub(c.lastAttempt) < c.ttl {
		return false
	}
	switch c.phase {
	case phaseReady:
		return !c.fresh(now)
	case phaseFailed:
		return true
	default:
		return false
	}
}

// Wait blocks until the in-flight fetch finishes and applies it.
func (c *Coordinator) Wait(ctx context.Context) error {
	if !c.inflight {
		return nil
	}
	select {
	case res := <-c.results:
		c.apply(res)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) apply(res result) {
	from := c.State()
	c.inflight = false
	c.lastAttempt = c.now()

	if res.err != nil {
		fe := usage.Classify(res.err)
		metrics.ObserveFetch(fe.Kind.String(), res.elapsed)
		c.err = fe
		c.phase = phaseFailed
		c.logger.Warn("usage fetch failed",
			zap.Stringer("trigger", res.trigger),
			zap.Stringer("kind", fe.Kind),
			zap.Int("status", fe.Status),
			zap.Error(fe),
		)
		c.notify(from, res.trigger)
		return
	}

	snap := res.snap
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = c.lastAttempt
	}
	metrics.ObserveFetch("ok", res.elapsed)
	metrics.SetUsage(snap.Used, snap.Limit, snap.Remaining, snap.FetchedAt)

	c.snap = &snap
	c.snapAt = snap.FetchedAt
	c.err = nil
	c.phase = phaseReady

	if err := c.store.Save(store.NewEntry(snap)); err != nil {
		metrics.CacheWriteErrorsTotal.Inc()
		c.logger.Warn("saving usage cache", zap.String("path", c.store.Path()), zap.Error(err))
	}
	c.logger.Info("usage refreshed",
		zap.Stringer("trigger", res.trigger),
		zap.Float64("used", snap.Used),
		zap.Float64("limit", snap.Limit),
		zap.Duration("elapsed", res.elapsed),
	)
	c.notify(from, res.trigger)
}

func (c *Coordinator) fresh(now time.Time) bool {
	return c.snap != nil && store.IsFresh(store.Entry{Timestamp: c.snapAt}, c.ttl, now)
}

// State returns the current state. Staleness is evaluated now.
func (c *Coordinator) State() State {
	switch c.phase {
	case phaseReady:
		return Ready{Snapshot: *c.snap, Stale: !c.fresh(c.now())}
	case phaseRefreshing:
		return Refreshing{Previous: c.snap}
	case phaseFailed:
		return Failed{Err: c.err, Previous: c.snap}
	default:
		return Loading{}
	}
}

// InFlight reports whether a fetch is running.
func (c *Coordinator) InFlight() bool { return c.inflight }

// Pending reports whether a finished fetch is waiting for Poll.
func (c *Coordinator) Pending() bool { return len(c.results) > 0 }

// LastUpdated returns when the shown data was fetched, zero if none.
func (c *Coordinator) LastUpdated() time.Time { return c.snapAt }

// TTL returns the freshness window.
func (c *Coordinator) TTL() time.Duration { return c.ttl }

// SetTTL changes the freshness window.
func (c *Coordinator) SetTTL(d time.Duration) { c.ttl = d }

// AutoRefresh reports whether stale data is refreshed automatically.
func (c *Coordinator) AutoRefresh() bool { return c.autoRefresh }

// SetAutoRefresh pauses or resumes automatic refreshes.
func (c *Coordinator) SetAutoRefresh(on bool) { c.autoRefresh = on }

// CachePath returns where the snapshot is persisted.
func (c *Coordinator) CachePath() string { return c.store.Path() }

// Subscribe registers fn for every future transition.
func (c *Coordinator) Subscribe(fn Listener) {
	c.listeners = append(c.listeners, fn)
}

func (c *Coordinator) notify(from State, trigger Trigger) {
	if len(c.listeners) == 0 {
		return
	}
	tr := Transition{From: from, To: c.State(), Trigger: trigger, At: c.now()}
	for _, fn := range c.listeners {
		fn(tr)
	}
}
