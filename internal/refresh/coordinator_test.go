package refresh

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/theirongolddev/copilot-usage/internal/store"
	"github.com/theirongolddev/copilot-usage/internal/usage"
)

const testTTL = 5 * time.Minute

type reply struct {
	snap usage.Snapshot
	err  error
}

// fakeFetcher blocks each Fetch until the test sends a reply.
type fakeFetcher struct {
	calls   atomic.Int32
	replies chan reply
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{replies: make(chan reply, 4)}
}

func (f *fakeFetcher) Fetch(ctx context.Context) (usage.Snapshot, error) {
	f.calls.Add(1)
	select {
	case r := <-f.replies:
		return r.snap, r.err
	case <-ctx.Done():
		return usage.Snapshot{}, ctx.Err()
	}
}

type memStore struct {
	entry   store.Entry
	ok      bool
	saves   int
	saveErr error
}

func (m *memStore) Load() (store.Entry, bool) { return m.entry, m.ok }

func (m *memStore) Save(e store.Entry) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.entry, m.ok = e, true
	return nil
}

func (m *memStore) Path() string { return "memory" }

func (m *memStore) Clear() error {
	m.entry, m.ok = store.Entry{}, false
	return nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)}
}

func snapAt(used, limit float64, at time.Time) usage.Snapshot {
	return usage.NewSnapshot(used, limit, map[string]float64{"GPT-4.1": used}, at)
}

func newCoordinator(f Fetcher, s store.Store, clk *clock) *Coordinator {
	return New(Config{Fetcher: f, Store: s, TTL: testTTL, Now: clk.now, FetchTimeout: 5 * time.Second})
}

func wait(t *testing.T, c *Coordinator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func waitCalls(t *testing.T, f *fakeFetcher, n int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for f.calls.Load() < n {
		if time.Now().After(deadline) {
			t.Fatalf("fetch calls = %d, want %d", f.calls.Load(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStartWithEmptyCacheFetchesAndCaches(t *testing.T) {
	clk := newClock()
	f := newFakeFetcher()
	fs := store.NewFileStore(filepath.Join(t.TempDir(), "usage.json"), nil)
	c := newCoordinator(f, fs, clk)

	c.Start(false)
	if _, ok := c.State().(Loading); !ok {
		t.Fatalf("state after Start = %s, want loading", Name(c.State()))
	}
	if !c.InFlight() {
		t.Fatal("InFlight = false, want true")
	}

	f.replies <- reply{snap: snapAt(42, 100, clk.now())}
	wait(t, c)

	ready, ok := c.State().(Ready)
	if !ok {
		t.Fatalf("state = %s, want ready", Name(c.State()))
	}
	if ready.Stale {
		t.Fatal("Ready.Stale = true, want false")
	}
	if ready.Snapshot.Used != 42 || ready.Snapshot.Limit != 100 {
		t.Fatalf("snapshot = %v/%v, want 42/100", ready.Snapshot.Used, ready.Snapshot.Limit)
	}

	entry, ok := fs.Load()
	if !ok {
		t.Fatal("cache file has no entry after successful fetch")
	}
	if entry.Snapshot.Used != 42 || entry.Snapshot.Limit != 100 {
		t.Fatalf("cached snapshot = %v/%v, want 42/100", entry.Snapshot.Used, entry.Snapshot.Limit)
	}
	if got := f.calls.Load(); got != 1 {
		t.Fatalf("fetch calls = %d, want 1", got)
	}
}

func TestStartWithFreshCacheDoesNotFetch(t *testing.T) {
	clk := newClock()
	f := newFakeFetcher()
	ms := &memStore{ok: true, entry: store.NewEntry(snapAt(10, 300, clk.now().Add(-time.Minute)))}
	c := newCoordinator(f, ms, clk)

	c.Start(false)

	ready, ok := c.State().(Ready)
	if !ok || ready.Stale {
		t.Fatalf("state = %#v, want fresh ready", c.State())
	}
	if c.InFlight() {
		t.Fatal("fresh cache should not start a fetch")
	}
	if got := f.calls.Load(); got != 0 {
		t.Fatalf("fetch calls = %d, want 0", got)
	}
}

func TestStartWithStaleCacheRefreshesInBackground(t *testing.T) {
	clk := newClock()
	f := newFakeFetcher()
	old := snapAt(10, 300, clk.now().Add(-10*time.Minute))
	ms := &memStore{ok: true, entry: store.NewEntry(old)}
	c := newCoordinator(f, ms, clk)

	c.Start(false)

	ready, ok := c.State().(Ready)
	if !ok {
		t.Fatalf("state = %s, want ready", Name(c.State()))
	}
	if !ready.Stale {
		t.Fatal("Ready.Stale = false, want true")
	}
	if !c.InFlight() {
		t.Fatal("stale cache should start a background fetch")
	}

	// Ticks and manual requests while the fetch runs must not add fetches.
	for range 5 {
		c.Tick()
	}
	if c.Refresh(TriggerManual) {
		t.Fatal("Refresh during background fetch = true, want false")
	}
	waitCalls(t, f, 1)

	f.replies <- reply{snap: snapAt(20, 300, clk.now())}
	wait(t, c)

	if got := f.calls.Load(); got != 1 {
		t.Fatalf("fetch calls = %d, want 1", got)
	}
	ready, ok = c.State().(Ready)
	if !ok || ready.Stale || ready.Snapshot.Used != 20 {
		t.Fatalf("state = %#v, want fresh ready with used 20", c.State())
	}
	if ms.entry.Snapshot.Used != 20 {
		t.Fatalf("cached used = %v, want 20", ms.entry.Snapshot.Used)
	}
}

func TestRefreshWhileRefreshingIsNoOp(t *testing.T) {
	clk := newClock()
	f := newFakeFetcher()
	prev := snapAt(10, 300, clk.now())
	ms := &memStore{ok: true, entry: store.NewEntry(prev)}
	c := newCoordinator(f, ms, clk)
	c.Start(false)

	if !c.Refresh(TriggerManual) {
		t.Fatal("first Refresh = false, want true")
	}
	before, ok := c.State().(Refreshing)
	if !ok || before.Previous == nil || before.Previous.Used != 10 {
		t.Fatalf("state = %#v, want refreshing with previous", c.State())
	}

	for range 3 {
		if c.Refresh(TriggerManual) {
			t.Fatal("Refresh while refreshing = true, want false")
		}
	}
	after, ok := c.State().(Refreshing)
	if !ok || after.Previous != before.Previous {
		t.Fatalf("state changed by rejected refresh: %#v", c.State())
	}

	f.replies <- reply{snap: snapAt(11, 300, clk.now())}
	wait(t, c)
	if got := f.calls.Load(); got != 1 {
		t.Fatalf("fetch calls = %d, want 1", got)
	}
}

func TestFailedRefreshKeepsPreviousSnapshot(t *testing.T) {
	clk := newClock()
	f := newFakeFetcher()
	prev := snapAt(10, 300, clk.now())
	ms := &memStore{ok: true, entry: store.NewEntry(prev)}
	c := newCoordinator(f, ms, clk)
	c.Start(false)

	c.Refresh(TriggerManual)
	f.replies <- reply{err: usage.NewFetchError(usage.KindUnauthorized, 401, nil)}
	wait(t, c)

	failed, ok := c.State().(Failed)
	if !ok {
		t.Fatalf("state = %s, want failed", Name(c.State()))
	}
	if failed.Err.Kind != usage.KindUnauthorized {
		t.Fatalf("Err.Kind = %v, want unauthorized", failed.Err.Kind)
	}
	if failed.Previous == nil || failed.Previous.Used != 10 {
		t.Fatalf("Previous = %v, want snapshot with used 10", failed.Previous)
	}
	if ms.saves != 0 {
		t.Fatalf("store saves = %d, want 0 after failure", ms.saves)
	}
	if ms.entry.Snapshot.Used != 10 {
		t.Fatalf("cached used = %v, want untouched 10", ms.entry.Snapshot.Used)
	}
}

func TestFailedFromLoadingHasNoPrevious(t *testing.T) {
	clk := newClock()
	f := newFakeFetcher()
	c := newCoordinator(f, &memStore{}, clk)
	c.Start(false)

	f.replies <- reply{err: errors.New("connection refused")}
	wait(t, c)

	failed, ok := c.State().(Failed)
	if !ok {
		t.Fatalf("state = %s, want failed", Name(c.State()))
	}
	if failed.Previous != nil {
		t.Fatalf("Previous = %v, want nil", failed.Previous)
	}
	if failed.Err.Kind != usage.KindNetwork {
		t.Fatalf("Err.Kind = %v, want network", failed.Err.Kind)
	}
}

func TestPollIsNonBlockingAndAppliesOnce(t *testing.T) {
	clk := newClock()
	f := newFakeFetcher()
	c := newCoordinator(f, &memStore{}, clk)
	c.Start(false)

	if c.Poll() {
		t.Fatal("Poll before completion = true, want false")
	}

	f.replies <- reply{snap: snapAt(5, 300, clk.now())}
	deadline := time.Now().Add(2 * time.Second)
	for !c.Pending() {
		if time.Now().After(deadline) {
			t.Fatal("fetch result never arrived")
		}
		time.Sleep(time.Millisecond)
	}
	if !c.Poll() {
		t.Fatal("Poll with pending result = false, want true")
	}
	if c.Poll() {
		t.Fatal("second Poll = true, want false")
	}
	if _, ok := c.State().(Ready); !ok {
		t.Fatalf("state = %s, want ready", Name(c.State()))
	}
}

func TestTickRefreshesStaleDataAutomatically(t *testing.T) {
	clk := newClock()
	f := newFakeFetcher()
	ms := &memStore{ok: true, entry: store.NewEntry(snapAt(10, 300, clk.now()))}
	c := newCoordinator(f, ms, clk)
	c.Start(false)

	if c.Tick() || c.InFlight() {
		t.Fatal("Tick on fresh data should do nothing")
	}

	clk.advance(testTTL)
	ready, ok := c.State().(Ready)
	if !ok || !ready.Stale {
		t.Fatalf("state at age == TTL = %#v, want stale ready", c.State())
	}

	c.SetAutoRefresh(false)
	c.Tick()
	if c.InFlight() {
		t.Fatal("paused auto refresh still fetched")
	}

	c.SetAutoRefresh(true)
	if !c.Tick() || !c.InFlight() {
		t.Fatal("Tick on stale data should start a fetch")
	}
	if _, ok := c.State().(Ready); !ok {
		t.Fatalf("background refresh state = %s, want ready", Name(c.State()))
	}

	f.replies <- reply{snap: snapAt(12, 300, clk.now())}
	wait(t, c)
	if ready, _ := c.State().(Ready); ready.Stale || ready.Snapshot.Used != 12 {
		t.Fatalf("state = %#v, want fresh ready with used 12", c.State())
	}
}

func TestTickRetriesFailureAfterTTL(t *testing.T) {
	clk := newClock()
	f := newFakeFetcher()
	c := newCoordinator(f, &memStore{}, clk)
	c.Start(false)
	f.replies <- reply{err: usage.NewFetchError(usage.KindRateLimited, 429, nil)}
	wait(t, c)

	c.Tick()
	if c.InFlight() {
		t.Fatal("failure retried before TTL")
	}

	clk.advance(testTTL)
	c.Tick()
	if !c.InFlight() {
		t.Fatal("failure not retried after TTL")
	}
	if _, ok := c.State().(Refreshing); !ok {
		t.Fatalf("state = %s, want refreshing", Name(c.State()))
	}
	f.replies <- reply{snap: snapAt(1, 300, clk.now())}
	wait(t, c)
}

func TestSaveErrorDoesNotFailRefresh(t *testing.T) {
	clk := newClock()
	f := newFakeFetcher()
	ms := &memStore{saveErr: &store.IOError{Op: "write", Path: "memory", Err: errors.New("disk full")}}
	c := newCoordinator(f, ms, clk)
	c.Start(false)

	f.replies <- reply{snap: snapAt(3, 300, clk.now())}
	wait(t, c)

	if _, ok := c.State().(Ready); !ok {
		t.Fatalf("state = %s, want ready despite save error", Name(c.State()))
	}
	if ms.saves != 1 {
		t.Fatalf("saves = %d, want 1", ms.saves)
	}
}

func TestListenersSeeTransitions(t *testing.T) {
	clk := newClock()
	f := newFakeFetcher()
	c := newCoordinator(f, &memStore{}, clk)

	var seen []string
	c.Subscribe(func(tr Transition) {
		seen = append(seen, Name(tr.From)+"->"+Name(tr.To))
	})

	c.Start(false)
	f.replies <- reply{snap: snapAt(3, 300, clk.now())}
	wait(t, c)
	c.Refresh(TriggerManual)
	f.replies <- reply{err: errors.New("boom")}
	wait(t, c)

	want := []string{"loading->loading", "loading->ready", "ready->refreshing", "refreshing->failed"}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", seen, want)
		}
	}
}

func TestStartForcedFetchesOverFreshCache(t *testing.T) {
	clk := newClock()
	f := newFakeFetcher()
	ms := &memStore{ok: true, entry: store.NewEntry(snapAt(10, 300, clk.now()))}
	c := newCoordinator(f, ms, clk)

	c.Start(true)
	if _, ok := c.State().(Refreshing); !ok {
		t.Fatalf("state = %s, want refreshing", Name(c.State()))
	}
	f.replies <- reply{snap: snapAt(11, 300, clk.now())}
	wait(t, c)
}
