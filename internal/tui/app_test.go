package tui

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/theirongolddev/copilot-usage/internal/refresh"
	"github.com/theirongolddev/copilot-usage/internal/store"
	"github.com/theirongolddev/copilot-usage/internal/tui/theme"
	"github.com/theirongolddev/copilot-usage/internal/usage"

	tea "github.com/charmbracelet/bubbletea"
)

type memStore struct {
	entry store.Entry
	ok    bool
}

func (m *memStore) Load() (store.Entry, bool) { return m.entry, m.ok }
func (m *memStore) Save(e store.Entry) error  { m.entry, m.ok = e, true; return nil }
func (m *memStore) Path() string              { return "mem" }
func (m *memStore) Clear() error              { m.ok = false; return nil }

// blockingFetcher returns whatever is sent on release.
type blockingFetcher struct {
	release chan usage.Snapshot
	calls   atomic.Int32
}

func (b *blockingFetcher) Fetch(ctx context.Context) (usage.Snapshot, error) {
	b.calls.Add(1)
	select {
	case s := <-b.release:
		return s, nil
	case <-ctx.Done():
		return usage.Snapshot{}, ctx.Err()
	}
}

// newTestApp returns an app whose coordinator starts Ready from a fresh
// cache entry.
func newTestApp(t *testing.T) (App, *blockingFetcher) {
	t.Helper()
	f := &blockingFetcher{release: make(chan usage.Snapshot, 1)}
	st := &memStore{entry: store.Entry{Snapshot: testSnapshot(100), Timestamp: testNow}, ok: true}
	coord := refresh.New(refresh.Config{
		Fetcher: f,
		Store:   st,
		TTL:     5 * time.Minute,
		Now:     func() time.Time { return testNow.Add(time.Minute) },
	})
	coord.Start(false)

	app := NewApp(Options{
		Coordinator: coord,
		Themes:      theme.Builtin,
		Theme:       "dark",
		Now:         func() time.Time { return testNow.Add(time.Minute) },
	})
	m, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m.(App), f
}

func press(a App, keys ...string) App {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "ctrl+c":
			msg = tea.KeyMsg{Type: tea.KeyCtrlC}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ := a.Update(msg)
		a = m.(App)
	}
	return a
}

func tick(a App) App {
	m, _ := a.Update(tickMsg(time.Now()))
	return m.(App)
}

func waitPending(t *testing.T, coord *refresh.Coordinator) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !coord.Pending() {
		if time.Now().After(deadline) {
			t.Fatal("fetch result never arrived")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestManualRefreshAppliedOnNextTick(t *testing.T) {
	a, f := newTestApp(t)
	if _, ok := a.state.(refresh.Ready); !ok {
		t.Fatalf("initial state = %s, want ready", refresh.Name(a.state))
	}

	a = press(a, "r")
	if _, ok := a.state.(refresh.Refreshing); !ok {
		t.Fatalf("state after r = %s, want refreshing", refresh.Name(a.state))
	}

	f.release <- testSnapshot(200)
	waitPending(t, a.coord)
	a = tick(a)

	ready, ok := a.state.(refresh.Ready)
	if !ok {
		t.Fatalf("state after tick = %s, want ready", refresh.Name(a.state))
	}
	if ready.Snapshot.Used != 200 {
		t.Fatalf("Used = %v, want 200", ready.Snapshot.Used)
	}
}

func TestRefreshWhileRefreshingStartsNoFetch(t *testing.T) {
	a, f := newTestApp(t)
	a = press(a, "r", "r", "r")

	f.release <- testSnapshot(150)
	waitPending(t, a.coord)
	a = tick(a)

	if got := f.calls.Load(); got != 1 {
		t.Fatalf("fetch calls = %d, want 1", got)
	}
}

func TestTickDoesNotBlockWhileFetching(t *testing.T) {
	a, f := newTestApp(t)
	a = press(a, "r")

	done := make(chan struct{})
	go func() {
		for range 5 {
			a = tick(a)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tick blocked on an in-flight fetch")
	}
	if _, ok := a.state.(refresh.Refreshing); !ok {
		t.Fatalf("state = %s, want refreshing", refresh.Name(a.state))
	}
	if a.frame != 5 {
		t.Fatalf("frame = %d, want 5", a.frame)
	}
	f.release <- testSnapshot(1)
}

func TestThemePickerPreviewAndSave(t *testing.T) {
	a, _ := newTestApp(t)
	var saved string
	a.opts.SaveTheme = func(name string) error { saved = name; return nil }

	a = press(a, "t", "j")
	if got := a.activeTheme().Name; got != theme.Builtin[1].Name {
		t.Fatalf("preview theme = %q, want %q", got, theme.Builtin[1].Name)
	}

	a = press(a, "esc")
	if got := a.activeTheme().Name; got != "dark" {
		t.Fatalf("theme after cancel = %q, want dark", got)
	}
	if saved != "" {
		t.Fatalf("cancel saved theme %q", saved)
	}

	a = press(a, "t", "j", "j", "enter")
	if saved != theme.Builtin[2].Name {
		t.Fatalf("saved theme = %q, want %q", saved, theme.Builtin[2].Name)
	}
	if a.modal != ModalNone {
		t.Fatalf("modal = %d, want closed", a.modal)
	}
}

func TestToggleAutoRefresh(t *testing.T) {
	a, _ := newTestApp(t)
	var saved []bool
	a.opts.SaveAutoRefresh = func(on bool) error { saved = append(saved, on); return nil }

	a = press(a, "R")
	if a.coord.AutoRefresh() {
		t.Fatal("auto refresh still on after toggle")
	}
	if len(saved) != 1 || saved[0] {
		t.Fatalf("saved = %v, want [false]", saved)
	}
}

func TestCommandMenuRunsSelection(t *testing.T) {
	a, f := newTestApp(t)
	a = press(a, "/", "enter")
	if a.modal != ModalNone {
		t.Fatalf("modal = %d, want closed", a.modal)
	}
	if !a.coord.InFlight() {
		t.Fatal("menu refresh did not start a fetch")
	}
	f.release <- testSnapshot(1)
}

func TestModalClosesOnAnyKey(t *testing.T) {
	a, _ := newTestApp(t)
	a = press(a, "?")
	if a.modal != ModalHelp {
		t.Fatalf("modal = %d, want help", a.modal)
	}
	a = press(a, "x")
	if a.modal != ModalNone {
		t.Fatalf("modal = %d, want closed", a.modal)
	}
}

func TestQuitActions(t *testing.T) {
	cases := map[string]Action{
		"q":      ActionQuit,
		"ctrl+c": ActionQuit,
		"c":      ActionReconfigure,
	}
	for k, want := range cases {
		a, _ := newTestApp(t)
		var msg tea.KeyMsg
		if k == "ctrl+c" {
			msg = tea.KeyMsg{Type: tea.KeyCtrlC}
		} else {
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, cmd := a.Update(msg)
		if cmd == nil {
			t.Fatalf("%s: no quit command", k)
		}
		if got := m.(App).Action(); got != want {
			t.Fatalf("%s: Action = %d, want %d", k, got, want)
		}
	}
}

func TestConfigReload(t *testing.T) {
	a, _ := newTestApp(t)
	changed := make(chan struct{}, 1)
	a.opts.ConfigChanged = changed
	a.opts.LoadSettings = func() (Settings, error) {
		return Settings{Theme: "nord", TTL: 10 * time.Minute, AutoRefresh: false}, nil
	}

	changed <- struct{}{}
	a = tick(a)

	if got := a.activeTheme().Name; got != "nord" {
		t.Fatalf("theme = %q, want nord", got)
	}
	if got := a.coord.TTL(); got != 10*time.Minute {
		t.Fatalf("TTL = %v, want 10m", got)
	}
	if a.coord.AutoRefresh() {
		t.Fatal("auto refresh still on after reload")
	}
}
