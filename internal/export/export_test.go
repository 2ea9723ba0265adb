package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/copilot-usage/internal/refresh"
	"github.com/theirongolddev/copilot-usage/internal/store"
	"github.com/theirongolddev/copilot-usage/internal/usage"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type memStore struct {
	entry store.Entry
	ok    bool
}

func (m *memStore) Load() (store.Entry, bool) { return m.entry, m.ok }
func (m *memStore) Save(e store.Entry) error  { m.entry, m.ok = e, true; return nil }
func (m *memStore) Path() string              { return "mem" }
func (m *memStore) Clear() error              { m.ok = false; return nil }

func snapshot(used float64) usage.Snapshot {
	return usage.NewSnapshot(used, 300, map[string]float64{"gpt-4.1": used}, now)
}

func TestClass(t *testing.T) {
	cases := []struct {
		pct   float64
		stale bool
		want  string
	}{
		{95, false, ClassCritical},
		{90, false, ClassCritical},
		{80, false, ClassWarning},
		{60, false, ClassNormal},
		{30, false, ClassLow},
		{30, true, "copilot-low copilot-stale"},
	}
	for _, tc := range cases {
		if got := Class(tc.pct, tc.stale); got != tc.want {
			t.Fatalf("Class(%v, %v) = %q, want %q", tc.pct, tc.stale, got, tc.want)
		}
	}
}

func TestText(t *testing.T) {
	s := snapshot(150)
	got := Text("{percentage}% {used}/{limit} ({remaining} left)", s)
	if want := "50% 150/300 (150 left)"; got != want {
		t.Fatalf("Text = %q, want %q", got, want)
	}
	if got := Text("", s); got != "50%" {
		t.Fatalf("Text(default) = %q, want 50%%", got)
	}
}

func TestTooltip(t *testing.T) {
	tip := Tooltip(snapshot(330), 0.04, true, now.Add(time.Hour))
	for _, want := range []string{
		"GitHub Copilot Usage",
		"330 / 300 (110.0%)",
		"Resets: April 01, 2026 at 00:00 UTC",
		"gpt-4.1: 330 (100.0%)",
		"Estimated cost: $1.20",
		"Data is stale",
	} {
		if !strings.Contains(tip, want) {
			t.Fatalf("tooltip missing %q:\n%s", want, tip)
		}
	}
}

func TestRunUsesFreshCache(t *testing.T) {
	st := &memStore{entry: store.Entry{Snapshot: snapshot(240), Timestamp: now}, ok: true}
	fetcher := refresh.FetcherFunc(func(context.Context) (usage.Snapshot, error) {
		t.Fatal("fetch with fresh cache")
		return usage.Snapshot{}, nil
	})

	var buf bytes.Buffer
	err := Run(context.Background(), Options{
		Store: st, Fetcher: fetcher, TTL: 5 * time.Minute,
		Now: func() time.Time { return now.Add(time.Minute) },
	}, &buf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if n := strings.Count(buf.String(), "\n"); n != 1 {
		t.Fatalf("output lines = %d, want 1", n)
	}
	var out Output
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Text != "80%" || out.Class != ClassWarning || out.Percentage != 80 {
		t.Fatalf("output = %+v", out)
	}
}

func TestRunFallsBackToStaleCache(t *testing.T) {
	st := &memStore{entry: store.Entry{Snapshot: snapshot(30), Timestamp: now}, ok: true}
	fetcher := refresh.FetcherFunc(func(context.Context) (usage.Snapshot, error) {
		return usage.Snapshot{}, usage.NewFetchError(usage.KindNetwork, 0, errors.New("offline"))
	})

	var buf bytes.Buffer
	err := Run(context.Background(), Options{
		Store: st, Fetcher: fetcher, TTL: 5 * time.Minute,
		Now: func() time.Time { return now.Add(time.Hour) },
	}, &buf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var out Output
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Class != "copilot-low copilot-stale" {
		t.Fatalf("Class = %q, want stale low", out.Class)
	}
}

func TestRunNoDataUnauthorized(t *testing.T) {
	fetcher := refresh.FetcherFunc(func(context.Context) (usage.Snapshot, error) {
		return usage.Snapshot{}, usage.NewFetchError(usage.KindUnauthorized, 401, errors.New("bad credentials"))
	})

	var buf bytes.Buffer
	err := Run(context.Background(), Options{Store: &memStore{}, Fetcher: fetcher, TTL: time.Minute}, &buf)
	if err == nil {
		t.Fatal("Run succeeded with no data")
	}
	if !usage.IsUnauthorized(err) {
		t.Fatalf("err = %v, want unauthorized", err)
	}
	if !strings.Contains(err.Error(), "setup") {
		t.Fatalf("err = %q, want setup hint", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("wrote %q on failure", buf.String())
	}
}
