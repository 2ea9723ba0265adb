package refresh

import (
	"context"
	"time"

	"github.com/theirongolddev/copilot-usage/internal/store"
	"github.com/theirongolddev/copilot-usage/internal/usage"

	"go.uber.org/zap"
)

// Source says where a resolved snapshot came from.
type Source int

const (
	SourceCache Source = iota
	SourceFetch
)

func (s Source) String() string {
	if s == SourceFetch {
		return "fetch"
	}
	return "cache"
}

// ResolveConfig wires a single synchronous resolution.
type ResolveConfig struct {
	Store        store.Store
	Fetcher      Fetcher
	TTL          time.Duration
	FetchTimeout time.Duration
	Force        bool
	Now          func() time.Time
	Logger       *zap.Logger
}

// Outcome is the result of Resolve. FetchErr is set when a fetch was
// attempted, failed, and stale cached data was used instead.
type Outcome struct {
	Snapshot usage.Snapshot
	Source   Source
	Stale    bool
	FetchErr *usage.FetchError
}

// Resolve runs the startup decision once, synchronously: a fresh cache entry
// is returned as is; otherwise exactly one fetch is made. On fetch failure
// any cached entry is returned instead, and the error is returned only when
// there is no data at all.
func Resolve(ctx context.Context, cfg ResolveConfig) (Outcome, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}

	entry, cached := cfg.Store.Load()
	if cached && !cfg.Force && store.IsFresh(entry, cfg.TTL, cfg.Now()) {
		return Outcome{Snapshot: entry.Snapshot, Source: SourceCache}, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
	defer cancel()

	snap, err := cfg.Fetcher.Fetch(fetchCtx)
	if err != nil {
		fe := usage.Classify(err)
		if !cached {
			return Outcome{}, fe
		}
		cfg.Logger.Warn("fetch failed, using stale cache", zap.Error(fe))
		stale := !store.IsFresh(entry, cfg.TTL, cfg.Now())
		return Outcome{Snapshot: entry.Snapshot, Source: SourceCache, Stale: stale, FetchErr: fe}, nil
	}

	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = cfg.Now()
	}
	if err := cfg.Store.Save(store.NewEntry(snap)); err != nil {
		cfg.Logger.Warn("saving usage cache", zap.String("path", cfg.Store.Path()), zap.Error(err))
	}
	return Outcome{Snapshot: snap, Source: SourceFetch}, nil
}
