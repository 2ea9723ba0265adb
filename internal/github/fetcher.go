package github

import (
	"context"
	"sync"
	"time"

	"github.com/theirongolddev/copilot-usage/internal/usage"
)

// Fetcher adapts Client to a one-call usage fetch: it resolves the login on
// first use when no username is configured and computes a Snapshot.
type Fetcher struct {
	client *Client
	plan   usage.Plan
	now    func() time.Time

	mu       sync.Mutex
	username string
}

// NewFetcher wraps client. An empty username is resolved through /user.
func NewFetcher(client *Client, username string, plan usage.Plan) *Fetcher {
	return &Fetcher{client: client, username: username, plan: plan, now: time.Now}
}

// Fetch performs one usage query. Errors are always *usage.FetchError.
func (f *Fetcher) Fetch(ctx context.Context) (usage.Snapshot, error) {
	if f.client == nil {
		return usage.Snapshot{}, &usage.FetchError{Kind: usage.KindUnauthorized, Hint: "no GitHub token configured"}
	}

	username, err := f.login(ctx)
	if err != nil {
		return usage.Snapshot{}, usage.Classify(err)
	}

	report, err := f.client.FetchUsage(ctx, username)
	if err != nil {
		return usage.Snapshot{}, usage.Classify(err)
	}
	return usage.Compute(report.UsageItems, f.plan, username, f.now()), nil
}

// Username returns the configured or resolved login, empty until known.
func (f *Fetcher) Username() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.username
}

func (f *Fetcher) login(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.username != "" {
		return f.username, nil
	}
	name, err := f.client.AuthenticatedUser(ctx)
	if err != nil {
		return "", err
	}
	f.username = name
	return name, nil
}
