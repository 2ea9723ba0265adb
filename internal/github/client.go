// Package github fetches Copilot premium request usage from the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/theirongolddev/copilot-usage/internal/usage"

	"github.com/tidwall/gjson"
)

const (
	// DefaultBaseURL is the public GitHub REST endpoint.
	DefaultBaseURL = "https://api.github.com"
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second

	apiVersion  = "2022-11-28"
	userAgent   = "copilot-usage"
	maxBodySize = 1 << 20 // 1 MB
)

// TokenPrefixes lists the accepted personal access token formats.
var TokenPrefixes = []string{"ghp_", "github_pat_"}

// ValidToken reports whether token looks like a GitHub personal access token.
func ValidToken(token string) bool {
	token = strings.TrimSpace(token)
	for _, p := range TokenPrefixes {
		if strings.HasPrefix(token, p) && len(token) > len(p) {
			return true
		}
	}
	return false
}

// Client talks to the GitHub REST API with a bearer token.
type Client struct {
	token   string
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root (GHES, tests).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a client for the given token.
// Returns nil if the token is empty.
func NewClient(token string, opts ...Option) *Client {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	c := &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthenticatedUser returns the login that owns the token.
func (c *Client) AuthenticatedUser(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "/user")
	if err != nil {
		return "", err
	}
	login := gjson.GetBytes(body, "login")
	if !gjson.ValidBytes(body) || login.Type != gjson.String || login.String() == "" {
		return "", usage.NewFetchError(usage.KindMalformedResponse, 0, errors.New("github: /user response has no login"))
	}
	return login.String(), nil
}

// FetchUsage returns the current month's premium request report for username.
func (c *Client) FetchUsage(ctx context.Context, username string) (*UsageReport, error) {
	path := fmt.Sprintf("/users/%s/settings/billing/premium_request/usage", url.PathEscape(username))
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, usage.NewFetchError(usage.KindMalformedResponse, 0, errors.New("github: usage response is not valid JSON"))
	}
	if items := gjson.GetBytes(body, "usageItems"); items.Exists() && !items.IsArray() {
		return nil, usage.NewFetchError(usage.KindMalformedResponse, 0, errors.New("github: usageItems is not an array"))
	}

	var report UsageReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, usage.NewFetchError(usage.KindMalformedResponse, 0, fmt.Errorf("github: parsing usage: %w", err))
	}
	return &report, nil
}

// get performs an authenticated GET request and returns the response body.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, usage.NewFetchError(usage.KindNetwork, 0, fmt.Errorf("github: creating request: %w", err))
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		fe := usage.NewFetchError(usage.KindNetwork, 0, fmt.Errorf("github: request failed: %w", err))
		if errors.Is(err, context.DeadlineExceeded) {
			fe.Hint = "request timed out"
		}
		return nil, fe
	}
	defer func() { _ = resp.Body.Close() }()

	if fe := statusError(resp); fe != nil {
		return nil, fe
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, usage.NewFetchError(usage.KindNetwork, resp.StatusCode, fmt.Errorf("github: reading response: %w", err))
	}
	return body, nil
}

// statusError maps a non-2xx response onto the fetch error taxonomy.
func statusError(resp *http.Response) *usage.FetchError {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}

	msg := apiMessage(resp.Body)
	switch code {
	case http.StatusForbidden:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return &usage.FetchError{Kind: usage.KindRateLimited, Status: code, Err: msg}
		}
		return &usage.FetchError{
			Kind:   usage.KindUnauthorized,
			Status: code,
			Hint:   `token needs the "Plan" user permission (read)`,
			Err:    msg,
		}
	case http.StatusUnauthorized:
		return &usage.FetchError{Kind: usage.KindUnauthorized, Status: code, Hint: "token is invalid or expired", Err: msg}
	case http.StatusNotFound:
		return &usage.FetchError{
			Kind:   usage.KindUnauthorized,
			Status: code,
			Hint:   "check the username; Copilot must be billed to this personal account",
			Err:    msg,
		}
	case http.StatusTooManyRequests:
		return &usage.FetchError{Kind: usage.KindRateLimited, Status: code, Err: msg}
	}
	return usage.NewFetchError(usage.KindNetwork, code, msg)
}

// apiMessage extracts GitHub's error message from a response body, if any.
func apiMessage(body io.Reader) error {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return nil
	}
	if m := gjson.GetBytes(data, "message"); m.Type == gjson.String && m.String() != "" {
		return errors.New(m.String())
	}
	return nil
}
