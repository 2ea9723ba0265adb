package usage

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failed fetch.
type Kind int

const (
	KindNetwork Kind = iota
	KindUnauthorized
	KindRateLimited
	KindMalformedResponse
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate limited"
	case KindMalformedResponse:
		return "malformed response"
	default:
		return "network"
	}
}

var (
	// ErrUnauthorized means the token is missing, invalid, or lacks access.
	ErrUnauthorized = errors.New("usage: unauthorized")
	// ErrRateLimited means the API refused the request for rate limiting.
	ErrRateLimited = errors.New("usage: rate limited")
	// ErrNetwork covers transport failures, timeouts and unexpected statuses.
	ErrNetwork = errors.New("usage: network error")
	// ErrMalformedResponse means the API answered with a body we cannot read.
	ErrMalformedResponse = errors.New("usage: malformed response")
)

func (k Kind) sentinel() error {
	switch k {
	case KindUnauthorized:
		return ErrUnauthorized
	case KindRateLimited:
		return ErrRateLimited
	case KindMalformedResponse:
		return ErrMalformedResponse
	default:
		return ErrNetwork
	}
}

// FetchError is the typed failure of a single fetch.
type FetchError struct {
	Kind   Kind
	Status int    // HTTP status, 0 when no response was received
	Hint   string // user-facing advice, optional
	Err    error
}

func (e *FetchError) Error() string {
	msg := e.Kind.String()
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// NewFetchError builds a FetchError of the given kind.
func NewFetchError(kind Kind, status int, err error) *FetchError {
	return &FetchError{Kind: kind, Status: status, Err: err}
}

// Classify returns err as a *FetchError, treating anything unrecognised as a
// network failure. nil stays nil.
func Classify(err error) *FetchError {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return NewFetchError(KindUnauthorized, 0, err)
	case errors.Is(err, ErrRateLimited):
		return NewFetchError(KindRateLimited, 0, err)
	case errors.Is(err, ErrMalformedResponse):
		return NewFetchError(KindMalformedResponse, 0, err)
	case errors.Is(err, context.DeadlineExceeded):
		return &FetchError{Kind: KindNetwork, Hint: "request timed out", Err: err}
	default:
		return NewFetchError(KindNetwork, 0, err)
	}
}

// IsUnauthorized reports whether err means the credentials need attention.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
