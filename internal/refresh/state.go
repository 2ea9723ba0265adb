// Package refresh owns the usage state machine: it decides when to fetch,
// keeps at most one fetch in flight, and writes successful results to the
// cache.
package refresh

import (
	"time"

	"github.com/theirongolddev/copilot-usage/internal/usage"
)

// State is one of Loading, Ready, Refreshing or Failed.
type State interface {
	isState()
}

// Loading means there is no data yet and a fetch is in flight.
type Loading struct{}

// Ready holds usable data. Stale is set when the data is at least one TTL
// old; a background refresh may be running.
type Ready struct {
	Snapshot usage.Snapshot
	Stale    bool
}

// Refreshing means a requested fetch is in flight. Previous stays visible.
type Refreshing struct {
	Previous *usage.Snapshot
}

// Failed means the last fetch failed. Previous is the last good data, if any.
type Failed struct {
	Err      *usage.FetchError
	Previous *usage.Snapshot
}

func (Loading) isState()    {}
func (Ready) isState()      {}
func (Refreshing) isState() {}
func (Failed) isState()     {}

// Name returns a short lowercase label for logs and APIs.
func Name(s State) string {
	switch s.(type) {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Refreshing:
		return "refreshing"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// SnapshotOf returns the data a state carries, if any.
func SnapshotOf(s State) (usage.Snapshot, bool) {
	switch st := s.(type) {
	case Ready:
		return st.Snapshot, true
	case Refreshing:
		if st.Previous != nil {
			return *st.Previous, true
		}
	case Failed:
		if st.Previous != nil {
			return *st.Previous, true
		}
	}
	return usage.Snapshot{}, false
}

// Trigger says why a fetch was started.
type Trigger int

const (
	TriggerStartup Trigger = iota
	TriggerManual
	TriggerAuto
	TriggerForced
)

func (t Trigger) String() string {
	switch t {
	case TriggerStartup:
		return "startup"
	case TriggerManual:
		return "manual"
	case TriggerAuto:
		return "auto"
	case TriggerForced:
		return "forced"
	default:
		return "unknown"
	}
}

// background triggers keep stale data on screen as Ready instead of
// switching to Refreshing.
func (t Trigger) background() bool {
	return t == TriggerStartup || t == TriggerAuto
}

// Transition is published to listeners on every state change.
type Transition struct {
	From    State
	To      State
	Trigger Trigger
	At      time.Time
}

// Listener receives transitions on the coordinator's goroutine.
type Listener func(Transition)
