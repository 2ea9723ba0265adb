// Package usage holds the Copilot premium-request usage model and the error
// taxonomy shared by the fetcher, the cache and the refresh coordinator.
package usage

import (
	"sort"
	"time"

	"github.com/samber/lo"
)

// Default plan values for Copilot Pro.
const (
	DefaultLimit        = 300.0
	DefaultOveragePrice = 0.04
)

// Plan describes the monthly quota the usage is measured against.
type Plan struct {
	Limit        float64
	OveragePrice float64
}

// DefaultPlan returns the Copilot Pro quota.
func DefaultPlan() Plan {
	return Plan{Limit: DefaultLimit, OveragePrice: DefaultOveragePrice}
}

// Snapshot is one immutable reading of usage. Build it with Compute or
// NewSnapshot; the breakdown map is private to the snapshot and must not be
// written to.
type Snapshot struct {
	Username     string             `json:"username,omitempty"`
	Used         float64            `json:"used"`
	Limit        float64            `json:"limit"`
	Remaining    float64            `json:"remaining"`
	Percent      float64            `json:"percent"`
	Breakdown    map[string]float64 `json:"breakdown"`
	BilledAmount float64            `json:"billed_amount,omitempty"`
	ResetAt      time.Time          `json:"reset_at"`
	FetchedAt    time.Time          `json:"fetched_at"`
}

// ModelUsage is one row of the per-model breakdown.
type ModelUsage struct {
	Model   string
	Used    float64
	Percent float64 // share of the plan limit
}

// NewSnapshot derives remaining and percentage from used and limit and copies
// the breakdown.
func NewSnapshot(used, limit float64, breakdown map[string]float64, fetchedAt time.Time) Snapshot {
	bd := make(map[string]float64, len(breakdown))
	for k, v := range breakdown {
		bd[k] = v
	}
	return Snapshot{
		Used:      used,
		Limit:     limit,
		Remaining: max(limit-used, 0),
		Percent:   percentOf(used, limit),
		Breakdown: bd,
		ResetAt:   NextReset(fetchedAt),
		FetchedAt: fetchedAt,
	}
}

// Models returns the breakdown sorted by usage, largest first.
func (s Snapshot) Models() []ModelUsage {
	rows := lo.MapToSlice(s.Breakdown, func(model string, used float64) ModelUsage {
		return ModelUsage{Model: model, Used: used, Percent: percentOf(used, s.Limit)}
	})
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Used != rows[j].Used {
			return rows[i].Used > rows[j].Used
		}
		return rows[i].Model < rows[j].Model
	})
	return rows
}

// Overage is the number of requests beyond the plan limit.
func (s Snapshot) Overage() float64 {
	return max(s.Used-s.Limit, 0)
}

// EstimatedCost prefers the amount GitHub actually billed and otherwise
// prices the overage at the given per-request rate.
func (s Snapshot) EstimatedCost(price float64) float64 {
	if s.BilledAmount > 0 {
		return s.BilledAmount
	}
	return s.Overage() * price
}

// NextReset returns 00:00 UTC on the first day of the month after t.
func NextReset(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

func percentOf(used, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return used / limit * 100
}
