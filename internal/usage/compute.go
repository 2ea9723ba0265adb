package usage

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// Item is one billing line item from the premium request usage report.
type Item struct {
	Product       string  `json:"product"`
	SKU           string  `json:"sku"`
	Model         string  `json:"model"`
	UnitType      string  `json:"unitType"`
	PricePerUnit  float64 `json:"pricePerUnit"`
	GrossQuantity float64 `json:"grossQuantity"`
	GrossAmount   float64 `json:"grossAmount"`
	NetQuantity   float64 `json:"netQuantity"`
	NetAmount     float64 `json:"netAmount"`
}

const unknownModel = "unknown"

// Compute turns report items into a Snapshot measured against plan.
func Compute(items []Item, plan Plan, username string, now time.Time) Snapshot {
	if plan.Limit <= 0 {
		plan.Limit = DefaultLimit
	}

	byModel := lo.GroupBy(items, func(it Item) string {
		if m := strings.TrimSpace(it.Model); m != "" {
			return m
		}
		return unknownModel
	})
	breakdown := lo.MapValues(byModel, func(group []Item, _ string) float64 {
		return lo.SumBy(group, func(it Item) float64 { return it.GrossQuantity })
	})

	used := lo.SumBy(items, func(it Item) float64 { return it.GrossQuantity })
	snap := NewSnapshot(used, plan.Limit, breakdown, now)
	snap.Username = username
	snap.BilledAmount = lo.SumBy(items, func(it Item) float64 { return it.NetAmount })
	return snap
}
