package config

import (
	"sort"
	"strings"

	"github.com/theirongolddev/copilot-usage/internal/usage"
)

// Monthly premium request allowances per Copilot plan.
var planLimits = map[string]float64{
	"free":       50,
	"pro":        300,
	"pro+":       1500,
	"business":   300,
	"enterprise": 1000,
}

// PlanNames lists the known plans in allowance order.
func PlanNames() []string {
	names := make([]string, 0, len(planLimits))
	for name := range planLimits {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if planLimits[names[i]] != planLimits[names[j]] {
			return planLimits[names[i]] < planLimits[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// ResolvePlan returns the quota to measure usage against. An explicit
// monthly_limit wins over the plan name; unknown names fall back to Pro.
func ResolvePlan(cfg Config) usage.Plan {
	plan := usage.DefaultPlan()
	if limit, ok := planLimits[strings.ToLower(strings.TrimSpace(cfg.Plan.Name))]; ok {
		plan.Limit = limit
	}
	if cfg.Plan.MonthlyLimit > 0 {
		plan.Limit = cfg.Plan.MonthlyLimit
	}
	if cfg.Plan.OveragePrice > 0 {
		plan.OveragePrice = cfg.Plan.OveragePrice
	}
	return plan
}
