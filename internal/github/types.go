package github

import "github.com/theirongolddev/copilot-usage/internal/usage"

// TimePeriod is the billing window a usage report covers.
type TimePeriod struct {
	Year  int  `json:"year"`
	Month *int `json:"month,omitempty"`
	Day   *int `json:"day,omitempty"`
}

// UsageReport is the body of the premium request usage endpoint.
type UsageReport struct {
	TimePeriod TimePeriod   `json:"timePeriod"`
	User       string       `json:"user"`
	UsageItems []usage.Item `json:"usageItems"`
}
