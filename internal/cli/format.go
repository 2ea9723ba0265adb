// Package cli provides formatting and rendering utilities for plain terminal
// output and the dashboard.
package cli

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatRequests formats a premium request count. Whole numbers print
// without decimals; fractional ones keep one.
// e.g., 1234 -> "1,234", 12.5 -> "12.5"
func FormatRequests(n float64) string {
	if n == math.Trunc(n) {
		return FormatNumber(int64(n))
	}
	return humanize.FormatFloat("#,###.#", n)
}

// FormatCost formats a USD cost value.
func FormatCost(cost float64) string {
	if cost >= 1000 {
		return "$" + FormatNumber(int64(math.Round(cost)))
	}
	if cost >= 100 {
		return fmt.Sprintf("$%.0f", cost)
	}
	return fmt.Sprintf("$%.2f", cost)
}

// FormatNumber adds comma separators to an integer.
func FormatNumber(n int64) string {
	return humanize.Comma(n)
}

// FormatPercent formats a 0-100 value as a percentage string.
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatCountdown formats a remaining duration as "3d 4h", "2h 5m" or "7m".
func FormatCountdown(d time.Duration) string {
	if d <= 0 {
		return "now"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h >= 24 {
		return fmt.Sprintf("%dd %dh", h/24, h%24)
	}
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", max(m, 1))
}

// FormatAge describes then relative to now, e.g. "3 minutes ago".
func FormatAge(then, now time.Time) string {
	if then.IsZero() {
		return "never"
	}
	if now.Sub(then) < time.Second {
		return "just now"
	}
	return humanize.RelTime(then, now, "ago", "from now")
}

// MaskToken keeps the prefix and last four characters of a token.
func MaskToken(token string) string {
	if len(token) > 12 {
		return token[:6] + "..." + token[len(token)-4:]
	}
	if token == "" {
		return ""
	}
	return "****"
}
