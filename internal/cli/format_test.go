package cli

import (
	"strings"
	"testing"
	"time"
)

func TestFormatRequests(t *testing.T) {
	tests := map[float64]string{
		0:       "0",
		42:      "42",
		1234:    "1,234",
		12.5:    "12.5",
		1234.25: "1,234.2",
	}
	for in, want := range tests {
		if got := FormatRequests(in); got != want {
			t.Fatalf("FormatRequests(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Minute, "now"},
		{30 * time.Second, "1m"},
		{7 * time.Minute, "7m"},
		{2*time.Hour + 5*time.Minute, "2h 5m"},
		{76 * time.Hour, "3d 4h"},
	}
	for _, tt := range tests {
		if got := FormatCountdown(tt.d); got != tt.want {
			t.Fatalf("FormatCountdown(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if got := FormatAge(time.Time{}, now); got != "never" {
		t.Fatalf("FormatAge(zero) = %q", got)
	}
	if got := FormatAge(now, now); got != "just now" {
		t.Fatalf("FormatAge(now) = %q", got)
	}
	if got := FormatAge(now.Add(-3*time.Minute), now); got != "3 minutes ago" {
		t.Fatalf("FormatAge(-3m) = %q", got)
	}
}

func TestMaskToken(t *testing.T) {
	if got := MaskToken("ghp_abcdefghijklmnop1234"); got != "ghp_ab...1234" {
		t.Fatalf("MaskToken = %q", got)
	}
	if got := MaskToken("short"); got != "****" {
		t.Fatalf("MaskToken(short) = %q", got)
	}
}

func TestRenderTableAlignsColumns(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"Model", "Used"},
		Rows:    [][]string{{"GPT-4.1", "12"}, {"---"}, {"Total", "1,234"}},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 7 {
		t.Fatalf("table has %d lines, want 7:\n%s", len(lines), out)
	}
	if !strings.Contains(out, "GPT-4.1") || !strings.Contains(out, "1,234") {
		t.Fatalf("table missing cells:\n%s", out)
	}
}
