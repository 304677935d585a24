package dateparse

import (
	"testing"
	"time"
)

// Wednesday, 2026-02-18 12:00 UTC
var testNow = time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)

func TestParseDueFrom(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2026-03-01", "2026-03-01"},
		{"  2025-12-31 ", "2025-12-31"},
		{"today", "2026-02-18"},
		{"TOMORROW", "2026-02-19"},
		{"+0d", "2026-02-18"},
		{"+10d", "2026-02-28"},
		{"+2w", "2026-03-04"},
		{"friday", "2026-02-20"},
		{"fri", "2026-02-20"},
		{"monday", "2026-02-23"},
		{"wednesday", "2026-02-25"}, // same weekday advances a week
		{"", ""},
		{"none", ""},
	}
	for _, tt := range tests {
		got, err := ParseDueFrom(tt.input, testNow)
		if err != nil {
			t.Errorf("ParseDueFrom(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDueFrom(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseDueFromErrors(t *testing.T) {
	for _, input := range []string{"someday", "+3y", "+xd", "+-1d", "2026-13-01", "next"} {
		if got, err := ParseDueFrom(input, testNow); err == nil {
			t.Errorf("ParseDueFrom(%q) = %q, want error", input, got)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"2026-03-01", "2026-03-01"},
		{"2026-03-01T00:00:00.000Z", "2026-03-01"},
		{"next week", "next week"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDue(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", NoDueDate},
		{"2026-03-01", "Mar 1, 2026"},
		{"2026-12-25T00:00:00.000Z", "Dec 25, 2026"},
		{"garbage", "garbage"},
	}
	for _, tt := range tests {
		if got := FormatDue(tt.in); got != tt.want {
			t.Errorf("FormatDue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsOverdue(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"2026-02-17", true},
		{"2026-02-18", false}, // due today is not overdue
		{"2026-02-19", false},
		{"2026-01-01T00:00:00Z", true},
		{"garbage", false},
	}
	for _, tt := range tests {
		if got := IsOverdue(tt.in, testNow); got != tt.want {
			t.Errorf("IsOverdue(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
