// Package dateparse turns user-typed due dates into the YYYY-MM-DD form the
// backend stores, and formats stored due dates for display.
package dateparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layout is the wire format of a due date.
const Layout = "2006-01-02"

// NoDueDate is shown for tasks without a due date.
const NoDueDate = "No due date"

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseDue parses a due date relative to today.
//
// Accepted forms:
//   - "2026-03-01"
//   - "today", "tomorrow"
//   - "+3d", "+2w"
//   - weekday names ("friday", "fri"), meaning the next such day
//   - "none" or "" to clear the date (returns "")
func ParseDue(input string) (string, error) {
	return ParseDueFrom(input, time.Now())
}

// ParseDueFrom is ParseDue with an explicit reference time.
func ParseDueFrom(input string, now time.Time) (string, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	switch s {
	case "", "none", "clear":
		return "", nil
	case "today":
		return now.Format(Layout), nil
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format(Layout), nil
	}

	if t, err := time.Parse(Layout, s); err == nil {
		return t.Format(Layout), nil
	}

	if strings.HasPrefix(s, "+") && len(s) >= 3 {
		n, err := strconv.Atoi(s[1 : len(s)-1])
		if err != nil || n < 0 {
			return "", fmt.Errorf("invalid offset %q", input)
		}
		switch s[len(s)-1] {
		case 'd':
			return now.AddDate(0, 0, n).Format(Layout), nil
		case 'w':
			return now.AddDate(0, 0, 7*n).Format(Layout), nil
		}
		return "", fmt.Errorf("unknown unit in %q (use d or w)", input)
	}

	if wd, ok := weekdays[s]; ok {
		ahead := (int(wd) - int(now.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return now.AddDate(0, 0, ahead).Format(Layout), nil
	}

	return "", fmt.Errorf("unrecognized date %q (try 2026-03-01, tomorrow, +3d or friday)", input)
}

// Normalize reduces a stored due date, which the backend may return as a
// full ISO timestamp, to its YYYY-MM-DD day. Unparseable values are returned
// unchanged.
func Normalize(stored string) string {
	if stored == "" {
		return ""
	}
	if len(stored) >= len(Layout) {
		if _, err := time.Parse(Layout, stored[:len(Layout)]); err == nil {
			return stored[:len(Layout)]
		}
	}
	return stored
}

// FormatDue renders a stored due date as "Jan 2, 2006".
func FormatDue(stored string) string {
	day := Normalize(stored)
	if day == "" {
		return NoDueDate
	}
	t, err := time.Parse(Layout, day)
	if err != nil {
		return stored
	}
	return t.Format("Jan 2, 2006")
}

// IsOverdue reports whether the due date lies strictly before today.
func IsOverdue(stored string, now time.Time) bool {
	day := Normalize(stored)
	if day == "" {
		return false
	}
	if _, err := time.Parse(Layout, day); err != nil {
		return false
	}
	return day < now.Format(Layout)
}
