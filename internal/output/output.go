// Package output provides styled terminal output helpers (success, error,
// warning, task formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/marcus/taskflow/internal/dateparse"
	"github.com/marcus/taskflow/internal/models"
)

// Destinations for normal and error output. Tests swap them.
var (
	Out    io.Writer = os.Stdout
	ErrOut io.Writer = os.Stderr
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	statusStyles = map[models.Status]lipgloss.Style{
		models.StatusPending:    lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		models.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		models.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
	priorityStyles = map[models.Priority]lipgloss.Style{
		models.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		models.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
	statusSymbols = map[models.Status]string{
		models.StatusPending:    "○",
		models.StatusInProgress: "◐",
		models.StatusCompleted:  "✓",
	}
)

// Success prints a success message
func Success(format string, args ...any) {
	fmt.Fprintln(Out, successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...any) {
	fmt.Fprintln(ErrOut, errorStyle.Render("ERROR: "+fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...any) {
	fmt.Fprintln(ErrOut, warningStyle.Render("Warning: "+fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...any) {
	fmt.Fprintln(Out, fmt.Sprintf(format, args...))
}

// JSON outputs data as JSON
func JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(Out, string(data))
	return nil
}

// Error codes for structured JSON output
const (
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeRequest      = "request_failed"
	ErrCodeUnreachable  = "unreachable"
	ErrCodeGeneric      = "error"
)

// JSONError outputs an error as JSON
func JSONError(code, message string) {
	data, _ := json.Marshal(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
	fmt.Fprintln(Out, string(data))
}

// FormatStatus formats a status with color
func FormatStatus(s models.Status) string {
	style, ok := statusStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(fmt.Sprintf("[%s]", s))
}

// FormatPriority formats a priority with color
func FormatPriority(p models.Priority) string {
	style, ok := priorityStyles[p]
	if !ok {
		return fmt.Sprintf("[%s]", p)
	}
	return style.Render(fmt.Sprintf("[%s]", p))
}

// StatusBadge returns a status indicator with symbol
// e.g., "○ pending", "◐ in-progress", "✓ completed"
func StatusBadge(status models.Status) string {
	symbol, ok := statusSymbols[status]
	if !ok {
		symbol = "?"
	}
	if style, ok := statusStyles[status]; ok {
		return style.Render(fmt.Sprintf("%s %s", symbol, status))
	}
	return fmt.Sprintf("%s %s", symbol, status)
}

// FormatDue formats a due date, highlighting it when overdue and not done.
func FormatDue(t models.Task, now time.Time) string {
	text := dateparse.FormatDue(t.DueDate)
	if t.Status != models.StatusCompleted && dateparse.IsOverdue(t.DueDate, now) {
		return overdueStyle.Render(text + " (overdue)")
	}
	return text
}

// Truncate shortens s to width cells, keeping ANSI styling intact.
func Truncate(s string, width int) string {
	if width <= 0 || ansi.StringWidth(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "…")
}

// FormatTaskShort formats a task on one line. A positive titleWidth truncates
// the title.
func FormatTaskShort(t models.Task, titleWidth int) string {
	parts := []string{
		titleStyle.Render(t.ID),
		FormatPriority(t.Priority),
		Truncate(t.Title, titleWidth),
	}
	if t.Category != "" {
		parts = append(parts, subtleStyle.Render(t.Category))
	}
	if t.DueDate != "" {
		parts = append(parts, subtleStyle.Render("due ")+FormatDue(t, time.Now()))
	}
	parts = append(parts, FormatStatus(t.Status))
	return strings.Join(parts, "  ")
}

// FormatTaskLong formats a task with all fields. The description is rendered
// as markdown when render is true.
func FormatTaskLong(t models.Task, render bool) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("%s: %s", t.ID, t.Title)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Status: %s\n", StatusBadge(t.Status)))
	sb.WriteString(fmt.Sprintf("Priority: %s | Category: %s\n", t.Priority, orDash(t.Category)))
	sb.WriteString(fmt.Sprintf("Due: %s\n", FormatDue(t, time.Now())))
	if t.CreatedAt != nil {
		sb.WriteString(subtleStyle.Render(fmt.Sprintf("Created %s", FormatTimeAgo(*t.CreatedAt))))
		if t.UpdatedAt != nil && !t.UpdatedAt.Equal(*t.CreatedAt) {
			sb.WriteString(subtleStyle.Render(fmt.Sprintf(", updated %s", FormatTimeAgo(*t.UpdatedAt))))
		}
		sb.WriteString("\n")
	}

	if t.Description != "" {
		sb.WriteString("\n")
		sb.WriteString(subtleStyle.Render("Description:"))
		sb.WriteString("\n")
		desc := t.Description
		if render {
			desc = RenderDescription(desc, TerminalWidth(defaultWidth))
		}
		sb.WriteString(desc)
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatStats formats task counts as a single summary line.
func FormatStats(s models.TaskStats) string {
	return fmt.Sprintf("%s  %s  %s  %s",
		titleStyle.Render(fmt.Sprintf("%d total", s.Total)),
		statusStyles[models.StatusCompleted].Render(fmt.Sprintf("%d completed", s.Completed)),
		statusStyles[models.StatusInProgress].Render(fmt.Sprintf("%d in progress", s.InProgress)),
		statusStyles[models.StatusPending].Render(fmt.Sprintf("%d pending", s.Pending)),
	)
}

// FormatUser formats a user profile: name and email first, then any other
// fields in key order.
func FormatUser(u models.User) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(orDash(u.Name())))
	if email := u.Email(); email != "" {
		sb.WriteString(" <" + email + ">")
	}
	sb.WriteString("\n")

	keys := make([]string, 0, len(u))
	for k := range u {
		switch k {
		case "name", "email", "password":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  %s: %v\n", subtleStyle.Render(k), u[k]))
	}
	return sb.String()
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
