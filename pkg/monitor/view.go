package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/marcus/taskflow/internal/models"
	"github.com/marcus/taskflow/internal/output"
)

const (
	helpText     = "↑/↓ move  space toggle  +/- priority  a add  e edit  d delete  r refresh  esc clear  q quit"
	formHelpText = "tab next field  ctrl+s save  esc cancel"
)

// chrome is the number of lines the header, footer and panel border use.
const chrome = 8

var statusMarks = map[models.Status]string{
	models.StatusPending:    "○",
	models.StatusInProgress: "◐",
	models.StatusCompleted:  "✓",
}

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	inner := max(20, m.width-4)
	if m.edit != nil {
		b.WriteString(panelStyle.Width(inner).Render(m.edit.form.View()))
		b.WriteString("\n")
		if m.formErr != "" {
			b.WriteString(errorStyle.Render(m.formErr))
			b.WriteString("\n")
		}
		b.WriteString(helpStyle.Render(ansi.Truncate(formHelpText, m.width, "…")))
		return b.String()
	}
	b.WriteString(panelStyle.Width(inner).Render(m.renderTasks(inner - 2)))
	b.WriteString("\n")

	if m.adding {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	switch {
	case m.board.Err() != "":
		b.WriteString(errorStyle.Render(m.board.Err()))
	case m.busy || m.board.Loading():
		b.WriteString(subtleStyle.Render("Working…"))
	case m.notice != "":
		b.WriteString(noticeStyle.Render(m.notice))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(ansi.Truncate(helpText, m.width, "…")))
	return b.String()
}

func (m Model) renderHeader() string {
	s := m.board.Stats()
	title := headerStyle.Render("taskflow " + m.version)
	counts := subtleStyle.Render(fmt.Sprintf("%d total · %d done · %d in progress · %d pending",
		s.Total, s.Completed, s.InProgress, s.Pending))
	return lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", counts)
}

// renderTasks draws the list, scrolled so the cursor stays visible.
func (m Model) renderTasks(width int) string {
	tasks := m.board.Tasks()
	if len(tasks) == 0 {
		if m.board.Loading() {
			return subtleStyle.Render("Loading tasks…")
		}
		return subtleStyle.Render("No tasks yet. Press a to add one.")
	}

	rows := max(1, m.height-chrome)
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := min(len(tasks), start+rows)

	lines := make([]string, 0, end-start+1)
	for i := start; i < end; i++ {
		lines = append(lines, m.renderRow(tasks[i], i == m.cursor, width))
	}
	if task, ok := m.selected(); ok && task.Description != "" {
		desc := strings.ReplaceAll(task.Description, "\n", " ")
		lines = append(lines, subtleStyle.Render(ansi.Truncate("  "+desc, width, "…")))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(t models.Task, selected bool, width int) string {
	pointer := "  "
	if selected {
		pointer = selectedStyle.Render("> ")
	}
	mark := styleStatus(t.Status, statusMarks[t.Status])
	prio := stylePriority(t.Priority, fmt.Sprintf("%-6s", t.Priority))

	var tail []string
	if t.Category != "" {
		tail = append(tail, subtleStyle.Render(t.Category))
	}
	if t.DueDate != "" {
		tail = append(tail, output.FormatDue(t, m.now()))
	}
	suffix := strings.Join(tail, "  ")

	prefix := pointer + mark + " " + prio + " "
	titleWidth := width - ansi.StringWidth(prefix) - ansi.StringWidth(suffix) - 2
	title := output.Truncate(t.Title, max(8, titleWidth))
	switch {
	case t.Status == models.StatusCompleted:
		title = doneStyle.Render(title)
	case selected:
		title = selectedStyle.Render(title)
	}

	line := prefix + title
	if suffix != "" {
		line += "  " + suffix
	}
	return ansi.Truncate(line, width, "…")
}
