package monitor

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/marcus/taskflow/internal/models"
)

var (
	primaryColor = lipgloss.Color("212")
	mutedColor   = lipgloss.Color("241")
	successColor = lipgloss.Color("42")
	warningColor = lipgloss.Color("214")
	errorColor   = lipgloss.Color("196")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	subtleStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle     = lipgloss.NewStyle().Foreground(mutedColor)
	errorStyle    = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	noticeStyle   = lipgloss.NewStyle().Foreground(successColor)
	selectedStyle = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	doneStyle     = lipgloss.NewStyle().Foreground(mutedColor).Strikethrough(true)

	statusStyles = map[models.Status]lipgloss.Style{
		models.StatusPending:    lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.StatusInProgress: lipgloss.NewStyle().Foreground(warningColor),
		models.StatusCompleted:  lipgloss.NewStyle().Foreground(successColor),
	}

	priorityStyles = map[models.Priority]lipgloss.Style{
		models.PriorityHigh:   lipgloss.NewStyle().Foreground(errorColor).Bold(true),
		models.PriorityMedium: lipgloss.NewStyle().Foreground(warningColor),
		models.PriorityLow:    lipgloss.NewStyle().Foreground(mutedColor),
	}
)

func styleStatus(s models.Status, text string) string {
	if st, ok := statusStyles[s]; ok {
		return st.Render(text)
	}
	return text
}

func stylePriority(p models.Priority, text string) string {
	if st, ok := priorityStyles[p]; ok {
		return st.Render(text)
	}
	return text
}
