// Package monitor is the interactive task dashboard.
package monitor

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/taskflow/internal/board"
	"github.com/marcus/taskflow/internal/models"
)

// requestTimeout bounds each backend call made from the dashboard.
const requestTimeout = 15 * time.Second

// boardMsg reports a finished board operation.
type boardMsg struct {
	notice string
	err    error
}

// Model is the bubbletea model for the dashboard.
type Model struct {
	board   *board.Board
	version string

	cursor int
	width  int
	height int

	adding bool
	input  textinput.Model

	edit    *editForm
	formErr string

	busy   bool
	notice string
	now    func() time.Time
}

// NewModel creates a dashboard over b.
func NewModel(b *board.Board, version string) Model {
	ti := textinput.New()
	ti.Placeholder = "What needs doing?"
	ti.CharLimit = 200
	ti.Prompt = "+ "

	return Model{
		board:   b,
		version: version,
		input:   ti,
		width:   80,
		height:  24,
		now:     time.Now,
	}
}

// Init loads the task list.
func (m Model) Init() tea.Cmd {
	return m.run("", func(ctx context.Context) error { return m.board.Refresh(ctx) })
}

// run performs a board operation off the update loop.
func (m Model) run(notice string, op func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return boardMsg{notice: notice, err: op(ctx)}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(10, msg.Width-8)
		return m, nil

	case boardMsg:
		m.busy = false
		m.notice = ""
		if msg.err == nil {
			m.notice = msg.notice
		}
		m.clampCursor()
		return m, nil
	}

	if m.edit != nil {
		return m.handleFormUpdate(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.adding {
			return m.updateAdding(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) updateAdding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.adding = false
		m.input.Blur()
		m.input.SetValue("")
		return m, nil
	case "enter":
		title := m.input.Value()
		m.adding = false
		m.input.Blur()
		m.input.SetValue("")
		m.busy = true
		return m, m.run("Task added", func(ctx context.Context) error {
			_, err := m.board.Add(ctx, models.TaskInput{Title: title})
			return err
		})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.board.Tasks())-1 {
			m.cursor++
		}
		return m, nil
	case "home", "g":
		m.cursor = 0
		return m, nil
	case "end", "G":
		m.cursor = max(0, len(m.board.Tasks())-1)
		return m, nil
	case "esc":
		m.board.ClearErr()
		m.notice = ""
		return m, nil
	case "a":
		m.adding = true
		m.notice = ""
		return m, m.input.Focus()
	case "r":
		m.busy = true
		return m, m.run("", func(ctx context.Context) error { return m.board.Refresh(ctx) })
	}

	task, ok := m.selected()
	if !ok {
		return m, nil
	}
	switch msg.String() {
	case " ", "x":
		m.busy = true
		return m, m.run("", func(ctx context.Context) error { return m.board.ToggleStatus(ctx, task.ID) })
	case "+", "=":
		return m.setPriority(task, task.Priority.Raise())
	case "-", "_":
		return m.setPriority(task, task.Priority.Lower())
	case "e", "enter":
		return m.openEditForm()
	case "d", "delete":
		m.busy = true
		return m, m.run("Task deleted", func(ctx context.Context) error { return m.board.Delete(ctx, task.ID) })
	}
	return m, nil
}

func (m Model) setPriority(task models.Task, p models.Priority) (tea.Model, tea.Cmd) {
	if p == task.Priority {
		return m, nil
	}
	m.busy = true
	return m, m.run("", func(ctx context.Context) error { return m.board.SetPriority(ctx, task.ID, p) })
}

// selected returns the task under the cursor.
func (m Model) selected() (models.Task, bool) {
	tasks := m.board.Tasks()
	if m.cursor < 0 || m.cursor >= len(tasks) {
		return models.Task{}, false
	}
	return tasks[m.cursor], true
}

func (m *Model) clampCursor() {
	n := len(m.board.Tasks())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
