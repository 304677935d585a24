package monitor

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/marcus/taskflow/internal/dateparse"
	"github.com/marcus/taskflow/internal/input"
	"github.com/marcus/taskflow/internal/models"
)

// editForm holds the edit form for one task. Field values are bound by
// pointer, so the struct lives on the heap behind Model.edit.
type editForm struct {
	taskID string
	form   *huh.Form

	Title       string
	Description string
	Priority    string
	Due         string
}

func newEditForm(t models.Task, width int) *editForm {
	f := &editForm{
		taskID:      t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		Due:         dateparse.Normalize(t.DueDate),
	}
	if f.Priority == "" {
		f.Priority = string(models.PriorityMedium)
	}

	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(&f.Title).Validate(input.ValidateTitle),
			huh.NewText().Title("Description").Value(&f.Description),
			huh.NewSelect[string]().Title("Priority").Options(
				huh.NewOption("Low", string(models.PriorityLow)),
				huh.NewOption("Medium", string(models.PriorityMedium)),
				huh.NewOption("High", string(models.PriorityHigh)),
			).Value(&f.Priority),
			huh.NewInput().Title("Due date").Placeholder("2026-03-01, tomorrow, +3d, none").Value(&f.Due).
				Validate(func(s string) error {
					_, err := dateparse.ParseDue(s)
					return err
				}),
		),
	).WithShowHelp(false).WithWidth(width)
	return f
}

// apply returns base with the form values written over it.
func (f *editForm) apply(base models.Task) (models.Task, error) {
	due, err := dateparse.ParseDue(f.Due)
	if err != nil {
		return base, &input.ValidationError{Message: err.Error()}
	}
	p, err := models.NormalizePriority(f.Priority)
	if err != nil {
		return base, &input.ValidationError{Message: err.Error()}
	}
	base.Title = f.Title
	base.Description = f.Description
	base.Priority = p
	base.DueDate = due
	return base, nil
}

// openEditForm opens the form for the task under the cursor.
func (m Model) openEditForm() (tea.Model, tea.Cmd) {
	task, ok := m.selected()
	if !ok {
		return m, nil
	}
	m.edit = newEditForm(task, max(30, m.width-8))
	m.formErr = ""
	m.notice = ""
	return m, m.edit.form.Init()
}

// handleFormUpdate forwards messages to the open form. ctrl+s submits and
// esc cancels from any field.
func (m Model) handleFormUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyCtrlS:
			return m.submitEdit()
		case tea.KeyEsc:
			m.edit = nil
			m.formErr = ""
			return m, nil
		}
	}

	form, cmd := m.edit.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.edit.form = f
	}
	switch m.edit.form.State {
	case huh.StateCompleted:
		return m.submitEdit()
	case huh.StateAborted:
		m.edit = nil
		return m, nil
	}
	return m, cmd
}

// submitEdit writes the form back through the board. A task that vanished
// from the board in the meantime closes the form without a request.
func (m Model) submitEdit() (tea.Model, tea.Cmd) {
	base, ok := m.board.Task(m.edit.taskID)
	if !ok {
		m.edit = nil
		return m, nil
	}
	task, err := m.edit.apply(base)
	if err == nil {
		err = input.ValidateTitle(task.Title)
	}
	if err != nil {
		m.formErr = err.Error()
		return m, nil
	}

	m.edit = nil
	m.formErr = ""
	m.busy = true
	return m, m.run("Task saved", func(ctx context.Context) error { return m.board.Save(ctx, task) })
}
