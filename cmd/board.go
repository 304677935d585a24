package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/taskflow/internal/board"
	"github.com/marcus/taskflow/internal/input"
	"github.com/marcus/taskflow/pkg/monitor"
	"github.com/spf13/cobra"
)

var boardCmd = &cobra.Command{
	Use:     "board",
	Aliases: []string{"ui", "dashboard"},
	Short:   "Open the interactive task dashboard",
	Long: `Open a full-screen dashboard of your tasks.

Keys: space toggles done, +/- change priority, a adds a task, d deletes,
r refreshes, q quits.`,
	GroupID: "tasks",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagJSON {
			return &input.ValidationError{Message: "the board is interactive and does not support --json"}
		}
		if _, err := requireUser(cmd); err != nil {
			return err
		}

		model := monitor.NewModel(board.New(current.client), version)
		p := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("error running board: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(boardCmd)
}
