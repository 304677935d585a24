package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/marcus/taskflow/internal/dateparse"
	"github.com/marcus/taskflow/internal/input"
	"github.com/marcus/taskflow/internal/models"
	"github.com/marcus/taskflow/internal/output"
	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:     "task",
	Aliases: []string{"tasks", "t"},
	Short:   "List and manage your tasks",
	GroupID: "tasks",
}

var taskListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks, optionally filtered",
	Long: `List tasks. Filters are applied by the server.

Examples:
  taskflow task list
  taskflow task list --status pending --priority high
  taskflow task list --search report`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := filterFromFlags(cmd)
		if err != nil {
			return err
		}
		tasks, err := current.client.ListTasks(cmdContext(cmd), filter)
		if err != nil {
			return err
		}
		if flagJSON {
			return output.JSON(tasks)
		}
		if len(tasks) == 0 {
			output.Info("No tasks found")
			return nil
		}
		width := output.TerminalWidth(100) / 2
		for _, t := range tasks {
			output.Info("%s", output.FormatTaskShort(t, width))
		}
		output.Info("")
		output.Info("%s", output.FormatStats(models.ComputeStats(tasks)))
		return nil
	},
}

func filterFromFlags(cmd *cobra.Command) (models.TaskFilter, error) {
	var f models.TaskFilter
	if s, _ := cmd.Flags().GetString("status"); s != "" {
		status, err := models.NormalizeStatus(s)
		if err != nil {
			return f, &input.ValidationError{Message: err.Error()}
		}
		f.Status = status
	}
	if p, _ := cmd.Flags().GetString("priority"); p != "" {
		priority, err := models.NormalizePriority(p)
		if err != nil {
			return f, &input.ValidationError{Message: err.Error()}
		}
		f.Priority = priority
	}
	f.Category, _ = cmd.Flags().GetString("category")
	f.Search, _ = cmd.Flags().GetString("search")
	return f, nil
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show one task in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := current.client.GetTask(cmdContext(cmd), args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return output.JSON(task)
		}
		render, _ := cmd.Flags().GetBool("render")
		fmt.Fprint(output.Out, output.FormatTaskLong(*task, render && input.IsTerminal(os.Stdout)))
		return nil
	},
}

var taskAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Create a task",
	Long: `Create a task. Without a title, a form is shown on a terminal.

Examples:
  taskflow task add "Write report" --priority high --due friday
  taskflow task add "Plan trip" -d @notes.md --category personal`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := models.TaskInput{Priority: models.PriorityMedium, Category: models.DefaultCategory}
		if len(args) == 1 {
			in.Title = args[0]
		}

		var err error
		desc, _ := cmd.Flags().GetString("description")
		if in.Description, err = input.ExpandValue(desc, cmd.InOrStdin()); err != nil {
			return err
		}
		if p, _ := cmd.Flags().GetString("priority"); p != "" {
			if in.Priority, err = models.NormalizePriority(p); err != nil {
				return &input.ValidationError{Message: err.Error()}
			}
		}
		if c, _ := cmd.Flags().GetString("category"); c != "" {
			in.Category = c
		}
		if d, _ := cmd.Flags().GetString("due"); d != "" {
			if in.DueDate, err = dateparse.ParseDue(d); err != nil {
				return &input.ValidationError{Message: err.Error()}
			}
		}

		if in.Title == "" && interactive() {
			if err := taskForm(&in); err != nil {
				return err
			}
		}
		if err := input.ValidateTitle(in.Title); err != nil {
			return err
		}

		resp, err := current.client.CreateTask(cmdContext(cmd), in)
		if err != nil {
			return err
		}
		if flagJSON {
			return output.JSON(resp.Task)
		}
		output.Success("%s %s", orDefault(resp.Message, "Task created"), resp.Task.ID)
		output.Info("%s", output.FormatTaskShort(resp.Task, 0))
		return nil
	},
}

// taskForm asks for the fields of a new task.
func taskForm(in *models.TaskInput) error {
	priority := string(in.Priority)
	due := in.DueDate
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(&in.Title).Validate(input.ValidateTitle),
			huh.NewText().Title("Description").Value(&in.Description),
			huh.NewSelect[string]().Title("Priority").Options(
				huh.NewOption("Low", string(models.PriorityLow)),
				huh.NewOption("Medium", string(models.PriorityMedium)),
				huh.NewOption("High", string(models.PriorityHigh)),
			).Value(&priority),
			huh.NewInput().Title("Category").Value(&in.Category),
			huh.NewInput().Title("Due date").Placeholder("2026-03-01, tomorrow, +3d, friday").Value(&due).
				Validate(func(s string) error {
					_, err := dateparse.ParseDue(s)
					return err
				}),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	in.Priority = models.Priority(priority)
	parsed, err := dateparse.ParseDue(due)
	if err != nil {
		return &input.ValidationError{Message: err.Error()}
	}
	in.DueDate = parsed
	return nil
}

var taskEditCmd = &cobra.Command{
	Use:   "edit <task-id>",
	Short: "Change fields of a task",
	Long: `Change fields of a task. Only the given flags are sent.

Examples:
  taskflow task edit 65f1c --title "Write final report"
  taskflow task edit 65f1c --due none --priority low`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := patchFromFlags(cmd)
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			return &input.ValidationError{Message: "nothing to change (use --title, --description, --status, --priority, --category or --due)"}
		}
		resp, err := current.client.UpdateTask(cmdContext(cmd), args[0], patch)
		if err != nil {
			return err
		}
		if flagJSON {
			return output.JSON(resp.Task)
		}
		output.Success("%s", orDefault(resp.Message, "Task updated"))
		output.Info("%s", output.FormatTaskShort(resp.Task, 0))
		return nil
	},
}

func patchFromFlags(cmd *cobra.Command) (models.TaskPatch, error) {
	var p models.TaskPatch
	flags := cmd.Flags()
	if flags.Changed("title") {
		title, _ := flags.GetString("title")
		if err := input.ValidateTitle(title); err != nil {
			return p, err
		}
		p.Title = &title
	}
	if flags.Changed("description") {
		raw, _ := flags.GetString("description")
		desc, err := input.ExpandValue(raw, cmd.InOrStdin())
		if err != nil {
			return p, err
		}
		p.Description = &desc
	}
	if flags.Changed("status") {
		raw, _ := flags.GetString("status")
		s, err := models.NormalizeStatus(raw)
		if err != nil {
			return p, &input.ValidationError{Message: err.Error()}
		}
		p.Status = &s
	}
	if flags.Changed("priority") {
		raw, _ := flags.GetString("priority")
		pr, err := models.NormalizePriority(raw)
		if err != nil {
			return p, &input.ValidationError{Message: err.Error()}
		}
		p.Priority = &pr
	}
	if flags.Changed("category") {
		c, _ := flags.GetString("category")
		p.Category = &c
	}
	if flags.Changed("due") {
		raw, _ := flags.GetString("due")
		due, err := dateparse.ParseDue(raw)
		if err != nil {
			return p, &input.ValidationError{Message: err.Error()}
		}
		p.DueDate = &due
	}
	return p, nil
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <task-id> <status>",
	Short: "Set task status (pending, in-progress, completed)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := models.NormalizeStatus(args[1])
		if err != nil {
			return &input.ValidationError{Message: err.Error()}
		}
		return setStatus(cmd, args[0], status)
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <task-id>...",
	Short: "Mark tasks completed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, id := range args {
			if err := setStatus(cmd, id, models.StatusCompleted); err != nil {
				return err
			}
		}
		return nil
	},
}

func setStatus(cmd *cobra.Command, id string, status models.Status) error {
	resp, err := current.client.UpdateTaskStatus(cmdContext(cmd), id, status)
	if err != nil {
		return err
	}
	if flagJSON {
		return output.JSON(resp.Task)
	}
	output.Success("%s %s", resp.Task.ID, output.StatusBadge(resp.Task.Status))
	return nil
}

var taskDeleteCmd = &cobra.Command{
	Use:     "delete <task-id>...",
	Aliases: []string{"rm"},
	Short:   "Delete tasks",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, id := range args {
			resp, err := current.client.DeleteTask(cmdContext(cmd), id)
			if err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			if !flagJSON {
				output.Success("%s: %s", id, orDefault(resp.Message, "deleted"))
			}
		}
		if flagJSON {
			return output.JSON(map[string]any{"deleted": args})
		}
		return nil
	},
}

// overview is the body of GET /tasks/stats/overview.
type overview struct {
	Stats      models.TaskStats `json:"stats"`
	Categories []struct {
		Name  string `json:"_id"`
		Count int    `json:"count"`
	} `json:"categories"`
}

var taskStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show task counts by status and category",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := current.client.TaskStats(cmdContext(cmd))
		if err != nil {
			return err
		}
		if flagJSON {
			fmt.Fprintln(output.Out, strings.TrimSpace(string(raw)))
			return nil
		}
		var ov overview
		if err := json.Unmarshal(raw, &ov); err != nil {
			return fmt.Errorf("decode stats: %w", err)
		}
		output.Info("%s", output.FormatStats(ov.Stats))
		for _, c := range ov.Categories {
			output.Info("  %-12s %d", orDefault(c.Name, "(none)"), c.Count)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskListCmd, taskShowCmd, taskAddCmd, taskEditCmd, taskStatusCmd, taskDoneCmd, taskDeleteCmd, taskStatsCmd)

	taskListCmd.Flags().StringP("status", "s", "", "Filter by status")
	taskListCmd.Flags().StringP("priority", "p", "", "Filter by priority")
	taskListCmd.Flags().StringP("category", "c", "", "Filter by category")
	taskListCmd.Flags().StringP("search", "q", "", "Search title and description")

	taskShowCmd.Flags().Bool("render", true, "Render the description as markdown on a terminal")

	taskAddCmd.Flags().StringP("description", "d", "", "Description (@file or - for stdin)")
	taskAddCmd.Flags().StringP("priority", "p", "", "Priority: low, medium, high")
	taskAddCmd.Flags().StringP("category", "c", "", "Category (default work)")
	taskAddCmd.Flags().String("due", "", "Due date: 2026-03-01, today, tomorrow, +3d, +2w, friday")

	taskEditCmd.Flags().String("title", "", "New title")
	taskEditCmd.Flags().StringP("description", "d", "", "New description (@file or - for stdin)")
	taskEditCmd.Flags().StringP("status", "s", "", "New status")
	taskEditCmd.Flags().StringP("priority", "p", "", "New priority")
	taskEditCmd.Flags().StringP("category", "c", "", "New category")
	taskEditCmd.Flags().String("due", "", "New due date, or none to clear")
}
