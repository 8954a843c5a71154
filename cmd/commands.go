package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tasks-cli/app"
	"tasks-cli/model"
	"tasks-cli/table"
	"tasks-cli/tui"
)

func newListCmd(e *env) *cobra.Command {
	var (
		id       int
		category string
		status   string
		search   string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show tasks, optionally one by id or filtered",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("id") {
				task, err := e.svc.GetTask(id)
				if err != nil {
					return err
				}
				e.printTasks([]model.Task{task})
				return nil
			}

			filter := app.Filter{Query: search}
			if status != "" {
				st, ok := model.ParseStatus(status)
				if !ok {
					return fmt.Errorf("%w: %q", app.ErrInvalidStatus, status)
				}
				filter.Status = st
			}
			tasks := e.svc.FilteredTasks(filter)

			if category != "" {
				byCategory, err := e.svc.TasksByCategory(category)
				if err != nil {
					return err
				}
				tasks = keepMatching(byCategory, tasks)
			}

			if len(tasks) == 0 {
				_, _ = fmt.Fprintln(e.out, "No tasks found.")
				return nil
			}
			e.printTasks(tasks)
			return nil
		},
	}
	cmd.Flags().IntVar(&id, "id", 0, "Show the task with this id")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Show tasks in this category")
	cmd.Flags().StringVarP(&status, "status", "s", "", "Show tasks with this status")
	cmd.Flags().StringVarP(&search, "search", "q", "", "Show tasks whose title or description contains this text")
	return cmd
}

func newAddCmd(e *env) *cobra.Command {
	var (
		title       string
		description string
		status      string
		priority    string
		category    string
		deadline    string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) == "" {
				return fmt.Errorf("%w: --title is required", app.ErrEmptyTitle)
			}

			in := app.NewTask{Title: title, Description: description, DueDate: deadline}
			if status != "" {
				st, ok := model.ParseStatus(status)
				if !ok {
					return fmt.Errorf("%w: %q", app.ErrInvalidStatus, status)
				}
				in.Status = st
			}
			if priority != "" {
				p, ok := model.ParsePriority(priority)
				if !ok {
					return fmt.Errorf("%w: %q", app.ErrInvalidPriority, priority)
				}
				in.Priority = p
			}
			if category != "" {
				c, ok := model.ParseCategory(category)
				if !ok {
					return fmt.Errorf("%w: %q", app.ErrInvalidCategory, category)
				}
				in.Category = c
			}

			task, err := e.svc.AddTask(in)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(e.out, "Task added: #%d %s\n", task.ID, task.Title)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Task title (required)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	cmd.Flags().StringVarP(&status, "status", "s", "", "Status: not-done, in-progress or done")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "Priority: low, medium or high")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category: study, personal, work or home")
	cmd.Flags().StringVar(&deadline, "deadline", "", "Due date as YYYY-MM-DD (default tomorrow)")
	return cmd
}

func newCompleteCmd(e *env) *cobra.Command {
	var id int
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Mark a task as done",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireID(cmd); err != nil {
				return err
			}
			task, err := e.svc.CompleteTask(id)
			if errors.Is(err, app.ErrAlreadyCompleted) {
				_, _ = fmt.Fprintf(e.out, "Task #%d is already %s.\n", task.ID, task.Status)
				return nil
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(e.out, "Task completed: #%d %s\n", task.ID, task.Title)
			e.printTasks([]model.Task{task})
			return nil
		},
	}
	cmd.Flags().IntVar(&id, "id", 0, "Id of the task to complete")
	return cmd
}

func newEditCmd(e *env) *cobra.Command {
	var (
		id    int
		field string
		value string
	)
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit a task interactively, or one field with --field and --value",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireID(cmd); err != nil {
				return err
			}

			var (
				task model.Task
				err  error
			)
			switch {
			case cmd.Flags().Changed("field"):
				if !cmd.Flags().Changed("value") {
					return fmt.Errorf("%w: --field needs --value", errUsage)
				}
				f, perr := app.ParseField(field)
				if perr != nil {
					return perr
				}
				task, err = e.svc.EditField(id, f, value)
			case cmd.Flags().Changed("value"):
				return fmt.Errorf("%w: --value needs --field", errUsage)
			default:
				task, err = tui.Run(e.svc, id, e.in, e.out)
				if errors.Is(err, tui.ErrCanceled) {
					_, _ = fmt.Fprintln(e.out, "Edit canceled.")
					return nil
				}
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(e.out, "Task updated: #%d %s\n", task.ID, task.Title)
			return nil
		},
	}
	cmd.Flags().IntVar(&id, "id", 0, "Id of the task to edit")
	cmd.Flags().StringVarP(&field, "field", "f", "", "Field to change: title, description, category, due_date, priority or status")
	cmd.Flags().StringVarP(&value, "value", "v", "", "New value for --field")
	return cmd
}

func newDeleteCmd(e *env) *cobra.Command {
	var id int
	cmd := &cobra.Command{
		Use:   "del",
		Short: "Delete a task",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireID(cmd); err != nil {
				return err
			}
			title, err := e.svc.DeleteTask(id)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(e.out, "Task deleted: #%d %s\n", id, title)
			return nil
		},
	}
	cmd.Flags().IntVar(&id, "id", 0, "Id of the task to delete")
	return cmd
}

func requireID(cmd *cobra.Command) error {
	if !cmd.Flags().Changed("id") {
		return fmt.Errorf("%w: -id is required", errUsage)
	}
	return nil
}

func (e *env) printTasks(tasks []model.Task) {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, t.Row())
	}
	_, _ = fmt.Fprint(e.out, table.Render(model.Header, rows, e.cfg.Color))
}

// keepMatching returns the tasks of a whose id is also in b, in a's order.
func keepMatching(a, b []model.Task) []model.Task {
	ids := make(map[int]bool, len(b))
	for _, t := range b {
		ids[t.ID] = true
	}
	out := make([]model.Task, 0, len(a))
	for _, t := range a {
		if ids[t.ID] {
			out = append(out, t)
		}
	}
	return out
}
