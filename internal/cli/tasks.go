package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dukerupert/daybook/internal/model"
	"github.com/dukerupert/daybook/internal/tracker"
	"github.com/spf13/cobra"
)

func newTasksCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"t"},
		Short:   "Manage tasks",
		GroupID: groupTasks,
	}
	cmd.AddCommand(
		newTasksListCommand(app),
		newTasksAddCommand(app),
		newTasksEditCommand(app),
		newTasksToggleCommand(app),
		newTasksRemoveCommand(app),
	)
	return cmd
}

func newTasksListCommand(app *App) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list [date]",
		Short: "List the tasks of a day",
		Long: `List the tasks planned for a day, today by default.

The date may be YYYY-MM-DD, "today", "yesterday" or "tomorrow".
With --all, every task of the user is listed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				tasks []model.Task
				err   error
			)
			if all {
				tasks, err = app.client.ListTasks(cmd.Context(), app.cfg.User)
			} else {
				date, derr := app.resolveDate(args)
				if derr != nil {
					return derr
				}
				tasks, err = app.client.TasksForDate(cmd.Context(), app.cfg.User, date)
			}
			if err != nil {
				return err
			}
			printTasks(cmd.OutOrStdout(), tasks)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "List tasks of every day")
	return cmd
}

func newTasksAddCommand(app *App) *cobra.Command {
	var opts struct {
		date        string
		description string
		time        string
		subtasks    []string
	}
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Example: `  daybook tasks add "Write report" --time 2h
  daybook tasks add "Groceries" --date tomorrow --subtask milk --subtask eggs`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := app.resolveDate([]string{opts.date})
			if err != nil {
				return err
			}
			nt := model.NewTask{
				Title:          strings.Join(args, " "),
				Description:    opts.description,
				TimeAllocation: opts.time,
				Date:           date,
			}
			for _, text := range opts.subtasks {
				nt.Subtasks = append(nt.Subtasks, model.Subtask{Text: text})
			}
			t, err := app.client.CreateTask(cmd.Context(), app.cfg.User, nt)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %q for %s\n", shortID(t.ID), t.Title, t.Date)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.date, "date", "d", "", "Day of the task (default today)")
	cmd.Flags().StringVar(&opts.description, "description", "", "Longer description")
	cmd.Flags().StringVar(&opts.time, "time", "", "Time allocation, e.g. 30m")
	cmd.Flags().StringArrayVarP(&opts.subtasks, "subtask", "s", nil, "Seed a subtask (repeatable)")
	return cmd
}

func newTasksEditCommand(app *App) *cobra.Command {
	var opts struct {
		title       string
		description string
		time        string
	}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task's title, description or time allocation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch model.TaskPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &opts.title
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &opts.description
			}
			if cmd.Flags().Changed("time") {
				patch.TimeAllocation = &opts.time
			}
			if patch.Empty() {
				return fmt.Errorf("nothing to change: pass --title, --description or --time")
			}

			t, err := app.resolveTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res, err := app.client.UpdateTask(cmd.Context(), app.cfg.User, t.ID, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s %q\n", shortID(res.Task.ID), res.Task.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.title, "title", "", "New title")
	cmd.Flags().StringVar(&opts.description, "description", "", "New description")
	cmd.Flags().StringVar(&opts.time, "time", "", "New time allocation")
	return cmd
}

func newTasksToggleCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "toggle <id>",
		Aliases: []string{"done"},
		Short:   "Flip a task between done and not done",
		Long: `Flip a task between done and not done. Completing the last open task
of today extends the streak.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.resolveTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res, err := app.client.ToggleTask(cmd.Context(), app.cfg.User, t.ID)
			if err != nil {
				return err
			}
			printToggle(cmd.OutOrStdout(), res)
			if res.StreakError != "" {
				return fmt.Errorf("task saved but streak not updated: %s", res.StreakError)
			}
			return nil
		},
	}
}

func newTasksRemoveCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.resolveTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := app.client.DeleteTask(cmd.Context(), app.cfg.User, t.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %q\n", shortID(t.ID), t.Title)
			return nil
		},
	}
}

func newSubtasksCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subtasks",
		Aliases: []string{"st"},
		Short:   "Manage the checklist of a task",
		GroupID: groupTasks,
	}

	add := &cobra.Command{
		Use:   "add <task-id> <text>",
		Short: "Add a subtask",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.resolveTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			t, err = app.client.AddSubtask(cmd.Context(), app.cfg.User, t.ID, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			printTasks(cmd.OutOrStdout(), []model.Task{*t})
			return nil
		},
	}

	toggle := &cobra.Command{
		Use:   "toggle <task-id> <subtask-id>",
		Short: "Flip a subtask between done and not done",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.resolveTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			st, err := resolveSubtask(t, args[1])
			if err != nil {
				return err
			}
			t, err = app.client.ToggleSubtask(cmd.Context(), app.cfg.User, t.ID, st.ID)
			if err != nil {
				return err
			}
			printTasks(cmd.OutOrStdout(), []model.Task{*t})
			return nil
		},
	}

	rm := &cobra.Command{
		Use:     "rm <task-id> <subtask-id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a subtask",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.resolveTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			st, err := resolveSubtask(t, args[1])
			if err != nil {
				return err
			}
			t, err = app.client.DeleteSubtask(cmd.Context(), app.cfg.User, t.ID, st.ID)
			if err != nil {
				return err
			}
			printTasks(cmd.OutOrStdout(), []model.Task{*t})
			return nil
		},
	}

	cmd.AddCommand(add, toggle, rm)
	return cmd
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

// printTasks prints one row per task with its subtasks indented below.
func printTasks(w io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer func() { _ = tw.Flush() }()

	_, _ = fmt.Fprintln(tw, "ID\tDATE\tDONE\tTIME\tTITLE")
	for _, t := range tasks {
		alloc := t.TimeAllocation
		if alloc == "" {
			alloc = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", shortID(t.ID), t.Date, checkbox(t.Completed), alloc, t.Title)
		for _, st := range t.Subtasks {
			_, _ = fmt.Fprintf(tw, "\t\t\t\t  %s %s %s\n", checkbox(st.Completed), shortID(st.ID), st.Text)
		}
	}
}

func printToggle(w io.Writer, res *tracker.ToggleResult) {
	state := "not done"
	if res.Task.Completed {
		state = "done"
	}
	fmt.Fprintf(w, "%s %q is %s\n", shortID(res.Task.ID), res.Task.Title, state)
	if res.Streak != nil {
		fmt.Fprintf(w, "Streak: %d (longest %d)\n", res.Streak.StreakCount, res.Streak.LongestStreak)
	}
}
