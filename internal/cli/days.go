package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dukerupert/daybook/internal/daykey"
	"github.com/dukerupert/daybook/internal/streak"
	"github.com/dukerupert/daybook/internal/tracker"
	"github.com/spf13/cobra"
)

func newDayCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "day [date]",
		Short:   "Show a day's tasks and completion status",
		GroupID: groupViews,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := app.resolveDate(args)
			if err != nil {
				return err
			}
			d, err := app.client.Day(cmd.Context(), app.cfg.User, date)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s  %s\n\n", d.Date, statusLabel(d.Status))
			printTasks(w, d.Tasks)
			return nil
		},
	}
}

func newWeekCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "week [date]",
		Short:   "Show the Monday to Sunday week containing a date",
		GroupID: groupViews,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := app.resolveDate(args)
			if err != nil {
				return err
			}
			wk, err := app.client.Week(cmd.Context(), app.cfg.User, date)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Week of %s\n", wk.Start)
			printDayCounts(w, wk.Days, app.today())
			return nil
		},
	}
}

func newMonthCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "month [YYYY-MM]",
		Short:   "Show a month calendar of completed days",
		GroupID: groupViews,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			month := daykey.Month(app.today())
			if len(args) == 1 {
				if _, _, err := daykey.ParseMonth(args[0]); err != nil {
					return err
				}
				month = args[0]
			}
			m, err := app.client.Month(cmd.Context(), app.cfg.User, month)
			if err != nil {
				return err
			}
			printMonth(cmd.OutOrStdout(), m)
			return nil
		},
	}
}

func newStreakCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "streak",
		Short:   "Show the current and longest streak",
		GroupID: groupViews,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.client.Streak(cmd.Context(), app.cfg.User)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Current streak: %d\n", s.Current)
			fmt.Fprintf(w, "Longest streak: %d\n", s.Stored.LongestStreak)
			if s.Stored.LastCompletedDate != "" {
				fmt.Fprintf(w, "Last completed: %s\n", s.Stored.LastCompletedDate)
			}
			fmt.Fprintf(w, "Recent history: %d day(s)\n", s.History)
			return nil
		},
	}
}

func newCheckCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:         "check",
		Short:       "Run the daily check now",
		Annotations: map[string]string{annotationNoCheck: "true"},
		Long:        `Run the once-per-day check. It does nothing if today was already handled.`,
		GroupID:     groupAdmin,
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := app.dailyCheck(cmd.Context())
			if err != nil {
				return err
			}
			if res.Ran {
				fmt.Fprintf(cmd.OutOrStdout(), "Daily check ran for %s\n", res.Today)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Already checked today (%s)\n", res.Today)
			}
			return nil
		},
	}
}

func newClearDayCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-day [date]",
		Short: "Mark every task of a day as not done",
		Long: `Mark every task of a day (today by default) as not done. Tasks and
subtasks are kept; nothing is deleted.`,
		GroupID: groupAdmin,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := app.resolveDate(args)
			if err != nil {
				return err
			}
			n, err := app.client.ClearDay(cmd.Context(), app.cfg.User, date)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d task(s) on %s\n", n, date)
			return nil
		},
	}
}

func statusLabel(s streak.Status) string {
	switch s {
	case streak.StatusSuccess:
		return "complete"
	case streak.StatusFailed:
		return "incomplete"
	default:
		return "no tasks"
	}
}

func printDayCounts(w io.Writer, days []tracker.DayCount, today string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer func() { _ = tw.Flush() }()

	_, _ = fmt.Fprintln(tw, "DATE\tDONE\tSTATUS\t")
	for _, d := range days {
		marker := ""
		if d.Date == today {
			marker = "<- today"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%d/%d\t%s\t%s\n", d.Date, d.Completed, d.Total, statusLabel(d.Status), marker)
	}
}

// printMonth draws a Monday-first calendar. Completed days are marked with
// *, days with open tasks with !.
func printMonth(w io.Writer, m *tracker.Month) {
	fmt.Fprintf(w, "%s  %d/%d days complete\n", m.Month, m.CompletedDays, m.DaysWithTasks)
	fmt.Fprintln(w, " Mo  Tu  We  Th  Fr  Sa  Su")

	var line strings.Builder
	col := 0
	for ; col < m.LeadingBlanks; col++ {
		line.WriteString("    ")
	}
	for i, d := range m.Days {
		mark := " "
		switch d.Status {
		case streak.StatusSuccess:
			mark = "*"
		case streak.StatusFailed:
			mark = "!"
		}
		fmt.Fprintf(&line, "%3d%s", i+1, mark)
		col++
		if col == 7 {
			fmt.Fprintln(w, strings.TrimRight(line.String(), " "))
			line.Reset()
			col = 0
		}
	}
	if line.Len() > 0 {
		fmt.Fprintln(w, strings.TrimRight(line.String(), " "))
	}
}
