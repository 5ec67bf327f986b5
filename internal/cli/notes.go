package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/dukerupert/daybook/internal/model"
	"github.com/dukerupert/daybook/internal/notesync"
	"github.com/dukerupert/daybook/internal/streak"
	"github.com/spf13/cobra"
)

func newNotesCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notes",
		Short:   "Show or edit the notes pad",
		GroupID: groupTasks,
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := app.client.Notes(cmd.Context(), app.cfg.User)
			if err != nil {
				return err
			}
			if n == nil || n.Content == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No notes.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), n.Content)
			return nil
		},
	}

	var opts struct {
		set    string
		append string
	}
	edit := &cobra.Command{
		Use:   "edit",
		Short: "Edit the notes",
		Long: `Edit the notes. With --set the whole pad is replaced, with --append a
bullet is added. Without either, each line read from stdin is appended as a
bullet and saved shortly after typing stops; end input with Ctrl-D.

Changes made elsewhere are picked up while you are not typing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			errOut := cmd.ErrOrStderr()

			editor := notesync.New(app.cfg.User, app.client,
				notesync.WithLogger(app.logger.With("component", "notes")),
				notesync.WithOnChange(func(s notesync.Status) {
					if s.State == notesync.StateSaving {
						fmt.Fprintln(errOut, "saving...")
					}
				}),
			)
			defer editor.Close()

			n, err := app.client.Notes(ctx, app.cfg.User)
			if err != nil {
				return err
			}
			editor.ApplyRemote(n)

			switch {
			case cmd.Flags().Changed("set"):
				if err := editor.Edit(opts.set); err != nil {
					return err
				}
			case cmd.Flags().Changed("append"):
				if err := editor.Edit(notesync.AppendBullet(editor.Status().Content, opts.append)); err != nil {
					return err
				}
			default:
				if err := editInteractive(ctx, app, editor, cmd.InOrStdin(), errOut); err != nil {
					return err
				}
			}

			if err := drain(ctx, editor); err != nil {
				return err
			}
			content := editor.Status().Content
			fmt.Fprintf(cmd.OutOrStdout(), "Saved notes (%d/%d characters)\n",
				utf8.RuneCountInString(content), notesync.MaxLength)
			return nil
		},
	}
	edit.Flags().StringVar(&opts.set, "set", "", "Replace the notes with this text")
	edit.Flags().StringVar(&opts.append, "append", "", "Append a bullet line")
	edit.MarkFlagsMutuallyExclusive("set", "append")

	cmd.AddCommand(show, edit)
	return cmd
}

func editInteractive(ctx context.Context, app *App, editor *notesync.Editor, in io.Reader, errOut io.Writer) error {
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	remote, err := app.client.SubscribeNotes(subCtx, app.cfg.User)
	if err != nil {
		app.logger.Warn("notes subscription unavailable", "error", err)
	} else {
		go func() {
			for n := range remote {
				editor.ApplyRemote(n)
			}
		}()
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		next := notesync.AppendBullet(editor.Status().Content, line)
		if err := editor.Edit(next); err != nil {
			fmt.Fprintf(errOut, "not added: %v\n", err)
		}
	}
	return scanner.Err()
}

// drain saves any pending edit and waits for in-flight saves to finish.
func drain(ctx context.Context, editor *notesync.Editor) error {
	for {
		if err := editor.Flush(ctx); err != nil {
			return err
		}
		st := editor.Status()
		if st.State != notesync.StateEditing && st.State != notesync.StateSaving {
			return st.Err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func newWatchCommand(app *App) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print task and notes changes as they happen",
		Long: `Follow the user's tasks and notes live. The current state is printed
first, then again after every change. Stop with Ctrl-C, or pass --count to
exit after that many updates.`,
		GroupID: groupViews,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			tasks, err := app.client.SubscribeTasks(ctx, app.cfg.User)
			if err != nil {
				return err
			}
			notes, err := app.client.SubscribeNotes(ctx, app.cfg.User)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			seen := 0
			for count <= 0 || seen < count {
				select {
				case <-ctx.Done():
					return nil
				case list, ok := <-tasks:
					if !ok {
						return nil
					}
					printTaskSummary(w, list, app.today())
				case n, ok := <-notes:
					if !ok {
						return nil
					}
					printNotesSummary(w, n)
				}
				seen++
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Exit after this many updates")
	return cmd
}

func printTaskSummary(w io.Writer, tasks []model.Task, today string) {
	var todays []model.Task
	for _, t := range tasks {
		if t.Date == today {
			todays = append(todays, t)
		}
	}
	done := 0
	for _, t := range todays {
		if t.Completed {
			done++
		}
	}
	fmt.Fprintf(w, "tasks: %d total, today %d/%d done (%s)\n",
		len(tasks), done, len(todays), statusLabel(streak.DayStatus(todays)))
}

func printNotesSummary(w io.Writer, n *model.Notes) {
	if n == nil {
		fmt.Fprintln(w, "notes: empty")
		return
	}
	fmt.Fprintf(w, "notes: %d characters\n", utf8.RuneCountInString(n.Content))
}
