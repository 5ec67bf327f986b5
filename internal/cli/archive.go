package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newArchiveCommand(app *App) *cobra.Command {
	var passphrase string
	getPassphrase := func() (string, error) {
		if passphrase != "" {
			return passphrase, nil
		}
		if p := os.Getenv("DAYBOOK_PASSPHRASE"); p != "" {
			return p, nil
		}
		return "", errNoPassphrase
	}

	cmd := &cobra.Command{
		Use:     "archive",
		Short:   "Export and restore encrypted copies of the board",
		GroupID: groupAdmin,
	}
	cmd.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "Archive passphrase (or DAYBOOK_PASSPHRASE)")

	export := &cobra.Command{
		Use:   "export",
		Short: "Upload an encrypted archive of all tasks, notes and the streak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := getPassphrase()
			if err != nil {
				return err
			}
			a, err := app.client.ExportArchive(cmd.Context(), app.cfg.User, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archive %d: %s (%s, %d bytes)\n", a.ID, a.Filename, a.Status, a.SizeBytes)
			return nil
		},
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List archives, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			archives, err := app.client.ListArchives(cmd.Context(), app.cfg.User)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(archives) == 0 {
				fmt.Fprintln(w, "No archives.")
				return nil
			}
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			defer func() { _ = tw.Flush() }()
			_, _ = fmt.Fprintln(tw, "ID\tCREATED\tSTATUS\tSIZE\tFILE")
			for _, a := range archives {
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n",
					a.ID, a.CreatedAt.In(app.loc).Format("2006-01-02 15:04"), a.Status, a.SizeBytes, a.Filename)
			}
			return nil
		},
	}

	restore := &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore tasks, notes and the streak from an archive",
		Long: `Restore an archive into the current user's board. Tasks in the archive
replace tasks with the same id; other tasks are left alone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid archive id %q", args[0])
			}
			p, err := getPassphrase()
			if err != nil {
				return err
			}
			n, err := app.client.RestoreArchive(cmd.Context(), app.cfg.User, id, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d task(s) from archive %d\n", n, id)
			return nil
		},
	}

	rm := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete an archive",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid archive id %q", args[0])
			}
			if err := app.client.DeleteArchive(cmd.Context(), app.cfg.User, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted archive %d\n", id)
			return nil
		},
	}

	cmd.AddCommand(export, list, restore, rm)
	return cmd
}
