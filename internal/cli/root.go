// Package cli implements the daybook command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/daybook/internal/client"
	"github.com/dukerupert/daybook/internal/config"
	"github.com/dukerupert/daybook/internal/daykey"
	"github.com/dukerupert/daybook/internal/logging"
	"github.com/dukerupert/daybook/internal/model"
	"github.com/dukerupert/daybook/internal/rollover"
	"github.com/spf13/cobra"
)

const (
	groupTasks = "tasks"
	groupViews = "views"
	groupAdmin = "admin"
)

// App is the state shared by every command once flags are parsed.
type App struct {
	cfg    *config.Config
	loc    *time.Location
	logger *slog.Logger
	client *client.Client
	state  rollover.State
	now    func() time.Time

	httpClient *http.Client
	logOut     io.Writer
}

type Option func(*App)

// WithHTTPClient sets the client used to reach the server.
func WithHTTPClient(hc *http.Client) Option { return func(a *App) { a.httpClient = hc } }

// WithLogOutput redirects log output, which otherwise goes to stderr.
func WithLogOutput(w io.Writer) Option { return func(a *App) { a.logOut = w } }

// WithNow fixes the CLI's notion of the current time.
func WithNow(now func() time.Time) Option { return func(a *App) { a.now = now } }

func NewRootCommand(version string, opts ...Option) *cobra.Command {
	app := &App{now: time.Now}
	for _, opt := range opts {
		opt(app)
	}

	var flags struct {
		config    string
		user      string
		server    string
		stateFile string
		logLevel  string
		timezone  string
	}

	root := &cobra.Command{
		Use:   "daybook",
		Short: "Daily tasks, notes and streaks",
		Long: `daybook tracks the tasks planned for each day, a scratch pad of notes,
and a streak of days on which every task was completed.

Run "daybook serve" to start the server; every other command talks to it.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.config)
			if err != nil {
				return err
			}
			overrides := map[*string]string{
				&cfg.User:      flags.user,
				&cfg.ServerURL: flags.server,
				&cfg.StateFile: flags.stateFile,
				&cfg.LogLevel:  flags.logLevel,
				&cfg.Timezone:  flags.timezone,
			}
			for dst, v := range overrides {
				if v != "" {
					*dst = v
				}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return app.init(cmd, cfg)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "Path to a TOML config file")
	pf.StringVarP(&flags.user, "user", "u", "", "User id (default from config)")
	pf.StringVar(&flags.server, "server", "", "Server URL (default from config)")
	pf.StringVar(&flags.stateFile, "state-file", "", "Local state file for the daily check")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flags.timezone, "timezone", "", "IANA timezone for day boundaries")

	root.AddGroup(
		&cobra.Group{ID: groupTasks, Title: "Tasks and Notes:"},
		&cobra.Group{ID: groupViews, Title: "Views:"},
		&cobra.Group{ID: groupAdmin, Title: "Server and Maintenance:"},
	)

	root.AddCommand(
		newTasksCommand(app),
		newSubtasksCommand(app),
		newNotesCommand(app),
		newWatchCommand(app),
		newDayCommand(app),
		newWeekCommand(app),
		newMonthCommand(app),
		newStreakCommand(app),
		newCheckCommand(app),
		newClearDayCommand(app),
		newArchiveCommand(app),
		newServeCommand(app),
	)
	return root
}

func (a *App) init(cmd *cobra.Command, cfg *config.Config) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.loc = loc

	if a.logOut != nil {
		a.logger = logging.New(a.logOut, cfg.LogLevel, cfg.LogFormat)
	} else {
		a.logger = logging.Setup(cfg.LogLevel, cfg.LogFormat)
	}

	clientOpts := []client.Option{client.WithLogger(a.logger)}
	if a.httpClient != nil {
		clientOpts = append(clientOpts, client.WithHTTPClient(a.httpClient))
	}
	a.client = client.New(cfg.ServerURL, clientOpts...)
	a.state = rollover.NewFileState(cfg.StateFile)

	if !needsDailyCheck(cmd) {
		return nil
	}
	// Every client command starts the way opening the dashboard does.
	if _, err := a.dailyCheck(cmd.Context()); err != nil {
		a.logger.Warn("daily check failed", "error", err)
	}
	return nil
}

// annotationNoCheck marks commands that must not trigger the automatic
// daily check.
const annotationNoCheck = "daybook/no-daily-check"

func needsDailyCheck(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationNoCheck] != "" {
			return false
		}
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd:
			return false
		}
	}
	return true
}

func (a *App) today() string {
	return daykey.Key(a.now().In(a.loc))
}

// dailyCheck runs the check at most once per local day. The server is only
// contacted when the state file says today has not been handled yet.
func (a *App) dailyCheck(ctx context.Context) (rollover.Result, error) {
	user := a.cfg.User
	today := a.today()

	last, err := a.state.LastResetDate(user)
	if err != nil {
		a.logger.Warn("read local state", "error", err)
	}
	if !rollover.ShouldRunDailyCheck(last, today) {
		return rollover.Result{Today: today}, nil
	}

	res, err := a.client.DailyCheck(ctx, user, last)
	if err != nil {
		return rollover.Result{}, err
	}
	if err := a.state.SetLastResetDate(user, today); err != nil {
		return res, err
	}
	return res, nil
}

// resolveDate turns an optional argument into a date key. "today",
// "yesterday" and "tomorrow" are accepted as well as YYYY-MM-DD.
func (a *App) resolveDate(args []string) (string, error) {
	if len(args) == 0 {
		return a.today(), nil
	}
	switch strings.ToLower(args[0]) {
	case "", "today":
		return a.today(), nil
	case "yesterday":
		return daykey.Yesterday(a.now().In(a.loc)), nil
	case "tomorrow":
		return daykey.AddDays(a.today(), 1)
	}
	if !daykey.Valid(args[0]) {
		return "", fmt.Errorf("invalid date %q: want YYYY-MM-DD", args[0])
	}
	return args[0], nil
}

// resolveTask finds a task by id or by a unique id prefix.
func (a *App) resolveTask(ctx context.Context, ref string) (*model.Task, error) {
	tasks, err := a.client.ListTasks(ctx, a.cfg.User)
	if err != nil {
		return nil, err
	}
	var matches []model.Task
	for _, t := range tasks {
		if t.ID == ref {
			return &t, nil
		}
		if strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no task matches %q", ref)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%q matches %d tasks, use a longer prefix", ref, len(matches))
	}
}

func resolveSubtask(t *model.Task, ref string) (*model.Subtask, error) {
	var match *model.Subtask
	for i := range t.Subtasks {
		st := &t.Subtasks[i]
		if st.ID == ref {
			return st, nil
		}
		if strings.HasPrefix(st.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("%q matches more than one subtask", ref)
			}
			match = st
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no subtask of %q matches %q", t.Title, ref)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var errNoPassphrase = errors.New("passphrase required: use --passphrase or DAYBOOK_PASSPHRASE")
