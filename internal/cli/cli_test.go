package cli

import (
	"bytes"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/daybook/internal/database"
	"github.com/dukerupert/daybook/internal/rollover"
	"github.com/dukerupert/daybook/internal/server"
	"github.com/dukerupert/daybook/internal/streak"
	"github.com/dukerupert/daybook/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	url   string
	srv   *server.Server
	state string
	now   time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	for _, k := range []string{"USER", "SERVER_URL", "STATE_FILE", "TIMEZONE", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv("DAYBOOK_"+k, "")
	}
	t.Setenv("DAYBOOK_PASSPHRASE", "")

	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		state: filepath.Join(t.TempDir(), "state.toml"),
		now:   time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.srv = server.New(db, server.Config{Location: time.UTC}, logger,
		tracker.WithClock(func() time.Time { return env.now }))

	ts := httptest.NewServer(env.srv.Router())
	t.Cleanup(ts.Close)
	env.url = ts.URL
	return env
}

func (e *testEnv) runWithInput(t *testing.T, in string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand("test",
		WithLogOutput(io.Discard),
		WithNow(func() time.Time { return e.now }),
	)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(in))
	root.SetArgs(append([]string{
		"--server", e.url,
		"--user", "alice",
		"--state-file", e.state,
		"--timezone", "UTC",
	}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return e.runWithInput(t, "", args...)
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "daybook %s", strings.Join(args, " "))
	return out
}

func TestTasksAddListToggle(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "tasks", "add", "Write", "report", "--time", "2h", "--subtask", "outline")
	assert.Contains(t, out, `"Write report" for 2026-10-15`)

	out = env.mustRun(t, "tasks", "list")
	assert.Contains(t, out, "Write report")
	assert.Contains(t, out, "2h")
	assert.Contains(t, out, "[ ]")
	assert.Contains(t, out, "outline")

	tasks, err := env.srv.Tracker().ListTasks("alice")
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	out = env.mustRun(t, "tasks", "toggle", tasks[0].ID[:6])
	assert.Contains(t, out, "is done")
	assert.Contains(t, out, "Streak: 1 (longest 1)")

	out = env.mustRun(t, "streak")
	assert.Contains(t, out, "Current streak: 1")
	assert.Contains(t, out, "Last completed: 2026-10-15")

	out = env.mustRun(t, "tasks", "list", "tomorrow")
	assert.Contains(t, out, "No tasks.")
}

func TestTasksEditAndRemove(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "tasks", "add", "Draft")
	tasks, err := env.srv.Tracker().ListTasks("alice")
	require.NoError(t, err)
	id := tasks[0].ID

	_, err = env.run(t, "tasks", "edit", id)
	assert.ErrorContains(t, err, "nothing to change")

	out := env.mustRun(t, "tasks", "edit", id, "--title", "Final")
	assert.Contains(t, out, `"Final"`)

	out = env.mustRun(t, "tasks", "rm", id)
	assert.Contains(t, out, "Deleted")

	_, err = env.run(t, "tasks", "toggle", id)
	assert.ErrorContains(t, err, "no task matches")
}

func TestSubtasks(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "tasks", "add", "Shop")
	tasks, err := env.srv.Tracker().ListTasks("alice")
	require.NoError(t, err)
	id := tasks[0].ID

	out := env.mustRun(t, "subtasks", "add", id, "buy", "milk")
	assert.Contains(t, out, "buy milk")

	task, err := env.srv.Tracker().GetTask("alice", id)
	require.NoError(t, err)
	require.Len(t, task.Subtasks, 1)
	stID := task.Subtasks[0].ID

	out = env.mustRun(t, "subtasks", "toggle", id, stID[:8])
	assert.Contains(t, out, "[x]")

	task, err = env.srv.Tracker().GetTask("alice", id)
	require.NoError(t, err)
	assert.False(t, task.Completed, "subtasks do not complete the parent")

	env.mustRun(t, "subtasks", "rm", id, stID)
	task, err = env.srv.Tracker().GetTask("alice", id)
	require.NoError(t, err)
	assert.Empty(t, task.Subtasks)

	_, err = env.run(t, "subtasks", "toggle", id, "nope")
	assert.Error(t, err)
}

func TestDailyCheckOncePerDay(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "check")
	assert.Contains(t, out, "Daily check ran for 2026-10-15")

	last, err := rollover.NewFileState(env.state).LastResetDate("alice")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15", last)

	stored, err := env.srv.Profiles().LastResetDate("alice")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15", stored)

	out = env.mustRun(t, "check")
	assert.Contains(t, out, "Already checked today")

	env.now = env.now.Add(24 * time.Hour)
	out = env.mustRun(t, "check")
	assert.Contains(t, out, "Daily check ran for 2026-10-16")
}

func TestCommandsRunDailyCheckFirst(t *testing.T) {
	env := newTestEnv(t)

	env.mustRun(t, "day")

	last, err := rollover.NewFileState(env.state).LastResetDate("alice")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15", last)
}

func TestDayWeekMonthAndClear(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "tasks", "add", "Run")
	tasks, err := env.srv.Tracker().ListTasks("alice")
	require.NoError(t, err)
	env.mustRun(t, "tasks", "toggle", tasks[0].ID)

	out := env.mustRun(t, "day")
	assert.Contains(t, out, "2026-10-15  complete")

	out = env.mustRun(t, "week")
	assert.Contains(t, out, "Week of 2026-10-12")
	assert.Contains(t, out, "1/1")
	assert.Contains(t, out, "<- today")

	out = env.mustRun(t, "month")
	assert.Contains(t, out, "2026-10  1/1 days complete")
	assert.Contains(t, out, " 15*")

	_, err = env.run(t, "month", "2026-13")
	assert.Error(t, err)

	out = env.mustRun(t, "clear-day")
	assert.Contains(t, out, "Cleared 1 task(s) on 2026-10-15")

	out = env.mustRun(t, "day", "today")
	assert.Contains(t, out, "incomplete")

	_, err = env.run(t, "clear-day", "2026-10-16")
	assert.Error(t, err, "future days cannot be cleared")
}

func TestNotesEdit(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "notes", "show")
	assert.Contains(t, out, "No notes.")

	out = env.mustRun(t, "notes", "edit", "--set", "hello")
	assert.Contains(t, out, "Saved notes (5/1000 characters)")

	env.mustRun(t, "notes", "edit", "--append", "milk")
	out = env.mustRun(t, "notes", "show")
	assert.Equal(t, "hello\n• milk\n", out)

	_, err := env.run(t, "notes", "edit", "--set", strings.Repeat("x", 1001))
	assert.Error(t, err)
}

func TestNotesEditInteractive(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.runWithInput(t, "first\n\nsecond\n", "notes", "edit")
	require.NoError(t, err)

	n, err := env.srv.Tracker().Notes("alice")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "• first\n• second", n.Content)
}

func TestWatch(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "tasks", "add", "Read")

	out := env.mustRun(t, "watch", "--count", "2")
	assert.Contains(t, out, "tasks: 1 total, today 0/1 done (incomplete)")
	assert.Contains(t, out, "notes: empty")
}

func TestArchiveRequiresPassphraseAndStorage(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "archive", "export")
	assert.ErrorIs(t, err, errNoPassphrase)

	_, err = env.run(t, "archive", "export", "--passphrase", "correct horse")
	assert.Error(t, err, "archives are disabled without storage")

	_, err = env.run(t, "archive", "restore", "abc", "-p", "correct horse")
	assert.ErrorContains(t, err, "invalid archive id")
}

func TestResolveDate(t *testing.T) {
	app := &App{
		loc: time.FixedZone("UTC-7", -7*60*60),
		// 03:00 UTC is still the previous evening at UTC-7.
		now: func() time.Time { return time.Date(2026, 10, 15, 3, 0, 0, 0, time.UTC) },
	}

	tests := []struct {
		args    []string
		want    string
		wantErr bool
	}{
		{nil, "2026-10-14", false},
		{[]string{"today"}, "2026-10-14", false},
		{[]string{"yesterday"}, "2026-10-13", false},
		{[]string{"Tomorrow"}, "2026-10-15", false},
		{[]string{"2026-02-28"}, "2026-02-28", false},
		{[]string{"2026-02-30"}, "", true},
		{[]string{"next week"}, "", true},
	}
	for _, tt := range tests {
		got, err := app.resolveDate(tt.args)
		if tt.wantErr {
			assert.Error(t, err, "args %v", tt.args)
			continue
		}
		require.NoError(t, err, "args %v", tt.args)
		assert.Equal(t, tt.want, got, "args %v", tt.args)
	}
}

func TestPrintMonth(t *testing.T) {
	var buf bytes.Buffer
	m := &tracker.Month{
		Month:         "2026-02",
		LeadingBlanks: 6,
		DaysWithTasks: 2,
		CompletedDays: 1,
	}
	for d := 1; d <= 28; d++ {
		dc := tracker.DayCount{Status: streak.StatusNone}
		switch d {
		case 1:
			dc.Status = streak.StatusSuccess
		case 2:
			dc.Status = streak.StatusFailed
		}
		m.Days = append(m.Days, dc)
	}
	printMonth(&buf, m)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "2026-02  1/2 days complete", lines[0])
	assert.Equal(t, strings.Repeat(" ", 24)+"  1*", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "  2!"), lines[3])
	assert.True(t, strings.HasSuffix(lines[6], " 28"), lines[6])
}
