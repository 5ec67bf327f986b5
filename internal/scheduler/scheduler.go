// Package scheduler runs the daily check for every known user at a fixed
// local time, and once at startup.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/daybook/internal/rollover"
	"github.com/robfig/cron/v3"
)

type Checker interface {
	DailyCheck(ctx context.Context, userID, lastChecked string) (rollover.Result, error)
}

type UserLister interface {
	UserIDs() ([]string, error)
}

type Scheduler struct {
	cron     *cron.Cron
	checker  Checker
	users    UserLister
	defaults []string
	timeout  time.Duration
	logger   *slog.Logger
}

// New creates a scheduler whose times are read in loc. defaultUsers are
// checked even before they have any stored data.
func New(loc *time.Location, checker Checker, users UserLister, logger *slog.Logger, defaultUsers ...string) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	logger = logger.With("component", "scheduler")
	cl := cronLogger{logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		checker:  checker,
		users:    users,
		defaults: defaultUsers,
		timeout:  time.Minute,
		logger:   logger,
	}
}

// ScheduleDaily registers the check at the given HH:MM time.
func (s *Scheduler) ScheduleDaily(timeStr string) (cron.EntryID, error) {
	spec, err := buildDailySpec(timeStr)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.RunOnce(ctx)
	})
}

// Every registers job to run at a fixed interval.
func (s *Scheduler) Every(d time.Duration, job func()) (cron.EntryID, error) {
	if d <= 0 {
		return 0, fmt.Errorf("invalid interval %s", d)
	}
	return s.cron.AddFunc("@every "+d.String(), job)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Next reports when the next scheduled run fires.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	next := entries[0].Next
	for _, e := range entries[1:] {
		if e.Next.Before(next) {
			next = e.Next
		}
	}
	return next
}

func (s *Scheduler) userIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, id := range s.defaults {
		add(id)
	}
	stored, err := s.users.UserIDs()
	if err != nil {
		s.logger.Error("list users", "error", err)
	}
	for _, id := range stored {
		add(id)
	}
	return ids
}

// RunOnce checks every known user and returns how many checks ran. The
// profile's stored date is the reference, so repeated calls on the same
// day are no-ops.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	ran := 0
	for _, id := range s.userIDs() {
		if ctx.Err() != nil {
			break
		}
		res, err := s.checker.DailyCheck(ctx, id, "")
		if err != nil {
			s.logger.Error("daily check", "user", id, "error", err)
			continue
		}
		if res.Ran {
			ran++
		}
	}
	s.logger.Debug("daily checks done", "ran", ran)
	return ran
}

func buildDailySpec(timeStr string) (string, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", timeStr)
	}
	// second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}

// cronLogger routes cron's own logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
