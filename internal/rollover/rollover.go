// Package rollover decides, once per local calendar day, whether the daily
// bookkeeping check has to run, and records that it did.
//
// The check only advances the stored "last checked" date. It never touches
// task completion state: a day keeps whatever the user left it with.
package rollover

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/dukerupert/daybook/internal/daykey"
)

// ShouldRunDailyCheck reports whether the check is due. An empty stored
// date counts as stale.
func ShouldRunDailyCheck(lastStored, today string) bool {
	return lastStored != today
}

// State is where the caller keeps its own record of the last checked day.
type State interface {
	LastResetDate(userID string) (string, error)
	SetLastResetDate(userID, date string) error
}

// ProfileWriter persists the checked day on the user's profile.
type ProfileWriter interface {
	SetLastResetDate(userID, date string) error
}

type Result struct {
	Ran   bool   `json:"ran"`
	Today string `json:"today"`
}

// Checker runs the daily check against a local state and the profile store.
type Checker struct {
	local    State
	profiles ProfileWriter
	loc      *time.Location
	logger   *slog.Logger
}

func NewChecker(local State, profiles ProfileWriter, loc *time.Location, logger *slog.Logger) *Checker {
	if loc == nil {
		loc = time.Local
	}
	return &Checker{local: local, profiles: profiles, loc: loc, logger: logger}
}

// Run performs the check for userID if it has not run yet today. A stale or
// missing local value only costs a redundant profile write.
func (c *Checker) Run(ctx context.Context, userID string, now time.Time) (Result, error) {
	today := daykey.Key(now.In(c.loc))

	last, err := c.local.LastResetDate(userID)
	if err != nil {
		// Unreadable local state is treated as stale.
		c.logger.Warn("read local reset date", "user", userID, "error", err)
		last = ""
	}

	if !ShouldRunDailyCheck(last, today) {
		return Result{Ran: false, Today: today}, nil
	}
	if err := ctx.Err(); err != nil {
		return Result{Today: today}, err
	}

	if err := c.profiles.SetLastResetDate(userID, today); err != nil {
		return Result{Today: today}, fmt.Errorf("record reset date: %w", err)
	}
	if !sameStore(c.local, c.profiles) {
		if err := c.local.SetLastResetDate(userID, today); err != nil {
			return Result{Ran: true, Today: today}, fmt.Errorf("store local reset date: %w", err)
		}
	}

	c.logger.Info("daily check", "user", userID, "today", today, "previous", last)
	return Result{Ran: true, Today: today}, nil
}

// sameStore reports whether local and profiles are one store, in which case
// the profile write already covers the local one.
func sameStore(local State, profiles ProfileWriter) bool {
	a, b := any(local), any(profiles)
	t := reflect.TypeOf(a)
	return t != nil && t == reflect.TypeOf(b) && t.Comparable() && a == b
}
