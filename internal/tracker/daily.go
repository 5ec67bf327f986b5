package tracker

import (
	"context"
	"fmt"

	"github.com/dukerupert/daybook/internal/daykey"
	"github.com/dukerupert/daybook/internal/rollover"
)

// DailyCheck runs the once-per-day check for a client. lastChecked is the
// day the client last recorded; when empty the profile's stored date
// stands in for it.
func (s *Service) DailyCheck(ctx context.Context, userID, lastChecked string) (rollover.Result, error) {
	var local rollover.State = s.profiles
	if lastChecked != "" {
		mem := rollover.NewMemoryState()
		if err := mem.SetLastResetDate(userID, lastChecked); err != nil {
			return rollover.Result{}, fmt.Errorf("seed local reset date: %w", err)
		}
		local = mem
	}
	return s.runCheck(ctx, rollover.NewChecker(local, s.profiles, s.loc, s.logger), userID)
}

// DailyCheckWith runs the check against a caller-owned local state.
func (s *Service) DailyCheckWith(ctx context.Context, local rollover.State, userID string) (rollover.Result, error) {
	return s.runCheck(ctx, rollover.NewChecker(local, s.profiles, s.loc, s.logger), userID)
}

func (s *Service) runCheck(ctx context.Context, c *rollover.Checker, userID string) (rollover.Result, error) {
	res, err := c.Run(ctx, userID, s.now())
	if err != nil {
		return res, err
	}
	if res.Ran {
		s.notify(userID, "profile", "updated", "", map[string]any{"last_reset_date": res.Today})
	}
	return res, nil
}

// ClearDay is the explicit "start fresh" action: every task and subtask of
// date becomes incomplete. Future days cannot be cleared.
func (s *Service) ClearDay(userID, date string) (int64, error) {
	if !daykey.Valid(date) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	if date > s.Today() {
		return 0, fmt.Errorf("%w: %s is in the future", ErrInvalidDate, date)
	}

	n, err := s.tasks.ClearDay(userID, date)
	if err != nil {
		return 0, err
	}
	s.logger.Info("day cleared", "user", userID, "date", date, "tasks", n)
	s.notify(userID, "task", "cleared", "", map[string]any{"date": date})
	return n, nil
}
