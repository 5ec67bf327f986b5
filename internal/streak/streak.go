// Package streak decides whether a day counts as complete and maintains the
// running streak of fully completed days.
package streak

import (
	"time"

	"github.com/dukerupert/daybook/internal/daykey"
	"github.com/dukerupert/daybook/internal/model"
)

type Status string

const (
	StatusNone    Status = "none"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// HistoryWindow is how many days FromHistory looks back.
const HistoryWindow = 30

// DayStatus classifies the tasks assigned to one day. Partial and zero
// completion are both StatusFailed.
func DayStatus(tasks []model.Task) Status {
	if len(tasks) == 0 {
		return StatusNone
	}
	for _, t := range tasks {
		if !t.Completed {
			return StatusFailed
		}
	}
	return StatusSuccess
}

// Update applies today's completion state to the stored tally. Calling it
// repeatedly with the same inputs is safe: once today is counted, further
// calls return the data unchanged.
func Update(data model.StreakData, today, yesterday string, todayCompleted bool) model.StreakData {
	if !todayCompleted {
		// Keys compare lexicographically in calendar order.
		if data.LastCompletedDate != "" && data.LastCompletedDate < yesterday {
			data.StreakCount = 0
		}
		return data
	}

	switch data.LastCompletedDate {
	case today:
		return data
	case yesterday:
		data.StreakCount++
	default:
		data.StreakCount = 1
	}
	data.LongestStreak = max(data.LongestStreak, data.StreakCount)
	data.LastCompletedDate = today
	return data
}

// Current is the streak worth displaying: the stored count while the last
// completion is today or yesterday, zero once the chain has lapsed.
func Current(data model.StreakData, today, yesterday string) int {
	if data.LastCompletedDate == today || data.LastCompletedDate == yesterday {
		return data.StreakCount
	}
	return 0
}

// FromHistory walks back from today counting consecutive successful days,
// looking at most window days. An unfinished today does not break the walk.
func FromHistory(statusFor func(key string) Status, today time.Time, window int) int {
	day := daykey.StartOfDay(today)
	n := 0
	for i := 0; i < window; i++ {
		key := daykey.Key(day.AddDate(0, 0, -i))
		if statusFor(key) == StatusSuccess {
			n++
		} else if i > 0 {
			break
		}
	}
	return n
}
