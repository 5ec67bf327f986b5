package model

import "time"

// StreakData is the persisted running tally of fully completed days.
type StreakData struct {
	StreakCount       int    `json:"streak_count"`
	LongestStreak     int    `json:"longest_streak"`
	LastCompletedDate string `json:"last_completed_date,omitempty"`
}

// Profile is the per-user bookkeeping row. A user without a stored
// profile reads as the zero value.
type Profile struct {
	UserID        string     `json:"user_id"`
	Streak        StreakData `json:"streak"`
	LastResetDate string     `json:"last_reset_date,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
