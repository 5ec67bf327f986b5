package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/daybook/internal/model"
)

type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// Get returns the stored profile, or a zero-valued one if the user has
// no row yet.
func (s *ProfileStore) Get(userID string) (*model.Profile, error) {
	p := &model.Profile{UserID: userID}
	var lastCompleted, lastReset sql.NullString
	var updatedAt sql.NullTime
	err := s.db.QueryRow(
		`SELECT streak_count, longest_streak, last_completed_date, last_reset_date, updated_at
		 FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.Streak.StreakCount, &p.Streak.LongestStreak, &lastCompleted, &lastReset, &updatedAt)
	if err == sql.ErrNoRows {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	p.Streak.LastCompletedDate = lastCompleted.String
	p.LastResetDate = lastReset.String
	if updatedAt.Valid {
		p.UpdatedAt = updatedAt.Time
	}
	return p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// SaveStreak writes the three streak fields in one statement.
func (s *ProfileStore) SaveStreak(userID string, data model.StreakData) error {
	_, err := s.db.Exec(
		`INSERT INTO profiles (user_id, streak_count, longest_streak, last_completed_date, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   streak_count = excluded.streak_count,
		   longest_streak = excluded.longest_streak,
		   last_completed_date = excluded.last_completed_date,
		   updated_at = excluded.updated_at`,
		userID, data.StreakCount, data.LongestStreak, nullString(data.LastCompletedDate), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	return nil
}

func (s *ProfileStore) SetLastResetDate(userID, date string) error {
	_, err := s.db.Exec(
		`INSERT INTO profiles (user_id, last_reset_date, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   last_reset_date = excluded.last_reset_date,
		   updated_at = excluded.updated_at`,
		userID, date, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set last reset date: %w", err)
	}
	return nil
}

// LastResetDate reports the persisted rollover date, empty if none.
func (s *ProfileStore) LastResetDate(userID string) (string, error) {
	p, err := s.Get(userID)
	if err != nil {
		return "", err
	}
	return p.LastResetDate, nil
}

// UserIDs lists every user with a profile, task or notes row.
func (s *ProfileStore) UserIDs() ([]string, error) {
	rows, err := s.db.Query(
		`SELECT user_id FROM profiles
		 UNION SELECT user_id FROM tasks
		 UNION SELECT user_id FROM notes
		 ORDER BY user_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
