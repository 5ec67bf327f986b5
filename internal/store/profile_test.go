package store

import (
	"testing"

	"github.com/dukerupert/daybook/internal/model"
)

func TestProfileDefaults(t *testing.T) {
	s := NewProfileStore(setupTestDB(t))

	p, err := s.Get("alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.UserID != "alice" {
		t.Errorf("user_id = %q", p.UserID)
	}
	if p.Streak != (model.StreakData{}) {
		t.Errorf("streak = %+v, want zero", p.Streak)
	}
	if p.LastResetDate != "" {
		t.Errorf("last_reset_date = %q, want empty", p.LastResetDate)
	}
}

func TestProfileSaveStreak(t *testing.T) {
	s := NewProfileStore(setupTestDB(t))

	want := model.StreakData{StreakCount: 3, LongestStreak: 5, LastCompletedDate: "2026-10-15"}
	if err := s.SaveStreak("alice", want); err != nil {
		t.Fatalf("save: %v", err)
	}

	p, err := s.Get("alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Streak != want {
		t.Errorf("streak = %+v, want %+v", p.Streak, want)
	}
}

func TestProfileStreakAndResetIndependent(t *testing.T) {
	s := NewProfileStore(setupTestDB(t))

	if err := s.SetLastResetDate("alice", "2026-10-15"); err != nil {
		t.Fatalf("set reset: %v", err)
	}
	if err := s.SaveStreak("alice", model.StreakData{StreakCount: 1, LongestStreak: 1, LastCompletedDate: "2026-10-15"}); err != nil {
		t.Fatalf("save streak: %v", err)
	}
	if err := s.SetLastResetDate("alice", "2026-10-16"); err != nil {
		t.Fatalf("set reset again: %v", err)
	}

	p, _ := s.Get("alice")
	if p.LastResetDate != "2026-10-16" {
		t.Errorf("last_reset_date = %q", p.LastResetDate)
	}
	if p.Streak.StreakCount != 1 {
		t.Errorf("streak_count = %d, want 1", p.Streak.StreakCount)
	}

	date, err := s.LastResetDate("alice")
	if err != nil {
		t.Fatalf("last reset date: %v", err)
	}
	if date != "2026-10-16" {
		t.Errorf("LastResetDate = %q", date)
	}
}

func TestProfileUserIDs(t *testing.T) {
	db := setupTestDB(t)
	s := NewProfileStore(db)

	s.SetLastResetDate("carol", "2026-10-15")
	NewTaskStore(db).Create("alice", model.NewTask{Title: "t", Date: "2026-10-15"})
	NewNotesStore(db).Upsert("bob", "hi")
	NewNotesStore(db).Upsert("alice", "hi")

	ids, err := s.UserIDs()
	if err != nil {
		t.Fatalf("user ids: %v", err)
	}
	want := []string{"alice", "bob", "carol"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}
