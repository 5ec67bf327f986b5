package rollover

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeProfiles struct {
	dates  map[string]string
	writes int
	err    error
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{dates: map[string]string{}}
}

func (f *fakeProfiles) SetLastResetDate(userID, date string) error {
	if f.err != nil {
		return f.err
	}
	f.writes++
	f.dates[userID] = date
	return nil
}

func TestShouldRunDailyCheck(t *testing.T) {
	if ShouldRunDailyCheck("2026-10-15", "2026-10-15") {
		t.Error("same day should not run")
	}
	if !ShouldRunDailyCheck("2026-10-14", "2026-10-15") {
		t.Error("previous day should run")
	}
	if !ShouldRunDailyCheck("", "2026-10-15") {
		t.Error("missing date should run")
	}
}

func TestRunTwiceSameDayIsNoop(t *testing.T) {
	local := NewMemoryState()
	profiles := newFakeProfiles()
	c := NewChecker(local, profiles, time.UTC, slog.Default())
	now := time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC)

	first, err := c.Run(context.Background(), "u1", now)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if !first.Ran || first.Today != "2026-10-15" {
		t.Errorf("first = %+v, want ran on 2026-10-15", first)
	}

	second, err := c.Run(context.Background(), "u1", now.Add(6*time.Hour))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Ran {
		t.Error("second run on the same day should be a no-op")
	}
	if profiles.writes != 1 {
		t.Errorf("profile writes = %d, want 1", profiles.writes)
	}
}

func TestRunNextDayAdvancesBookkeeping(t *testing.T) {
	local := NewMemoryState()
	local.SetLastResetDate("u1", "2026-10-14")
	profiles := newFakeProfiles()
	c := NewChecker(local, profiles, time.UTC, slog.Default())

	res, err := c.Run(context.Background(), "u1", time.Date(2026, 10, 15, 0, 1, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Ran {
		t.Fatal("expected the check to run")
	}
	if got, _ := local.LastResetDate("u1"); got != "2026-10-15" {
		t.Errorf("local date = %q, want 2026-10-15", got)
	}
	if profiles.dates["u1"] != "2026-10-15" {
		t.Errorf("profile date = %q, want 2026-10-15", profiles.dates["u1"])
	}
}

func TestRunUsesConfiguredLocation(t *testing.T) {
	local := NewMemoryState()
	profiles := newFakeProfiles()
	tokyo := time.FixedZone("JST", 9*60*60)
	c := NewChecker(local, profiles, tokyo, slog.Default())

	// 20:00 UTC on the 14th is already the 15th in Tokyo.
	res, err := c.Run(context.Background(), "u1", time.Date(2026, 10, 14, 20, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Today != "2026-10-15" {
		t.Errorf("today = %q, want 2026-10-15", res.Today)
	}
}

func TestRunProfileFailureKeepsLocalStale(t *testing.T) {
	local := NewMemoryState()
	profiles := newFakeProfiles()
	profiles.err = errors.New("disk full")
	c := NewChecker(local, profiles, time.UTC, slog.Default())

	_, err := c.Run(context.Background(), "u1", time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC))
	if err == nil {
		t.Fatal("expected error")
	}
	if got, _ := local.LastResetDate("u1"); got != "" {
		t.Errorf("local date = %q, want empty so the check retries", got)
	}

	profiles.err = nil
	res, err := c.Run(context.Background(), "u1", time.Date(2026, 10, 15, 9, 5, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !res.Ran {
		t.Error("retry should run the check")
	}
}

func TestRunUsersAreIndependent(t *testing.T) {
	local := NewMemoryState()
	c := NewChecker(local, newFakeProfiles(), time.UTC, slog.Default())
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	if res, _ := c.Run(context.Background(), "alice", now); !res.Ran {
		t.Error("alice should run")
	}
	if res, _ := c.Run(context.Background(), "bob", now); !res.Ran {
		t.Error("bob should run independently of alice")
	}
}

type countingState struct {
	*MemoryState
	writes int
}

func (c *countingState) SetLastResetDate(userID, date string) error {
	c.writes++
	return c.MemoryState.SetLastResetDate(userID, date)
}

func TestRunSharedStoreWritesOnce(t *testing.T) {
	store := &countingState{MemoryState: NewMemoryState()}
	c := NewChecker(store, store, time.UTC, slog.Default())

	res, err := c.Run(context.Background(), "u1", time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Ran {
		t.Fatal("expected the check to run")
	}
	if store.writes != 1 {
		t.Errorf("writes = %d, want 1", store.writes)
	}
	if got, _ := store.LastResetDate("u1"); got != "2026-10-15" {
		t.Errorf("stored date = %q, want 2026-10-15", got)
	}

	local := &countingState{MemoryState: NewMemoryState()}
	profiles := &countingState{MemoryState: NewMemoryState()}
	c = NewChecker(local, profiles, time.UTC, slog.Default())
	if _, err := c.Run(context.Background(), "u1", time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if local.writes != 1 || profiles.writes != 1 {
		t.Errorf("writes = local %d profiles %d, want 1 each", local.writes, profiles.writes)
	}
}

func TestFileStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.toml")
	fs := NewFileState(path)

	got, err := fs.LastResetDate("u1")
	if err != nil {
		t.Fatalf("read missing file: %v", err)
	}
	if got != "" {
		t.Errorf("missing file date = %q, want empty", got)
	}

	if err := fs.SetLastResetDate("u1", "2026-10-15"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := fs.SetLastResetDate("u2", "2026-10-14"); err != nil {
		t.Fatalf("set u2: %v", err)
	}

	reopened := NewFileState(path)
	if got, _ := reopened.LastResetDate("u1"); got != "2026-10-15" {
		t.Errorf("u1 = %q, want 2026-10-15", got)
	}
	if got, _ := reopened.LastResetDate("u2"); got != "2026-10-14" {
		t.Errorf("u2 = %q, want 2026-10-14", got)
	}
}

func TestFileStateCorruptFileIsReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.toml")
	if err := os.WriteFile(path, []byte("not = [valid"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	fs := NewFileState(path)

	if _, err := fs.LastResetDate("u1"); err == nil {
		t.Error("expected parse error for corrupt file")
	}
	if err := fs.SetLastResetDate("u1", "2026-10-15"); err != nil {
		t.Fatalf("set over corrupt file: %v", err)
	}
	if got, _ := fs.LastResetDate("u1"); got != "2026-10-15" {
		t.Errorf("date = %q, want 2026-10-15", got)
	}
}
