package notesync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/daybook/internal/model"
)

type recordingSaver struct {
	mu    sync.Mutex
	saves []string
	err   error
	// during, when set, runs inside SaveNotes to simulate activity while
	// the round trip is in flight.
	during func()
}

func (r *recordingSaver) SaveNotes(_ context.Context, userID, content string) error {
	r.mu.Lock()
	r.saves = append(r.saves, content)
	during := r.during
	r.during = nil
	err := r.err
	r.mu.Unlock()
	if during != nil {
		during()
	}
	return err
}

func (r *recordingSaver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

func (r *recordingSaver) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saves) == 0 {
		return ""
	}
	return r.saves[len(r.saves)-1]
}

var epoch = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func newTestEditor(t *testing.T) (*Editor, *ManualClock, *recordingSaver) {
	t.Helper()
	clock := NewManualClock(epoch)
	saver := &recordingSaver{}
	e := New("default-user", saver, WithClock(clock))
	t.Cleanup(e.Close)
	return e, clock, saver
}

func TestEditDebouncesSaves(t *testing.T) {
	e, clock, saver := newTestEditor(t)

	e.Edit("a")
	clock.Advance(500 * time.Millisecond)
	e.Edit("ab")
	clock.Advance(500 * time.Millisecond)
	e.Edit("abc")
	clock.Advance(999 * time.Millisecond)

	if saver.count() != 0 {
		t.Fatalf("saved %d times before the quiet period elapsed", saver.count())
	}
	if got := e.Status().State; got != StateEditing {
		t.Errorf("state = %v, want editing", got)
	}

	clock.Advance(time.Millisecond)
	if saver.count() != 1 {
		t.Fatalf("saves = %d, want 1", saver.count())
	}
	if saver.last() != "abc" {
		t.Errorf("saved %q, want %q", saver.last(), "abc")
	}
	if got := e.Status().State; got != StateCoolingDown {
		t.Errorf("state = %v, want cooling_down", got)
	}

	clock.Advance(CooldownDelay)
	if got := e.Status().State; got != StateIdle {
		t.Errorf("state = %v, want idle", got)
	}
}

func TestRemoteIgnoredWhileEditing(t *testing.T) {
	e, clock, _ := newTestEditor(t)

	e.Edit("local draft")
	clock.Advance(200 * time.Millisecond)

	if e.ApplyRemote(&model.Notes{Content: "stale echo"}) {
		t.Error("remote update applied while editing")
	}
	if got := e.Status().Content; got != "local draft" {
		t.Errorf("content = %q, want local draft", got)
	}
}

func TestRemoteIgnoredWithinEchoWindow(t *testing.T) {
	e, clock, _ := newTestEditor(t)

	e.Edit("mine")
	// 1s debounce + 0.5s cooldown: idle at 1.5s, but the edit is only 1.5s old.
	clock.Advance(DebounceDelay + CooldownDelay)
	if got := e.Status().State; got != StateIdle {
		t.Fatalf("state = %v, want idle", got)
	}
	if e.ApplyRemote(&model.Notes{Content: "echo"}) {
		t.Error("remote applied within echo window")
	}

	clock.Advance(EchoWindow - DebounceDelay - CooldownDelay)
	if !e.ApplyRemote(&model.Notes{Content: "from other tab"}) {
		t.Fatal("remote should be accepted once the echo window passed")
	}
	if got := e.Status().Content; got != "from other tab" {
		t.Errorf("content = %q, want from other tab", got)
	}
}

func TestRemoteAppliedWhenNeverEdited(t *testing.T) {
	e, _, _ := newTestEditor(t)

	if !e.ApplyRemote(&model.Notes{Content: "hello"}) {
		t.Fatal("initial remote should apply")
	}
	if !e.ApplyRemote(nil) {
		t.Fatal("missing document should apply")
	}
	if got := e.Status().Content; got != "" {
		t.Errorf("content = %q, want empty for missing document", got)
	}
}

func TestEditDuringSaveIsSavedAfterwards(t *testing.T) {
	e, clock, saver := newTestEditor(t)

	saver.during = func() {
		if err := e.Edit("second"); err != nil {
			t.Errorf("edit during save: %v", err)
		}
		if got := e.Status().State; got != StateSaving {
			t.Errorf("state during save = %v, want saving", got)
		}
	}
	e.Edit("first")
	clock.Advance(DebounceDelay)

	if got := e.Status().State; got != StateEditing {
		t.Fatalf("state after save with pending edit = %v, want editing", got)
	}
	clock.Advance(DebounceDelay)
	if saver.count() != 2 || saver.last() != "second" {
		t.Errorf("saves = %d last = %q, want 2 and second", saver.count(), saver.last())
	}
}

func TestEditDuringCooldownRestartsDebounce(t *testing.T) {
	e, clock, saver := newTestEditor(t)

	e.Edit("one")
	clock.Advance(DebounceDelay)
	if got := e.Status().State; got != StateCoolingDown {
		t.Fatalf("state = %v, want cooling_down", got)
	}

	e.Edit("two")
	clock.Advance(CooldownDelay)
	if got := e.Status().State; got != StateEditing {
		t.Errorf("state = %v, want editing", got)
	}
	clock.Advance(DebounceDelay)
	if saver.count() != 2 || saver.last() != "two" {
		t.Errorf("saves = %d last = %q", saver.count(), saver.last())
	}
}

func TestSaveErrorIsReported(t *testing.T) {
	e, clock, saver := newTestEditor(t)
	saver.err = errors.New("offline")

	e.Edit("draft")
	clock.Advance(DebounceDelay)

	st := e.Status()
	if st.Err == nil {
		t.Fatal("expected save error in status")
	}
	if !st.LastSavedAt.IsZero() {
		t.Error("LastSavedAt should stay zero after a failed save")
	}

	clock.Advance(CooldownDelay)
	if got := e.Status().State; got != StateIdle {
		t.Errorf("state = %v, want idle after failed save", got)
	}
}

func TestCloseCancelsPendingSave(t *testing.T) {
	e, clock, saver := newTestEditor(t)

	e.Edit("never written")
	e.Close()
	clock.Advance(10 * time.Second)

	if saver.count() != 0 {
		t.Errorf("saves = %d after close, want 0", saver.count())
	}
	if clock.Pending() != 0 {
		t.Errorf("pending timers = %d, want 0", clock.Pending())
	}
	if err := e.Edit("late"); !errors.Is(err, ErrClosed) {
		t.Errorf("edit after close err = %v, want ErrClosed", err)
	}
}

func TestFlushSavesImmediately(t *testing.T) {
	e, clock, saver := newTestEditor(t)

	e.Edit("urgent")
	if err := e.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if saver.count() != 1 || saver.last() != "urgent" {
		t.Fatalf("saves = %d last = %q", saver.count(), saver.last())
	}

	// The debounce timer must not fire a second save.
	clock.Advance(5 * time.Second)
	if saver.count() != 1 {
		t.Errorf("saves = %d, want 1", saver.count())
	}
}

func TestFlushNoopWhenIdle(t *testing.T) {
	e, _, saver := newTestEditor(t)
	if err := e.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if saver.count() != 0 {
		t.Errorf("saves = %d, want 0", saver.count())
	}
}

func TestEditRejectsOverlongContent(t *testing.T) {
	e, _, _ := newTestEditor(t)

	if err := e.Edit(strings.Repeat("é", MaxLength)); err != nil {
		t.Fatalf("edit at limit: %v", err)
	}
	if err := e.Edit(strings.Repeat("x", MaxLength+1)); !errors.Is(err, ErrTooLong) {
		t.Errorf("err = %v, want ErrTooLong", err)
	}
	if got := len([]rune(e.Status().Content)); got != MaxLength {
		t.Errorf("content length = %d, want %d", got, MaxLength)
	}
}

func TestOnChangeSeesSavingIndicator(t *testing.T) {
	clock := NewManualClock(epoch)
	var states []State
	e := New("u", &recordingSaver{}, WithClock(clock), WithOnChange(func(s Status) {
		states = append(states, s.State)
	}))
	defer e.Close()

	e.Edit("x")
	clock.Advance(DebounceDelay + CooldownDelay)

	want := []State{StateEditing, StateSaving, StateCoolingDown, StateIdle}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("states[%d] = %v, want %v", i, states[i], want[i])
		}
	}
}

func TestAppendBullet(t *testing.T) {
	if got := AppendBullet("", "milk"); got != "• milk" {
		t.Errorf("got %q", got)
	}
	if got := AppendBullet("• milk", " eggs "); got != "• milk\n• eggs" {
		t.Errorf("got %q", got)
	}
	if got := AppendBullet("• milk\n", "eggs"); got != "• milk\n• eggs" {
		t.Errorf("got %q", got)
	}
}

func TestStateString(t *testing.T) {
	if StateCoolingDown.String() != "cooling_down" {
		t.Errorf("String = %q", StateCoolingDown.String())
	}
}
