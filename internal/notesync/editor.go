// Package notesync keeps a locally edited notes document in step with the
// server without letting remote echoes clobber keystrokes in flight.
//
// Each Editor is a small state machine:
//
//	Idle ──edit──▶ Editing ──quiet for DebounceDelay──▶ Saving
//	  ▲               ▲                                   │
//	  │               └──────edited while saving──────────┤
//	  │                                                   ▼
//	  └───────────────CooldownDelay elapsed──────── CoolingDown
//
// Remote updates are applied only in Idle, and only when the last local
// edit is at least EchoWindow old.
package notesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dukerupert/daybook/internal/model"
)

const (
	DebounceDelay = time.Second
	CooldownDelay = 500 * time.Millisecond
	EchoWindow    = 2 * time.Second
	MaxLength     = 1000
	saveTimeout   = 10 * time.Second
)

var (
	ErrTooLong = fmt.Errorf("notes exceed %d characters", MaxLength)
	ErrClosed  = errors.New("editor closed")
)

type State int

const (
	StateIdle State = iota
	StateEditing
	StateSaving
	StateCoolingDown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEditing:
		return "editing"
	case StateSaving:
		return "saving"
	case StateCoolingDown:
		return "cooling_down"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Saver writes the notes document for a user.
type Saver interface {
	SaveNotes(ctx context.Context, userID, content string) error
}

// Status is a snapshot of the editor for display ("Saving…" / "Saved").
type Status struct {
	State       State
	Content     string
	LastSavedAt time.Time
	Err         error
}

func (s Status) Saving() bool { return s.State == StateSaving }

type Option func(*Editor)

func WithClock(c Clock) Option { return func(e *Editor) { e.clock = c } }

func WithLogger(l *slog.Logger) Option { return func(e *Editor) { e.logger = l } }

// WithOnChange registers a callback invoked after every state or content
// change. It runs without the editor lock held.
func WithOnChange(f func(Status)) Option { return func(e *Editor) { e.onChange = f } }

type Editor struct {
	mu       sync.Mutex
	userID   string
	saver    Saver
	clock    Clock
	logger   *slog.Logger
	onChange func(Status)

	state     State
	content   string
	lastEdit  time.Time
	dirty     bool
	timer     Timer
	gen       int
	lastSaved time.Time
	err       error
	closed    bool
}

func New(userID string, saver Saver, opts ...Option) *Editor {
	e := &Editor{
		userID: userID,
		saver:  saver,
		clock:  SystemClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Status returns the current snapshot.
func (e *Editor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked()
}

func (e *Editor) statusLocked() Status {
	return Status{State: e.state, Content: e.content, LastSavedAt: e.lastSaved, Err: e.err}
}

func (e *Editor) notify(s Status) {
	if e.onChange != nil {
		e.onChange(s)
	}
}

// Edit records a local change and (re)starts the debounce timer. Content
// longer than MaxLength characters is rejected and leaves the editor as is.
func (e *Editor) Edit(content string) error {
	if utf8.RuneCountInString(content) > MaxLength {
		return ErrTooLong
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.content = content
	e.lastEdit = e.clock.Now()
	if e.state == StateSaving {
		// Picked up once the in-flight save completes.
		e.dirty = true
	} else {
		e.state = StateEditing
		e.scheduleLocked(DebounceDelay, e.saveDue)
	}
	s := e.statusLocked()
	e.mu.Unlock()

	e.notify(s)
	return nil
}

// ApplyRemote offers a document pushed by the server. It reports whether the
// document was applied; nil means the document does not exist yet.
func (e *Editor) ApplyRemote(n *model.Notes) bool {
	e.mu.Lock()
	if e.closed || e.state != StateIdle {
		e.mu.Unlock()
		return false
	}
	if !e.lastEdit.IsZero() && e.clock.Now().Sub(e.lastEdit) < EchoWindow {
		e.mu.Unlock()
		return false
	}
	content := ""
	if n != nil {
		content = n.Content
	}
	changed := content != e.content
	e.content = content
	s := e.statusLocked()
	e.mu.Unlock()

	if changed {
		e.notify(s)
	}
	return true
}

// Flush saves a pending edit immediately instead of waiting for the
// debounce timer. It is a no-op unless the editor is in Editing.
func (e *Editor) Flush(ctx context.Context) error {
	e.mu.Lock()
	if e.closed || e.state != StateEditing {
		e.mu.Unlock()
		return nil
	}
	e.stopTimerLocked()
	content := e.beginSaveLocked()
	s := e.statusLocked()
	e.mu.Unlock()

	e.notify(s)
	return e.save(ctx, content)
}

// Close cancels any pending timer. An edit that has not been saved yet is
// dropped; call Flush first to keep it.
func (e *Editor) Close() {
	e.mu.Lock()
	e.closed = true
	e.stopTimerLocked()
	e.mu.Unlock()
}

func (e *Editor) scheduleLocked(d time.Duration, f func(gen int)) {
	e.stopTimerLocked()
	gen := e.gen
	e.timer = e.clock.AfterFunc(d, func() { f(gen) })
}

func (e *Editor) stopTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	// Invalidates a callback that already fired but has not taken the lock.
	e.gen++
}

func (e *Editor) beginSaveLocked() string {
	e.state = StateSaving
	e.dirty = false
	return e.content
}

func (e *Editor) saveDue(gen int) {
	e.mu.Lock()
	if e.closed || gen != e.gen || e.state != StateEditing {
		e.mu.Unlock()
		return
	}
	e.timer = nil
	content := e.beginSaveLocked()
	s := e.statusLocked()
	e.mu.Unlock()

	e.notify(s)

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	e.save(ctx, content)
}

func (e *Editor) save(ctx context.Context, content string) error {
	err := e.saver.SaveNotes(ctx, e.userID, content)
	if err != nil {
		e.logger.Error("save notes", "user", e.userID, "error", err)
	}

	e.mu.Lock()
	e.err = err
	if err == nil {
		e.lastSaved = e.clock.Now()
	}
	if e.closed {
		e.mu.Unlock()
		return err
	}
	if e.dirty {
		e.dirty = false
		e.state = StateEditing
		e.scheduleLocked(DebounceDelay, e.saveDue)
	} else {
		e.state = StateCoolingDown
		e.scheduleLocked(CooldownDelay, e.cooled)
	}
	s := e.statusLocked()
	e.mu.Unlock()

	e.notify(s)
	return err
}

func (e *Editor) cooled(gen int) {
	e.mu.Lock()
	if e.closed || gen != e.gen || e.state != StateCoolingDown {
		e.mu.Unlock()
		return
	}
	e.timer = nil
	e.state = StateIdle
	s := e.statusLocked()
	e.mu.Unlock()

	e.notify(s)
}

// AppendBullet adds line to content as a new "• " bullet, the way the notes
// panel formats a fresh line.
func AppendBullet(content, line string) string {
	line = strings.TrimSpace(line)
	switch {
	case content == "":
		return "• " + line
	case strings.HasSuffix(content, "\n"):
		return content + "• " + line
	default:
		return content + "\n• " + line
	}
}
