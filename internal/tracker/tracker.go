// Package tracker is the task and notes service behind every surface of
// the dashboard. It validates input, writes through the stores, keeps the
// streak in step with completion changes and announces each change to
// subscribers.
package tracker

import (
	"errors"
	"log/slog"
	"time"

	"github.com/dukerupert/daybook/internal/daykey"
	"github.com/dukerupert/daybook/internal/model"
	"github.com/dukerupert/daybook/internal/websocket"
	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidDate   = errors.New("invalid date")
	ErrTitleRequired = errors.New("title is required")
	ErrTextRequired  = errors.New("subtask text is required")
	ErrDuplicateID   = errors.New("duplicate subtask id")
	ErrDateImmutable = errors.New("task date cannot be changed")
)

type TaskRepo interface {
	Create(userID string, nt model.NewTask) (*model.Task, error)
	GetByID(userID, id string) (*model.Task, error)
	List(userID string) ([]model.Task, error)
	ListByDate(userID, date string) ([]model.Task, error)
	ListBetween(userID, from, to string) ([]model.Task, error)
	Patch(userID, id string, p model.TaskPatch) (*model.Task, error)
	SetSubtasks(userID, id string, subtasks []model.Subtask) (*model.Task, error)
	Delete(userID, id string) (bool, error)
	ClearDay(userID, date string) (int64, error)
	Import(userID string, tasks []model.Task) error
}

type NotesRepo interface {
	Get(userID string) (*model.Notes, error)
	Upsert(userID, content string) (*model.Notes, error)
}

type ProfileRepo interface {
	Get(userID string) (*model.Profile, error)
	SaveStreak(userID string, data model.StreakData) error
	LastResetDate(userID string) (string, error)
	SetLastResetDate(userID, date string) error
}

// Notifier receives a message after every successful mutation.
type Notifier interface {
	Broadcast(msg websocket.Message)
}

type Service struct {
	tasks    TaskRepo
	notes    NotesRepo
	profiles ProfileRepo
	notifier Notifier
	logger   *slog.Logger

	loc   *time.Location
	now   func() time.Time
	newID func() string
}

type Option func(*Service)

// WithLocation sets the zone whose calendar defines "today".
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

// WithNotifier sets where change messages go. Without one they are dropped.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func New(tasks TaskRepo, notes NotesRepo, profiles ProfileRepo, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		tasks:    tasks,
		notes:    notes,
		profiles: profiles,
		logger:   logger.With("component", "tracker"),
		loc:      time.Local,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location is the zone the service computes day keys in.
func (s *Service) Location() *time.Location { return s.loc }

// Today returns the current local day key.
func (s *Service) Today() string {
	return daykey.Key(s.now().In(s.loc))
}

func (s *Service) notify(userID, entity, action, id string, extra map[string]any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Broadcast(websocket.NewMessage(userID, entity, action, id, extra))
}
