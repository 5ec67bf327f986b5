package tracker

import (
	"fmt"
	"strings"

	"github.com/dukerupert/daybook/internal/daykey"
	"github.com/dukerupert/daybook/internal/model"
	"github.com/dukerupert/daybook/internal/streak"
)

// ToggleResult is the outcome of a completion change. StreakError is set
// when the task was written but the streak could not be.
type ToggleResult struct {
	Task        *model.Task       `json:"task"`
	Streak      *model.StreakData `json:"streak,omitempty"`
	StreakError string            `json:"streak_error,omitempty"`
}

func (s *Service) ListTasks(userID string) ([]model.Task, error) {
	return s.tasks.List(userID)
}

func (s *Service) TasksForDate(userID, date string) ([]model.Task, error) {
	if !daykey.Valid(date) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return s.tasks.ListByDate(userID, date)
}

func (s *Service) GetTask(userID, id string) (*model.Task, error) {
	t, err := s.tasks.GetByID(userID, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrNotFound
	}
	return t, nil
}

// CreateTask stores a new incomplete task. An empty date means today.
func (s *Service) CreateTask(userID string, nt model.NewTask) (*model.Task, error) {
	nt.Title = strings.TrimSpace(nt.Title)
	if nt.Title == "" {
		return nil, ErrTitleRequired
	}
	if nt.Date == "" {
		nt.Date = s.Today()
	}
	if !daykey.Valid(nt.Date) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, nt.Date)
	}

	seeded := make([]model.Subtask, 0, len(nt.Subtasks))
	for _, st := range nt.Subtasks {
		if strings.TrimSpace(st.Text) == "" {
			continue
		}
		st.Completed = false
		seeded = append(seeded, st)
	}
	seeded, err := s.checkSubtasks(seeded)
	if err != nil {
		return nil, err
	}
	nt.Subtasks = seeded

	t, err := s.tasks.Create(userID, nt)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("task created", "user", userID, "id", t.ID, "date", t.Date)
	s.notify(userID, "task", "created", t.ID, map[string]any{"date": t.Date})
	return t, nil
}

// UpdateTask applies a partial update. A change to completion goes through
// the same streak bookkeeping as ToggleTask.
func (s *Service) UpdateTask(userID, id string, p model.TaskPatch) (*ToggleResult, error) {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		p.Title = &title
	}
	if p.Subtasks != nil {
		list, err := s.checkSubtasks(*p.Subtasks)
		if err != nil {
			return nil, err
		}
		p.Subtasks = &list
	}

	t, err := s.tasks.Patch(userID, id, p)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrNotFound
	}
	s.notify(userID, "task", "updated", t.ID, map[string]any{"date": t.Date})

	res := &ToggleResult{Task: t}
	if p.Completed != nil {
		s.applyStreak(userID, res)
	}
	return res, nil
}

// ToggleTask flips completion and then recomputes the streak from today's
// tasks.
func (s *Service) ToggleTask(userID, id string) (*ToggleResult, error) {
	t, err := s.GetTask(userID, id)
	if err != nil {
		return nil, err
	}
	completed := !t.Completed
	return s.UpdateTask(userID, id, model.TaskPatch{Completed: &completed})
}

func (s *Service) applyStreak(userID string, res *ToggleResult) {
	data, err := s.RefreshStreak(userID)
	if err != nil {
		s.logger.Error("update streak", "user", userID, "error", err)
		res.StreakError = err.Error()
		return
	}
	res.Streak = &data
}

// RefreshStreak recomputes and persists the streak for today's state.
// Calling it again without changes leaves the stored value as it is.
func (s *Service) RefreshStreak(userID string) (model.StreakData, error) {
	now := s.now().In(s.loc)
	today := daykey.Key(now)

	tasks, err := s.tasks.ListByDate(userID, today)
	if err != nil {
		return model.StreakData{}, fmt.Errorf("load today's tasks: %w", err)
	}
	profile, err := s.profiles.Get(userID)
	if err != nil {
		return model.StreakData{}, fmt.Errorf("load streak: %w", err)
	}

	completed := streak.DayStatus(tasks) == streak.StatusSuccess
	next := streak.Update(profile.Streak, today, daykey.Yesterday(now), completed)
	if err := s.profiles.SaveStreak(userID, next); err != nil {
		return model.StreakData{}, err
	}
	if next != profile.Streak {
		s.logger.Info("streak changed", "user", userID,
			"count", next.StreakCount, "longest", next.LongestStreak, "last", next.LastCompletedDate)
		s.notify(userID, "streak", "updated", "", nil)
	}
	return next, nil
}

func (s *Service) DeleteTask(userID, id string) error {
	ok, err := s.tasks.Delete(userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.notify(userID, "task", "deleted", id, nil)
	return nil
}

func (s *Service) AddSubtask(userID, taskID, text string) (*model.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrTextRequired
	}
	return s.editSubtasks(userID, taskID, func(list []model.Subtask) ([]model.Subtask, bool) {
		return append(list, model.Subtask{ID: s.newID(), Text: text}), true
	})
}

// ToggleSubtask flips one subtask. The parent task's own completion is
// independent and left alone.
func (s *Service) ToggleSubtask(userID, taskID, subtaskID string) (*model.Task, error) {
	return s.editSubtasks(userID, taskID, func(list []model.Subtask) ([]model.Subtask, bool) {
		found := false
		for i := range list {
			if list[i].ID == subtaskID {
				list[i].Completed = !list[i].Completed
				found = true
			}
		}
		return list, found
	})
}

func (s *Service) DeleteSubtask(userID, taskID, subtaskID string) (*model.Task, error) {
	return s.editSubtasks(userID, taskID, func(list []model.Subtask) ([]model.Subtask, bool) {
		kept := make([]model.Subtask, 0, len(list))
		for _, st := range list {
			if st.ID != subtaskID {
				kept = append(kept, st)
			}
		}
		return kept, len(kept) != len(list)
	})
}

// checkSubtasks trims texts and gives every subtask without an id a fresh
// one. Empty texts and ids repeated within the list are rejected.
func (s *Service) checkSubtasks(list []model.Subtask) ([]model.Subtask, error) {
	out := make([]model.Subtask, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, st := range list {
		st.Text = strings.TrimSpace(st.Text)
		if st.Text == "" {
			return nil, ErrTextRequired
		}
		if st.ID == "" {
			st.ID = s.newID()
		}
		if seen[st.ID] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, st.ID)
		}
		seen[st.ID] = true
		out = append(out, st)
	}
	return out, nil
}

// editSubtasks rewrites the whole subtask list of a task in one write.
func (s *Service) editSubtasks(userID, taskID string, edit func([]model.Subtask) ([]model.Subtask, bool)) (*model.Task, error) {
	t, err := s.GetTask(userID, taskID)
	if err != nil {
		return nil, err
	}
	list := append([]model.Subtask(nil), t.Subtasks...)
	list, ok := edit(list)
	if !ok {
		return nil, ErrNotFound
	}

	updated, err := s.tasks.SetSubtasks(userID, taskID, list)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	s.notify(userID, "task", "updated", taskID, map[string]any{"date": updated.Date})
	return updated, nil
}
