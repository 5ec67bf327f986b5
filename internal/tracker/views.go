package tracker

import (
	"fmt"

	"github.com/dukerupert/daybook/internal/daykey"
	"github.com/dukerupert/daybook/internal/model"
	"github.com/dukerupert/daybook/internal/streak"
)

type Day struct {
	Date   string        `json:"date"`
	Status streak.Status `json:"status"`
	Tasks  []model.Task  `json:"tasks"`
}

type DayCount struct {
	Date      string        `json:"date"`
	Total     int           `json:"total"`
	Completed int           `json:"completed"`
	Status    streak.Status `json:"status"`
}

type Week struct {
	Start string     `json:"start"`
	Days  []DayCount `json:"days"`
}

type Month struct {
	Month         string     `json:"month"`
	LeadingBlanks int        `json:"leading_blanks"`
	Days          []DayCount `json:"days"`
	DaysWithTasks int        `json:"days_with_tasks"`
	CompletedDays int        `json:"completed_days"`
}

type StreakSummary struct {
	Stored  model.StreakData `json:"stored"`
	Current int              `json:"current"`
	History int              `json:"history"`
	Today   string           `json:"today"`
}

func (s *Service) Day(userID, date string) (*Day, error) {
	tasks, err := s.TasksForDate(userID, date)
	if err != nil {
		return nil, err
	}
	return &Day{Date: date, Status: streak.DayStatus(tasks), Tasks: tasks}, nil
}

func countDays(keys []string, tasks []model.Task) []DayCount {
	byDate := groupByDate(tasks)
	days := make([]DayCount, len(keys))
	for i, key := range keys {
		dayTasks := byDate[key]
		dc := DayCount{Date: key, Total: len(dayTasks), Status: streak.DayStatus(dayTasks)}
		for _, t := range dayTasks {
			if t.Completed {
				dc.Completed++
			}
		}
		days[i] = dc
	}
	return days
}

func groupByDate(tasks []model.Task) map[string][]model.Task {
	m := make(map[string][]model.Task)
	for _, t := range tasks {
		m[t.Date] = append(m[t.Date], t)
	}
	return m
}

// Week summarises the Monday..Sunday week containing date. An empty date
// means today.
func (s *Service) Week(userID, date string) (*Week, error) {
	if date == "" {
		date = s.Today()
	}
	t, err := daykey.Parse(date, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	keys := daykey.WeekKeys(t)
	tasks, err := s.tasks.ListBetween(userID, keys[0], keys[len(keys)-1])
	if err != nil {
		return nil, err
	}
	return &Week{Start: keys[0], Days: countDays(keys, tasks)}, nil
}

// Month summarises a "YYYY-MM" month laid out on a Monday-first grid.
func (s *Service) Month(userID, month string) (*Month, error) {
	year, mon, err := daykey.ParseMonth(month)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	keys := daykey.MonthKeys(year, mon)
	tasks, err := s.tasks.ListBetween(userID, keys[0], keys[len(keys)-1])
	if err != nil {
		return nil, err
	}

	m := &Month{
		Month:         fmt.Sprintf("%04d-%02d", year, int(mon)),
		LeadingBlanks: daykey.MonthLeadingBlanks(year, mon),
		Days:          countDays(keys, tasks),
	}
	for _, d := range m.Days {
		if d.Total > 0 {
			m.DaysWithTasks++
		}
		if d.Status == streak.StatusSuccess {
			m.CompletedDays++
		}
	}
	return m, nil
}

// Streak reports the stored tally, the value worth displaying today and
// the streak recomputed from the last HistoryWindow days of tasks.
func (s *Service) Streak(userID string) (*StreakSummary, error) {
	now := s.now().In(s.loc)
	today := daykey.Key(now)

	profile, err := s.profiles.Get(userID)
	if err != nil {
		return nil, err
	}

	from := daykey.Key(daykey.StartOfDay(now).AddDate(0, 0, -(streak.HistoryWindow - 1)))
	tasks, err := s.tasks.ListBetween(userID, from, today)
	if err != nil {
		return nil, err
	}
	byDate := groupByDate(tasks)
	history := streak.FromHistory(func(key string) streak.Status {
		return streak.DayStatus(byDate[key])
	}, now, streak.HistoryWindow)

	return &StreakSummary{
		Stored:  profile.Streak,
		Current: streak.Current(profile.Streak, today, daykey.Yesterday(now)),
		History: history,
		Today:   today,
	}, nil
}

// TasksInWeek lists the tasks of the Monday..Sunday week containing date.
func (s *Service) TasksInWeek(userID, date string) ([]model.Task, error) {
	t, err := daykey.Parse(date, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	keys := daykey.WeekKeys(t)
	return s.tasks.ListBetween(userID, keys[0], keys[len(keys)-1])
}

// TasksInMonth lists the tasks of a "YYYY-MM" month.
func (s *Service) TasksInMonth(userID, month string) ([]model.Task, error) {
	year, mon, err := daykey.ParseMonth(month)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	keys := daykey.MonthKeys(year, mon)
	return s.tasks.ListBetween(userID, keys[0], keys[len(keys)-1])
}
