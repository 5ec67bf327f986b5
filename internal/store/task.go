package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/daybook/internal/model"
	"github.com/google/uuid"
)

type TaskStore struct {
	db    *sql.DB
	newID func() string
	now   func() time.Time
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{
		db:    db,
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var description, timeAllocation, subtasks sql.NullString
	var completed int

	err := scanner.Scan(
		&t.ID, &t.UserID, &t.Title, &description, &timeAllocation,
		&completed, &t.Date, &subtasks, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Completed = completed != 0
	t.Description = description.String
	t.TimeAllocation = timeAllocation.String
	t.Subtasks, err = decodeSubtasks(subtasks.String)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", t.ID, err)
	}
	return &t, nil
}

func decodeSubtasks(raw string) ([]model.Subtask, error) {
	subtasks := []model.Subtask{}
	if strings.TrimSpace(raw) == "" {
		return subtasks, nil
	}
	if err := json.Unmarshal([]byte(raw), &subtasks); err != nil {
		return nil, fmt.Errorf("decode subtasks: %w", err)
	}
	if subtasks == nil {
		subtasks = []model.Subtask{}
	}
	return subtasks, nil
}

func encodeSubtasks(subtasks []model.Subtask) (string, error) {
	if subtasks == nil {
		subtasks = []model.Subtask{}
	}
	b, err := json.Marshal(subtasks)
	if err != nil {
		return "", fmt.Errorf("encode subtasks: %w", err)
	}
	return string(b), nil
}

const taskCols = `id, user_id, title, description, time_allocation, completed, date, subtasks, created_at, updated_at`

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *TaskStore) Create(userID string, nt model.NewTask) (*model.Task, error) {
	subtasks, err := encodeSubtasks(nt.Subtasks)
	if err != nil {
		return nil, err
	}

	id := s.newID()
	now := s.now()
	_, err = s.db.Exec(
		`INSERT INTO tasks (`+taskCols+`) VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?)`,
		id, userID, nt.Title, nt.Description, nt.TimeAllocation, nt.Date, subtasks, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return s.GetByID(userID, id)
}

func (s *TaskStore) GetByID(userID, id string) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE user_id = ? AND id = ?`, userID, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) query(q string, args ...any) ([]model.Task, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// List returns every task of the user ordered by creation time.
func (s *TaskStore) List(userID string) ([]model.Task, error) {
	tasks, err := s.query(
		`SELECT `+taskCols+` FROM tasks WHERE user_id = ? ORDER BY created_at ASC, rowid ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskStore) ListByDate(userID, date string) ([]model.Task, error) {
	tasks, err := s.query(
		`SELECT `+taskCols+` FROM tasks WHERE user_id = ? AND date = ? ORDER BY created_at ASC, rowid ASC`,
		userID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks by date: %w", err)
	}
	return tasks, nil
}

// ListBetween returns tasks whose date falls in [from, to]. Day keys sort
// lexicographically in calendar order, so a string range is exact.
func (s *TaskStore) ListBetween(userID, from, to string) ([]model.Task, error) {
	tasks, err := s.query(
		`SELECT `+taskCols+` FROM tasks WHERE user_id = ? AND date >= ? AND date <= ?
		 ORDER BY date ASC, created_at ASC, rowid ASC`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks between: %w", err)
	}
	return tasks, nil
}

// Patch applies the non-nil fields of p. It returns nil, nil if the task
// does not exist.
func (s *TaskStore) Patch(userID, id string, p model.TaskPatch) (*model.Task, error) {
	sets := []string{}
	args := []any{}
	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *p.Description)
	}
	if p.TimeAllocation != nil {
		sets = append(sets, "time_allocation = ?")
		args = append(args, *p.TimeAllocation)
	}
	if p.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, boolInt(*p.Completed))
	}
	if p.Subtasks != nil {
		raw, err := encodeSubtasks(*p.Subtasks)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "subtasks = ?")
		args = append(args, raw)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, s.now(), userID, id)

	result, err := s.db.Exec(
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE user_id = ? AND id = ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetByID(userID, id)
}

// SetSubtasks replaces the whole subtask list in one write.
func (s *TaskStore) SetSubtasks(userID, id string, subtasks []model.Subtask) (*model.Task, error) {
	return s.Patch(userID, id, model.TaskPatch{Subtasks: &subtasks})
}

// Delete removes a task and reports whether it existed.
func (s *TaskStore) Delete(userID, id string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM tasks WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ClearDay marks every task and subtask of one day incomplete and returns
// the number of tasks touched.
func (s *TaskStore) ClearDay(userID, date string) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT id, subtasks FROM tasks WHERE user_id = ? AND date = ?`, userID, date)
	if err != nil {
		return 0, fmt.Errorf("select day tasks: %w", err)
	}
	type pending struct {
		id       string
		subtasks string
	}
	var day []pending
	for rows.Next() {
		var id string
		var raw sql.NullString
		if err := rows.Scan(&id, &raw); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan day task: %w", err)
		}
		subtasks, err := decodeSubtasks(raw.String)
		if err != nil {
			rows.Close()
			return 0, err
		}
		for i := range subtasks {
			subtasks[i].Completed = false
		}
		enc, err := encodeSubtasks(subtasks)
		if err != nil {
			rows.Close()
			return 0, err
		}
		day = append(day, pending{id: id, subtasks: enc})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate day tasks: %w", err)
	}

	now := s.now()
	for _, p := range day {
		if _, err := tx.Exec(
			`UPDATE tasks SET completed = 0, subtasks = ?, updated_at = ? WHERE user_id = ? AND id = ?`,
			p.subtasks, now, userID, p.id,
		); err != nil {
			return 0, fmt.Errorf("clear task %s: %w", p.id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int64(len(day)), nil
}

// Import writes tasks as they are, keeping their ids and timestamps.
// Existing tasks with the same id are overwritten.
func (s *TaskStore) Import(userID string, tasks []model.Task) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, t := range tasks {
		subtasks, err := encodeSubtasks(t.Subtasks)
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			`INSERT INTO tasks (`+taskCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(user_id, id) DO UPDATE SET
			   title = excluded.title, description = excluded.description,
			   time_allocation = excluded.time_allocation, completed = excluded.completed,
			   date = excluded.date, subtasks = excluded.subtasks, updated_at = excluded.updated_at`,
			t.ID, userID, t.Title, t.Description, t.TimeAllocation, boolInt(t.Completed),
			t.Date, subtasks, t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("import task %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}
