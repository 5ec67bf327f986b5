package model

import "time"

type Subtask struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type Task struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	TimeAllocation string    `json:"time_allocation"`
	Completed      bool      `json:"completed"`
	Date           string    `json:"date"`
	Subtasks       []Subtask `json:"subtasks"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewTask holds the caller-supplied fields of a task being created.
type NewTask struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	TimeAllocation string    `json:"time_allocation"`
	Date           string    `json:"date"`
	Subtasks       []Subtask `json:"subtasks"`
}

// TaskPatch is a partial update. Nil fields are left unchanged.
// Date is not patchable; a task stays on the day it was created for.
type TaskPatch struct {
	Title          *string    `json:"title,omitempty"`
	Description    *string    `json:"description,omitempty"`
	TimeAllocation *string    `json:"time_allocation,omitempty"`
	Completed      *bool      `json:"completed,omitempty"`
	Subtasks       *[]Subtask `json:"subtasks,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.TimeAllocation == nil &&
		p.Completed == nil && p.Subtasks == nil
}
