package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/daybook/internal/model"
	"github.com/dukerupert/daybook/internal/tracker"
)

type TaskHandler struct {
	svc    *tracker.Service
	logger *slog.Logger
}

func NewTaskHandler(svc *tracker.Service, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{svc: svc, logger: logger}
}

// List returns all tasks, or those of one day, week or month when the
// date, week or month query parameter is set.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	user := userParam(r)
	q := r.URL.Query()

	var tasks []model.Task
	var err error
	switch {
	case q.Get("date") != "":
		tasks, err = h.svc.TasksForDate(user, q.Get("date"))
	case q.Get("week") != "":
		tasks, err = h.svc.TasksInWeek(user, q.Get("week"))
	case q.Get("month") != "":
		tasks, err = h.svc.TasksInMonth(user, q.Get("month"))
	default:
		tasks, err = h.svc.ListTasks(user)
	}
	if err != nil {
		writeError(w, h.logger, err, "list tasks")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.svc.GetTask(userParam(r), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, "get task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.NewTask
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	task, err := h.svc.CreateTask(userParam(r), req)
	if err != nil {
		writeError(w, h.logger, err, "create task")
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

type taskPatchRequest struct {
	model.TaskPatch
	Date *string `json:"date,omitempty"`
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req taskPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Date != nil {
		writeError(w, h.logger, tracker.ErrDateImmutable, "update task")
		return
	}
	if req.TaskPatch.Empty() {
		writeErrorMessage(w, http.StatusBadRequest, "no fields to update")
		return
	}

	res, err := h.svc.UpdateTask(userParam(r), r.PathValue("id"), req.TaskPatch)
	if err != nil {
		writeError(w, h.logger, err, "update task")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTask(userParam(r), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err, "delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ToggleTask(userParam(r), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, "toggle task")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type subtaskRequest struct {
	Text string `json:"text"`
}

func (h *TaskHandler) AddSubtask(w http.ResponseWriter, r *http.Request) {
	var req subtaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	task, err := h.svc.AddSubtask(userParam(r), r.PathValue("id"), req.Text)
	if err != nil {
		writeError(w, h.logger, err, "add subtask")
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) ToggleSubtask(w http.ResponseWriter, r *http.Request) {
	task, err := h.svc.ToggleSubtask(userParam(r), r.PathValue("id"), r.PathValue("sid"))
	if err != nil {
		writeError(w, h.logger, err, "toggle subtask")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) DeleteSubtask(w http.ResponseWriter, r *http.Request) {
	task, err := h.svc.DeleteSubtask(userParam(r), r.PathValue("id"), r.PathValue("sid"))
	if err != nil {
		writeError(w, h.logger, err, "delete subtask")
		return
	}
	writeJSON(w, http.StatusOK, task)
}
