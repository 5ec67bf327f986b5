package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/daybook/internal/model"
	"github.com/dukerupert/daybook/internal/tracker"
)

type NotesHandler struct {
	svc    *tracker.Service
	logger *slog.Logger
}

func NewNotesHandler(svc *tracker.Service, logger *slog.Logger) *NotesHandler {
	return &NotesHandler{svc: svc, logger: logger}
}

// Get returns the notes document, or JSON null when none exists.
func (h *NotesHandler) Get(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.Notes(userParam(r))
	if err != nil {
		writeError(w, h.logger, err, "get notes")
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

type notesRequest struct {
	Content string `json:"content"`
}

func (h *NotesHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user := userParam(r)
	if err := h.svc.SaveNotes(r.Context(), user, req.Content); err != nil {
		writeError(w, h.logger, err, "save notes")
		return
	}
	notes, err := h.svc.Notes(user)
	if err != nil {
		writeError(w, h.logger, err, "get notes")
		return
	}
	if notes == nil {
		notes = &model.Notes{UserID: user, Content: req.Content}
	}
	writeJSON(w, http.StatusOK, notes)
}
