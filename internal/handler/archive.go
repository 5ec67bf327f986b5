package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/daybook/internal/archive"
)

type ArchiveHandler struct {
	mgr    *archive.Manager
	logger *slog.Logger
}

func NewArchiveHandler(mgr *archive.Manager, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{mgr: mgr, logger: logger}
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

type passphraseRequest struct {
	Passphrase string `json:"passphrase"`
}

func (h *ArchiveHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req passphraseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	a, err := h.mgr.Export(r.Context(), userParam(r), req.Passphrase)
	if err != nil {
		writeError(w, h.logger, err, "export archive")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *ArchiveHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeErrorMessage(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	list, err := h.mgr.List(userParam(r), limit)
	if err != nil {
		writeError(w, h.logger, err, "list archives")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ArchiveHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req passphraseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	board, err := h.mgr.Restore(r.Context(), userParam(r), id, req.Passphrase)
	if err != nil {
		writeError(w, h.logger, err, "restore archive")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"restored_tasks": len(board.Tasks),
		"exported_at":    board.ExportedAt,
	})
}

func (h *ArchiveHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.mgr.Delete(r.Context(), userParam(r), id); err != nil {
		writeError(w, h.logger, err, "delete archive")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
