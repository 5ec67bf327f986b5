package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/daybook/internal/archive"
	"github.com/dukerupert/daybook/internal/tracker"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps service errors to a status code. Unknown errors are
// logged and reported as "failed to <action>".
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, action string) {
	switch {
	case errors.Is(err, tracker.ErrNotFound), errors.Is(err, archive.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, tracker.ErrInvalidDate),
		errors.Is(err, tracker.ErrTitleRequired),
		errors.Is(err, tracker.ErrTextRequired),
		errors.Is(err, tracker.ErrDuplicateID),
		errors.Is(err, tracker.ErrDateImmutable),
		errors.Is(err, archive.ErrWeakPassphrase),
		errors.Is(err, archive.ErrBadPassphrase),
		errors.Is(err, archive.ErrCiphertextTooShort):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, archive.ErrNotRestorable):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, archive.ErrDisabled):
		writeErrorMessage(w, http.StatusServiceUnavailable, err.Error())
	default:
		logger.Error("request failed", "action", action, "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "failed to "+action)
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func userParam(r *http.Request) string {
	return r.PathValue("user")
}
