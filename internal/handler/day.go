package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/daybook/internal/tracker"
)

// DayHandler serves the calendar views, the streak and the daily check.
type DayHandler struct {
	svc    *tracker.Service
	logger *slog.Logger
}

func NewDayHandler(svc *tracker.Service, logger *slog.Logger) *DayHandler {
	return &DayHandler{svc: svc, logger: logger}
}

func (h *DayHandler) Day(w http.ResponseWriter, r *http.Request) {
	day, err := h.svc.Day(userParam(r), r.PathValue("date"))
	if err != nil {
		writeError(w, h.logger, err, "get day")
		return
	}
	writeJSON(w, http.StatusOK, day)
}

func (h *DayHandler) Clear(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	n, err := h.svc.ClearDay(userParam(r), date)
	if err != nil {
		writeError(w, h.logger, err, "clear day")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "cleared": n})
}

func (h *DayHandler) Week(w http.ResponseWriter, r *http.Request) {
	week, err := h.svc.Week(userParam(r), r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, h.logger, err, "get week")
		return
	}
	writeJSON(w, http.StatusOK, week)
}

func (h *DayHandler) Month(w http.ResponseWriter, r *http.Request) {
	month, err := h.svc.Month(userParam(r), r.PathValue("month"))
	if err != nil {
		writeError(w, h.logger, err, "get month")
		return
	}
	writeJSON(w, http.StatusOK, month)
}

func (h *DayHandler) Streak(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Streak(userParam(r))
	if err != nil {
		writeError(w, h.logger, err, "get streak")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type dailyCheckRequest struct {
	LastCheckDate string `json:"last_check_date"`
}

// DailyCheck accepts an optional body carrying the client's own record of
// the last checked day.
func (h *DayHandler) DailyCheck(w http.ResponseWriter, r *http.Request) {
	var req dailyCheckRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	res, err := h.svc.DailyCheck(r.Context(), userParam(r), req.LastCheckDate)
	if err != nil {
		writeError(w, h.logger, err, "run daily check")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
