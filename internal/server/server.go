package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/daybook/internal/archive"
	"github.com/dukerupert/daybook/internal/handler"
	"github.com/dukerupert/daybook/internal/middleware"
	"github.com/dukerupert/daybook/internal/model"
	"github.com/dukerupert/daybook/internal/store"
	"github.com/dukerupert/daybook/internal/tracker"
	ws "github.com/dukerupert/daybook/internal/websocket"
)

// Config holds what the server needs beyond the database.
type Config struct {
	Location *time.Location
	Archive  archive.S3Config
	// ExportLimit caps archive exports per user per ExportWindow.
	ExportLimit  int
	ExportWindow time.Duration
}

type Server struct {
	hub         *ws.Hub
	tracker     *tracker.Service
	archives    *archive.Manager
	profiles    *store.ProfileStore
	taskH       *handler.TaskHandler
	dayH        *handler.DayHandler
	notesH      *handler.NotesHandler
	archiveH    *handler.ArchiveHandler
	rateLimiter *middleware.RateLimiter
	cfg         Config
	logger      *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger, opts ...tracker.Option) *Server {
	if cfg.ExportLimit <= 0 {
		cfg.ExportLimit = 5
	}
	if cfg.ExportWindow <= 0 {
		cfg.ExportWindow = time.Hour
	}

	hub := ws.NewHub(logger.With("component", "websocket"))

	taskStore := store.NewTaskStore(db)
	notesStore := store.NewNotesStore(db)
	profileStore := store.NewProfileStore(db)
	archiveStore := store.NewArchiveStore(db)

	opts = append([]tracker.Option{tracker.WithLocation(cfg.Location), tracker.WithNotifier(hub)}, opts...)
	svc := tracker.New(taskStore, notesStore, profileStore, logger, opts...)

	archives := archive.NewManager(cfg.Archive, archiveStore, svc, func(userID string, a *model.Archive) {
		hub.Broadcast(ws.NewMessage(userID, "archive", string(a.Status), strconv.FormatInt(a.ID, 10), map[string]any{
			"filename": a.Filename,
			"error":    a.ErrorMessage,
		}))
	}, logger)

	return &Server{
		hub:         hub,
		tracker:     svc,
		archives:    archives,
		profiles:    profileStore,
		taskH:       handler.NewTaskHandler(svc, logger.With("component", "task")),
		dayH:        handler.NewDayHandler(svc, logger.With("component", "day")),
		notesH:      handler.NewNotesHandler(svc, logger.With("component", "notes")),
		archiveH:    handler.NewArchiveHandler(archives, logger.With("component", "archive_handler")),
		rateLimiter: middleware.NewRateLimiter(cfg.ExportLimit, cfg.ExportWindow),
		cfg:         cfg,
		logger:      logger,
	}
}

// Tracker returns the task and notes service.
func (s *Server) Tracker() *tracker.Service {
	return s.tracker
}

// Profiles returns the profile store; the rollover scheduler reads the
// last checked day from it.
func (s *Server) Profiles() *store.ProfileStore {
	return s.profiles
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	mux.HandleFunc("GET /api/users/{user}/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/users/{user}/tasks", s.taskH.Create)
	mux.HandleFunc("GET /api/users/{user}/tasks/{id}", s.taskH.Get)
	mux.HandleFunc("PATCH /api/users/{user}/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/users/{user}/tasks/{id}", s.taskH.Delete)
	mux.HandleFunc("POST /api/users/{user}/tasks/{id}/toggle", s.taskH.Toggle)
	mux.HandleFunc("POST /api/users/{user}/tasks/{id}/subtasks", s.taskH.AddSubtask)
	mux.HandleFunc("POST /api/users/{user}/tasks/{id}/subtasks/{sid}/toggle", s.taskH.ToggleSubtask)
	mux.HandleFunc("DELETE /api/users/{user}/tasks/{id}/subtasks/{sid}", s.taskH.DeleteSubtask)

	mux.HandleFunc("GET /api/users/{user}/days/{date}", s.dayH.Day)
	mux.HandleFunc("POST /api/users/{user}/days/{date}/clear", s.dayH.Clear)
	mux.HandleFunc("GET /api/users/{user}/week", s.dayH.Week)
	mux.HandleFunc("GET /api/users/{user}/months/{month}", s.dayH.Month)
	mux.HandleFunc("GET /api/users/{user}/streak", s.dayH.Streak)
	mux.HandleFunc("POST /api/users/{user}/daily-check", s.dayH.DailyCheck)

	mux.HandleFunc("GET /api/users/{user}/notes", s.notesH.Get)
	mux.HandleFunc("PUT /api/users/{user}/notes", s.notesH.Put)

	mux.HandleFunc("POST /api/users/{user}/archives", s.exportLimited(s.archiveH.Export))
	mux.HandleFunc("GET /api/users/{user}/archives", s.archiveH.List)
	mux.HandleFunc("POST /api/users/{user}/archives/{id}/restore", s.archiveH.Restore)
	mux.HandleFunc("DELETE /api/users/{user}/archives/{id}", s.archiveH.Delete)

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"subscribers": s.hub.ClientCount(),
		"archives":    s.archives.Enabled(),
	})
}

// exportLimited rate-limits archive exports per user and client address.
func (s *Server) exportLimited(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return r.PathValue("user") + "|" + middleware.RealIP(r)
	}
	return s.rateLimiter.Limit(keyFunc, h).ServeHTTP
}
