// Package client is a typed HTTP client for the daybook server, plus
// live subscriptions built on its websocket stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/daybook/internal/model"
	"github.com/dukerupert/daybook/internal/rollover"
	"github.com/dukerupert/daybook/internal/tracker"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "client")
	return c
}

func userPath(user string, parts ...string) string {
	p := "/api/users/" + url.PathEscape(user)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// do sends body as JSON and decodes a JSON response into out when out is
// non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &payload) != nil || payload.Error == "" {
			payload.Error = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) ListTasks(ctx context.Context, user string) ([]model.Task, error) {
	var tasks []model.Task
	err := c.do(ctx, http.MethodGet, userPath(user, "tasks"), nil, &tasks)
	return tasks, err
}

func (c *Client) TasksForDate(ctx context.Context, user, date string) ([]model.Task, error) {
	var tasks []model.Task
	err := c.do(ctx, http.MethodGet, userPath(user, "tasks")+"?date="+url.QueryEscape(date), nil, &tasks)
	return tasks, err
}

func (c *Client) GetTask(ctx context.Context, user, id string) (*model.Task, error) {
	var t model.Task
	if err := c.do(ctx, http.MethodGet, userPath(user, "tasks", id), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) CreateTask(ctx context.Context, user string, nt model.NewTask) (*model.Task, error) {
	var t model.Task
	if err := c.do(ctx, http.MethodPost, userPath(user, "tasks"), nt, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) UpdateTask(ctx context.Context, user, id string, p model.TaskPatch) (*tracker.ToggleResult, error) {
	var res tracker.ToggleResult
	if err := c.do(ctx, http.MethodPatch, userPath(user, "tasks", id), p, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) ToggleTask(ctx context.Context, user, id string) (*tracker.ToggleResult, error) {
	var res tracker.ToggleResult
	if err := c.do(ctx, http.MethodPost, userPath(user, "tasks", id, "toggle"), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) DeleteTask(ctx context.Context, user, id string) error {
	return c.do(ctx, http.MethodDelete, userPath(user, "tasks", id), nil, nil)
}

func (c *Client) AddSubtask(ctx context.Context, user, taskID, text string) (*model.Task, error) {
	var t model.Task
	body := map[string]string{"text": text}
	if err := c.do(ctx, http.MethodPost, userPath(user, "tasks", taskID, "subtasks"), body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) ToggleSubtask(ctx context.Context, user, taskID, subtaskID string) (*model.Task, error) {
	var t model.Task
	if err := c.do(ctx, http.MethodPost, userPath(user, "tasks", taskID, "subtasks", subtaskID, "toggle"), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) DeleteSubtask(ctx context.Context, user, taskID, subtaskID string) (*model.Task, error) {
	var t model.Task
	if err := c.do(ctx, http.MethodDelete, userPath(user, "tasks", taskID, "subtasks", subtaskID), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) Day(ctx context.Context, user, date string) (*tracker.Day, error) {
	var d tracker.Day
	if err := c.do(ctx, http.MethodGet, userPath(user, "days", date), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) ClearDay(ctx context.Context, user, date string) (int64, error) {
	var res struct {
		Cleared int64 `json:"cleared"`
	}
	err := c.do(ctx, http.MethodPost, userPath(user, "days", date, "clear"), nil, &res)
	return res.Cleared, err
}

func (c *Client) Week(ctx context.Context, user, date string) (*tracker.Week, error) {
	path := userPath(user, "week")
	if date != "" {
		path += "?date=" + url.QueryEscape(date)
	}
	var w tracker.Week
	if err := c.do(ctx, http.MethodGet, path, nil, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (c *Client) Month(ctx context.Context, user, month string) (*tracker.Month, error) {
	var m tracker.Month
	if err := c.do(ctx, http.MethodGet, userPath(user, "months", month), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) Streak(ctx context.Context, user string) (*tracker.StreakSummary, error) {
	var s tracker.StreakSummary
	if err := c.do(ctx, http.MethodGet, userPath(user, "streak"), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DailyCheck asks the server to run the daily check. lastChecked is the
// caller's own record and may be empty.
func (c *Client) DailyCheck(ctx context.Context, user, lastChecked string) (rollover.Result, error) {
	var res rollover.Result
	body := map[string]string{"last_check_date": lastChecked}
	err := c.do(ctx, http.MethodPost, userPath(user, "daily-check"), body, &res)
	return res, err
}

// Notes returns nil when the user has no notes yet.
func (c *Client) Notes(ctx context.Context, user string) (*model.Notes, error) {
	var n *model.Notes
	if err := c.do(ctx, http.MethodGet, userPath(user, "notes"), nil, &n); err != nil {
		return nil, err
	}
	return n, nil
}

// SaveNotes satisfies notesync.Saver.
func (c *Client) SaveNotes(ctx context.Context, user, content string) error {
	return c.do(ctx, http.MethodPut, userPath(user, "notes"), map[string]string{"content": content}, nil)
}

func (c *Client) ExportArchive(ctx context.Context, user, passphrase string) (*model.Archive, error) {
	var a model.Archive
	body := map[string]string{"passphrase": passphrase}
	if err := c.do(ctx, http.MethodPost, userPath(user, "archives"), body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) ListArchives(ctx context.Context, user string) ([]model.Archive, error) {
	var list []model.Archive
	err := c.do(ctx, http.MethodGet, userPath(user, "archives"), nil, &list)
	return list, err
}

func (c *Client) RestoreArchive(ctx context.Context, user string, id int64, passphrase string) (int, error) {
	var res struct {
		RestoredTasks int `json:"restored_tasks"`
	}
	body := map[string]string{"passphrase": passphrase}
	err := c.do(ctx, http.MethodPost, userPath(user, "archives", strconv.FormatInt(id, 10), "restore"), body, &res)
	return res.RestoredTasks, err
}

func (c *Client) DeleteArchive(ctx context.Context, user string, id int64) error {
	return c.do(ctx, http.MethodDelete, userPath(user, "archives", strconv.FormatInt(id, 10)), nil, nil)
}
