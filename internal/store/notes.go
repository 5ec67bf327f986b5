package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/daybook/internal/model"
)

// NotesStore keeps one free-text document per user.
type NotesStore struct {
	db *sql.DB
}

func NewNotesStore(db *sql.DB) *NotesStore {
	return &NotesStore{db: db}
}

// Get returns nil, nil when the user has never saved notes.
func (s *NotesStore) Get(userID string) (*model.Notes, error) {
	var n model.Notes
	err := s.db.QueryRow(
		`SELECT user_id, content, updated_at FROM notes WHERE user_id = ?`, userID,
	).Scan(&n.UserID, &n.Content, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notes: %w", err)
	}
	return &n, nil
}

// Upsert overwrites the whole document.
func (s *NotesStore) Upsert(userID, content string) (*model.Notes, error) {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO notes (user_id, content, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		userID, content, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert notes: %w", err)
	}
	return &model.Notes{UserID: userID, Content: content, UpdatedAt: now}, nil
}
