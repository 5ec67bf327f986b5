package tracker

import (
	"context"

	"github.com/dukerupert/daybook/internal/model"
)

// Notes returns the user's notes, nil if none were ever saved.
func (s *Service) Notes(userID string) (*model.Notes, error) {
	return s.notes.Get(userID)
}

// SaveNotes overwrites the user's notes. The length cap is the editor's
// concern; the service stores what it is given.
func (s *Service) SaveNotes(ctx context.Context, userID, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.notes.Upsert(userID, content); err != nil {
		return err
	}
	s.notify(userID, "notes", "updated", "", nil)
	return nil
}
