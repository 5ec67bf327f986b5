package tracker

import (
	"fmt"

	"github.com/dukerupert/daybook/internal/model"
)

const boardVersion = 1

// Snapshot collects everything that belongs to a user's board.
func (s *Service) Snapshot(userID string) (*model.Board, error) {
	tasks, err := s.tasks.List(userID)
	if err != nil {
		return nil, err
	}
	notes, err := s.notes.Get(userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.Get(userID)
	if err != nil {
		return nil, err
	}
	return &model.Board{
		Version:    boardVersion,
		UserID:     userID,
		ExportedAt: s.now().UTC(),
		Tasks:      tasks,
		Notes:      notes,
		Streak:     profile.Streak,
	}, nil
}

// Restore writes a board back for userID. Tasks are merged by id; notes
// and streak are replaced.
func (s *Service) Restore(userID string, b *model.Board) error {
	if b.Version != boardVersion {
		return fmt.Errorf("unsupported board version %d", b.Version)
	}
	if err := s.tasks.Import(userID, b.Tasks); err != nil {
		return err
	}
	if b.Notes != nil {
		if _, err := s.notes.Upsert(userID, b.Notes.Content); err != nil {
			return err
		}
	}
	if err := s.profiles.SaveStreak(userID, b.Streak); err != nil {
		return err
	}

	s.logger.Info("board restored", "user", userID, "tasks", len(b.Tasks))
	s.notify(userID, "task", "restored", "", nil)
	s.notify(userID, "notes", "updated", "", nil)
	s.notify(userID, "streak", "updated", "", nil)
	return nil
}
