package store

import (
	"testing"

	"github.com/dukerupert/daybook/internal/model"
)

func TestArchiveCreate(t *testing.T) {
	s := NewArchiveStore(setupTestDB(t))

	a, err := s.Create("alice", "daybook-alice.json.enc", "alice/2026-10-15T00:00:00Z.json.enc")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if a.Status != model.ArchiveStatusPending {
		t.Errorf("status = %q, want %q", a.Status, model.ArchiveStatusPending)
	}
}

func TestArchiveLifecycle(t *testing.T) {
	s := NewArchiveStore(setupTestDB(t))

	a, _ := s.Create("alice", "f", "k")
	if err := s.UpdateStatus(a.ID, model.ArchiveStatusUploading, ""); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := s.UpdateCompleted(a.ID, 2048); err != nil {
		t.Fatalf("update completed: %v", err)
	}

	got, err := s.GetByID("alice", a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.ArchiveStatusCompleted {
		t.Errorf("status = %q", got.Status)
	}
	if got.SizeBytes != 2048 {
		t.Errorf("size = %d, want 2048", got.SizeBytes)
	}
	if got.CompletedAt == nil {
		t.Error("completed_at not set")
	}
}

func TestArchiveFailedKeepsMessage(t *testing.T) {
	s := NewArchiveStore(setupTestDB(t))

	a, _ := s.Create("alice", "f", "k")
	s.UpdateStatus(a.ID, model.ArchiveStatusFailed, "upload refused")

	got, _ := s.GetByID("alice", a.ID)
	if got.ErrorMessage != "upload refused" {
		t.Errorf("error_message = %q", got.ErrorMessage)
	}
}

func TestArchiveScopedToUser(t *testing.T) {
	s := NewArchiveStore(setupTestDB(t))

	a, _ := s.Create("alice", "f", "k")
	s.Create("alice", "g", "k2")
	s.Create("bob", "h", "k3")

	got, err := s.GetByID("bob", a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("bob should not see alice's archive")
	}

	list, err := s.List("alice", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("len = %d, want 2", len(list))
	}
	if list[0].Filename != "g" {
		t.Errorf("newest first: got %q", list[0].Filename)
	}
}

func TestArchiveDelete(t *testing.T) {
	s := NewArchiveStore(setupTestDB(t))

	a, _ := s.Create("alice", "f", "k")

	ok, err := s.Delete("bob", a.ID)
	if err != nil {
		t.Fatalf("delete other user: %v", err)
	}
	if ok {
		t.Error("bob should not delete alice's archive")
	}

	ok, err = s.Delete("alice", a.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !ok {
		t.Error("expected archive to be deleted")
	}
}
