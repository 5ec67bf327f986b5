package model

import "time"

type ArchiveStatus string

const (
	ArchiveStatusPending   ArchiveStatus = "pending"
	ArchiveStatusUploading ArchiveStatus = "uploading"
	ArchiveStatusCompleted ArchiveStatus = "completed"
	ArchiveStatusFailed    ArchiveStatus = "failed"

	// ArchiveStatusDeleted is only ever sent to subscribers.
	ArchiveStatusDeleted ArchiveStatus = "deleted"
)

type Archive struct {
	ID           int64         `json:"id"`
	UserID       string        `json:"user_id"`
	Filename     string        `json:"filename"`
	ObjectKey    string        `json:"object_key"`
	SizeBytes    int64         `json:"size_bytes"`
	Status       ArchiveStatus `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Board is the exported content of one user's dashboard.
type Board struct {
	Version    int        `json:"version"`
	UserID     string     `json:"user_id"`
	ExportedAt time.Time  `json:"exported_at"`
	Tasks      []Task     `json:"tasks"`
	Notes      *Notes     `json:"notes,omitempty"`
	Streak     StreakData `json:"streak"`
}
