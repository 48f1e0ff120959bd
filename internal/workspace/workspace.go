package workspace

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// ConfigFileName is the registry document inside the registry directory.
const ConfigFileName = "workspaces.json"

// Workspace is a named binding to a directory on disk.
type Workspace struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Path         string    `json:"path"`
	CreatedAt    time.Time `json:"createdAt"`
	LastAccessed time.Time `json:"lastAccessed"`
}

// Config is the persisted registry document.
// CurrentWorkspaceID is a weak reference and may name a workspace that no longer exists.
type Config struct {
	Workspaces           []Workspace `json:"workspaces"`
	CurrentWorkspaceID   string      `json:"currentWorkspaceId,omitempty"`
	DefaultWorkspacePath string      `json:"defaultWorkspacePath"`
}

// Stats summarizes the registry.
type Stats struct {
	Total   int     `json:"total"`
	Current *string `json:"current"`
}

func newID(now time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}
