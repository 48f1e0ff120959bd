package tools

import (
	"github.com/rs/zerolog"
)

// WorkspaceResolver reports the current workspace path, or fallback when none is selected.
type WorkspaceResolver interface {
	CurrentPath(fallback string) string
}

// Env is handed to every executor at call time.
type Env struct {
	// Workspaces resolves the current workspace. May be nil.
	Workspaces WorkspaceResolver

	// DefaultRoot is used when no workspace is current.
	DefaultRoot string

	// SessionID tags journal entries and log lines.
	SessionID string

	Log zerolog.Logger
}

// Root resolves the directory all path arguments are confined to.
func (e *Env) Root() string {
	if e.Workspaces != nil {
		return e.Workspaces.CurrentPath(e.DefaultRoot)
	}
	return e.DefaultRoot
}
