package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tryandromeda/copilot/internal/errors"
)

// Registry tracks named workspaces and the current selection.
//
// The in-memory document is authoritative for the life of the process; every
// mutation rewrites the whole document on disk. All methods are safe for
// concurrent use.
type Registry struct {
	mu         sync.Mutex
	dir        string
	configPath string
	cfg        Config
	log        zerolog.Logger
	now        func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New opens the registry rooted at dir, reading dir/workspaces.json.
// A missing or unreadable document yields an empty registry.
func New(dir string, log zerolog.Logger, opts ...Option) *Registry {
	r := &Registry{
		dir:        dir,
		configPath: filepath.Join(dir, ConfigFileName),
		log:        log.With().Str("component", "workspace").Logger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cfg = r.load()
	return r
}

// Dir returns the registry root. Auto-generated workspace paths live under it.
func (r *Registry) Dir() string {
	return r.dir
}

// Create registers a new workspace and creates its directory.
// The path is customPath when given, else <dir>/<slug(name)>.
func (r *Registry) Create(name, description, customPath string) (Workspace, error) {
	sanitized := SanitizeName(name)
	if sanitized == "" {
		return Workspace{}, errors.NewInvalidName(name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexByName(sanitized, "") >= 0 {
		return Workspace{}, errors.NewDuplicateName(sanitized)
	}

	path := customPath
	if path == "" {
		path = filepath.Join(r.dir, Slug(sanitized))
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return Workspace{}, errors.NewInternal(fmt.Errorf("failed to create workspace directory %s: %w", path, err))
	}

	now := r.timestamp()
	ws := Workspace{
		ID:           newID(now),
		Name:         sanitized,
		Description:  description,
		Path:         path,
		CreatedAt:    now,
		LastAccessed: now,
	}
	r.cfg.Workspaces = append(r.cfg.Workspaces, ws)
	r.persist()

	r.log.Info().Str("id", ws.ID).Str("name", ws.Name).Str("path", ws.Path).Msg("workspace created")
	return ws, nil
}

// List returns a snapshot sorted by LastAccessed, most recent first.
func (r *Registry) List() []Workspace {
	r.mu.Lock()
	out := make([]Workspace, len(r.cfg.Workspaces))
	copy(out, r.cfg.Workspaces)
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastAccessed.After(out[j].LastAccessed)
	})
	return out
}

// Get looks up a workspace by id.
func (r *Registry) Get(id string) (Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexByID(id); i >= 0 {
		return r.cfg.Workspaces[i], true
	}
	return Workspace{}, false
}

// GetByName looks up a workspace by name, ignoring case.
func (r *Registry) GetByName(name string) (Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexByName(strings.TrimSpace(name), ""); i >= 0 {
		return r.cfg.Workspaces[i], true
	}
	return Workspace{}, false
}

// Find resolves an identifier that may be either an id or a name.
func (r *Registry) Find(idOrName string) (Workspace, bool) {
	if ws, ok := r.Get(idOrName); ok {
		return ws, true
	}
	return r.GetByName(idOrName)
}

// SetCurrent selects a workspace and marks it accessed.
func (r *Registry) SetCurrent(id string) (Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexByID(id)
	if i < 0 {
		return Workspace{}, errors.NewNotFound(id)
	}

	r.cfg.Workspaces[i].LastAccessed = r.timestamp()
	r.cfg.CurrentWorkspaceID = id
	r.persist()

	ws := r.cfg.Workspaces[i]
	r.log.Info().Str("id", ws.ID).Str("name", ws.Name).Msg("workspace switched")
	return ws, nil
}

// Current returns the selected workspace. A dangling selection reads as none.
func (r *Registry) Current() (Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current()
}

// CurrentPath returns the current workspace's path, or fallback when none is selected.
func (r *Registry) CurrentPath(fallback string) string {
	if ws, ok := r.Current(); ok {
		return ws.Path
	}
	return fallback
}

// Delete removes a workspace. Returns false if id is unknown.
// When deleteFiles is set the directory is removed best-effort; a failure
// there is logged and the record is still dropped.
func (r *Registry) Delete(id string, deleteFiles bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexByID(id)
	if i < 0 {
		return false
	}
	ws := r.cfg.Workspaces[i]

	if deleteFiles {
		if err := os.RemoveAll(ws.Path); err != nil {
			r.log.Warn().Err(err).Str("path", ws.Path).Msg("could not delete workspace files")
		} else {
			r.log.Info().Str("path", ws.Path).Msg("deleted workspace files")
		}
	}

	r.cfg.Workspaces = append(r.cfg.Workspaces[:i], r.cfg.Workspaces[i+1:]...)
	if r.cfg.CurrentWorkspaceID == id {
		r.cfg.CurrentWorkspaceID = ""
	}
	r.persist()

	r.log.Info().Str("id", ws.ID).Str("name", ws.Name).Msg("workspace deleted")
	return true
}

// Rename changes a workspace's name. Returns false if id is unknown.
func (r *Registry) Rename(id, newName string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexByID(id)
	if i < 0 {
		return false, nil
	}

	sanitized := SanitizeName(newName)
	if sanitized == "" {
		return false, errors.NewInvalidName(newName)
	}
	if r.indexByName(sanitized, id) >= 0 {
		return false, errors.NewDuplicateName(sanitized)
	}

	old := r.cfg.Workspaces[i].Name
	r.cfg.Workspaces[i].Name = sanitized
	r.persist()

	r.log.Info().Str("id", id).Str("from", old).Str("to", sanitized).Msg("workspace renamed")
	return true, nil
}

// UpdateDescription overwrites a workspace's description. Returns false if id is unknown.
func (r *Registry) UpdateDescription(id, description string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexByID(id)
	if i < 0 {
		return false
	}

	r.cfg.Workspaces[i].Description = description
	r.persist()
	return true
}

// Stats returns the workspace count and the current workspace's name.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{Total: len(r.cfg.Workspaces)}
	if ws, ok := r.current(); ok {
		name := ws.Name
		stats.Current = &name
	}
	return stats
}

// current requires r.mu held.
func (r *Registry) current() (Workspace, bool) {
	if r.cfg.CurrentWorkspaceID == "" {
		return Workspace{}, false
	}
	if i := r.indexByID(r.cfg.CurrentWorkspaceID); i >= 0 {
		return r.cfg.Workspaces[i], true
	}
	return Workspace{}, false
}

func (r *Registry) indexByID(id string) int {
	for i := range r.cfg.Workspaces {
		if r.cfg.Workspaces[i].ID == id {
			return i
		}
	}
	return -1
}

// indexByName finds a name collision, skipping the workspace with excludeID.
func (r *Registry) indexByName(name, excludeID string) int {
	for i := range r.cfg.Workspaces {
		ws := &r.cfg.Workspaces[i]
		if ws.ID != excludeID && sameName(ws.Name, name) {
			return i
		}
	}
	return -1
}

// timestamp drops the monotonic reading so values compare equal after a reload.
func (r *Registry) timestamp() time.Time {
	return r.now().UTC()
}
