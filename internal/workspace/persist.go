package workspace

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tryandromeda/copilot/internal/errors"
)

// load reads the registry document. Any failure falls back to an empty registry.
func (r *Registry) load() Config {
	empty := Config{Workspaces: []Workspace{}, DefaultWorkspacePath: r.dir}

	data, err := os.ReadFile(r.configPath)
	if err != nil {
		if !stderrors.Is(err, os.ErrNotExist) {
			r.log.Warn().Err(err).Str("path", r.configPath).Msg("could not load workspace config")
		}
		return empty
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		r.log.Warn().Err(err).Str("path", r.configPath).Msg("could not load workspace config")
		return empty
	}
	if cfg.Workspaces == nil {
		cfg.Workspaces = []Workspace{}
	}
	cfg.DefaultWorkspacePath = r.dir
	return cfg
}

// persist saves the document. Failures are logged and swallowed; callers
// still report success. Requires r.mu held.
func (r *Registry) persist() {
	if err := r.save(); err != nil {
		r.log.Error().Err(errors.NewPersistence(r.configPath, err)).Msg("error saving workspace config")
	}
}

// save writes the whole document to a temp file and renames it into place.
func (r *Registry) save() error {
	data, err := json.MarshalIndent(r.cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(r.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return fmt.Errorf("failed to generate temp file name: %w", err)
	}
	tempPath := r.configPath + "." + hex.EncodeToString(randBytes) + ".tmp"

	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return err
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		return err
	}
	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return err
	}
	file = nil

	if err := os.Rename(tempPath, r.configPath); err != nil {
		return fmt.Errorf("failed to replace %s: %w", r.configPath, err)
	}

	success = true
	return nil
}
