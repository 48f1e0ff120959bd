package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appDirName = "andromeda-copilot"

// ConfigHome returns the directory holding the global config.json.
// COPILOT_CONFIG_HOME overrides the XDG location.
func ConfigHome() (string, error) {
	return home("COPILOT_CONFIG_HOME", xdg.ConfigHome)
}

// StateHome returns the directory for runtime state such as the tool-run journal.
// COPILOT_STATE_HOME overrides the XDG location.
func StateHome() (string, error) {
	return home("COPILOT_STATE_HOME", xdg.StateHome)
}

func home(envVar, xdgBase string) (string, error) {
	dir := os.Getenv(envVar)
	if dir == "" {
		dir = filepath.Join(xdgBase, appDirName)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return dir, nil
}
