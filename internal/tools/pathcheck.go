package tools

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tryandromeda/copilot/internal/errors"
)

// resolvePath maps a model-supplied path onto the workspace root.
//
// Relative paths are joined under root; absolute paths must already lie under
// it or under its symlink-resolved form. The result is rejected if it escapes
// root lexically or if its deepest existing ancestor resolves outside root
// through a symlink. The root directory is created if missing.
func resolvePath(root, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", errors.NewInvalidRequest("path is required")
	}
	if strings.ContainsRune(p, 0) {
		return "", errors.NewInvalidRequest("path must not contain NUL bytes")
	}

	absRoot, err := ensureRoot(root)
	if err != nil {
		return "", err
	}

	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("cannot resolve workspace root: %w", err))
	}

	var target string
	if filepath.IsAbs(p) {
		target = filepath.Clean(p)
	} else {
		target = filepath.Join(absRoot, p)
	}

	// An absolute path may name the root either way when it is a symlink.
	if !isWithin(absRoot, target) && !isWithin(realRoot, target) {
		return "", escapeError(p)
	}

	realTarget, err := evalExisting(target)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if !isWithin(realRoot, realTarget) {
		return "", escapeError(p)
	}

	return target, nil
}

// ensureRoot returns the absolute workspace root, creating it if needed.
func ensureRoot(root string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("invalid workspace root: %w", err))
	}
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to create workspace directory: %w", err))
	}
	return absRoot, nil
}

// evalExisting resolves symlinks in the longest existing prefix of p and
// re-attaches the components that do not exist yet.
func evalExisting(p string) (string, error) {
	var missing []string
	cur := p
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, missing[i])
			}
			return resolved, nil
		}
		if !stderrors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("cannot resolve %s: %w", cur, err)
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		missing = append(missing, filepath.Base(cur))
		cur = parent
	}
}

// isWithin reports whether target is root or lies beneath it.
func isWithin(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func escapeError(p string) error {
	return errors.NewInvalidRequest(fmt.Sprintf("path %q is outside the workspace", p))
}

// displayPath is how a resolved path is echoed back: relative to root when possible.
func displayPath(root, target string) string {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return target
	}
	if rel, err := filepath.Rel(absRoot, target); err == nil {
		return filepath.ToSlash(rel)
	}
	return target
}
