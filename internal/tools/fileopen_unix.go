//go:build !windows

package tools

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/tryandromeda/copilot/internal/errors"
)

// openFileNoFollow opens a file for writing without following a symlink in the
// final path component. O_CLOEXEC keeps the fd out of spawned runtimes.
// Directory components are checked by resolvePath.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot write to symlink")
		}
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(fd), path), nil
}
