//go:build !windows

package pathsafe

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/modman/internal/errors"
)

// openFileNoFollow opens a file with O_NOFOLLOW so an archive entry or sentinel
// write never lands on a symlink planted inside the mods root.
// O_CLOEXEC prevents FD leaks across exec.
//
// Note: O_NOFOLLOW only protects the final component. Directory components are
// covered by Guard.Check, which resolves symlinks before the containment test.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot write to symlink: " + path)
		}
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(fd), path), nil
}
