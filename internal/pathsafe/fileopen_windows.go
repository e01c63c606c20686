//go:build windows

package pathsafe

import "os"

// openFileNoFollow opens a file for writing.
// On Windows, O_NOFOLLOW is not available; Guard.Check has already resolved
// symlinks in the directory components.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}
