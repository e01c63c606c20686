package pathsafe

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hpungsan/modman/internal/errors"
)

// Guard confines destructive filesystem primitives to one managed root.
type Guard struct {
	Root            string
	CaseInsensitive bool
}

// NewGuard returns a Guard for root using the platform's case sensitivity.
func NewGuard(root string) *Guard {
	return &Guard{Root: root, CaseInsensitive: DefaultCaseInsensitive}
}

// Contains reports whether path lies inside the guarded root.
func (g *Guard) Contains(path string) bool {
	return isContained(g.Root, path, g.CaseInsensitive)
}

// Check returns the canonical form of path, or PATH_OUTSIDE_MANAGED_ROOT.
func (g *Guard) Check(path string) (string, error) {
	root, err := Canonical(g.Root)
	if err != nil {
		return "", errors.NewPathOutsideManagedRoot(g.Root, path)
	}
	canon, err := Canonical(path)
	if err != nil {
		return "", errors.NewPathOutsideManagedRoot(g.Root, path)
	}
	if err := ensure(g.Root, path, within(root, canon, g.CaseInsensitive)); err != nil {
		return "", err
	}
	return canon, nil
}

// IsRoot reports whether path resolves to the guarded root itself.
func (g *Guard) IsRoot(path string) bool {
	root, err := Canonical(g.Root)
	if err != nil {
		return false
	}
	canon, err := Canonical(path)
	if err != nil {
		return false
	}
	return NormalizePath(root, g.CaseInsensitive) == NormalizePath(canon, g.CaseInsensitive)
}

// RemoveAll deletes path recursively. The root itself is never removed.
func (g *Guard) RemoveAll(path string) error {
	canon, err := g.Check(path)
	if err != nil {
		return err
	}
	if g.IsRoot(canon) {
		return errors.NewInvalidRequest(fmt.Sprintf("refusing to remove the managed root %s", g.Root))
	}
	if err := os.RemoveAll(canon); err != nil {
		return errors.NewInternal(fmt.Errorf("remove %s: %w", path, err))
	}
	return nil
}

// MkdirAll creates a directory (and parents) inside the root.
func (g *Guard) MkdirAll(path string, perm os.FileMode) error {
	canon, err := g.Check(path)
	if err != nil {
		return err
	}
	return os.MkdirAll(canon, perm)
}

// CreateFile creates or truncates a regular file inside the root for writing.
// The final component is opened without following symlinks.
func (g *Guard) CreateFile(path string, perm os.FileMode) (*os.File, error) {
	canon, err := g.Check(path)
	if err != nil {
		return nil, err
	}
	return openFileNoFollow(canon, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
}

// Rename moves from to to; both must be inside the root.
func (g *Guard) Rename(from, to string) error {
	src, err := g.Check(from)
	if err != nil {
		return err
	}
	dst, err := g.Check(to)
	if err != nil {
		return err
	}
	return os.Rename(src, dst)
}

// WriteSentinel creates an empty marker file named name inside dir.
// dir must already be a directory inside the root.
func (g *Guard) WriteSentinel(dir, name string) error {
	canon, err := g.Check(dir)
	if err != nil {
		return err
	}
	info, err := os.Stat(canon)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.NewInvalidRequest(fmt.Sprintf("not a directory: %s", dir))
	}
	f, err := openFileNoFollow(filepath.Join(canon, name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	return f.Close()
}

// RemoveSentinel deletes the marker file name from dir. A missing file is not an error.
func (g *Guard) RemoveSentinel(dir, name string) error {
	canon, err := g.Check(dir)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(canon, name)); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
