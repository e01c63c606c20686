// Package scan walks the managed mods root for candidate package directories
// and pre-classifies bundled sub-packages that must not surface on their own.
package scan

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/modman/internal/errors"
)

// MaxDepth is the deepest a candidate may sit below the root, counted in path
// separators between root and candidate. Top-level entries are at 0.
const MaxDepth = 2

// BundleDirName is the directory a package nests its bundled packages under.
const BundleDirName = "Mods"

// Candidate is a directory that may hold a mod package.
type Candidate struct {
	Path  string
	Depth int
}

// Scanner enumerates candidate package directories under Root.
type Scanner struct {
	Root     string
	MaxDepth int
}

// NewScanner creates a Scanner with the default depth limit.
func NewScanner(root string) *Scanner {
	return &Scanner{Root: root, MaxDepth: MaxDepth}
}

// Scan returns candidate directories in breadth-first order.
// Unreadable subdirectories are logged and skipped; only a failure to read
// the root itself is returned.
func (s *Scanner) Scan() ([]Candidate, error) {
	var candidates []Candidate
	err := walk(s.Root, s.MaxDepth, func(path string, depth int, bundleDir bool) {
		if bundleDir {
			return
		}
		candidates = append(candidates, Candidate{Path: path, Depth: depth})
	})
	if err != nil {
		return nil, err
	}
	logrus.WithField("root", s.Root).Debugf("scan found %d candidate directories", len(candidates))
	return candidates, nil
}

// IsReservedDirName reports whether a directory belongs to the loader and is never a mod.
func IsReservedDirName(name string) bool {
	return strings.Contains(strings.ToLower(name), "lovely")
}

type queued struct {
	path  string
	depth int
}

// walk runs visit for every directory below root down to maxDepth separators,
// using an explicit queue and a set of resolved paths so symlink loops end.
// Directories named "Mods" are reported with bundleDir set.
func walk(root string, maxDepth int, visit func(path string, depth int, bundleDir bool)) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return errors.NewDirectoryReadFailed(root, err)
	}
	abs = filepath.Clean(abs)

	// depth of the root itself is -1 so top-level entries land on 0
	queue := []queued{{path: abs, depth: -1}}
	visited := make(map[string]bool)

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		real, err := filepath.EvalSymlinks(item.path)
		if err != nil {
			real = item.path
		}
		if visited[real] {
			logrus.WithField("path", item.path).Debug("skipping already visited directory")
			continue
		}
		visited[real] = true

		entries, err := os.ReadDir(item.path)
		if err != nil {
			if item.depth < 0 {
				return errors.NewDirectoryReadFailed(item.path, err)
			}
			logrus.WithField("path", item.path).Warnf("failed to read directory: %v", err)
			continue
		}

		for _, entry := range entries {
			name := entry.Name()
			child := filepath.Join(item.path, name)
			if !isDir(child, entry) {
				continue
			}
			if IsReservedDirName(name) {
				continue
			}

			depth := item.depth + 1
			if depth > maxDepth {
				continue
			}

			bundleDir := name == BundleDirName
			visit(child, depth, bundleDir)
			queue = append(queue, queued{path: child, depth: depth})
		}
	}
	return nil
}

// isDir reports whether entry is a directory, following symlinks.
func isDir(path string, entry os.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
