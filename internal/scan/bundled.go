package scan

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/modman/internal/pathsafe"
)

// BundledSet holds normalized paths of packages nested in another package's
// Mods directory. Members are never reported as top-level packages.
type BundledSet struct {
	paths           map[string]struct{}
	caseInsensitive bool
}

// NewBundledSet creates an empty set.
func NewBundledSet(caseInsensitive bool) *BundledSet {
	return &BundledSet{
		paths:           make(map[string]struct{}),
		caseInsensitive: caseInsensitive,
	}
}

// Add inserts path after normalization.
func (b *BundledSet) Add(path string) {
	b.paths[pathsafe.NormalizePath(path, b.caseInsensitive)] = struct{}{}
}

// Contains reports whether path is a bundled package.
func (b *BundledSet) Contains(path string) bool {
	if b == nil {
		return false
	}
	_, ok := b.paths[pathsafe.NormalizePath(path, b.caseInsensitive)]
	return ok
}

// Len returns the number of bundled packages.
func (b *BundledSet) Len() int {
	if b == nil {
		return 0
	}
	return len(b.paths)
}

// BuildBundled walks root like Scanner and collects every immediate child
// directory of a "<package>/Mods" directory. It must complete before parsing
// starts since it decides which candidates are considered at all.
func BuildBundled(root string, caseInsensitive bool) (*BundledSet, error) {
	set := NewBundledSet(caseInsensitive)
	err := walk(root, MaxDepth, func(path string, _ int, bundleDir bool) {
		if bundleDir {
			return
		}
		addBundledChildren(set, filepath.Join(path, BundleDirName))
	})
	if err != nil {
		return nil, err
	}
	logrus.WithField("root", root).Debugf("bundled index holds %d packages", set.Len())
	return set, nil
}

func addBundledChildren(set *BundledSet, modsDir string) {
	info, err := os.Stat(modsDir)
	if err != nil || !info.IsDir() {
		return
	}
	entries, err := os.ReadDir(modsDir)
	if err != nil {
		logrus.WithField("path", modsDir).Warnf("failed to read bundled directory: %v", err)
		return
	}
	for _, entry := range entries {
		child := filepath.Join(modsDir, entry.Name())
		if !isDir(child, entry) {
			continue
		}
		set.Add(child)
	}
}
