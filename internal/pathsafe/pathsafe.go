// Package pathsafe holds the containment primitives every mutating operation
// on the managed mods root goes through.
package pathsafe

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hpungsan/modman/internal/errors"
)

// DefaultCaseInsensitive reports whether paths compare case-insensitively on this platform.
var DefaultCaseInsensitive = runtime.GOOS == "windows"

// NormalizePath returns the cleaned absolute form of path, lowercased when
// caseInsensitive is set. It never touches the filesystem.
func NormalizePath(path string, caseInsensitive bool) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	path = filepath.Clean(path)
	if caseInsensitive {
		path = strings.ToLower(path)
	}
	return path
}

// Canonical resolves path to an absolute, cleaned path with symlinks resolved
// for the longest prefix that exists. Missing trailing components are kept
// as-is so that not-yet-created extraction targets can be checked.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)

	existing := abs
	var rest []string
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		rest = append([]string{filepath.Base(existing)}, rest...)
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{resolved}, rest...)...), nil
}

// IsContained reports whether candidate is root or a descendant of root,
// comparing canonical paths by component. "/a/Mods2" is not inside "/a/Mods".
func IsContained(root, candidate string) bool {
	return isContained(root, candidate, DefaultCaseInsensitive)
}

func isContained(root, candidate string, caseInsensitive bool) bool {
	r, err := Canonical(root)
	if err != nil {
		return false
	}
	c, err := Canonical(candidate)
	if err != nil {
		return false
	}
	return within(r, c, caseInsensitive)
}

// within compares two canonical paths without touching the filesystem.
func within(root, candidate string, caseInsensitive bool) bool {
	if caseInsensitive {
		root = strings.ToLower(root)
		candidate = strings.ToLower(candidate)
	}
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return false
	}
	return true
}

// HasTraversal reports whether a slash- or separator-delimited name contains
// a ".." component or is absolute. Used for archive entry names.
func HasTraversal(name string) bool {
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, "\\") || filepath.IsAbs(name) {
		return true
	}
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return true
		}
	}
	return false
}

// SanitizeDirName makes s safe to use as a single directory name.
// Path separators and ".." sequences become dashes; control characters are dropped.
func SanitizeDirName(s string) string {
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, "..", "-")

	var result strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			result.WriteRune(r)
		}
	}
	s = result.String()

	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(strings.TrimSpace(s), "-.")

	if s == "" {
		s = "unnamed"
	}
	return s
}

// ensure wraps a containment failure in the coded error.
func ensure(root, path string, ok bool) error {
	if !ok {
		return errors.NewPathOutsideManagedRoot(root, path)
	}
	return nil
}
