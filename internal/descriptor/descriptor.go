// Package descriptor turns a candidate directory into a mod.Descriptor using an
// ordered chain of format-specific parsers. Absence of a descriptor is a normal
// outcome; parse failures are logged and never returned.
package descriptor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/modman/internal/mod"
)

// SmodsFileName is the generic JSON descriptor name.
const SmodsFileName = "smods.json"

// ParseFunc inspects dir and returns a descriptor if its format applies.
type ParseFunc func(dir string) (*mod.Descriptor, bool)

// Step is one named parser in the chain.
type Step struct {
	Name  string
	Parse ParseFunc
}

// Chain is the ordered parser list tried by Parse; the first success wins.
var Chain = []Step{
	{Name: "json", Parse: parseDirJSON},
	{Name: "smods-json", Parse: parseSmodsJSON},
	{Name: "lua", Parse: parseDirLua},
	{Name: "nested-lua", Parse: parseNestedLua},
	{Name: "structural", Parse: parseStructural},
	{Name: "lua-scan", Parse: parseAnyLua},
}

// Parse runs Chain against dir. A result whose id is reserved discards the
// whole candidate.
func Parse(dir string) (*mod.Descriptor, bool) {
	return ParseWith(Chain, dir)
}

// ParseWith runs the given chain against dir.
func ParseWith(chain []Step, dir string) (*mod.Descriptor, bool) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, false
	}
	for _, step := range chain {
		d, ok := step.Parse(abs)
		if !ok {
			continue
		}
		log := logrus.WithFields(logrus.Fields{"path": abs, "parser": step.Name})
		if mod.IsReservedID(d.ID) {
			log.Debugf("discarding descriptor with reserved id %q", d.ID)
			return nil, false
		}
		d.Path = abs
		d.Source = step.Name
		finalize(d)
		log.Debugf("parsed descriptor %q", d.ID)
		return d, true
	}
	return nil, false
}

// finalize back-fills empty fields and normalizes list fields.
func finalize(d *mod.Descriptor) {
	if d.ID == "" {
		d.ID = mod.IDFromName(d.Name)
	}
	if d.Name == "" {
		d.Name = d.ID
	}
	d.Authors = mod.UniqueStrings(d.Authors)
	if len(d.Authors) == 0 {
		d.Authors = []string{mod.UnknownAuthor}
	}
	if d.Description == "" {
		d.Description = foundIn(d.Path)
	}
	if d.Prefix == "" {
		d.Prefix = mod.DerivePrefix(d.ID)
	}
	d.Dependencies = mod.UniqueStrings(d.Dependencies)
	d.Conflicts = mod.UniqueStrings(d.Conflicts)
}

// inferFromName builds a descriptor from a bare name.
func inferFromName(name, dir string) *mod.Descriptor {
	return &mod.Descriptor{
		Name:        name,
		ID:          mod.IDFromName(name),
		Authors:     []string{mod.UnknownAuthor},
		Description: foundIn(dir),
	}
}

func foundIn(path string) string {
	return fmt.Sprintf("Package found in %s", path)
}

// parseStructural recognizes a package by layout alone: a Mods subdirectory
// next to a README.
func parseStructural(dir string) (*mod.Descriptor, bool) {
	if !isDirectory(filepath.Join(dir, "Mods")) {
		return nil, false
	}
	if !isFile(filepath.Join(dir, "README.md")) && !isFile(filepath.Join(dir, "README.MD")) {
		return nil, false
	}
	return inferFromName(filepath.Base(dir), dir), true
}

func isDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// readOptional reads path, treating a missing file as absent and logging other failures.
func readOptional(path string) ([]byte, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.WithField("path", path).Warnf("failed to read descriptor file: %v", err)
		}
		return nil, false
	}
	return data, true
}

// baseName strips the extension from a file name.
func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
