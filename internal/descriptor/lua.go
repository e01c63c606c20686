package descriptor

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/modman/internal/mod"
)

const (
	// HeaderMarker must appear on its own line within the first HeaderScanLines lines.
	HeaderMarker    = "--- STEAMODDED HEADER"
	HeaderScanLines = 20

	headerLinePrefix = "---"
)

// parseDirLua reads <dir>/<dirname>.lua; a file without a header still
// yields a descriptor inferred from the directory name.
func parseDirLua(dir string) (*mod.Descriptor, bool) {
	name := filepath.Base(dir)
	return parseLuaFile(filepath.Join(dir, name+".lua"), dir, false)
}

// parseNestedLua handles the package-of-package layout <dir>/Mods/<dirname>/<dirname>.lua.
func parseNestedLua(dir string) (*mod.Descriptor, bool) {
	name := filepath.Base(dir)
	return parseLuaFile(filepath.Join(dir, "Mods", name, name+".lua"), dir, false)
}

// parseAnyLua tries every *.lua file directly inside dir, in name order,
// and returns the first one carrying a header.
func parseAnyLua(dir string) (*mod.Descriptor, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, false
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".lua") {
			continue
		}
		if d, ok := parseLuaFile(filepath.Join(dir, entry.Name()), dir, true); ok {
			return d, true
		}
	}
	return nil, false
}

func parseLuaFile(path, dir string, requireHeader bool) (*mod.Descriptor, bool) {
	data, ok := readOptional(path)
	if !ok {
		return nil, false
	}
	d, found := ParseLuaHeader(data, baseName(path), dir)
	if !found {
		if requireHeader {
			return nil, false
		}
		return inferFromName(filepath.Base(dir), dir), true
	}
	return d, true
}

// HasHeader reports whether the marker line appears within the first HeaderScanLines lines.
func HasHeader(data []byte) bool {
	sc := newLineScanner(data)
	for i := 0; i < HeaderScanLines && sc.Scan(); i++ {
		if strings.TrimSpace(sc.Text()) == HeaderMarker {
			return true
		}
	}
	return false
}

// ParseLuaHeader extracts a descriptor from "--- KEY: value" comment lines.
// It returns false when the marker is missing. Empty fields are back-filled
// from fileBase (name and id) and dir (description).
func ParseLuaHeader(data []byte, fileBase, dir string) (*mod.Descriptor, bool) {
	if !HasHeader(data) {
		return nil, false
	}

	d := &mod.Descriptor{}
	sc := newLineScanner(data)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, headerLinePrefix) {
			continue
		}
		field := strings.TrimSpace(strings.TrimPrefix(line, headerLinePrefix))
		key, value, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "MOD_NAME":
			setOnce(&d.Name, value)
		case "MOD_ID":
			setOnce(&d.ID, value)
		case "MOD_DESCRIPTION":
			setOnce(&d.Description, value)
		case "PREFIX":
			setOnce(&d.Prefix, value)
		case "VERSION":
			if d.Version == nil && value != "" {
				v := value
				d.Version = &v
			}
		case "MOD_AUTHOR":
			if list, ok := parseList(value); ok && len(d.Authors) == 0 {
				d.Authors = list
			}
		case "DEPENDENCIES":
			if list, ok := parseList(value); ok {
				d.Dependencies = append(d.Dependencies, list...)
			}
		case "CONFLICTS":
			if list, ok := parseList(value); ok {
				d.Conflicts = append(d.Conflicts, list...)
			}
		}
	}

	if d.Name == "" {
		d.Name = fileBase
	}
	if d.ID == "" {
		d.ID = mod.IDFromName(fileBase)
	}
	if len(d.Authors) == 0 {
		d.Authors = []string{mod.UnknownAuthor}
	}
	if d.Description == "" {
		d.Description = foundIn(dir)
	}
	if d.Prefix == "" {
		d.Prefix = mod.DerivePrefix(d.ID)
	}
	return d, true
}

// parseList reads "[a, b, c]". Values missing either bracket are rejected.
func parseList(value string) ([]string, bool) {
	if !strings.HasPrefix(value, "[") || !strings.HasSuffix(value, "]") {
		return nil, false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(value, "["), "]")
	var items []string
	for _, part := range strings.Split(inner, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items, true
}

func setOnce(dst *string, value string) {
	if *dst == "" {
		*dst = value
	}
}

func newLineScanner(data []byte) *bufio.Scanner {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return sc
}
