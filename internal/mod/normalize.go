package mod

import (
	"regexp"
	"strings"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// ReservedIDs are framework and game names that are never mods.
var ReservedIDs = []string{"Steamodded", "Lovely", "Balatro"}

// UnknownAuthor is the author recorded when a descriptor names none.
const UnknownAuthor = "Unknown"

// Normalize trims, lowercases and collapses internal whitespace.
// Used for case-insensitive name matching.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// IsReservedID reports whether id is one of ReservedIDs (case-insensitive).
func IsReservedID(id string) bool {
	id = strings.TrimSpace(id)
	for _, r := range ReservedIDs {
		if strings.EqualFold(id, r) {
			return true
		}
	}
	return false
}

// DerivePrefix returns the first 4 characters of id, lowercased.
// Shorter ids are used whole.
func DerivePrefix(id string) string {
	runes := []rune(id)
	if len(runes) > 4 {
		runes = runes[:4]
	}
	return strings.ToLower(string(runes))
}

// IDFromName turns a display or file name into an identifier by stripping spaces.
func IDFromName(name string) string {
	return strings.Join(strings.Fields(name), "")
}

// DependencyID extracts the bare identifier from a dependency entry,
// dropping any version constraint: "Talisman (>=2.0)" -> "Talisman".
func DependencyID(dep string) string {
	dep = strings.TrimSpace(dep)
	if i := strings.IndexAny(dep, " \t(<>=~^"); i >= 0 {
		dep = dep[:i]
	}
	return dep
}

// UniqueStrings trims entries, drops empties and removes duplicates,
// keeping first-seen order.
func UniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		result = append(result, v)
	}
	return result
}
