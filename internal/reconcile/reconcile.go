// Package reconcile marks detected descriptors as tracked or untracked
// against the persisted records. It performs no I/O.
package reconcile

import (
	"strings"

	"github.com/hpungsan/modman/internal/mod"
	"github.com/hpungsan/modman/internal/pathsafe"
)

// Reconcile returns a copy of detected with IsTracked set. Inputs are not modified.
func Reconcile(detected []mod.Descriptor, tracked []mod.TrackedRecord, caseInsensitive bool) []mod.Descriptor {
	result := make([]mod.Descriptor, len(detected))
	for i, d := range detected {
		result[i] = d
		_, result[i].IsTracked = Match(d, tracked, caseInsensitive)
	}
	return result
}

// UntrackedOnly reconciles and keeps only descriptors with no matching record.
func UntrackedOnly(detected []mod.Descriptor, tracked []mod.TrackedRecord, caseInsensitive bool) []mod.Descriptor {
	result := []mod.Descriptor{}
	for _, d := range Reconcile(detected, tracked, caseInsensitive) {
		if !d.IsTracked {
			result = append(result, d)
		}
	}
	return result
}

// Match returns the first record that identifies d.
//
// A record matches when its name equals d.Name ignoring case, when its path
// equals d.Path after normalization, or when its path contains d.ID ignoring
// case. An empty id never matches by containment.
func Match(d mod.Descriptor, tracked []mod.TrackedRecord, caseInsensitive bool) (mod.TrackedRecord, bool) {
	for _, r := range tracked {
		if matches(d, r, caseInsensitive) {
			return r, true
		}
	}
	return mod.TrackedRecord{}, false
}

func matches(d mod.Descriptor, r mod.TrackedRecord, caseInsensitive bool) bool {
	if r.Name != "" && strings.EqualFold(d.Name, r.Name) {
		return true
	}
	if r.Path == "" {
		return false
	}
	if d.Path != "" && pathsafe.NormalizePath(d.Path, caseInsensitive) == pathsafe.NormalizePath(r.Path, caseInsensitive) {
		return true
	}
	id := strings.ToLower(strings.TrimSpace(d.ID))
	return id != "" && strings.Contains(strings.ToLower(r.Path), id)
}
