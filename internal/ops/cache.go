package ops

import (
	"encoding/hex"
	"sort"
	"strings"
	"sync"

	"lukechampine.com/blake3"

	"github.com/hpungsan/modman/internal/mod"
)

// DetectionCache memoizes the last detection result. An entry is valid until
// Invalidate is called or the tracked records change.
type DetectionCache struct {
	mu    sync.Mutex
	valid bool
	key   string
	mods  []mod.Descriptor
}

// NewDetectionCache creates an empty cache.
func NewDetectionCache() *DetectionCache {
	return &DetectionCache{}
}

// Get returns a copy of the cached result if it was stored under key.
func (c *DetectionCache) Get(key string) ([]mod.Descriptor, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid || c.key != key {
		return nil, false
	}
	return copyDescriptors(c.mods), true
}

// Put stores mods under key.
func (c *DetectionCache) Put(key string, mods []mod.Descriptor) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = true
	c.key = key
	c.mods = copyDescriptors(mods)
}

// Invalidate drops the cached result. Called after any change to the mods root.
func (c *DetectionCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.key = ""
	c.mods = nil
}

func copyDescriptors(in []mod.Descriptor) []mod.Descriptor {
	out := make([]mod.Descriptor, len(in))
	copy(out, in)
	return out
}

// Fingerprint hashes the tracked records so a cache entry goes stale when the
// store changes underneath it.
func Fingerprint(records []mod.TrackedRecord) string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		version := ""
		if r.Version != nil {
			version = *r.Version
		}
		lines = append(lines, strings.Join([]string{
			r.ID, r.Name, r.ModID, r.Path, version, r.Checksum,
			strings.Join(r.Dependencies, ","),
		}, "\x1f"))
	}
	sort.Strings(lines)

	h := blake3.New(32, nil)
	for _, l := range lines {
		h.Write([]byte(l))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
