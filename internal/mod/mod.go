package mod

// Descriptor is the normalized metadata parsed from one candidate directory.
// Descriptors are recomputed on every detection pass and carry no persisted identity.
type Descriptor struct {
	Name        string   `json:"name"`
	ID          string   `json:"id"`
	Authors     []string `json:"authors"`
	Description string   `json:"description"`
	Prefix      string   `json:"prefix"`
	Version     *string  `json:"version,omitempty"`

	// Path is the absolute package directory; unique within one scan.
	Path string `json:"path"`

	Dependencies []string `json:"dependencies"`
	Conflicts    []string `json:"conflicts"`

	// IsTracked is computed by reconciliation, never read from disk.
	IsTracked bool `json:"is_tracked"`

	// Enabled is false when the package directory holds the disable sentinel.
	Enabled bool `json:"enabled"`

	// Fields below are only populated by the JSON descriptor format.
	MainFile        string   `json:"main_file,omitempty"`
	Priority        int      `json:"priority"`
	BadgeColour     string   `json:"badge_colour,omitempty"`
	BadgeTextColour string   `json:"badge_text_colour,omitempty"`
	DisplayName     string   `json:"display_name,omitempty"`
	Provides        []string `json:"provides,omitempty"`
	DumpLoc         bool     `json:"dump_loc,omitempty"`

	// Source names the parser that produced this descriptor (e.g. "json", "lua").
	Source string `json:"source"`
}

// TrackedRecord is a row of the persisted tracking store.
type TrackedRecord struct {
	// ID is a ULID assigned when the record is first added
	ID string `json:"id"`

	// Name is the identity key; matched case-insensitively
	Name string `json:"name"`

	// ModID is the descriptor id of the installed package, when known
	ModID string `json:"mod_id,omitempty"`

	// Path is the absolute directory the mod was installed into
	Path string `json:"path"`

	Dependencies []string `json:"dependencies"`
	Version      *string  `json:"version,omitempty"`

	// Checksum is the blake3 digest of the installed archive (empty for tracked manual installs)
	Checksum string `json:"checksum,omitempty"`

	// InstalledAt is the Unix timestamp of the last install
	InstalledAt int64 `json:"installed_at"`
}
