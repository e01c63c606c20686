package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/modman/internal/pathsafe"
)

// Default values applied by DefaultConfig.
const (
	DefaultToggleWorkers = 4
	DefaultLogLevel      = "info"
)

// Config holds application configuration.
type Config struct {
	// ModsDir is the managed mods root. Empty means <UserConfigDir>/Balatro/Mods.
	// A leading "~/" is expanded to the home directory.
	ModsDir string `json:"mods_dir,omitempty"`

	// CaseInsensitivePaths overrides the platform default (true on Windows only)
	// for path comparison and bundled-index normalization.
	CaseInsensitivePaths *bool `json:"case_insensitive_paths,omitempty"`

	// StagedExtraction extracts archives into a hidden staging directory and
	// renames on success. Defaults to true; false leaves partial content on failure.
	StagedExtraction *bool `json:"staged_extraction,omitempty"`

	// CascadeFailFast stops a cascade uninstall at the first failed removal
	// instead of attempting every dependent.
	CascadeFailFast bool `json:"cascade_fail_fast,omitempty"`

	// ToggleWorkers bounds concurrent subdirectory updates when enabling or disabling.
	ToggleWorkers int `json:"toggle_workers,omitempty"`

	// LogLevel is a logrus level name (debug, info, warn, error).
	LogLevel string `json:"log_level,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	staged := true
	return &Config{
		StagedExtraction: &staged,
		ToggleWorkers:    DefaultToggleWorkers,
		LogLevel:         DefaultLogLevel,
	}
}

// DefaultModsDir returns <UserConfigDir>/Balatro/Mods.
func DefaultModsDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "Balatro", "Mods"), nil
}

// ModsRoot resolves the managed root to an absolute path.
func (c *Config) ModsRoot() (string, error) {
	dir := strings.TrimSpace(c.ModsDir)
	if dir == "" {
		return DefaultModsDir()
	}
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	return filepath.Abs(dir)
}

// CaseInsensitive reports whether paths compare case-insensitively.
func (c *Config) CaseInsensitive() bool {
	if c.CaseInsensitivePaths != nil {
		return *c.CaseInsensitivePaths
	}
	return pathsafe.DefaultCaseInsensitive
}

// Staged reports whether archive extraction goes through a staging directory.
func (c *Config) Staged() bool {
	return c.StagedExtraction == nil || *c.StagedExtraction
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.modman.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.modman) and local (.modman) directories.
// The local config is found by walking upward from startDir to find the nearest .modman/config.json.
// Local config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then repo
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .modman/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".modman", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.ModsDir = overlay.ModsDir
	if result.ModsDir == "" {
		result.ModsDir = base.ModsDir
	}

	result.LogLevel = overlay.LogLevel
	if result.LogLevel == "" {
		result.LogLevel = base.LogLevel
	}

	result.ToggleWorkers = overlay.ToggleWorkers
	if result.ToggleWorkers == 0 {
		result.ToggleWorkers = base.ToggleWorkers
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	// Tri-state booleans: overlay wins if set, else base
	result.CaseInsensitivePaths = mergeBoolPtr(base.CaseInsensitivePaths, overlay.CaseInsensitivePaths)
	result.StagedExtraction = mergeBoolPtr(base.StagedExtraction, overlay.StagedExtraction)

	// Booleans: overlay wins if true, else base
	result.CascadeFailFast = base.CascadeFailFast || overlay.CascadeFailFast

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func mergeBoolPtr(base, overlay *bool) *bool {
	v := overlay
	if v == nil {
		v = base
	}
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
