package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/hpungsan/modman/internal/config"
	"github.com/hpungsan/modman/internal/db"
	"github.com/hpungsan/modman/internal/mod"
	"github.com/hpungsan/modman/internal/ops"
)

// setupTestEnv creates a temporary database and mods root for testing.
func setupTestEnv(t *testing.T) (*ops.Env, string) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	store := db.NewStore(database)
	t.Cleanup(func() { store.Close() })

	root := filepath.Join(t.TempDir(), "Mods")
	cfg := config.DefaultConfig()
	cfg.ModsDir = root

	env, err := ops.NewEnv(cfg, store)
	if err != nil {
		t.Fatalf("failed to build env: %v", err)
	}
	return env, root
}

// runCLI runs the CLI with args and returns what it wrote.
func runCLI(t *testing.T, env *ops.Env, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	defer func() { stdout = old }()

	err := newCLIApp(env).Run(append([]string{"modman"}, args...))
	return buf.String(), err
}

// writeArchive writes a zip holding <id>/<id>.json and returns its path.
func writeArchive(t *testing.T, id string, deps ...string) string {
	t.Helper()
	depJSON, _ := json.Marshal(append([]string{}, deps...))

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(id + "/" + id + ".json")
	if err != nil {
		t.Fatalf("zip Create: %v", err)
	}
	if _, err := w.Write([]byte(`{"id": "` + id + `", "name": "` + id + `", "version": "2.0", "dependencies": ` + string(depJSON) + `}`)); err != nil {
		t.Fatalf("zip Write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close: %v", err)
	}

	path := filepath.Join(t.TempDir(), id+".zip")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

// TestCLIInstallAndList tests install followed by list.
func TestCLIInstallAndList(t *testing.T) {
	env, root := setupTestEnv(t)

	out, err := runCLI(t, env, "install", writeArchive(t, "Alpha"))
	if err != nil {
		t.Fatalf("install command failed: %v", err)
	}
	var installed ops.InstallOutput
	if err := json.Unmarshal([]byte(out), &installed); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if installed.Path != filepath.Join(root, "Alpha") || installed.Format != "zip" {
		t.Errorf("unexpected install output: %+v", installed)
	}

	out, err = runCLI(t, env, "list")
	if err != nil {
		t.Fatalf("list command failed: %v", err)
	}
	var listed ops.DetectOutput
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if listed.Count != 1 || !listed.Mods[0].IsTracked {
		t.Errorf("expected one tracked mod, got %+v", listed)
	}

	out, err = runCLI(t, env, "list", "--table")
	if err != nil {
		t.Fatalf("list --table failed: %v", err)
	}
	if !strings.Contains(out, "Alpha") || !strings.Contains(out, "2.0") {
		t.Errorf("table output missing mod row: %s", out)
	}
}

// TestCLIInstallFromStdin tests "install -" with a piped archive.
func TestCLIInstallFromStdin(t *testing.T) {
	env, root := setupTestEnv(t)
	data, err := os.ReadFile(writeArchive(t, "Piped"))
	if err != nil {
		t.Fatal(err)
	}

	oldStdin := os.Stdin
	r, w, _ := os.Pipe()
	os.Stdin = r
	defer func() { os.Stdin = oldStdin }()
	go func() {
		_, _ = w.Write(data)
		w.Close()
	}()

	if _, err := runCLI(t, env, "install", "--source=Piped.zip", "-"); err != nil {
		t.Fatalf("install - failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "Piped", "Piped.json")); err != nil {
		t.Errorf("piped archive not installed: %v", err)
	}
}

// TestCLIUninstallCascade tests uninstall with --cascade and --dry-run.
func TestCLIUninstallCascade(t *testing.T) {
	env, root := setupTestEnv(t)
	for _, a := range [][]string{{"Alpha"}, {"Beta", "Alpha"}} {
		if _, err := runCLI(t, env, "install", writeArchive(t, a[0], a[1:]...)); err != nil {
			t.Fatalf("install %s failed: %v", a[0], err)
		}
	}

	out, err := runCLI(t, env, "uninstall", "--cascade", "--dry-run", "Alpha")
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	var planned ops.UninstallOutput
	if err := json.Unmarshal([]byte(out), &planned); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if len(planned.Removed) != 2 || !planned.DryRun {
		t.Errorf("dry run = %+v, want two planned removals", planned)
	}

	if _, err := runCLI(t, env, "uninstall", "--cascade", "Alpha"); err != nil {
		t.Fatalf("uninstall failed: %v", err)
	}
	for _, name := range []string{"Alpha", "Beta"} {
		if _, err := os.Stat(filepath.Join(root, name)); !os.IsNotExist(err) {
			t.Errorf("%s still installed", name)
		}
	}
}

// TestCLIEnableDisable tests the toggle commands.
func TestCLIEnableDisable(t *testing.T) {
	env, root := setupTestEnv(t)
	if _, err := runCLI(t, env, "install", writeArchive(t, "Alpha")); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	sentinel := filepath.Join(root, "Alpha", ".lovelyignore")

	if _, err := runCLI(t, env, "disable", "alpha"); err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	if _, err := os.Stat(sentinel); err != nil {
		t.Errorf("sentinel missing after disable: %v", err)
	}

	if _, err := runCLI(t, env, "enable", "Alpha"); err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	if _, err := os.Stat(sentinel); !os.IsNotExist(err) {
		t.Errorf("sentinel still present after enable")
	}
}

// TestCLITrackAndReindex tests track and reindex.
func TestCLITrackAndReindex(t *testing.T) {
	env, root := setupTestEnv(t)
	dir := filepath.Join(root, "Manual")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Manual.json"), []byte(`{"id": "Manual", "name": "Manual"}`), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, env, "untracked")
	if err != nil {
		t.Fatalf("untracked failed: %v", err)
	}
	if !strings.Contains(out, `"Manual"`) {
		t.Errorf("untracked output missing Manual: %s", out)
	}

	out, err = runCLI(t, env, "track")
	if err != nil {
		t.Fatalf("track failed: %v", err)
	}
	var tracked ops.TrackOutput
	if err := json.Unmarshal([]byte(out), &tracked); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if len(tracked.Tracked) != 1 || tracked.Tracked[0] != "Manual" {
		t.Errorf("tracked = %v, want [Manual]", tracked.Tracked)
	}

	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	out, err = runCLI(t, env, "reindex")
	if err != nil {
		t.Fatalf("reindex failed: %v", err)
	}
	var reindexed ops.ReindexOutput
	if err := json.Unmarshal([]byte(out), &reindexed); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if len(reindexed.Pruned) != 1 {
		t.Errorf("pruned = %v, want [Manual]", reindexed.Pruned)
	}
}

// TestCLIErrorHandling tests error handling in CLI commands.
func TestCLIErrorHandling(t *testing.T) {
	env, _ := setupTestEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"install without archive", []string{"install"}},
		{"install missing file", []string{"install", filepath.Join(t.TempDir(), "nope.zip")}},
		{"uninstall not found", []string{"uninstall", "Ghost"}},
		{"enable not found", []string{"enable", "Ghost"}},
		{"show without name", []string{"show"}},
		{"serve bad port", []string{"serve", "--port=0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCLI(t, env, tt.args...); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

// TestOutputTable tests the coloured table renderer.
func TestOutputTable(t *testing.T) {
	version := "1.2.3"
	mods := []mod.Descriptor{
		{Name: "Alpha", ID: "alpha", Version: &version, IsTracked: true, Enabled: true},
		{Name: "Beta", ID: "beta"},
	}

	var buf bytes.Buffer
	if err := outputTable(&buf, mods); err != nil {
		t.Fatalf("outputTable() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"NAME", "Alpha", "1.2.3", "enabled", "Beta", "disabled"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := outputTable(&buf, nil); err != nil {
		t.Fatalf("outputTable(nil) error = %v", err)
	}
	if !strings.Contains(buf.String(), "no mods found") {
		t.Errorf("empty table output = %q", buf.String())
	}
}

// TestIsCLIMode tests the isCLIMode function.
func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{"no args", []string{"modman"}, false},
		{"list command", []string{"modman", "list"}, true},
		{"uninstall command", []string{"modman", "uninstall"}, true},
		{"serve command", []string{"modman", "serve"}, true},
		{"verbose flag", []string{"modman", "--verbose", "list"}, true},
		{"help flag", []string{"modman", "--help"}, true},
		{"version flag", []string{"modman", "--version"}, true},
		{"short help flag", []string{"modman", "-h"}, true},
		{"short version flag", []string{"modman", "-v"}, true},
		{"unknown arg defaults to MCP", []string{"modman", "--unknown"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if result := isCLIMode(); result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

// TestIsHelpOrVersion tests the isHelpOrVersion function.
func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{"no args", []string{"modman"}, false},
		{"help flag", []string{"modman", "--help"}, true},
		{"short help flag", []string{"modman", "-h"}, true},
		{"version flag", []string{"modman", "--version"}, true},
		{"short version flag", []string{"modman", "-v"}, true},
		{"help subcommand", []string{"modman", "help"}, true},
		{"list command is not help", []string{"modman", "list"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if result := isHelpOrVersion(); result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

// TestReadStdinWithLimit tests the readStdin function respects size limits.
func TestReadStdinWithLimit(t *testing.T) {
	tests := []struct {
		name    string
		content string
		limit   int64
		wantErr bool
	}{
		{"within limit", "small content", 1000, false},
		{"exactly at limit", strings.Repeat("x", 50), 50, false},
		{"exceeds limit", strings.Repeat("x", 100), 50, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, w, err := os.Pipe()
			if err != nil {
				t.Fatalf("Failed to create pipe: %v", err)
			}
			go func() {
				_, _ = w.WriteString(tt.content)
				w.Close()
			}()

			oldStdin := os.Stdin
			os.Stdin = r
			defer func() { os.Stdin = oldStdin }()

			result, err := readStdin(tt.limit)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error for content exceeding limit, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if string(result) != tt.content {
				t.Errorf("expected %q, got %q", tt.content, result)
			}
		})
	}
}
