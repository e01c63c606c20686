package toggle

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/hpungsan/modman/internal/errors"
	"github.com/hpungsan/modman/internal/pathsafe"
)

func setup(t *testing.T, subdirs ...string) (*Toggler, string, string) {
	t.Helper()
	root := t.TempDir()
	pkg := filepath.Join(root, "Pkg")
	for _, d := range append([]string{""}, subdirs...) {
		if err := os.MkdirAll(filepath.Join(pkg, d), 0755); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}
	}
	return New(&pathsafe.Guard{Root: root}, 2), root, pkg
}

func TestSetEnabled_RoundTrip(t *testing.T) {
	tg, _, pkg := setup(t, "Mods", "assets", "lib")
	ctx := context.Background()

	if err := tg.SetEnabled(ctx, pkg, false); err != nil {
		t.Fatalf("disable error = %v", err)
	}
	for _, d := range []string{"", "Mods", "assets", "lib"} {
		if IsEnabled(filepath.Join(pkg, d)) {
			t.Errorf("%q still enabled after disable", d)
		}
	}

	if err := tg.SetEnabled(ctx, pkg, true); err != nil {
		t.Fatalf("enable error = %v", err)
	}
	for _, d := range []string{"", "Mods", "assets", "lib"} {
		if !IsEnabled(filepath.Join(pkg, d)) {
			t.Errorf("%q still disabled after enable", d)
		}
	}
}

func TestSetEnabled_EnableIsIdempotent(t *testing.T) {
	tg, _, pkg := setup(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := tg.SetEnabled(ctx, pkg, true); err != nil {
			t.Fatalf("enable #%d error = %v", i, err)
		}
	}
	if !IsEnabled(pkg) {
		t.Error("IsEnabled() = false after enable")
	}
}

func TestSetEnabled_OnlyOneLevelDeep(t *testing.T) {
	tg, _, pkg := setup(t, "Mods/Inner")

	if err := tg.SetEnabled(context.Background(), pkg, false); err != nil {
		t.Fatalf("disable error = %v", err)
	}
	if IsEnabled(filepath.Join(pkg, "Mods")) {
		t.Error("immediate subdirectory not disabled")
	}
	if !IsEnabled(filepath.Join(pkg, "Mods", "Inner")) {
		t.Error("grandchild was disabled")
	}
}

func TestSetEnabled_SentinelIsEmpty(t *testing.T) {
	tg, _, pkg := setup(t)
	if err := tg.SetEnabled(context.Background(), pkg, false); err != nil {
		t.Fatalf("disable error = %v", err)
	}
	info, err := os.Stat(filepath.Join(pkg, SentinelName))
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("sentinel size = %d, want 0", info.Size())
	}
}

func TestSetEnabled_OutsideRoot(t *testing.T) {
	tg, _, _ := setup(t)
	outside := t.TempDir()

	err := tg.SetEnabled(context.Background(), outside, false)
	if !errors.Is(err, errors.ErrPathOutsideManagedRoot) {
		t.Errorf("error = %v, want PATH_OUTSIDE_MANAGED_ROOT", err)
	}
	if !IsEnabled(outside) {
		t.Error("sentinel written outside root")
	}
}

func TestSetEnabled_RefusesRoot(t *testing.T) {
	tg, root, pkg := setup(t)

	err := tg.SetEnabled(context.Background(), root, false)
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}
	if !IsEnabled(root) {
		t.Error("sentinel written into the root")
	}
	if !IsEnabled(pkg) {
		t.Error("top-level package disabled through the root")
	}
}

func TestSetEnabled_MissingDirectory(t *testing.T) {
	tg, root, _ := setup(t)
	err := tg.SetEnabled(context.Background(), filepath.Join(root, "Nope"), false)
	if !errors.Is(err, errors.ErrDirectoryReadFailed) {
		t.Errorf("error = %v, want DIRECTORY_READ_FAILED", err)
	}
}

func TestSetEnabled_FailureDoesNotStopSiblings(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	tg, _, pkg := setup(t, "a", "locked", "z")
	locked := filepath.Join(pkg, "locked")
	if err := os.Chmod(locked, 0555); err != nil {
		t.Fatalf("Chmod() error = %v", err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	if err := tg.SetEnabled(context.Background(), pkg, false); err == nil {
		t.Fatal("expected error from read-only subdirectory")
	}
	for _, d := range []string{"", "a", "z"} {
		if IsEnabled(filepath.Join(pkg, d)) {
			t.Errorf("%q not disabled despite sibling failure", d)
		}
	}
}

func TestSetEnabled_CancelledContext(t *testing.T) {
	tg, _, pkg := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := tg.SetEnabled(ctx, pkg, false); err == nil {
		t.Error("expected context error")
	}
	if !IsEnabled(pkg) {
		t.Error("cancelled call still wrote a sentinel")
	}
}

func TestNew_DefaultWorkers(t *testing.T) {
	if tg := New(nil, 0); tg.Workers != DefaultWorkers {
		t.Errorf("Workers = %d, want %d", tg.Workers, DefaultWorkers)
	}
}
