package ops

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hpungsan/modman/internal/mod"
)

func TestDetect_MissingRoot(t *testing.T) {
	env, _ := newTestEnv(t)

	out, err := Detect(context.Background(), env, DetectInput{})
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if out.Count != 0 || out.Mods == nil {
		t.Errorf("Mods = %v, want empty non-nil list", out.Mods)
	}
}

func TestDetect_SkipsBundledAndReserved(t *testing.T) {
	env, root := newTestEnv(t)
	writeJSONMod(t, root, "Pack", modJSON("Pack"))
	writeJSONMod(t, filepath.Join(root, "Pack", "Mods"), "Inner", modJSON("Inner"))
	writeJSONMod(t, root, "Framework", `{"id": "Balatro", "name": "Framework"}`)
	writeJSONMod(t, root, "Plain", modJSON("Plain"))

	out, err := Detect(context.Background(), env, DetectInput{})
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	got := names(out.Mods)
	if !got["Pack"] || !got["Plain"] {
		t.Errorf("Mods = %v, want Pack and Plain", got)
	}
	if got["Inner"] {
		t.Error("bundled package Inner surfaced on its own")
	}
	if got["Framework"] {
		t.Error("package with reserved id Balatro was not discarded")
	}
	for _, d := range out.Mods {
		if d.IsTracked {
			t.Errorf("%s IsTracked = true, want false", d.Name)
		}
		if !d.Enabled {
			t.Errorf("%s Enabled = false, want true", d.Name)
		}
	}
}

func TestDetect_BundledExcludedWhenParentUnparseable(t *testing.T) {
	env, root := newTestEnv(t)
	// Pack has no descriptor of its own, only a bundled dependency
	writeJSONMod(t, filepath.Join(root, "Pack", "Mods"), "Inner", modJSON("Inner"))
	writeFile(t, filepath.Join(root, "Pack", "notes.txt"), "not a descriptor")
	writeJSONMod(t, root, "Plain", modJSON("Plain"))

	out, err := Detect(context.Background(), env, DetectInput{})
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	got := names(out.Mods)
	if got["Inner"] {
		t.Error("bundled package Inner surfaced although its parent has no descriptor")
	}
	if len(got) != 1 || !got["Plain"] {
		t.Errorf("Mods = %v, want only Plain", got)
	}
}

func TestDetect_SkipsContentNestedInPackage(t *testing.T) {
	env, root := newTestEnv(t)
	writeJSONMod(t, root, "Pack", modJSON("Pack"))
	// a descriptor-shaped file below a detected package, outside Mods/
	writeJSONMod(t, filepath.Join(root, "Pack"), "assets", modJSON("Assets"))

	out, err := Detect(context.Background(), env, DetectInput{})
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	got := names(out.Mods)
	if len(got) != 1 || !got["Pack"] {
		t.Errorf("Mods = %v, want only Pack", got)
	}
}

func TestDetect_CacheInvalidatedByStoreChange(t *testing.T) {
	env, root := newTestEnv(t)
	ctx := context.Background()
	writeJSONMod(t, root, "Plain", modJSON("Plain"))

	if _, err := Detect(ctx, env, DetectInput{}); err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	out, err := Detect(ctx, env, DetectInput{})
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if !out.Cached {
		t.Error("second Detect() Cached = false, want true")
	}

	// a record written behind the cache's back changes the fingerprint
	if err := env.Store.AddTrackedMod(ctx, &mod.TrackedRecord{Name: "Plain", Path: filepath.Join(root, "Plain")}); err != nil {
		t.Fatalf("AddTrackedMod() error = %v", err)
	}
	out, err = Detect(ctx, env, DetectInput{})
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if out.Cached {
		t.Error("Detect() served a stale cache entry")
	}
	if !out.Mods[0].IsTracked {
		t.Error("Plain IsTracked = false after tracking")
	}
}
