package db

import (
	"context"
	"database/sql"
	"slices"
	"testing"

	"github.com/hpungsan/modman/internal/errors"
	"github.com/hpungsan/modman/internal/mod"
)

func stringPtr(s string) *string {
	return &s
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func addMod(t *testing.T, db *sql.DB, name string, deps ...string) *mod.TrackedRecord {
	t.Helper()
	rec := &mod.TrackedRecord{Name: name, Path: "/mods/" + name, Dependencies: deps}
	if err := AddTrackedMod(context.Background(), db, rec); err != nil {
		t.Fatalf("AddTrackedMod(%s) error = %v", name, err)
	}
	return rec
}

func TestAddAndGetTrackedMods(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rec := &mod.TrackedRecord{
		Name:         "Talisman",
		ModID:        "Talisman",
		Path:         "/mods/Talisman",
		Dependencies: []string{"Steamodded (>=1.0.0)"},
		Version:      stringPtr("2.0.2"),
		Checksum:     "abc123",
	}
	if err := AddTrackedMod(ctx, db, rec); err != nil {
		t.Fatalf("AddTrackedMod() error = %v", err)
	}
	if rec.ID == "" || rec.InstalledAt == 0 {
		t.Errorf("ID/InstalledAt not assigned: %+v", rec)
	}

	records, err := GetTrackedMods(ctx, db)
	if err != nil {
		t.Fatalf("GetTrackedMods() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len = %d, want 1", len(records))
	}
	got := records[0]
	if got.Name != "Talisman" || got.Path != "/mods/Talisman" || got.Checksum != "abc123" || got.ModID != "Talisman" {
		t.Errorf("record = %+v", got)
	}
	if got.Version == nil || *got.Version != "2.0.2" {
		t.Errorf("Version = %v", got.Version)
	}
	if !slices.Equal(got.Dependencies, []string{"Steamodded (>=1.0.0)"}) {
		t.Errorf("Dependencies = %v", got.Dependencies)
	}
}

func TestAddTrackedMod_UpsertByName(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first := addMod(t, db, "Cryptid", "Talisman")
	second := &mod.TrackedRecord{Name: "cryptid", Path: "/mods/Cryptid-v2", Dependencies: []string{"Steamodded"}}
	if err := AddTrackedMod(ctx, db, second); err != nil {
		t.Fatalf("AddTrackedMod() error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert assigned new ID %q, want %q", second.ID, first.ID)
	}

	records, err := GetTrackedMods(ctx, db)
	if err != nil {
		t.Fatalf("GetTrackedMods() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len = %d, want 1", len(records))
	}
	if records[0].Path != "/mods/Cryptid-v2" || !slices.Equal(records[0].Dependencies, []string{"Steamodded"}) {
		t.Errorf("record = %+v", records[0])
	}
	if records[0].Version != nil {
		t.Errorf("Version = %v, want nil", *records[0].Version)
	}
}

func TestAddTrackedMod_EmptyName(t *testing.T) {
	db := openTestDB(t)
	err := AddTrackedMod(context.Background(), db, &mod.TrackedRecord{Name: "  "})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}
}

func TestGetModDetails(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rec := &mod.TrackedRecord{Name: "Joker Display", ModID: "JokerDisplay", Path: "/mods/JokerDisplay", Dependencies: []string{"Steamodded"}}
	if err := AddTrackedMod(ctx, db, rec); err != nil {
		t.Fatalf("AddTrackedMod() error = %v", err)
	}

	for _, query := range []string{"Joker Display", "joker  display", "jokerdisplay"} {
		got, err := GetModDetails(ctx, db, query)
		if err != nil {
			t.Errorf("GetModDetails(%q) error = %v", query, err)
			continue
		}
		if got.ID != rec.ID || !slices.Equal(got.Dependencies, []string{"Steamodded"}) {
			t.Errorf("GetModDetails(%q) = %+v", query, got)
		}
	}
}

func TestGetModDetails_NotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := GetModDetails(context.Background(), db, "missing")
	if !errors.Is(err, errors.ErrTrackedRecordNotFound) {
		t.Errorf("error = %v, want TRACKED_RECORD_NOT_FOUND", err)
	}
}

func TestRemoveTrackedMod(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	addMod(t, db, "A")
	addMod(t, db, "B", "A")

	if err := RemoveTrackedMod(ctx, db, "a"); err != nil {
		t.Fatalf("RemoveTrackedMod() error = %v", err)
	}
	records, err := GetTrackedMods(ctx, db)
	if err != nil {
		t.Fatalf("GetTrackedMods() error = %v", err)
	}
	if len(records) != 1 || records[0].Name != "B" {
		t.Errorf("records = %+v, want only B", records)
	}

	if err := RemoveTrackedMod(ctx, db, "A"); !errors.Is(err, errors.ErrTrackedRecordNotFound) {
		t.Errorf("second remove error = %v, want TRACKED_RECORD_NOT_FOUND", err)
	}
}

func TestRemoveTrackedMod_DropsDependencyRows(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	addMod(t, db, "B", "A", "C")

	if err := RemoveTrackedMod(ctx, db, "B"); err != nil {
		t.Fatalf("RemoveTrackedMod() error = %v", err)
	}
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM mod_dependencies").Scan(&n); err != nil {
		t.Fatalf("count error = %v", err)
	}
	if n != 0 {
		t.Errorf("mod_dependencies rows = %d, want 0", n)
	}
}

func TestGetDependents(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	talisman := &mod.TrackedRecord{Name: "Talisman Mod", ModID: "Talisman", Path: "/mods/Talisman"}
	if err := AddTrackedMod(ctx, db, talisman); err != nil {
		t.Fatalf("AddTrackedMod() error = %v", err)
	}
	addMod(t, db, "Cryptid", "Talisman (>=2.0)")
	addMod(t, db, "Other", "talismanmod")
	addMod(t, db, "Unrelated", "Steamodded")

	deps, err := GetDependents(ctx, db, "Talisman Mod")
	if err != nil {
		t.Fatalf("GetDependents() error = %v", err)
	}
	if !slices.Equal(deps, []string{"Cryptid", "Other"}) {
		t.Errorf("GetDependents() = %v, want [Cryptid Other]", deps)
	}

	untracked, err := GetDependents(ctx, db, "Steamodded")
	if err != nil {
		t.Fatalf("GetDependents(untracked) error = %v", err)
	}
	if !slices.Equal(untracked, []string{"Unrelated"}) {
		t.Errorf("GetDependents(Steamodded) = %v, want [Unrelated]", untracked)
	}
}

func TestGetDependents_IgnoresSelfReference(t *testing.T) {
	db := openTestDB(t)
	addMod(t, db, "Loop", "Loop")

	deps, err := GetDependents(context.Background(), db, "Loop")
	if err != nil {
		t.Fatalf("GetDependents() error = %v", err)
	}
	if len(deps) != 0 {
		t.Errorf("GetDependents() = %v, want none", deps)
	}
}

func TestDependencyEdges(t *testing.T) {
	db := openTestDB(t)
	addMod(t, db, "A")
	addMod(t, db, "B", "A")
	addMod(t, db, "C", "B", "Untracked")

	edges, err := DependencyEdges(context.Background(), db)
	if err != nil {
		t.Fatalf("DependencyEdges() error = %v", err)
	}
	want := []Edge{{Dependency: "A", Dependent: "B"}, {Dependency: "B", Dependent: "C"}}
	if !slices.Equal(edges, want) {
		t.Errorf("DependencyEdges() = %v, want %v", edges, want)
	}
}
