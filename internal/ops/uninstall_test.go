package ops

import (
	"context"
	"os"
	"testing"

	"github.com/hpungsan/modman/internal/errors"
)

func TestUninstall_Single(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()
	out := installMod(t, env, "Alpha")

	res, err := Uninstall(ctx, env, UninstallInput{Name: "alpha"})
	if err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}
	if len(res.Removed) != 1 || res.Removed[0] != "Alpha" || !res.Complete {
		t.Errorf("Uninstall() = %+v", res)
	}
	if _, err := os.Stat(out.Path); !os.IsNotExist(err) {
		t.Errorf("package dir still exists: %v", err)
	}
	if _, err := env.Store.GetModDetails(ctx, "Alpha"); !errors.Is(err, errors.ErrTrackedRecordNotFound) {
		t.Errorf("GetModDetails() error = %v, want not found", err)
	}
}

func TestUninstall_NotFound(t *testing.T) {
	env, _ := newTestEnv(t)

	_, err := Uninstall(context.Background(), env, UninstallInput{Name: "Ghost"})
	if !errors.Is(err, errors.ErrTrackedRecordNotFound) {
		t.Errorf("Uninstall() error = %v, want TRACKED_RECORD_NOT_FOUND", err)
	}
	_, err = Uninstall(context.Background(), env, UninstallInput{Name: "  "})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("Uninstall() error = %v, want INVALID_REQUEST", err)
	}
}

func TestUninstall_CascadeDryRun(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()
	installMod(t, env, "Alpha")
	beta := installMod(t, env, "Beta", "Alpha")

	res, err := Uninstall(ctx, env, UninstallInput{Name: "Alpha", Cascade: true, DryRun: true})
	if err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}
	if !res.DryRun || len(res.Removed) != 2 {
		t.Errorf("Uninstall(dry run) = %+v, want 2 planned removals", res)
	}
	if _, err := os.Stat(beta.Path); err != nil {
		t.Errorf("dry run touched %s: %v", beta.Path, err)
	}
}
