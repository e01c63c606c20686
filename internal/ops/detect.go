package ops

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/modman/internal/archive"
	"github.com/hpungsan/modman/internal/descriptor"
	"github.com/hpungsan/modman/internal/errors"
	"github.com/hpungsan/modman/internal/mod"
	"github.com/hpungsan/modman/internal/pathsafe"
	"github.com/hpungsan/modman/internal/reconcile"
	"github.com/hpungsan/modman/internal/scan"
	"github.com/hpungsan/modman/internal/toggle"
)

// DetectInput contains parameters for the Detect operation.
type DetectInput struct {
	// Refresh bypasses the detection cache.
	Refresh bool
}

// DetectOutput contains the result of the Detect operation.
type DetectOutput struct {
	Root   string           `json:"root"`
	Mods   []mod.Descriptor `json:"mods"`
	Count  int              `json:"count"`
	Cached bool             `json:"cached"`
}

// Detect lists the mod packages under the managed root, marked tracked or
// untracked against the store.
//
// The bundled index is built first so nested packages never surface on their
// own. Parse failures are logged and the candidate skipped.
func Detect(ctx context.Context, env *Env, input DetectInput) (*DetectOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := env.Store.GetTrackedMods(ctx)
	if err != nil {
		return nil, err
	}
	key := Fingerprint(records)

	if !input.Refresh {
		if mods, ok := env.Cache.Get(key); ok {
			return &DetectOutput{Root: env.Root(), Mods: mods, Count: len(mods), Cached: true}, nil
		}
	}

	found, err := detectPackages(ctx, env)
	if err != nil {
		return nil, err
	}
	mods := reconcile.Reconcile(found, records, env.Guard.CaseInsensitive)
	env.Cache.Put(key, mods)

	return &DetectOutput{Root: env.Root(), Mods: mods, Count: len(mods)}, nil
}

func detectPackages(ctx context.Context, env *Env) ([]mod.Descriptor, error) {
	root := env.Root()
	ci := env.Guard.CaseInsensitive
	log := logrus.WithField("root", root)

	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			log.Debug("mods directory does not exist yet")
			return []mod.Descriptor{}, nil
		}
		return nil, errors.NewDirectoryReadFailed(root, err)
	}

	bundled, err := scan.BuildBundled(root, ci)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	candidates, err := scan.NewScanner(root).Scan()
	if err != nil {
		return nil, err
	}

	found := []mod.Descriptor{}
	var packageDirs []string
	for _, c := range candidates {
		if bundled.Contains(c.Path) {
			log.WithField("path", c.Path).Debug("skipping bundled package")
			continue
		}
		if archive.IsStagingDir(filepath.Base(c.Path)) {
			continue
		}
		norm := pathsafe.NormalizePath(c.Path, ci)
		if insideAny(norm, packageDirs) {
			continue
		}

		d, ok := descriptor.Parse(c.Path)
		if !ok {
			continue
		}
		if !env.Guard.Contains(d.Path) {
			log.WithField("path", d.Path).Warn("skipping package outside the managed root")
			continue
		}
		d.Enabled = toggle.IsEnabled(d.Path)
		found = append(found, *d)
		packageDirs = append(packageDirs, norm)
	}

	log.Debugf("detected %d packages (%d bundled)", len(found), bundled.Len())
	return found, nil
}

// insideAny reports whether path is strictly below one of dirs. Candidates
// arrive breadth-first, so a package is always seen before its contents.
func insideAny(path string, dirs []string) bool {
	for _, d := range dirs {
		if strings.HasPrefix(path, d+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Untracked returns the detected packages that have no tracked record.
func Untracked(ctx context.Context, env *Env, input DetectInput) (*DetectOutput, error) {
	out, err := Detect(ctx, env, input)
	if err != nil {
		return nil, err
	}
	mods := []mod.Descriptor{}
	for _, d := range out.Mods {
		if !d.IsTracked {
			mods = append(mods, d)
		}
	}
	out.Mods = mods
	out.Count = len(mods)
	return out, nil
}
