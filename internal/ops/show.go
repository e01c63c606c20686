package ops

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/modman/internal/errors"
	"github.com/hpungsan/modman/internal/mod"
	"github.com/hpungsan/modman/internal/reconcile"
)

// maxReadmeBytes caps the README returned by Show.
const maxReadmeBytes = 256 << 10

// ShowOutput contains one mod's full details.
type ShowOutput struct {
	Descriptor mod.Descriptor     `json:"descriptor"`
	Record     *mod.TrackedRecord `json:"record,omitempty"`
	Dependents []string           `json:"dependents"`
	Readme     string             `json:"readme,omitempty"`
}

// Show returns a detected mod with its tracked record, dependents and README.
func Show(ctx context.Context, env *Env, name string) (*ShowOutput, error) {
	name, err := requireName(name)
	if err != nil {
		return nil, err
	}

	detected, err := Detect(ctx, env, DetectInput{})
	if err != nil {
		return nil, err
	}
	d, ok := findDescriptor(detected.Mods, name)
	if !ok {
		return nil, errors.NewTrackedRecordNotFound(name)
	}

	out := &ShowOutput{Descriptor: d, Dependents: []string{}}
	if d.IsTracked {
		records, err := env.Store.GetTrackedMods(ctx)
		if err != nil {
			return nil, err
		}
		if rec, ok := reconcile.Match(d, records, env.Guard.CaseInsensitive); ok {
			out.Record = &rec
			deps, err := env.Store.GetDependents(ctx, rec.Name)
			if err != nil {
				return nil, err
			}
			out.Dependents = deps
		}
	}
	out.Readme = readReadme(d.Path)
	return out, nil
}

// readReadme returns the first README.md-like file in dir, or "".
func readReadme(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(e.Name(), "README.md") {
			continue
		}
		f, err := os.Open(filepath.Join(dir, e.Name()))
		if err != nil {
			return ""
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxReadmeBytes))
		if err != nil {
			return ""
		}
		return string(data)
	}
	return ""
}
