package ops

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/modman/internal/errors"
)

// ToggleInput contains parameters for the SetEnabled operation.
type ToggleInput struct {
	Name    string
	Enabled bool
}

// ToggleOutput contains the result of the SetEnabled operation.
type ToggleOutput struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Enabled bool   `json:"enabled"`
}

// SetEnabled enables or disables a mod by name. Tracked records are resolved
// first, then detected packages, so untracked mods can be toggled too.
func SetEnabled(ctx context.Context, env *Env, input ToggleInput) (*ToggleOutput, error) {
	name, err := requireName(input.Name)
	if err != nil {
		return nil, err
	}

	target, path, err := resolvePackage(ctx, env, name)
	if err != nil {
		return nil, err
	}

	err = env.Toggler.SetEnabled(ctx, path, input.Enabled)
	env.Cache.Invalidate()
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"name": target, "enabled": input.Enabled}).Info("toggled mod")
	return &ToggleOutput{Name: target, Path: path, Enabled: input.Enabled}, nil
}

// resolvePackage maps a name to a package directory.
func resolvePackage(ctx context.Context, env *Env, name string) (string, string, error) {
	rec, err := env.Store.GetModDetails(ctx, name)
	if err == nil && rec.Path != "" {
		return rec.Name, rec.Path, nil
	}
	if err != nil && !errors.Is(err, errors.ErrTrackedRecordNotFound) {
		return "", "", err
	}

	detected, err := Detect(ctx, env, DetectInput{})
	if err != nil {
		return "", "", err
	}
	if d, ok := findDescriptor(detected.Mods, name); ok {
		return d.Name, d.Path, nil
	}
	return "", "", errors.NewTrackedRecordNotFound(name)
}
