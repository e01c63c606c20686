package ops

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/modman/internal/cascade"
	"github.com/hpungsan/modman/internal/mod"
)

// UninstallInput contains parameters for the Uninstall operation.
type UninstallInput struct {
	Name string

	// Cascade also removes every tracked mod that transitively depends on Name.
	Cascade bool

	// FailFast stops a cascade at the first failure. Nil uses the config default.
	FailFast *bool

	// DryRun reports what a cascade would remove without removing anything.
	DryRun bool
}

// UninstallOutput contains the result of the Uninstall operation.
type UninstallOutput struct {
	Removed  []string  `json:"removed"`
	Failed   []Failure `json:"failed,omitempty"`
	Complete bool      `json:"complete"`
	DryRun   bool      `json:"dry_run,omitempty"`
}

// Uninstall removes a tracked mod's directory and record, optionally with its
// dependents. Errors for the named mod itself are returned; failures of
// dependents during a cascade are reported in the output.
func Uninstall(ctx context.Context, env *Env, input UninstallInput) (*UninstallOutput, error) {
	name, err := requireName(input.Name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, err := env.Store.GetModDetails(ctx, name)
	if err != nil {
		return nil, err
	}

	if !input.Cascade {
		if input.DryRun {
			return &UninstallOutput{Removed: []string{rec.Name}, Complete: true, DryRun: true}, nil
		}
		err := removeRecord(ctx, env, rec)
		env.Cache.Invalidate()
		if err != nil {
			return nil, err
		}
		return &UninstallOutput{Removed: []string{rec.Name}, Complete: true}, nil
	}

	failFast := env.Config.CascadeFailFast
	if input.FailFast != nil {
		failFast = *input.FailFast
	}
	return CascadeUninstall(ctx, env, rec.Name, failFast, input.DryRun)
}

// CascadeUninstall removes name and every tracked mod depending on it.
//
// Dependency edges are snapshotted once before traversal; a concurrent
// install landing mid-cascade is not picked up.
func CascadeUninstall(ctx context.Context, env *Env, name string, failFast, dryRun bool) (*UninstallOutput, error) {
	edges, err := env.Store.DependencyEdges(ctx)
	if err != nil {
		return nil, err
	}
	g := cascade.NewGraph()
	g.AddNode(name)
	for _, e := range edges {
		g.AddEdge(e.Dependency, e.Dependent)
	}

	if dryRun {
		return &UninstallOutput{Removed: g.Order(name), Complete: true, DryRun: true}, nil
	}

	out := &UninstallOutput{Removed: []string{}}
	remove := func(id string) error {
		rec, err := env.Store.GetModDetails(ctx, id)
		if err == nil {
			err = removeRecord(ctx, env, rec)
		}
		if err != nil {
			out.Failed = append(out.Failed, newFailure(id, err))
		}
		return err
	}

	removed, err := cascade.Uninstall(name, g.Dependents, remove, cascade.Options{FailFast: failFast})
	env.Cache.Invalidate()
	if removed != nil {
		out.Removed = removed
	}
	out.Complete = err == nil
	if err != nil {
		logrus.WithField("mod", name).Warnf("cascade uninstall incomplete: %v", err)
	}
	return out, nil
}

// removeRecord deletes the package directory through the guard, then the record.
func removeRecord(ctx context.Context, env *Env, rec *mod.TrackedRecord) error {
	if rec.Path != "" {
		if err := env.Guard.RemoveAll(rec.Path); err != nil {
			return err
		}
	}
	if err := env.Store.RemoveTrackedMod(ctx, rec.Name); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"name": rec.Name, "path": rec.Path}).Info("uninstalled mod")
	return nil
}
