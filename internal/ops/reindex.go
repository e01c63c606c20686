package ops

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
)

// ReindexOutput contains the result of the Reindex operation.
type ReindexOutput struct {
	// Pruned lists tracked records dropped because their directory is gone.
	Pruned    []string  `json:"pruned"`
	Detected  int       `json:"detected"`
	Tracked   int       `json:"tracked"`
	Untracked int       `json:"untracked"`
	Failed    []Failure `json:"failed,omitempty"`
}

// Reindex drops records whose package directory has vanished and re-runs
// detection from scratch.
func Reindex(ctx context.Context, env *Env) (*ReindexOutput, error) {
	records, err := env.Store.GetTrackedMods(ctx)
	if err != nil {
		return nil, err
	}

	out := &ReindexOutput{Pruned: []string{}}
	for _, r := range records {
		if r.Path == "" {
			continue
		}
		if _, err := os.Stat(r.Path); err == nil || !os.IsNotExist(err) {
			continue
		}
		if err := env.Store.RemoveTrackedMod(ctx, r.Name); err != nil {
			out.Failed = append(out.Failed, newFailure(r.Name, err))
			continue
		}
		logrus.WithFields(logrus.Fields{"name": r.Name, "path": r.Path}).Info("pruned stale record")
		out.Pruned = append(out.Pruned, r.Name)
	}
	env.Cache.Invalidate()

	detected, err := Detect(ctx, env, DetectInput{Refresh: true})
	if err != nil {
		return nil, err
	}
	out.Detected = detected.Count
	for _, d := range detected.Mods {
		if d.IsTracked {
			out.Tracked++
		} else {
			out.Untracked++
		}
	}
	return out, nil
}
