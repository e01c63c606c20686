package ops

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/modman/internal/mod"
)

// TrackInput contains parameters for the Track operation.
type TrackInput struct {
	// Names limits tracking to these packages. Empty tracks every untracked one.
	Names []string
}

// TrackOutput contains the result of the Track operation.
type TrackOutput struct {
	Tracked  []string  `json:"tracked"`
	NotFound []string  `json:"not_found,omitempty"`
	Failed   []Failure `json:"failed,omitempty"`
}

// Track adopts detected untracked packages into the store, typically mods
// copied into the root by hand.
func Track(ctx context.Context, env *Env, input TrackInput) (*TrackOutput, error) {
	detected, err := Untracked(ctx, env, DetectInput{Refresh: true})
	if err != nil {
		return nil, err
	}

	var targets []mod.Descriptor
	out := &TrackOutput{Tracked: []string{}}
	if len(input.Names) == 0 {
		targets = detected.Mods
	} else {
		for _, name := range mod.UniqueStrings(input.Names) {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			d, ok := findDescriptor(detected.Mods, name)
			if !ok {
				out.NotFound = append(out.NotFound, name)
				continue
			}
			targets = append(targets, d)
		}
	}

	for _, d := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := &mod.TrackedRecord{
			Name:         d.Name,
			ModID:        d.ID,
			Path:         d.Path,
			Dependencies: d.Dependencies,
			Version:      d.Version,
		}
		if err := env.Store.AddTrackedMod(ctx, rec); err != nil {
			out.Failed = append(out.Failed, newFailure(d.Name, err))
			continue
		}
		out.Tracked = append(out.Tracked, d.Name)
	}
	env.Cache.Invalidate()

	if len(out.Tracked) > 0 {
		logrus.Infof("tracked %d mods", len(out.Tracked))
	}
	return out, nil
}
