package ops

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hpungsan/modman/internal/archive"
	"github.com/hpungsan/modman/internal/config"
	"github.com/hpungsan/modman/internal/db"
	"github.com/hpungsan/modman/internal/errors"
	"github.com/hpungsan/modman/internal/mod"
	"github.com/hpungsan/modman/internal/pathsafe"
	"github.com/hpungsan/modman/internal/toggle"
)

// TrackingStore is the persisted-store collaborator. The core never touches
// storage except through it; *db.Store is the production implementation.
type TrackingStore interface {
	GetTrackedMods(ctx context.Context) ([]mod.TrackedRecord, error)
	AddTrackedMod(ctx context.Context, rec *mod.TrackedRecord) error
	RemoveTrackedMod(ctx context.Context, name string) error
	GetDependents(ctx context.Context, name string) ([]string, error)
	GetModDetails(ctx context.Context, name string) (*mod.TrackedRecord, error)
	DependencyEdges(ctx context.Context) ([]db.Edge, error)
}

// Env bundles what every operation needs.
type Env struct {
	Config    *config.Config
	Guard     *pathsafe.Guard
	Store     TrackingStore
	Cache     *DetectionCache
	Installer *archive.Installer
	Toggler   *toggle.Toggler
}

// NewEnv resolves the managed root from cfg and wires the core components.
func NewEnv(cfg *config.Config, store TrackingStore) (*Env, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	root, err := cfg.ModsRoot()
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("resolve mods directory: %w", err))
	}
	guard := &pathsafe.Guard{Root: filepath.Clean(root), CaseInsensitive: cfg.CaseInsensitive()}

	return &Env{
		Config:    cfg,
		Guard:     guard,
		Store:     store,
		Cache:     NewDetectionCache(),
		Installer: &archive.Installer{Guard: guard, Staged: cfg.Staged()},
		Toggler:   toggle.New(guard, cfg.ToggleWorkers),
	}, nil
}

// Root returns the managed mods root.
func (e *Env) Root() string {
	return e.Guard.Root
}

// Failure reports one failed item of a batch operation.
type Failure struct {
	Name  string           `json:"name"`
	Code  errors.ErrorCode `json:"code"`
	Error string           `json:"error"`
}

func newFailure(name string, err error) Failure {
	f := Failure{Name: name, Code: errors.ErrInternal, Error: err.Error()}
	var mErr *errors.ModError
	if stderrors.As(err, &mErr) {
		f.Code = mErr.Code
		f.Error = mErr.Message
	}
	return f
}

// requireName trims and validates a mod name argument.
func requireName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.NewInvalidRequest("name is required")
	}
	return name, nil
}

// findDescriptor returns the detected package whose name, id or directory
// name equals name, ignoring case.
func findDescriptor(mods []mod.Descriptor, name string) (mod.Descriptor, bool) {
	for _, d := range mods {
		if strings.EqualFold(d.Name, name) || strings.EqualFold(d.ID, name) ||
			strings.EqualFold(filepath.Base(d.Path), name) {
			return d, true
		}
	}
	return mod.Descriptor{}, false
}
