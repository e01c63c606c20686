// Package toggle enables and disables mod packages with a sentinel file.
package toggle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/modman/internal/errors"
	"github.com/hpungsan/modman/internal/pathsafe"
)

// SentinelName is the zero-byte file whose presence disables a package.
const SentinelName = ".lovelyignore"

// DefaultWorkers bounds concurrent subdirectory updates.
const DefaultWorkers = 4

// Toggler writes and removes sentinels through a Guard.
type Toggler struct {
	Guard   *pathsafe.Guard
	Workers int
}

// New creates a Toggler. workers <= 0 selects DefaultWorkers.
func New(guard *pathsafe.Guard, workers int) *Toggler {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Toggler{Guard: guard, Workers: workers}
}

// SetEnabled applies the enabled state to dir and to each of its immediate
// subdirectories. Every directory is attempted even when some fail; the
// first error is returned once all have finished.
//
// ctx is only checked before work starts; subdirectory updates are not cancelled.
func (t *Toggler) SetEnabled(ctx context.Context, dir string, enabled bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	canon, err := t.Guard.Check(dir)
	if err != nil {
		return err
	}
	if t.Guard.IsRoot(canon) {
		return errors.NewInvalidRequest(fmt.Sprintf("refusing to toggle the managed root %s", t.Guard.Root))
	}
	info, err := os.Stat(canon)
	if err != nil {
		return errors.NewDirectoryReadFailed(dir, err)
	}
	if !info.IsDir() {
		return errors.NewInvalidRequest(fmt.Sprintf("not a directory: %s", dir))
	}

	entries, err := os.ReadDir(canon)
	if err != nil {
		return errors.NewDirectoryReadFailed(dir, err)
	}

	// a plain Group, not WithContext: one failure must not stop the others
	var g errgroup.Group
	g.SetLimit(t.Workers)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sub := filepath.Join(canon, entry.Name())
		g.Go(func() error {
			return t.apply(sub, enabled)
		})
	}
	// the package itself runs on the caller goroutine alongside the pool
	selfErr := t.apply(canon, enabled)
	poolErr := g.Wait()

	if selfErr != nil {
		return selfErr
	}
	return poolErr
}

func (t *Toggler) apply(dir string, enabled bool) error {
	var err error
	if enabled {
		err = t.Guard.RemoveSentinel(dir, SentinelName)
	} else {
		err = t.Guard.WriteSentinel(dir, SentinelName)
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{"path": dir, "enabled": enabled}).Warnf("failed to update sentinel: %v", err)
		return fmt.Errorf("%s: %w", dir, err)
	}
	return nil
}

// IsEnabled reports whether dir has no sentinel file.
func IsEnabled(dir string) bool {
	_, err := os.Lstat(filepath.Join(dir, SentinelName))
	return os.IsNotExist(err)
}
