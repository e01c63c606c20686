package cascade

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// LookupFunc returns the ids that depend directly on id.
type LookupFunc func(id string) ([]string, error)

// RemoveFunc deletes one mod from disk and from the store.
type RemoveFunc func(id string) error

// Options controls failure handling.
type Options struct {
	// FailFast stops at the first lookup or removal error. By default every
	// reachable node is attempted and the errors are joined.
	FailFast bool
}

// Uninstall removes rootID and everything that transitively depends on it.
//
// A work list seeded with rootID is drained one id at a time. An id already
// visited (compared ignoring case) is skipped, so cyclic graphs terminate and
// every node is removed at most once. Returns the ids that were removed
// successfully, in removal order.
func Uninstall(rootID string, lookup LookupFunc, remove RemoveFunc, opts Options) ([]string, error) {
	if strings.TrimSpace(rootID) == "" {
		return nil, fmt.Errorf("cascade: empty root id")
	}

	var (
		removed []string
		errs    []error
	)
	visited := make(map[string]bool)
	work := []string{rootID}

	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]

		k := key(id)
		if visited[k] {
			continue
		}
		visited[k] = true

		log := logrus.WithField("mod", id)

		dependents, err := lookup(id)
		if err != nil {
			err = fmt.Errorf("lookup dependents of %s: %w", id, err)
			if opts.FailFast {
				return removed, err
			}
			log.Warn(err)
			errs = append(errs, err)
		}
		for _, dep := range dependents {
			if !visited[key(dep)] {
				work = append(work, dep)
			}
		}

		if err := remove(id); err != nil {
			err = fmt.Errorf("remove %s: %w", id, err)
			if opts.FailFast {
				return removed, err
			}
			log.Warn(err)
			errs = append(errs, err)
			continue
		}
		log.Debug("removed")
		removed = append(removed, id)
	}

	return removed, errors.Join(errs...)
}
