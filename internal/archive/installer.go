// Package archive installs mod packages from zip, tar and tar.gz payloads into
// the managed root, normalizing the archive's top-level layout.
package archive

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/hpungsan/modman/internal/errors"
	"github.com/hpungsan/modman/internal/pathsafe"
)

// stagingPrefix names the hidden directories staged extractions write into.
const stagingPrefix = ".modman-staging-"

// Installer extracts archives beneath Guard.Root.
type Installer struct {
	Guard *pathsafe.Guard

	// Staged extracts into a hidden directory inside the root and renames it
	// into place only after every entry was written. When false, a failed
	// extraction leaves partial content at the destination.
	Staged bool
}

// NewInstaller creates an Installer with staged extraction enabled.
func NewInstaller(guard *pathsafe.Guard) *Installer {
	return &Installer{Guard: guard, Staged: true}
}

// Request describes one install.
type Request struct {
	Payload []byte

	// Source is the download URL or file name; used for suffix detection and
	// to name the package when the archive has no single top-level directory.
	Source string

	// Name overrides the directory name derived from Source.
	Name string
}

// Result describes an installed package.
type Result struct {
	Path     string `json:"path"`
	Format   string `json:"format"`
	Files    int    `json:"files"`
	Skipped  int    `json:"skipped"`
	Checksum string `json:"checksum"`
}

// layout is where an archive's members land.
type layout struct {
	dirName string // package directory below the root
	strip   string // member prefix removed before writing, "" or "<top>/"
}

// planLayout keeps a single shared top-level directory as the package root.
// Loose files or several top-level names get a synthesized directory.
func planLayout(entries []Entry, fallback string) layout {
	if top, ok := commonTop(entries); ok {
		return layout{dirName: top, strip: top + "/"}
	}
	return layout{dirName: fallback}
}

func commonTop(entries []Entry) (string, bool) {
	top := ""
	for _, e := range entries {
		first, rest, nested := strings.Cut(e.Name, "/")
		if (!nested || rest == "") && e.Type != EntryDir {
			return "", false
		}
		if top == "" {
			top = first
		} else if first != top {
			return "", false
		}
	}
	if top == "" || pathsafe.HasTraversal(top) {
		return "", false
	}
	return top, true
}

// Install extracts req.Payload into the managed root and returns where it landed.
// Any existing directory at the destination is replaced.
func (in *Installer) Install(req Request) (*Result, error) {
	if in.Guard == nil {
		return nil, errors.NewInternal(fmt.Errorf("installer has no guard"))
	}
	if len(req.Payload) == 0 {
		return nil, errors.NewInvalidRequest("archive payload is empty")
	}

	format, err := DetectFormat(req.Payload, req.Source)
	if err != nil {
		return nil, err
	}
	entries, err := List(format, req.Payload)
	if err != nil {
		return nil, errors.NewExtractionFailed(req.Source, err)
	}
	if len(entries) == 0 {
		return nil, errors.NewExtractionFailed(req.Source, fmt.Errorf("archive has no entries"))
	}

	fallback := req.Name
	if fallback == "" {
		fallback = DeriveName(req.Source)
	}
	plan := planLayout(entries, pathsafe.SanitizeDirName(fallback))

	root := in.Guard.Root
	dest := filepath.Join(root, plan.dirName)
	if _, err := in.Guard.Check(dest); err != nil {
		return nil, err
	}
	if in.Guard.IsRoot(dest) {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("archive would install over the managed root: %s", req.Source))
	}
	if err := in.Guard.MkdirAll(root, 0755); err != nil {
		return nil, errors.NewExtractionFailed(root, err)
	}

	log := logrus.WithFields(logrus.Fields{"source": req.Source, "format": format.String(), "dest": dest})

	work := dest
	if in.Staged {
		work = filepath.Join(root, stagingPrefix+ulid.Make().String())
	} else if err := in.Guard.RemoveAll(dest); err != nil {
		return nil, err
	}
	if err := in.Guard.MkdirAll(work, 0755); err != nil {
		return nil, errors.NewExtractionFailed(work, err)
	}

	res := &Result{Path: dest, Format: format.String(), Checksum: Checksum(req.Payload)}
	if err := in.extract(format, req.Payload, work, plan.strip, res); err != nil {
		if in.Staged {
			if rmErr := in.Guard.RemoveAll(work); rmErr != nil {
				log.Warnf("failed to clean staging directory: %v", rmErr)
			}
		}
		return nil, err
	}

	if in.Staged {
		if err := in.Guard.RemoveAll(dest); err != nil {
			_ = in.Guard.RemoveAll(work)
			return nil, err
		}
		if err := in.Guard.Rename(work, dest); err != nil {
			_ = in.Guard.RemoveAll(work)
			return nil, errors.NewExtractionFailed(dest, err)
		}
	}

	log.WithField("files", res.Files).Info("installed archive")
	return res, nil
}

func (in *Installer) extract(format Format, payload []byte, work, strip string, res *Result) error {
	w, err := newWalker(format, payload)
	if err != nil {
		return errors.NewExtractionFailed("", err)
	}

	err = w.Walk(func(e Entry, r io.Reader) error {
		rel := strings.TrimPrefix(e.Name, strip)
		if strip != "" && e.Name+"/" == strip {
			rel = ""
		}
		if rel == "" {
			return nil
		}
		if pathsafe.HasTraversal(rel) {
			return errors.NewPathOutsideManagedRoot(in.Guard.Root, e.Name)
		}
		target := filepath.Join(work, filepath.FromSlash(rel))
		if _, err := in.Guard.Check(target); err != nil {
			return err
		}

		switch e.Type {
		case EntryDir:
			if err := in.Guard.MkdirAll(target, 0755); err != nil {
				return errors.NewExtractionFailed(e.Name, err)
			}
		case EntryFile:
			if err := in.writeFile(target, e.Mode, r); err != nil {
				return errors.NewExtractionFailed(e.Name, err)
			}
			res.Files++
		default:
			logrus.WithField("entry", e.Name).Debug("skipping non-regular archive entry")
			res.Skipped++
		}
		return nil
	})
	if err == nil {
		return nil
	}
	var mErr *errors.ModError
	if stderrors.As(err, &mErr) {
		return err
	}
	return errors.NewExtractionFailed("", err)
}

func (in *Installer) writeFile(target string, mode os.FileMode, r io.Reader) error {
	if err := in.Guard.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	perm := mode.Perm()
	if perm == 0 {
		perm = 0644
	}
	f, err := in.Guard.CreateFile(target, perm|0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// IsStagingDir reports whether name is a leftover staging directory.
func IsStagingDir(name string) bool {
	return strings.HasPrefix(name, stagingPrefix)
}
