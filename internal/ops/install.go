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
)

// MaxArchiveBytes caps archives read from disk.
const MaxArchiveBytes = 512 << 20

// InstallInput contains parameters for the Install operation.
type InstallInput struct {
	// Payload is the archive content. When empty, File is read instead.
	Payload []byte

	// File is a local archive path.
	File string

	// Source is the download URL or file name the payload came from.
	// Defaults to File.
	Source string

	// Name overrides the package directory name for archives without a
	// single top-level directory.
	Name string
}

// InstallOutput contains the result of the Install operation.
type InstallOutput struct {
	Name       string          `json:"name"`
	Path       string          `json:"path"`
	Format     string          `json:"format"`
	Files      int             `json:"files"`
	Checksum   string          `json:"checksum"`
	Descriptor *mod.Descriptor `json:"descriptor,omitempty"`
}

// Install extracts an archive into the managed root and tracks the result.
// Reinstalling replaces the existing directory and record.
func Install(ctx context.Context, env *Env, input InstallInput) (*InstallOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload := input.Payload
	source := strings.TrimSpace(input.Source)
	if len(payload) == 0 {
		file := strings.TrimSpace(input.File)
		if file == "" {
			return nil, errors.NewInvalidRequest("archive payload or file is required")
		}
		data, err := readArchive(file)
		if err != nil {
			return nil, err
		}
		payload = data
		if source == "" {
			source = file
		}
	}

	res, err := env.Installer.Install(archive.Request{Payload: payload, Source: source, Name: input.Name})
	// the root may hold partial content even on failure
	env.Cache.Invalidate()
	if err != nil {
		return nil, err
	}

	rec := &mod.TrackedRecord{
		Name:     filepath.Base(res.Path),
		Path:     res.Path,
		Checksum: res.Checksum,
	}
	d, ok := descriptor.Parse(res.Path)
	if ok {
		rec.Name = d.Name
		rec.ModID = d.ID
		rec.Dependencies = d.Dependencies
		rec.Version = d.Version
	}
	if err := env.Store.AddTrackedMod(ctx, rec); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"name": rec.Name, "path": res.Path}).Info("tracked installed mod")

	out := &InstallOutput{
		Name:     rec.Name,
		Path:     res.Path,
		Format:   res.Format,
		Files:    res.Files,
		Checksum: res.Checksum,
	}
	if ok {
		out.Descriptor = d
	}
	return out, nil
}

func readArchive(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.NewFileReadFailed(path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, errors.NewInvalidRequest("archive is not a regular file: " + path)
	}
	if info.Size() > MaxArchiveBytes {
		return nil, errors.NewInvalidRequest("archive exceeds the size limit: " + path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewFileReadFailed(path, err)
	}
	return data, nil
}
