package archive

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/pgzip"
)

// EntryType classifies an archive member.
type EntryType int

const (
	EntryFile EntryType = iota
	EntryDir
	EntrySymlink
	EntryOther
)

// Entry is one archive member with a slash-separated, normalized name.
type Entry struct {
	Name string
	Type EntryType
	Mode os.FileMode
}

// walker iterates an archive's members. r is nil for non-file entries.
type walker interface {
	Walk(fn func(e Entry, r io.Reader) error) error
}

func newWalker(format Format, payload []byte) (walker, error) {
	switch format {
	case FormatZip:
		return zipWalker{payload: payload}, nil
	case FormatTar:
		return tarWalker{payload: payload}, nil
	case FormatTarGz:
		return tarWalker{payload: payload, gzip: true}, nil
	}
	return nil, fmt.Errorf("no reader for format %s", format)
}

// macOSResourcePrefix marks resource-fork entries added by macOS archivers.
const macOSResourcePrefix = "__MACOSX"

// cleanName converts an entry name to forward slashes and drops "./" prefixes
// and trailing slashes. ".." components are kept so they can be rejected.
func cleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	for strings.HasPrefix(name, "./") {
		name = name[2:]
	}
	return strings.TrimRight(name, "/")
}

func skipName(name string) bool {
	return name == "" || name == "." || name == macOSResourcePrefix ||
		strings.HasPrefix(name, macOSResourcePrefix+"/")
}

type zipWalker struct {
	payload []byte
}

func (z zipWalker) Walk(fn func(e Entry, r io.Reader) error) error {
	zr, err := zip.NewReader(bytes.NewReader(z.payload), int64(len(z.payload)))
	if zr == nil {
		return fmt.Errorf("open zip: %w", err)
	}
	// a usable reader with an error means insecure member names; those are
	// rejected per entry by the installer
	for _, f := range zr.File {
		name := cleanName(f.Name)
		if skipName(name) {
			continue
		}
		mode := f.Mode()
		e := Entry{Name: name, Mode: mode}
		switch {
		case f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/"):
			e.Type = EntryDir
		case mode&os.ModeSymlink != 0:
			e.Type = EntrySymlink
		case mode.IsRegular():
			e.Type = EntryFile
		default:
			e.Type = EntryOther
		}

		if e.Type != EntryFile {
			if err := fn(e, nil); err != nil {
				return err
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", f.Name, err)
		}
		err = fn(e, rc)
		// close inside the loop to avoid holding every member open
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

type tarWalker struct {
	payload []byte
	gzip    bool
}

func (t tarWalker) Walk(fn func(e Entry, r io.Reader) error) error {
	var r io.Reader = bytes.NewReader(t.payload)
	if t.gzip {
		gz, err := pgzip.NewReader(r)
		if err != nil {
			return fmt.Errorf("open gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		// PAX headers carry metadata for other entries
		if hdr.Typeflag == tar.TypeXHeader || hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}

		name := cleanName(hdr.Name)
		if skipName(name) {
			continue
		}
		e := Entry{Name: name, Mode: os.FileMode(hdr.Mode).Perm()}
		switch hdr.Typeflag {
		case tar.TypeDir:
			e.Type = EntryDir
		case tar.TypeReg:
			e.Type = EntryFile
		case tar.TypeSymlink, tar.TypeLink:
			e.Type = EntrySymlink
		default:
			e.Type = EntryOther
		}

		var body io.Reader
		if e.Type == EntryFile {
			body = tr
		}
		if err := fn(e, body); err != nil {
			return err
		}
	}
}

// List returns the members of an archive without extracting them.
func List(format Format, payload []byte) ([]Entry, error) {
	w, err := newWalker(format, payload)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	err = w.Walk(func(e Entry, _ io.Reader) error {
		entries = append(entries, e)
		return nil
	})
	return entries, err
}
