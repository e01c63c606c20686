package archive

import (
	"bytes"
	"path"
	"strings"

	"github.com/hpungsan/modman/internal/errors"
	"github.com/hpungsan/modman/internal/pathsafe"
)

// Format is an archive container type.
type Format int

const (
	FormatUnknown Format = iota
	FormatZip
	FormatTar
	FormatTarGz
)

func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatTar:
		return "tar"
	case FormatTarGz:
		return "tar.gz"
	default:
		return "unknown"
	}
}

var (
	zipMagic      = []byte("PK\x03\x04")
	zipEmptyMagic = []byte("PK\x05\x06")
	gzipMagic     = []byte{0x1f, 0x8b}
	tarMagic      = []byte("ustar")
)

// tarMagicOffset is where the ustar magic sits in a tar header block.
const tarMagicOffset = 257

// Sniff identifies a container from its leading bytes.
func Sniff(payload []byte) Format {
	switch {
	case bytes.HasPrefix(payload, zipMagic), bytes.HasPrefix(payload, zipEmptyMagic):
		return FormatZip
	case bytes.HasPrefix(payload, gzipMagic):
		return FormatTarGz
	case len(payload) >= tarMagicOffset+len(tarMagic) &&
		bytes.Equal(payload[tarMagicOffset:tarMagicOffset+len(tarMagic)], tarMagic):
		return FormatTar
	}
	return FormatUnknown
}

// knownSuffixes is ordered so that ".tar.gz" wins over ".gz"-less ".tar".
var knownSuffixes = []struct {
	suffix string
	format Format
}{
	{".tar.gz", FormatTarGz},
	{".tgz", FormatTarGz},
	{".zip", FormatZip},
	{".tar", FormatTar},
}

// FormatFromName identifies a container from a file name or URL suffix.
func FormatFromName(source string) Format {
	name := strings.ToLower(stripURLSuffix(source))
	for _, k := range knownSuffixes {
		if strings.HasSuffix(name, k.suffix) {
			return k.format
		}
	}
	return FormatUnknown
}

// DetectFormat sniffs payload and falls back to the suffix of source.
func DetectFormat(payload []byte, source string) (Format, error) {
	if f := Sniff(payload); f != FormatUnknown {
		return f, nil
	}
	if f := FormatFromName(source); f != FormatUnknown {
		return f, nil
	}
	return FormatUnknown, errors.NewArchiveFormatUnsupported(source)
}

// DeriveName turns a download URL or file name into a package directory name:
// the last path element with its archive extension removed.
func DeriveName(source string) string {
	s := strings.ReplaceAll(stripURLSuffix(source), "\\", "/")
	s = path.Base(strings.TrimRight(s, "/"))

	lower := strings.ToLower(s)
	trimmed := false
	for _, k := range knownSuffixes {
		if strings.HasSuffix(lower, k.suffix) {
			s = s[:len(s)-len(k.suffix)]
			trimmed = true
			break
		}
	}
	if !trimmed {
		s = strings.TrimSuffix(s, path.Ext(s))
	}
	return pathsafe.SanitizeDirName(s)
}

func stripURLSuffix(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		return s[:i]
	}
	return s
}
