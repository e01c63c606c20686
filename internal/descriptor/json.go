package descriptor

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/modman/internal/errors"
	"github.com/hpungsan/modman/internal/mod"
)

// Defaults applied when a JSON descriptor omits them.
const (
	DefaultBadgeColour     = "666665"
	DefaultBadgeTextColour = "FFFFFF"
)

// jsonDescriptor mirrors the on-disk JSON descriptor schema.
type jsonDescriptor struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	DisplayName     string     `json:"display_name"`
	Description     string     `json:"description"`
	Prefix          string     `json:"prefix"`
	MainFile        string     `json:"main_file"`
	Author          authorList `json:"author"`
	Priority        int        `json:"priority"`
	BadgeColour     string     `json:"badge_colour"`
	BadgeTextColour string     `json:"badge_text_colour"`
	Version         string     `json:"version"`
	Dependencies    []string   `json:"dependencies"`
	Conflicts       []string   `json:"conflicts"`
	Provides        []string   `json:"provides"`
	DumpLoc         bool       `json:"dump_loc"`
}

// authorList accepts either a list of names or a single name.
type authorList []string

func (a *authorList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*a = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("author must be a string or list of strings")
	}
	*a = []string{single}
	return nil
}

func parseDirJSON(dir string) (*mod.Descriptor, bool) {
	return parseJSONFile(filepath.Join(dir, filepath.Base(dir)+".json"))
}

func parseSmodsJSON(dir string) (*mod.Descriptor, bool) {
	return parseJSONFile(filepath.Join(dir, SmodsFileName))
}

// parseJSONFile decodes a JSON descriptor. Malformed content and missing
// id/name are logged and reported as absent.
func parseJSONFile(path string) (*mod.Descriptor, bool) {
	data, ok := readOptional(path)
	if !ok {
		return nil, false
	}
	d, err := DecodeJSON(data)
	if err != nil {
		logrus.WithField("path", path).Warn(errors.NewMalformedDescriptor(path, err).Error())
		return nil, false
	}
	return d, true
}

// DecodeJSON converts JSON descriptor bytes into a Descriptor with defaults applied.
func DecodeJSON(data []byte) (*mod.Descriptor, error) {
	var raw jsonDescriptor
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	raw.ID = strings.TrimSpace(raw.ID)
	raw.Name = strings.TrimSpace(raw.Name)
	if raw.ID == "" {
		return nil, fmt.Errorf("missing required field: id")
	}
	if raw.Name == "" {
		return nil, fmt.Errorf("missing required field: name")
	}

	d := &mod.Descriptor{
		Name:            raw.Name,
		ID:              raw.ID,
		Authors:         []string(raw.Author),
		Description:     raw.Description,
		Prefix:          strings.TrimSpace(raw.Prefix),
		Dependencies:    raw.Dependencies,
		Conflicts:       raw.Conflicts,
		MainFile:        raw.MainFile,
		Priority:        raw.Priority,
		BadgeColour:     raw.BadgeColour,
		BadgeTextColour: raw.BadgeTextColour,
		DisplayName:     raw.DisplayName,
		Provides:        mod.UniqueStrings(raw.Provides),
		DumpLoc:         raw.DumpLoc,
	}
	if v := strings.TrimSpace(raw.Version); v != "" {
		d.Version = &v
	}
	if d.BadgeColour == "" {
		d.BadgeColour = DefaultBadgeColour
	}
	if d.BadgeTextColour == "" {
		d.BadgeTextColour = DefaultBadgeTextColour
	}
	return d, nil
}
