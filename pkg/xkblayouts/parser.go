package xkblayouts

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/adrg/xdg"
)

// RulesFile is the registry location relative to an XDG data directory.
const RulesFile = "X11/xkb/rules/evdev.xml"

// Find looks up the evdev rules registry in the XDG data directories.
func Find() (string, error) {
	path, err := xdg.SearchDataFile(RulesFile)
	if err != nil {
		return "", fmt.Errorf("search %s: %w", RulesFile, err)
	}
	return path, nil
}

func Load(path string) (*Registry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

func Parse(r io.Reader) (*Registry, error) {
	registry := &Registry{}
	if err := xml.NewDecoder(r).Decode(registry); err != nil {
		return nil, fmt.Errorf("decode xml: %w", err)
	}
	return registry, nil
}

// Description returns the human-readable name of layout (and variant, if not
// empty), the same string X11 uses as the group name.
func (r *Registry) Description(layout, variant string) string {
	if r == nil {
		return ""
	}
	for _, l := range r.LayoutList.Layout {
		if l.ConfigItem.Name != layout {
			continue
		}
		if variant == "" {
			return l.ConfigItem.Description
		}
		for _, v := range l.VariantList.Variant {
			if v.ConfigItem.Name == variant {
				return v.ConfigItem.Description
			}
		}
	}

	return ""
}

// Lookup returns the layout and variant codes for a description.
func (r *Registry) Lookup(description string) (layout string, variant string, found bool) {
	if r == nil {
		return "", "", false
	}
	for _, l := range r.LayoutList.Layout {
		if l.ConfigItem.Description == description {
			return l.ConfigItem.Name, "", true
		}

		for _, v := range l.VariantList.Variant {
			if v.ConfigItem.Description == description {
				return l.ConfigItem.Name, v.ConfigItem.Name, true
			}
		}
	}

	return "", "", false
}

// Label returns the layout code for a group name, falling back to the name
// itself when the registry does not know it.
func (r *Registry) Label(name string) string {
	layout, _, found := r.Lookup(name)
	if !found {
		return name
	}
	return strings.ToLower(layout)
}
