// Package devices provides the mobile device profiles used to size and
// identify the mirrored mobile window.
package devices

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/tabmirror/pkg/mirror"
)

// DefaultDevice is the profile used when none is configured
const DefaultDevice = "iPhone 14"

// Profile describes an emulated device
type Profile struct {
	Name        string  `yaml:"name"`         // Display name, matched case-insensitively
	Width       int     `yaml:"width"`        // Viewport width in CSS pixels
	Height      int     `yaml:"height"`       // Viewport height in CSS pixels
	UserAgent   string  `yaml:"user_agent"`   // User-Agent sent by mobile tabs
	ScaleFactor float64 `yaml:"scale_factor"` // Device pixel ratio
	Mobile      bool    `yaml:"mobile"`       // Honour meta viewport
	Touch       bool    `yaml:"touch"`        // Report touch support
}

// Validate checks if the profile is usable
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("device name cannot be empty")
	}
	if p.Width < 0 || p.Height < 0 {
		return fmt.Errorf("device %s: dimensions cannot be negative", p.Name)
	}
	if p.ScaleFactor < 0 {
		return fmt.Errorf("device %s: scale_factor cannot be negative", p.Name)
	}
	return nil
}

// Device converts the profile to the mirror representation
func (p Profile) Device() mirror.Device {
	scale := p.ScaleFactor
	if scale == 0 {
		scale = 1
	}
	return mirror.Device{
		Name:        p.Name,
		Width:       p.Width,
		Height:      p.Height,
		UserAgent:   p.UserAgent,
		ScaleFactor: scale,
		Mobile:      p.Mobile,
		Touch:       p.Touch,
	}
}

// catalogFile is the on-disk layout of a device catalog
type catalogFile struct {
	Devices []Profile `yaml:"devices"`
}

// Catalog is a set of device profiles keyed by lower-cased name
type Catalog struct {
	profiles map[string]Profile
}

// NewCatalog creates a catalog holding the given profiles
func NewCatalog(profiles ...Profile) *Catalog {
	c := &Catalog{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		c.profiles[key(p.Name)] = p
	}
	return c
}

// Builtin returns a catalog of the built-in presets
func Builtin() *Catalog {
	return NewCatalog(presets...)
}

// LoadCatalog reads a YAML catalog and merges it over the built-in presets.
// Entries whose name matches a preset replace it.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device catalog: %w", err)
	}

	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load device catalog %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog parses YAML catalog data and merges it over the built-in presets
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	c := Builtin()
	for i := range file.Devices {
		if err := file.Devices[i].Validate(); err != nil {
			return nil, fmt.Errorf("device %d: %w", i, err)
		}
		c.profiles[key(file.Devices[i].Name)] = file.Devices[i]
	}
	return c, nil
}

// Lookup finds a profile by name, ignoring case and surrounding whitespace
func (c *Catalog) Lookup(name string) (Profile, bool) {
	p, ok := c.profiles[key(name)]
	return p, ok
}

// Names returns the profile names in alphabetical order
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.profiles))
	for _, p := range c.profiles {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// Marshal renders the catalog as YAML in the LoadCatalog format
func (c *Catalog) Marshal() ([]byte, error) {
	file := catalogFile{}
	for _, name := range c.Names() {
		p, _ := c.Lookup(name)
		file.Devices = append(file.Devices, p)
	}
	data, err := yaml.Marshal(file)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return data, nil
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
