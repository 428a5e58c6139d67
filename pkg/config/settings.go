package config

import (
	"fmt"

	"github.com/entrhq/tabmirror/pkg/devices"
	"github.com/entrhq/tabmirror/pkg/mirror"
)

// Settings exposes a MirrorSection and a device catalog as mirror.Settings.
// Section values are read on every call so edits take effect on the next
// event. The catalog is fixed at construction.
type Settings struct {
	section  *MirrorSection
	catalog  *devices.Catalog
	fallback devices.Profile
}

// NewSettings binds section to catalog. An unknown device name falls back to
// the default preset.
func NewSettings(section *MirrorSection, catalog *devices.Catalog) (*Settings, error) {
	if section == nil {
		return nil, fmt.Errorf("mirror section is required")
	}
	if catalog == nil {
		catalog = devices.Builtin()
	}

	fallback, ok := catalog.Lookup(devices.DefaultDevice)
	if !ok {
		fallback, _ = devices.Builtin().Lookup(devices.DefaultDevice)
	}

	return &Settings{
		section:  section,
		catalog:  catalog,
		fallback: fallback,
	}, nil
}

// LoadSettings builds Settings from section, loading its device catalog file
// when one is configured.
func LoadSettings(section *MirrorSection) (*Settings, error) {
	if section == nil {
		return nil, fmt.Errorf("mirror section is required")
	}

	catalog := devices.Builtin()
	if _, path := section.GetDevice(); path != "" {
		loaded, err := devices.LoadCatalog(path)
		if err != nil {
			return nil, err
		}
		catalog = loaded
	}
	return NewSettings(section, catalog)
}

// Device returns the configured device profile.
func (s *Settings) Device() mirror.Device {
	name, _ := s.section.GetDevice()
	if p, ok := s.catalog.Lookup(name); ok {
		return p.Device()
	}
	return s.fallback.Device()
}

// HasDevice reports whether name is in the catalog.
func (s *Settings) HasDevice(name string) bool {
	_, ok := s.catalog.Lookup(name)
	return ok
}

// Catalog returns the device catalog.
func (s *Settings) Catalog() *devices.Catalog {
	return s.catalog
}

// StartSession returns the session mode.
func (s *Settings) StartSession() mirror.SessionMode {
	return s.section.GetStartSession()
}

// ScrollLock returns the scroll-lock toggle.
func (s *Settings) ScrollLock() mirror.ScrollLock {
	return s.section.GetScrollLock()
}
