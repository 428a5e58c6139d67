package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/entrhq/tabmirror/pkg/devices"
	"github.com/entrhq/tabmirror/pkg/mirror"
)

const (
	// SectionIDMirror is the identifier for the mirroring section
	SectionIDMirror = "mirror"

	defaultStartSession = mirror.SessionModeReuse
	defaultScrollLock   = mirror.ScrollLockOff
	defaultDevice       = devices.DefaultDevice
)

var defaultInterceptPatterns = []string{"*"}

// MirrorSection holds the user preferences that drive a mirror session.
type MirrorSection struct {
	StartSession      mirror.SessionMode `json:"start_session"`
	ScrollLock        mirror.ScrollLock  `json:"scroll_lock"`
	Device            string             `json:"device"`
	DeviceCatalog     string             `json:"device_catalog"`
	InterceptPatterns []string           `json:"intercept_patterns"`
	ExcludePatterns   []string           `json:"exclude_patterns"`
	mu                sync.RWMutex
}

// NewMirrorSection creates a mirror section with default settings.
func NewMirrorSection() *MirrorSection {
	s := &MirrorSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *MirrorSection) ID() string {
	return SectionIDMirror
}

// Title returns the section title.
func (s *MirrorSection) Title() string {
	return "Mirror Settings"
}

// Description returns the section description.
func (s *MirrorSection) Description() string {
	return "Configure how sessions start, scroll syncing and the emulated mobile device."
}

// Data returns the current configuration data.
func (s *MirrorSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"start_session":      string(s.StartSession),
		"scroll_lock":        string(s.ScrollLock),
		"device":             s.Device,
		"device_catalog":     s.DeviceCatalog,
		"intercept_patterns": toInterfaceSlice(s.InterceptPatterns),
		"exclude_patterns":   toInterfaceSlice(s.ExcludePatterns),
	}
}

// SetData updates the configuration from the provided data.
func (s *MirrorSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		switch key {
		case "start_session":
			v, ok := value.(string)
			if !ok {
				return fmt.Errorf("invalid value type for start_session: expected string, got %T", value)
			}
			s.StartSession = mirror.SessionMode(strings.ToLower(v))

		case "scroll_lock":
			switch v := value.(type) {
			case string:
				s.ScrollLock = mirror.ScrollLock(strings.ToLower(v))
			case bool:
				s.ScrollLock = mirror.ScrollLockOff
				if v {
					s.ScrollLock = mirror.ScrollLockOn
				}
			default:
				return fmt.Errorf("invalid value type for scroll_lock: expected string or bool, got %T", value)
			}

		case "device":
			v, ok := value.(string)
			if !ok {
				return fmt.Errorf("invalid value type for device: expected string, got %T", value)
			}
			s.Device = v

		case "device_catalog":
			v, ok := value.(string)
			if !ok {
				return fmt.Errorf("invalid value type for device_catalog: expected string, got %T", value)
			}
			s.DeviceCatalog = v

		case "intercept_patterns":
			patterns, err := toStringSlice(key, value)
			if err != nil {
				return err
			}
			s.InterceptPatterns = patterns

		case "exclude_patterns":
			patterns, err := toStringSlice(key, value)
			if err != nil {
				return err
			}
			s.ExcludePatterns = patterns

		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
	}

	return nil
}

// Validate validates the current configuration.
func (s *MirrorSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.StartSession != mirror.SessionModeNew && s.StartSession != mirror.SessionModeReuse {
		return fmt.Errorf("invalid start_session: %s (must be 'new' or 'reuse')", s.StartSession)
	}
	if s.ScrollLock != mirror.ScrollLockOn && s.ScrollLock != mirror.ScrollLockOff {
		return fmt.Errorf("invalid scroll_lock: %s (must be 'on' or 'off')", s.ScrollLock)
	}
	if strings.TrimSpace(s.Device) == "" {
		return fmt.Errorf("device cannot be empty")
	}
	if _, err := mirror.NewURLFilter(s.InterceptPatterns, s.ExcludePatterns); err != nil {
		return err
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *MirrorSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.StartSession = defaultStartSession
	s.ScrollLock = defaultScrollLock
	s.Device = defaultDevice
	s.DeviceCatalog = ""
	s.InterceptPatterns = append([]string(nil), defaultInterceptPatterns...)
	s.ExcludePatterns = nil
}

// GetStartSession returns the configured session mode.
func (s *MirrorSection) GetStartSession() mirror.SessionMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.StartSession
}

// SetStartSession sets the session mode.
func (s *MirrorSection) SetStartSession(mode mirror.SessionMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StartSession = mode
}

// GetScrollLock returns the scroll-lock toggle.
func (s *MirrorSection) GetScrollLock() mirror.ScrollLock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ScrollLock
}

// SetScrollLock sets the scroll-lock toggle.
func (s *MirrorSection) SetScrollLock(lock mirror.ScrollLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ScrollLock = lock
}

// GetDevice returns the configured device name and catalog path.
func (s *MirrorSection) GetDevice() (name, catalog string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Device, s.DeviceCatalog
}

// SetDevice sets the device profile name.
func (s *MirrorSection) SetDevice(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Device = name
}

// URLFilter compiles the intercept and exclude patterns.
func (s *MirrorSection) URLFilter() (*mirror.URLFilter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return mirror.NewURLFilter(s.InterceptPatterns, s.ExcludePatterns)
}

func toStringSlice(key string, value interface{}) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("invalid value type for %s[%d]: expected string, got %T", key, i, item)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("invalid value type for %s: expected list of strings, got %T", key, value)
	}
}

func toInterfaceSlice(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
