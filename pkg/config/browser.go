package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/tabmirror/pkg/mirror"
)

const (
	// SectionIDBrowser is the identifier for the browser section
	SectionIDBrowser = "browser"

	defaultHeadless   = false
	defaultStartURL   = "about:blank"
	defaultEchoWindow = mirror.DefaultEchoWindow
)

// BrowserSection configures the browser that hosts both windows.
type BrowserSection struct {
	Headless     bool          `json:"headless"`
	StartURL     string        `json:"start_url"`
	ScreenWidth  int           `json:"screen_width"`
	ScreenHeight int           `json:"screen_height"`
	EchoWindow   time.Duration `json:"echo_window"`
	mu           sync.RWMutex
}

// NewBrowserSection creates a browser section with default settings.
func NewBrowserSection() *BrowserSection {
	return &BrowserSection{
		Headless:   defaultHeadless,
		StartURL:   defaultStartURL,
		EchoWindow: defaultEchoWindow,
	}
}

// ID returns the section identifier.
func (s *BrowserSection) ID() string {
	return SectionIDBrowser
}

// Title returns the section title.
func (s *BrowserSection) Title() string {
	return "Browser Settings"
}

// Description returns the section description.
func (s *BrowserSection) Description() string {
	return "Configure the browser launch, the start page and the screen size used to lay out windows."
}

// Data returns the current configuration data.
func (s *BrowserSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"headless":      s.Headless,
		"start_url":     s.StartURL,
		"screen_width":  s.ScreenWidth,
		"screen_height": s.ScreenHeight,
		"echo_window":   s.EchoWindow.String(),
	}
}

// SetData updates the configuration from the provided data.
func (s *BrowserSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		switch key {
		case "headless":
			enabled, ok := value.(bool)
			if !ok {
				return fmt.Errorf("invalid value type for headless: expected bool, got %T", value)
			}
			s.Headless = enabled

		case "start_url":
			url, ok := value.(string)
			if !ok {
				return fmt.Errorf("invalid value type for start_url: expected string, got %T", value)
			}
			s.StartURL = url

		case "screen_width", "screen_height":
			n, err := toInt(key, value)
			if err != nil {
				return err
			}
			if key == "screen_width" {
				s.ScreenWidth = n
			} else {
				s.ScreenHeight = n
			}

		case "echo_window":
			// Handle both string and numeric duration values
			switch v := value.(type) {
			case string:
				d, err := time.ParseDuration(v)
				if err != nil {
					return fmt.Errorf("invalid duration string for echo_window: %w", err)
				}
				s.EchoWindow = d
			case float64:
				// JSON numbers come as float64
				s.EchoWindow = time.Duration(v)
			case int64:
				s.EchoWindow = time.Duration(v)
			default:
				return fmt.Errorf("invalid value type for echo_window: expected string or number, got %T", value)
			}

		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
	}

	return nil
}

// Validate validates the current configuration.
func (s *BrowserSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ScreenWidth < 0 || s.ScreenHeight < 0 {
		return fmt.Errorf("screen size cannot be negative, got %dx%d", s.ScreenWidth, s.ScreenHeight)
	}
	if (s.ScreenWidth == 0) != (s.ScreenHeight == 0) {
		return fmt.Errorf("screen_width and screen_height must be set together")
	}
	if s.EchoWindow < 100*time.Millisecond || s.EchoWindow > time.Minute {
		return fmt.Errorf("echo_window must be between 100ms and 1m, got %v", s.EchoWindow)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *BrowserSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Headless = defaultHeadless
	s.StartURL = defaultStartURL
	s.ScreenWidth = 0
	s.ScreenHeight = 0
	s.EchoWindow = defaultEchoWindow
}

// GetHeadless reports whether the browser runs without windows.
func (s *BrowserSection) GetHeadless() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Headless
}

// SetHeadless sets headless mode.
func (s *BrowserSection) SetHeadless(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Headless = enabled
}

// GetStartURL returns the page opened in the first window.
func (s *BrowserSection) GetStartURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.StartURL
}

// SetStartURL sets the start page.
func (s *BrowserSection) SetStartURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StartURL = url
}

// GetScreenSize returns the configured screen size. A zero size means the
// size is read from the browser.
func (s *BrowserSection) GetScreenSize() mirror.Size {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return mirror.Size{Width: s.ScreenWidth, Height: s.ScreenHeight}
}

// GetEchoWindow returns how long expected echoes stay outstanding.
func (s *BrowserSection) GetEchoWindow() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.EchoWindow
}

func toInt(key string, value interface{}) (int, error) {
	switch v := value.(type) {
	case float64:
		// JSON numbers come as float64
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("invalid value type for %s: expected number, got %T", key, value)
	}
}
