package browser

import (
	"errors"
	"time"

	"github.com/entrhq/tabmirror/pkg/mirror"
)

// Default values for browser configuration
const (
	// DefaultScreenWidth is used when the screen size cannot be detected
	DefaultScreenWidth = 1920

	// DefaultScreenHeight is used when the screen size cannot be detected
	DefaultScreenHeight = 1080

	// DefaultTimeout is the default navigation timeout (30 seconds)
	DefaultTimeout = 30000.0

	// focusQuietPeriod is how long focus reports from a window are ignored
	// after the host moved focus itself
	focusQuietPeriod = 750 * time.Millisecond
)

var (
	// ErrTabNotFound is returned for a tab id the host does not know.
	ErrTabNotFound = errors.New("tab not found")

	// ErrWindowNotFound is returned for a window id the host does not know.
	ErrWindowNotFound = errors.New("window not found")

	// ErrClosed is returned after the host has been shut down.
	ErrClosed = errors.New("browser host closed")
)

// Logger is the subset of logging.Logger used by this package.
type Logger = mirror.Logger

// Options configures a Host.
type Options struct {
	// Headless runs Chromium without visible windows
	Headless bool

	// Args are extra Chromium command line switches
	Args []string

	// ScreenSize overrides screen detection when both dimensions are set
	ScreenSize mirror.Size

	// Timeout is the navigation timeout in milliseconds (0 means default)
	Timeout float64

	// Logger receives host diagnostics
	Logger Logger
}

func (o Options) screenOverride() (mirror.Size, bool) {
	if o.ScreenSize.Width > 0 && o.ScreenSize.Height > 0 {
		return o.ScreenSize, true
	}
	return mirror.Size{}, false
}
