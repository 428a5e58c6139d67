package mirror

import (
	"context"
	"encoding/json"
	"fmt"
)

// TabID identifies a tab. Host runtimes assign non-negative values.
type TabID int

// WindowID identifies a top-level window. Host runtimes assign non-negative values.
type WindowID int

const (
	// NoTab is returned when a lookup has no result.
	NoTab TabID = -1

	// NoWindow marks an unset window id.
	NoWindow WindowID = -1
)

// Valid reports whether the id can have been assigned by a host.
func (id TabID) Valid() bool { return id >= 0 }

// Valid reports whether the id can have been assigned by a host.
func (id WindowID) Valid() bool { return id >= 0 }

// Tab is a snapshot of a host tab.
type Tab struct {
	ID       TabID
	WindowID WindowID
	URL      string
	Active   bool
}

// Window is a snapshot of a host window.
type Window struct {
	ID     WindowID
	Tabs   []Tab
	Bounds Bounds
}

// Bounds is a window rectangle in screen pixels.
type Bounds struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// Right returns the x coordinate of the right edge.
func (b Bounds) Right() int {
	return b.Left + b.Width
}

// String formats the bounds as WxH+X+Y.
func (b Bounds) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", b.Width, b.Height, b.Left, b.Top)
}

// Size is a pair of screen dimensions.
type Size struct {
	Width  int
	Height int
}

// Device is the emulated device used for the mobile window.
type Device struct {
	Name        string
	Width       int
	Height      int
	UserAgent   string
	ScaleFactor float64
	Mobile      bool
	Touch       bool
}

// SessionMode selects whether the trigger opens a fresh desktop window.
type SessionMode string

const (
	// SessionModeNew opens a new desktop window carrying the current URL.
	SessionModeNew SessionMode = "new"

	// SessionModeReuse reuses the invoking window as the desktop window.
	SessionModeReuse SessionMode = "reuse"
)

// ScrollLock controls whether scroll positions are mirrored.
type ScrollLock string

const (
	ScrollLockOn  ScrollLock = "on"
	ScrollLockOff ScrollLock = "off"
)

// Settings supplies user preferences consulted at trigger and relay time.
type Settings interface {
	Device() Device
	StartSession() SessionMode
	ScrollLock() ScrollLock
}

// StaticSettings is a fixed Settings value.
type StaticSettings struct {
	DeviceProfile Device
	Mode          SessionMode
	Lock          ScrollLock
}

func (s StaticSettings) Device() Device            { return s.DeviceProfile }
func (s StaticSettings) StartSession() SessionMode { return s.Mode }
func (s StaticSettings) ScrollLock() ScrollLock    { return s.Lock }

// MessageType identifies a content-script payload.
type MessageType string

const (
	// MessageScroll carries a vertical scroll position in ScrollPercentage.
	MessageScroll MessageType = "scroll"
)

// Message is a structured payload exchanged with a tab's content script.
type Message struct {
	Type             MessageType     `json:"type"`
	ScrollPercentage float64         `json:"scrollPercentage,omitempty"`
	Payload          json.RawMessage `json:"payload,omitempty"`
}

// CreateTabRequest describes a tab to open.
type CreateTabRequest struct {
	WindowID WindowID
	URL      string
	Active   bool

	// Origin tags the command; hosts copy it onto the resulting event.
	Origin string
}

// TabUpdate describes changes to apply to an existing tab.
type TabUpdate struct {
	// URL navigates the tab when non-empty.
	URL string

	// Active selects the tab within its window.
	Active bool

	Origin string
}

// WindowSpec describes a window to open.
type WindowSpec struct {
	URL     string
	Bounds  Bounds
	Focused bool

	// Device enables viewport and user-agent emulation when set.
	Device *Device

	Origin string
}

// Header is a single request header. Order and case are preserved.
type Header struct {
	Name  string
	Value string
}

// HeaderRewriter rewrites the headers of a request issued by tab before it is sent.
// Implementations must return promptly.
type HeaderRewriter func(tab TabID, url string, headers []Header) []Header

// Host is the browser runtime the synchronizer drives.
type Host interface {
	CreateTab(ctx context.Context, req CreateTabRequest) (Tab, error)
	UpdateTab(ctx context.Context, id TabID, update TabUpdate) (Tab, error)
	RemoveTab(ctx context.Context, id TabID) error
	GetTab(ctx context.Context, id TabID) (Tab, error)

	// ActiveTab returns the selected tab of window, or of the last focused
	// window when window is NoWindow.
	ActiveTab(ctx context.Context, window WindowID) (Tab, error)

	CreateWindow(ctx context.Context, spec WindowSpec) (Window, error)
	UpdateWindow(ctx context.Context, id WindowID, bounds Bounds) error
	RemoveWindow(ctx context.Context, id WindowID) error
	ScreenSize(ctx context.Context) (Size, error)

	SendMessage(ctx context.Context, id TabID, msg Message) error

	// Events delivers lifecycle events. The channel is closed when the host shuts down.
	Events() <-chan Event
}
