package mirror

import "fmt"

// EventType defines the kind of lifecycle event reported by a host.
type EventType string

const (
	EventTabCreated         EventType = "tab_created"          // EventTabCreated indicates a tab was opened.
	EventTabRemoved         EventType = "tab_removed"          // EventTabRemoved indicates a tab was closed.
	EventTabActivated       EventType = "tab_activated"        // EventTabActivated indicates a tab became the selected tab of its window.
	EventTabUpdated         EventType = "tab_updated"          // EventTabUpdated indicates a tab navigated to a new URL.
	EventWindowFocusChanged EventType = "window_focus_changed" // EventWindowFocusChanged indicates input focus moved to another window.
	EventWindowRemoved      EventType = "window_removed"       // EventWindowRemoved indicates a window was closed.
	EventMessage            EventType = "message"              // EventMessage indicates a content script sent a message.
)

// Event is a lifecycle notification from the host.
type Event struct {
	// Type indicates the kind of event.
	Type EventType

	// Tab is the subject tab for tab events and the sender for messages.
	Tab Tab

	// WindowID is the owning window for tab events and the subject window
	// for window events. NoWindow for focus leaving all browser windows.
	WindowID WindowID

	// URL is the new address for EventTabUpdated.
	URL string

	// Message is the payload for EventMessage.
	Message *Message

	// Origin carries the tag of the command that caused this event, if the
	// host could attribute it.
	Origin string
}

// String renders a compact description for logs.
func (e Event) String() string {
	switch e.Type {
	case EventWindowFocusChanged, EventWindowRemoved:
		return fmt.Sprintf("%s window=%d", e.Type, e.WindowID)
	case EventTabUpdated:
		return fmt.Sprintf("%s tab=%d window=%d url=%q", e.Type, e.Tab.ID, e.WindowID, e.URL)
	case EventMessage:
		msgType := MessageType("")
		if e.Message != nil {
			msgType = e.Message.Type
		}
		return fmt.Sprintf("%s tab=%d type=%s", e.Type, e.Tab.ID, msgType)
	default:
		return fmt.Sprintf("%s tab=%d window=%d", e.Type, e.Tab.ID, e.WindowID)
	}
}
