package mirror

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

type tabUpdateCall struct {
	ID     TabID
	Update TabUpdate
}

type sentMessage struct {
	To  TabID
	Msg Message
}

// mockHost is an in-memory browser. Like a real browser it reports the
// effects of every command as events, stamped with the command's origin.
type mockHost struct {
	mu sync.Mutex

	nextTab    TabID
	nextWindow WindowID
	tabs       map[TabID]*Tab
	windows    map[WindowID][]TabID
	bounds     map[WindowID]Bounds
	focused    WindowID
	screen     Size

	events chan Event

	createdTabs    []CreateTabRequest
	createdWindows []WindowSpec
	updates        []tabUpdateCall
	removed        []TabID
	sent           []sentMessage
	resized        map[WindowID]Bounds

	removeErr error
	createErr error
}

func newMockHost() *mockHost {
	return &mockHost{
		nextTab:    1,
		nextWindow: 1,
		tabs:       make(map[TabID]*Tab),
		windows:    make(map[WindowID][]TabID),
		bounds:     make(map[WindowID]Bounds),
		resized:    make(map[WindowID]Bounds),
		focused:    NoWindow,
		screen:     Size{Width: 1920, Height: 1080},
		events:     make(chan Event, 256),
	}
}

func (h *mockHost) emit(ev Event) {
	h.events <- ev
}

// openWindow creates a window the way a user would, without emitting events.
func (h *mockHost) openWindow(url string) (WindowID, TabID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	win := h.addWindowLocked()
	tab := h.addTabLocked(win, url, true)
	h.focused = win
	return win, tab.ID
}

func (h *mockHost) addWindowLocked() WindowID {
	id := h.nextWindow
	h.nextWindow++
	h.windows[id] = nil
	return id
}

func (h *mockHost) addTabLocked(win WindowID, url string, active bool) Tab {
	id := h.nextTab
	h.nextTab++
	if active {
		for _, other := range h.windows[win] {
			h.tabs[other].Active = false
		}
	}
	tab := &Tab{ID: id, WindowID: win, URL: url, Active: active}
	h.tabs[id] = tab
	h.windows[win] = append(h.windows[win], id)
	return *tab
}

// userOpenTab simulates the user opening a tab and returns the resulting event.
func (h *mockHost) userOpenTab(win WindowID, url string) Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	tab := h.addTabLocked(win, url, true)
	return Event{Type: EventTabCreated, Tab: tab, WindowID: win}
}

// userCloseTab simulates the user closing a tab.
func (h *mockHost) userCloseTab(id TabID) Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	tab := *h.tabs[id]
	h.dropTabLocked(id)
	return Event{Type: EventTabRemoved, Tab: tab, WindowID: tab.WindowID}
}

func (h *mockHost) dropTabLocked(id TabID) {
	tab, ok := h.tabs[id]
	if !ok {
		return
	}
	delete(h.tabs, id)
	ids := h.windows[tab.WindowID]
	for i, other := range ids {
		if other == id {
			h.windows[tab.WindowID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
}

func (h *mockHost) tab(id TabID) (Tab, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	tab, ok := h.tabs[id]
	if !ok {
		return Tab{}, false
	}
	return *tab, true
}

func (h *mockHost) tabsIn(win WindowID) []TabID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]TabID(nil), h.windows[win]...)
}

func (h *mockHost) CreateTab(ctx context.Context, req CreateTabRequest) (Tab, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.createErr != nil {
		return Tab{}, h.createErr
	}
	if _, ok := h.windows[req.WindowID]; !ok {
		return Tab{}, fmt.Errorf("no window %d", req.WindowID)
	}
	h.createdTabs = append(h.createdTabs, req)
	tab := h.addTabLocked(req.WindowID, req.URL, req.Active)
	h.emit(Event{Type: EventTabCreated, Tab: tab, WindowID: tab.WindowID, Origin: req.Origin})
	return tab, nil
}

func (h *mockHost) UpdateTab(ctx context.Context, id TabID, update TabUpdate) (Tab, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	tab, ok := h.tabs[id]
	if !ok {
		return Tab{}, fmt.Errorf("no tab %d", id)
	}
	h.updates = append(h.updates, tabUpdateCall{ID: id, Update: update})
	if update.URL != "" {
		tab.URL = update.URL
		h.emit(Event{Type: EventTabUpdated, Tab: *tab, WindowID: tab.WindowID, URL: update.URL, Origin: update.Origin})
	}
	if update.Active && !tab.Active {
		for _, other := range h.windows[tab.WindowID] {
			h.tabs[other].Active = other == id
		}
		h.emit(Event{Type: EventTabActivated, Tab: *tab, WindowID: tab.WindowID, Origin: update.Origin})
	}
	return *tab, nil
}

func (h *mockHost) RemoveTab(ctx context.Context, id TabID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.removeErr != nil {
		return h.removeErr
	}
	tab, ok := h.tabs[id]
	if !ok {
		return fmt.Errorf("no tab %d", id)
	}
	h.removed = append(h.removed, id)
	ev := Event{Type: EventTabRemoved, Tab: *tab, WindowID: tab.WindowID}
	h.dropTabLocked(id)
	h.emit(ev)
	return nil
}

func (h *mockHost) GetTab(ctx context.Context, id TabID) (Tab, error) {
	tab, ok := h.tab(id)
	if !ok {
		return Tab{}, fmt.Errorf("no tab %d", id)
	}
	return tab, nil
}

func (h *mockHost) ActiveTab(ctx context.Context, window WindowID) (Tab, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !window.Valid() {
		window = h.focused
	}
	for _, id := range h.windows[window] {
		if h.tabs[id].Active {
			return *h.tabs[id], nil
		}
	}
	return Tab{}, errors.New("no active tab")
}

func (h *mockHost) CreateWindow(ctx context.Context, spec WindowSpec) (Window, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.createdWindows = append(h.createdWindows, spec)
	win := h.addWindowLocked()
	h.bounds[win] = spec.Bounds
	tab := h.addTabLocked(win, spec.URL, true)
	if spec.Focused {
		h.focused = win
	}
	h.emit(Event{Type: EventTabCreated, Tab: tab, WindowID: win, Origin: spec.Origin})
	return Window{ID: win, Tabs: []Tab{tab}, Bounds: spec.Bounds}, nil
}

func (h *mockHost) UpdateWindow(ctx context.Context, id WindowID, bounds Bounds) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.windows[id]; !ok {
		return fmt.Errorf("no window %d", id)
	}
	h.bounds[id] = bounds
	h.resized[id] = bounds
	return nil
}

func (h *mockHost) RemoveWindow(ctx context.Context, id WindowID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, tab := range h.windows[id] {
		h.emit(Event{Type: EventTabRemoved, Tab: *h.tabs[tab], WindowID: id})
		delete(h.tabs, tab)
	}
	delete(h.windows, id)
	h.emit(Event{Type: EventWindowRemoved, WindowID: id})
	return nil
}

func (h *mockHost) ScreenSize(ctx context.Context) (Size, error) {
	return h.screen, nil
}

func (h *mockHost) SendMessage(ctx context.Context, id TabID, msg Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, sentMessage{To: id, Msg: msg})
	return nil
}

func (h *mockHost) Events() <-chan Event {
	return h.events
}

// drain feeds every queued host event back into the synchronizer until the
// host goes quiet and returns how many events were handled.
func drain(t *testing.T, s *Synchronizer, h *mockHost) int {
	t.Helper()
	handled := 0
	for {
		select {
		case ev := <-h.events:
			s.Handle(context.Background(), ev)
			handled++
			if handled > 100 {
				t.Fatal("event feedback loop did not terminate")
			}
		default:
			return handled
		}
	}
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) add(level, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, v...))
}

func (l *recordingLogger) Debugf(format string, v ...interface{}) { l.add("DEBUG", format, v...) }
func (l *recordingLogger) Infof(format string, v ...interface{})  { l.add("INFO", format, v...) }
func (l *recordingLogger) Warnf(format string, v ...interface{})  { l.add("WARN", format, v...) }
func (l *recordingLogger) Errorf(format string, v ...interface{}) { l.add("ERROR", format, v...) }

func (l *recordingLogger) has(level string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if len(line) > len(level) && line[:len(level)] == level {
			return true
		}
	}
	return false
}
