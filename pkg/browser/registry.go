package browser

import (
	"sort"
	"sync"
	"time"

	"github.com/entrhq/tabmirror/pkg/mirror"
)

// windowEntry tracks one browser context. handle is the playwright
// BrowserContext; it is typed loosely so the bookkeeping can be tested
// without a browser.
type windowEntry struct {
	id     mirror.WindowID
	handle interface{}
	tabs   []mirror.TabID
	active mirror.TabID
	device *mirror.Device

	// pendingOrigin is attached to the next tab registered in this window
	pendingOrigin string

	quietFocusUntil time.Time
}

// tabEntry tracks one page.
type tabEntry struct {
	id     mirror.TabID
	window mirror.WindowID
	handle interface{}
	url    string

	// navOrigin is attached to the next reported navigation
	navOrigin string

	// quietURL suppresses the next navigation to that URL
	quietURL string
}

// registry assigns integer ids to contexts and pages.
type registry struct {
	mu sync.Mutex

	nextWindow  mirror.WindowID
	nextTab     mirror.TabID
	windows     map[mirror.WindowID]*windowEntry
	tabs        map[mirror.TabID]*tabEntry
	byContext   map[interface{}]mirror.WindowID
	byPage      map[interface{}]mirror.TabID
	lastFocused mirror.WindowID

	now func() time.Time
}

func newRegistry() *registry {
	return &registry{
		nextWindow:  1,
		nextTab:     1,
		windows:     make(map[mirror.WindowID]*windowEntry),
		tabs:        make(map[mirror.TabID]*tabEntry),
		byContext:   make(map[interface{}]mirror.WindowID),
		byPage:      make(map[interface{}]mirror.TabID),
		lastFocused: mirror.NoWindow,
		now:         time.Now,
	}
}

// addWindow registers a context and returns its id. Registering the same
// context twice returns the existing id.
func (r *registry) addWindow(handle interface{}, device *mirror.Device) mirror.WindowID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byContext[handle]; ok {
		return id
	}
	id := r.nextWindow
	r.nextWindow++
	r.windows[id] = &windowEntry{id: id, handle: handle, active: mirror.NoTab, device: device}
	r.byContext[handle] = id
	return id
}

// removeWindow forgets a window and all of its tabs. It reports false if the
// window was already gone.
func (r *registry) removeWindow(id mirror.WindowID) ([]mirror.TabID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.windows[id]
	if !ok {
		return nil, false
	}
	for _, tabID := range w.tabs {
		if t, ok := r.tabs[tabID]; ok {
			delete(r.byPage, t.handle)
			delete(r.tabs, tabID)
		}
	}
	delete(r.byContext, w.handle)
	delete(r.windows, id)
	if r.lastFocused == id {
		r.lastFocused = mirror.NoWindow
	}
	return w.tabs, true
}

func (r *registry) windowOf(handle interface{}) (mirror.WindowID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byContext[handle]
	return id, ok
}

func (r *registry) window(id mirror.WindowID) (windowEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.windows[id]
	if !ok {
		return windowEntry{}, false
	}
	cp := *w
	cp.tabs = append([]mirror.TabID(nil), w.tabs...)
	return cp, true
}

func (r *registry) windowIDs() []mirror.WindowID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]mirror.WindowID, 0, len(r.windows))
	for id := range r.windows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *registry) setPendingOrigin(id mirror.WindowID, origin string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.windows[id]; ok {
		w.pendingOrigin = origin
	}
}

// addTab registers a page in the window of context. created is false when
// the page was already registered or the context is unknown.
func (r *registry) addTab(context, page interface{}, url string) (tab mirror.Tab, origin string, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byPage[page]; ok {
		return r.tabLocked(id), "", false
	}
	winID, ok := r.byContext[context]
	if !ok {
		return mirror.Tab{}, "", false
	}
	w := r.windows[winID]

	id := r.nextTab
	r.nextTab++
	r.tabs[id] = &tabEntry{id: id, window: winID, handle: page, url: url}
	r.byPage[page] = id
	w.tabs = append(w.tabs, id)
	w.active = id

	origin = w.pendingOrigin
	w.pendingOrigin = ""
	return r.tabLocked(id), origin, true
}

// removeTab forgets a page. windowEmpty reports that it was the window's
// last tab.
func (r *registry) removeTab(page interface{}) (tab mirror.Tab, windowEmpty bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byPage[page]
	if !ok {
		return mirror.Tab{}, false, false
	}
	tab = r.tabLocked(id)
	delete(r.byPage, page)
	delete(r.tabs, id)

	w, ok := r.windows[tab.WindowID]
	if !ok {
		return tab, false, true
	}
	for i, other := range w.tabs {
		if other == id {
			w.tabs = append(w.tabs[:i], w.tabs[i+1:]...)
			break
		}
	}
	if w.active == id {
		w.active = mirror.NoTab
		if n := len(w.tabs); n > 0 {
			w.active = w.tabs[n-1]
		}
	}
	return tab, len(w.tabs) == 0, true
}

func (r *registry) tabOf(page interface{}) (mirror.TabID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byPage[page]
	return id, ok
}

func (r *registry) tab(id mirror.TabID) (tabEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tabs[id]
	if !ok {
		return tabEntry{}, false
	}
	return *t, true
}

// snapshotTab returns the mirror view of a tab.
func (r *registry) snapshotTab(id mirror.TabID) (mirror.Tab, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tabs[id]; !ok {
		return mirror.Tab{}, false
	}
	return r.tabLocked(id), true
}

func (r *registry) tabLocked(id mirror.TabID) mirror.Tab {
	t := r.tabs[id]
	active := false
	if w, ok := r.windows[t.window]; ok {
		active = w.active == id
	}
	return mirror.Tab{ID: id, WindowID: t.window, URL: t.url, Active: active}
}

// activate marks page as its window's active tab. changed is false if it
// already was.
func (r *registry) activate(page interface{}) (tab mirror.Tab, changed bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byPage[page]
	if !ok {
		return mirror.Tab{}, false, false
	}
	if w, ok := r.windows[r.tabs[id].window]; ok && w.active != id {
		w.active = id
		changed = true
	}
	return r.tabLocked(id), changed, true
}

// navigated records a main-frame navigation. report is false for a
// navigation that was marked quiet.
func (r *registry) navigated(page interface{}, url string) (tab mirror.Tab, origin string, report bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byPage[page]
	if !ok {
		return mirror.Tab{}, "", false
	}
	t := r.tabs[id]
	if t.url == url && t.navOrigin == "" {
		return r.tabLocked(id), "", false
	}
	t.url = url

	if t.quietURL != "" && t.quietURL == url {
		t.quietURL = ""
		return r.tabLocked(id), "", false
	}
	origin = t.navOrigin
	t.navOrigin = ""
	return r.tabLocked(id), origin, true
}

func (r *registry) setNavOrigin(id mirror.TabID, origin string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tabs[id]; ok {
		t.navOrigin = origin
	}
}

func (r *registry) setQuietURL(id mirror.TabID, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tabs[id]; ok {
		t.quietURL = url
	}
}

// focused records that the window of context gained focus. report is false
// while focus changes from that window are being ignored.
func (r *registry) focused(context interface{}) (mirror.WindowID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byContext[context]
	if !ok {
		return mirror.NoWindow, false
	}
	if r.now().Before(r.windows[id].quietFocusUntil) {
		return id, false
	}
	r.lastFocused = id
	return id, true
}

// quietFocus ignores focus changes from window id for d.
func (r *registry) quietFocus(id mirror.WindowID, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.windows[id]; ok {
		w.quietFocusUntil = r.now().Add(d)
	}
}

// holdFocus quiets focus reports from target and from the last focused
// window for d. It returns the last focused window's active tab, which must
// be brought back to front after target is raised. ok is false when target
// is that window or nothing has been focused.
func (r *registry) holdFocus(target mirror.WindowID, d time.Duration) (restore tabEntry, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	until := r.now().Add(d)
	if w, found := r.windows[target]; found {
		w.quietFocusUntil = until
	}
	prev, found := r.windows[r.lastFocused]
	if !found || prev.id == target || len(prev.tabs) == 0 {
		return tabEntry{}, false
	}
	prev.quietFocusUntil = until

	id := prev.active
	if _, found := r.tabs[id]; !found {
		id = prev.tabs[len(prev.tabs)-1]
	}
	return *r.tabs[id], true
}

func (r *registry) setLastFocused(id mirror.WindowID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.windows[id]; ok {
		r.lastFocused = id
	}
}

// activeTab resolves the active tab of window. NoWindow means the last
// focused window, or the oldest window if none has been focused.
func (r *registry) activeTab(window mirror.WindowID) (mirror.Tab, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !window.Valid() {
		window = r.lastFocused
	}
	if !window.Valid() {
		for id := range r.windows {
			if !window.Valid() || id < window {
				window = id
			}
		}
	}

	w, ok := r.windows[window]
	if !ok || len(w.tabs) == 0 {
		return mirror.Tab{}, false
	}
	id := w.active
	if _, ok := r.tabs[id]; !ok {
		id = w.tabs[len(w.tabs)-1]
	}
	return r.tabLocked(id), true
}
