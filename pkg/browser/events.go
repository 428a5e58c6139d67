package browser

import (
	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/tabmirror/pkg/mirror"
)

// instrument attaches the content script, the message binding, request
// interception and lifecycle listeners to a new context.
func (h *Host) instrument(bctx playwright.BrowserContext) error {
	bctx.OnPage(func(page playwright.Page) {
		h.trackPage(bctx, page)
	})
	bctx.OnClose(func(playwright.BrowserContext) {
		h.contextClosed(bctx)
	})

	script := contentScript
	if err := bctx.AddInitScript(playwright.Script{Content: &script}); err != nil {
		return wrapInstrumentErr("content script", err)
	}
	if err := bctx.ExposeBinding(bindingName, func(source *playwright.BindingSource, args ...interface{}) interface{} {
		h.handleBinding(bctx, source, args)
		return nil
	}); err != nil {
		return wrapInstrumentErr("message binding", err)
	}
	if err := bctx.Route("**/*", func(route playwright.Route) {
		go h.handleRoute(route)
	}); err != nil {
		return wrapInstrumentErr("request interception", err)
	}
	return nil
}

// trackPage registers page and reports it on first sight. It is called from
// both the page event and the command that opened the page, whichever runs
// first.
func (h *Host) trackPage(bctx playwright.BrowserContext, page playwright.Page) (mirror.Tab, bool) {
	tab, origin, created := h.reg.addTab(bctx, page, page.URL())
	if !created {
		_, ok := h.reg.tabOf(page)
		return tab, ok
	}

	page.OnClose(func(p playwright.Page) {
		h.pageClosed(bctx, p)
	})
	page.OnFrameNavigated(func(frame playwright.Frame) {
		if frame != page.MainFrame() {
			return
		}
		h.pageNavigated(page, frame.URL())
	})

	h.logger.Debugf("tab %d opened in window %d", tab.ID, tab.WindowID)
	h.queue.Push(mirror.Event{
		Type:     mirror.EventTabCreated,
		Tab:      tab,
		WindowID: tab.WindowID,
		Origin:   origin,
	})
	return tab, true
}

func (h *Host) pageNavigated(page playwright.Page, url string) {
	tab, origin, report := h.reg.navigated(page, url)
	if !report {
		return
	}
	h.queue.Push(mirror.Event{
		Type:     mirror.EventTabUpdated,
		Tab:      tab,
		WindowID: tab.WindowID,
		URL:      url,
		Origin:   origin,
	})
}

// pageClosed reports a closed tab. A window whose last tab closed is
// reported as removed and its context is released.
func (h *Host) pageClosed(bctx playwright.BrowserContext, page playwright.Page) {
	tab, empty, ok := h.reg.removeTab(page)
	if !ok {
		return
	}
	h.queue.Push(mirror.Event{Type: mirror.EventTabRemoved, Tab: tab, WindowID: tab.WindowID})
	if !empty {
		return
	}

	if _, ok := h.reg.removeWindow(tab.WindowID); !ok {
		return
	}
	h.queue.Push(windowRemoved(tab.WindowID))
	go func() {
		if err := bctx.Close(); err != nil {
			h.logger.Debugf("failed to release window %d: %v", tab.WindowID, err)
		}
	}()
}

func (h *Host) contextClosed(bctx playwright.BrowserContext) {
	id, ok := h.reg.windowOf(bctx)
	if !ok {
		return
	}
	if _, ok := h.reg.removeWindow(id); ok {
		h.queue.Push(windowRemoved(id))
	}
}

// handleBinding receives messages posted by the content script.
func (h *Host) handleBinding(bctx playwright.BrowserContext, source *playwright.BindingSource, args []interface{}) {
	if source == nil || source.Page == nil || len(args) == 0 {
		return
	}
	msg, err := decodeMessage(args[0])
	if err != nil {
		h.logger.Debugf("dropping content message: %v", err)
		return
	}

	switch msg.Type {
	case controlFocus:
		h.reg.activate(source.Page)
		if id, report := h.reg.focused(bctx); report {
			h.queue.Push(mirror.Event{
				Type:     mirror.EventWindowFocusChanged,
				Tab:      mirror.Tab{ID: mirror.NoTab, WindowID: id},
				WindowID: id,
			})
		}
	case controlActivated:
		if tab, changed, ok := h.reg.activate(source.Page); ok && changed {
			h.queue.Push(mirror.Event{Type: mirror.EventTabActivated, Tab: tab, WindowID: tab.WindowID})
		}
	default:
		id, ok := h.reg.tabOf(source.Page)
		if !ok {
			return
		}
		tab, ok := h.reg.snapshotTab(id)
		if !ok {
			return
		}
		h.queue.Push(mirror.Event{Type: mirror.EventMessage, Tab: tab, WindowID: tab.WindowID, Message: &msg})
	}
}

// handleRoute applies the header rewriter to an intercepted request. It runs
// on its own goroutine because reading headers is a round trip to the
// browser.
func (h *Host) handleRoute(route playwright.Route) {
	req := route.Request()
	rewrite := h.headerRewriter()

	tabID := mirror.NoTab
	if page := requestPage(req); page != nil {
		if id, ok := h.reg.tabOf(page); ok {
			tabID = id
		}
	}
	if rewrite == nil || !tabID.Valid() {
		h.continueRoute(route, nil)
		return
	}

	pairs, err := req.HeadersArray()
	if err != nil {
		h.logger.Debugf("failed to read headers of %s: %v", req.URL(), err)
		h.continueRoute(route, nil)
		return
	}
	headers := toHeaders(pairs)
	rewritten := rewrite(tabID, req.URL(), headers)
	if sameHeaders(headers, rewritten) {
		h.continueRoute(route, nil)
		return
	}
	h.continueRoute(route, toHeaderMap(rewritten))
}

func (h *Host) continueRoute(route playwright.Route, headers map[string]string) {
	var err error
	if headers == nil {
		err = route.Continue()
	} else {
		err = route.Continue(playwright.RouteContinueOptions{Headers: headers})
	}
	if err != nil {
		h.logger.Debugf("failed to continue request: %v", err)
	}
}

func requestPage(req playwright.Request) playwright.Page {
	frame := req.Frame()
	if frame == nil {
		return nil
	}
	return frame.Page()
}

func windowRemoved(id mirror.WindowID) mirror.Event {
	return mirror.Event{
		Type:     mirror.EventWindowRemoved,
		Tab:      mirror.Tab{ID: mirror.NoTab, WindowID: id},
		WindowID: id,
	}
}
