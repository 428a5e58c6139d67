package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/tabmirror/pkg/mirror"
)

// Host implements mirror.Host on top of a Playwright browser.
type Host struct {
	browser playwright.Browser
	opts    Options
	logger  Logger

	reg   *registry
	queue *eventQueue

	rewriterMu sync.RWMutex
	rewriter   mirror.HeaderRewriter

	closeMu sync.Mutex
	closed  bool
}

var _ mirror.Host = (*Host)(nil)

func newHost(browser playwright.Browser, opts Options) *Host {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	return &Host{
		browser: browser,
		opts:    opts,
		logger:  logger,
		reg:     newRegistry(),
		queue:   newEventQueue(),
	}
}

// SetHeaderRewriter installs the hook applied to every outgoing request.
func (h *Host) SetHeaderRewriter(fn mirror.HeaderRewriter) {
	h.rewriterMu.Lock()
	defer h.rewriterMu.Unlock()
	h.rewriter = fn
}

func (h *Host) headerRewriter() mirror.HeaderRewriter {
	h.rewriterMu.RLock()
	defer h.rewriterMu.RUnlock()
	return h.rewriter
}

// Events implements mirror.Host.
func (h *Host) Events() <-chan mirror.Event {
	return h.queue.Out()
}

// OpenWindow opens a plain desktop window at url, as a user would.
func (h *Host) OpenWindow(ctx context.Context, url string) (mirror.Window, error) {
	return h.CreateWindow(ctx, mirror.WindowSpec{URL: url, Focused: true})
}

// CreateTab implements mirror.Host.
func (h *Host) CreateTab(ctx context.Context, req mirror.CreateTabRequest) (mirror.Tab, error) {
	if err := h.checkOpen(); err != nil {
		return mirror.Tab{}, err
	}
	if !req.WindowID.Valid() {
		return mirror.Tab{}, &mirror.IdentifierError{Op: "create tab", ID: int(req.WindowID)}
	}
	w, ok := h.reg.window(req.WindowID)
	if !ok {
		return mirror.Tab{}, fmt.Errorf("window %d: %w", req.WindowID, ErrWindowNotFound)
	}
	bctx := w.handle.(playwright.BrowserContext)

	h.reg.setPendingOrigin(req.WindowID, req.Origin)
	restore, refocus := h.reg.holdFocus(req.WindowID, focusQuietPeriod)
	page, err := bctx.NewPage()
	if err != nil {
		h.reg.setPendingOrigin(req.WindowID, "")
		return mirror.Tab{}, fmt.Errorf("failed to create tab in window %d: %w", req.WindowID, err)
	}
	if refocus {
		h.restoreFocus(restore)
	}
	tab, ok := h.trackPage(bctx, page)
	if !ok {
		return mirror.Tab{}, fmt.Errorf("window %d closed while creating tab", req.WindowID)
	}

	if req.URL != "" {
		h.reg.setQuietURL(tab.ID, req.URL)
		if err := h.navigate(page, req.URL); err != nil {
			h.reg.setQuietURL(tab.ID, "")
			h.logger.Warnf("tab %d: %v", tab.ID, err)
		}
		tab.URL = req.URL
	}
	return tab, nil
}

// UpdateTab implements mirror.Host.
func (h *Host) UpdateTab(ctx context.Context, id mirror.TabID, update mirror.TabUpdate) (mirror.Tab, error) {
	if err := h.checkOpen(); err != nil {
		return mirror.Tab{}, err
	}
	t, page, err := h.page("update tab", id)
	if err != nil {
		return mirror.Tab{}, err
	}

	if update.Active {
		tab, changed, _ := h.reg.activate(page)
		restore, refocus := h.reg.holdFocus(t.window, focusQuietPeriod)
		if err := page.BringToFront(); err != nil {
			return mirror.Tab{}, fmt.Errorf("failed to activate tab %d: %w", id, err)
		}
		if refocus {
			h.restoreFocus(restore)
		}
		if changed {
			h.queue.Push(mirror.Event{
				Type:     mirror.EventTabActivated,
				Tab:      tab,
				WindowID: tab.WindowID,
				Origin:   update.Origin,
			})
		}
	}

	if update.URL != "" {
		h.reg.setNavOrigin(id, update.Origin)
		if err := h.navigate(page, update.URL); err != nil {
			return mirror.Tab{}, fmt.Errorf("tab %d: %w", id, err)
		}
	}

	tab, ok := h.reg.snapshotTab(id)
	if !ok {
		return mirror.Tab{}, fmt.Errorf("tab %d: %w", id, ErrTabNotFound)
	}
	if update.URL != "" {
		tab.URL = update.URL
	}
	return tab, nil
}

// RemoveTab implements mirror.Host. Closing a window's last tab closes the
// window.
func (h *Host) RemoveTab(ctx context.Context, id mirror.TabID) error {
	if err := h.checkOpen(); err != nil {
		return err
	}
	_, page, err := h.page("remove tab", id)
	if err != nil {
		return err
	}
	if err := page.Close(); err != nil {
		return fmt.Errorf("failed to close tab %d: %w", id, err)
	}
	return nil
}

// GetTab implements mirror.Host.
func (h *Host) GetTab(ctx context.Context, id mirror.TabID) (mirror.Tab, error) {
	if !id.Valid() {
		return mirror.Tab{}, &mirror.IdentifierError{Op: "get tab", ID: int(id)}
	}
	tab, ok := h.reg.snapshotTab(id)
	if !ok {
		return mirror.Tab{}, fmt.Errorf("tab %d: %w", id, ErrTabNotFound)
	}
	return tab, nil
}

// ActiveTab implements mirror.Host.
func (h *Host) ActiveTab(ctx context.Context, window mirror.WindowID) (mirror.Tab, error) {
	tab, ok := h.reg.activeTab(window)
	if !ok {
		return mirror.Tab{}, fmt.Errorf("no active tab in window %d: %w", window, ErrTabNotFound)
	}
	return tab, nil
}

// CreateWindow implements mirror.Host. The window's first navigation is not
// reported as a tab update.
func (h *Host) CreateWindow(ctx context.Context, spec mirror.WindowSpec) (mirror.Window, error) {
	if err := h.checkOpen(); err != nil {
		return mirror.Window{}, err
	}
	previous, hadPrevious := h.reg.activeTab(mirror.NoWindow)

	bctx, err := h.browser.NewContext(contextOptions(spec.Device))
	if err != nil {
		return mirror.Window{}, fmt.Errorf("failed to create window: %w", err)
	}
	id := h.reg.addWindow(bctx, spec.Device)
	h.reg.setPendingOrigin(id, spec.Origin)

	if err := h.instrument(bctx); err != nil {
		h.reg.removeWindow(id)
		_ = bctx.Close()
		return mirror.Window{}, err
	}

	page, err := bctx.NewPage()
	if err != nil {
		h.reg.removeWindow(id)
		_ = bctx.Close()
		return mirror.Window{}, fmt.Errorf("failed to open tab in window %d: %w", id, err)
	}
	tab, ok := h.trackPage(bctx, page)
	if !ok {
		return mirror.Window{}, fmt.Errorf("window %d closed while opening", id)
	}

	if spec.URL != "" {
		h.reg.setQuietURL(tab.ID, spec.URL)
		if err := h.navigate(page, spec.URL); err != nil {
			h.reg.setQuietURL(tab.ID, "")
			h.logger.Warnf("window %d: %v", id, err)
		}
		tab.URL = spec.URL
	}

	if spec.Bounds.Width > 0 && spec.Bounds.Height > 0 {
		if err := setWindowBounds(bctx, page, spec.Bounds); err != nil {
			h.logger.Warnf("window %d: %v", id, err)
		}
	}

	h.reg.quietFocus(id, focusQuietPeriod)
	if spec.Focused || !hadPrevious {
		h.reg.setLastFocused(id)
	} else if prevTab, ok := h.reg.tab(previous.ID); ok {
		h.reg.quietFocus(prevTab.window, focusQuietPeriod)
		h.restoreFocus(prevTab)
	}

	h.logger.Infof("opened window %d (%s)", id, spec.Bounds)
	return mirror.Window{ID: id, Tabs: []mirror.Tab{tab}, Bounds: spec.Bounds}, nil
}

// restoreFocus raises the page of t again after another window was brought
// to front. The focus tracker keeps pointing at t's window.
func (h *Host) restoreFocus(t tabEntry) {
	page, ok := t.handle.(playwright.Page)
	if !ok {
		return
	}
	if err := page.BringToFront(); err != nil {
		h.logger.Debugf("failed to restore focus to window %d: %v", t.window, err)
	}
}

// UpdateWindow implements mirror.Host.
func (h *Host) UpdateWindow(ctx context.Context, id mirror.WindowID, bounds mirror.Bounds) error {
	if err := h.checkOpen(); err != nil {
		return err
	}
	if !id.Valid() {
		return &mirror.IdentifierError{Op: "update window", ID: int(id)}
	}
	w, ok := h.reg.window(id)
	if !ok {
		return fmt.Errorf("window %d: %w", id, ErrWindowNotFound)
	}
	tab, ok := h.reg.activeTab(id)
	if !ok {
		return fmt.Errorf("window %d has no tabs", id)
	}
	t, ok := h.reg.tab(tab.ID)
	if !ok {
		return fmt.Errorf("tab %d: %w", tab.ID, ErrTabNotFound)
	}
	return setWindowBounds(w.handle.(playwright.BrowserContext), t.handle.(playwright.Page), bounds)
}

// RemoveWindow implements mirror.Host. Only the window removal is reported;
// its tabs go with it silently.
func (h *Host) RemoveWindow(ctx context.Context, id mirror.WindowID) error {
	if err := h.checkOpen(); err != nil {
		return err
	}
	if !id.Valid() {
		return &mirror.IdentifierError{Op: "remove window", ID: int(id)}
	}
	w, ok := h.reg.window(id)
	if !ok {
		return fmt.Errorf("window %d: %w", id, ErrWindowNotFound)
	}
	if _, ok := h.reg.removeWindow(id); !ok {
		return fmt.Errorf("window %d: %w", id, ErrWindowNotFound)
	}
	h.queue.Push(windowRemoved(id))

	if err := w.handle.(playwright.BrowserContext).Close(); err != nil {
		return fmt.Errorf("failed to close window %d: %w", id, err)
	}
	return nil
}

// ScreenSize implements mirror.Host. The configured override wins; otherwise
// the size is read from the first open page, falling back to 1920x1080.
func (h *Host) ScreenSize(ctx context.Context) (mirror.Size, error) {
	if size, ok := h.opts.screenOverride(); ok {
		return size, nil
	}
	for _, id := range h.reg.windowIDs() {
		tab, ok := h.reg.activeTab(id)
		if !ok {
			continue
		}
		t, ok := h.reg.tab(tab.ID)
		if !ok {
			continue
		}
		res, err := t.handle.(playwright.Page).Evaluate(screenSizeScript)
		if err != nil {
			h.logger.Debugf("screen size from tab %d: %v", tab.ID, err)
			continue
		}
		size, err := parseScreenSize(res)
		if err != nil {
			h.logger.Debugf("screen size from tab %d: %v", tab.ID, err)
			continue
		}
		return size, nil
	}
	h.logger.Debugf("screen size unavailable, using %dx%d", DefaultScreenWidth, DefaultScreenHeight)
	return mirror.Size{Width: DefaultScreenWidth, Height: DefaultScreenHeight}, nil
}

const screenSizeScript = "() => ({ width: screen.availWidth, height: screen.availHeight })"

// SendMessage implements mirror.Host.
func (h *Host) SendMessage(ctx context.Context, id mirror.TabID, msg mirror.Message) error {
	if err := h.checkOpen(); err != nil {
		return err
	}
	_, page, err := h.page("send message", id)
	if err != nil {
		return err
	}
	arg, err := encodeMessage(msg)
	if err != nil {
		return err
	}
	if _, err := page.Evaluate(receiveScript, arg); err != nil {
		return fmt.Errorf("failed to deliver %s message to tab %d: %w", msg.Type, id, err)
	}
	return nil
}

// Close closes every window and stops event delivery.
func (h *Host) Close() error {
	h.closeMu.Lock()
	if h.closed {
		h.closeMu.Unlock()
		return nil
	}
	h.closed = true
	h.closeMu.Unlock()

	h.queue.Close()

	var firstErr error
	for _, id := range h.reg.windowIDs() {
		w, ok := h.reg.window(id)
		h.reg.removeWindow(id)
		if !ok {
			continue
		}
		if err := w.handle.(playwright.BrowserContext).Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close window %d: %w", id, err)
		}
	}
	return firstErr
}

func (h *Host) checkOpen() error {
	h.closeMu.Lock()
	defer h.closeMu.Unlock()
	if h.closed {
		return ErrClosed
	}
	return nil
}

func (h *Host) page(op string, id mirror.TabID) (tabEntry, playwright.Page, error) {
	if !id.Valid() {
		return tabEntry{}, nil, &mirror.IdentifierError{Op: op, ID: int(id)}
	}
	t, ok := h.reg.tab(id)
	if !ok {
		return tabEntry{}, nil, fmt.Errorf("tab %d: %w", id, ErrTabNotFound)
	}
	return t, t.handle.(playwright.Page), nil
}

func (h *Host) navigate(page playwright.Page, url string) error {
	_, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateCommit,
		Timeout:   playwright.Float(h.opts.Timeout),
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %q: %w", url, err)
	}
	return nil
}

func wrapInstrumentErr(what string, err error) error {
	return fmt.Errorf("failed to install %s: %w", what, err)
}

func contextOptions(device *mirror.Device) playwright.BrowserNewContextOptions {
	if device == nil {
		return playwright.BrowserNewContextOptions{NoViewport: playwright.Bool(true)}
	}
	scale := device.ScaleFactor
	if scale <= 0 {
		scale = 1
	}
	opts := playwright.BrowserNewContextOptions{
		Viewport:          &playwright.Size{Width: device.Width, Height: device.Height},
		IsMobile:          playwright.Bool(device.Mobile),
		HasTouch:          playwright.Bool(device.Touch),
		DeviceScaleFactor: playwright.Float(scale),
	}
	if device.UserAgent != "" {
		opts.UserAgent = playwright.String(device.UserAgent)
	}
	return opts
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
