package mirror

import (
	"context"
	"fmt"
)

// Trigger starts a mirror session.
type Trigger struct {
	// WindowID is the window the user invoked the trigger from. NoWindow
	// means the host's last focused window.
	WindowID WindowID
}

// Seed is the result of a successful bootstrap, committed by the Synchronizer.
type Seed struct {
	DesktopWindow WindowID
	MobileWindow  WindowID
	DesktopTab    TabID
	MobileTab     TabID
	DesktopBounds Bounds
	MobileBounds  Bounds
	URL           string
}

// DesktopBounds anchors the desktop window at the screen origin and gives it
// two thirds of the screen width and the full height.
func DesktopBounds(screen Size) Bounds {
	return Bounds{
		Left:   0,
		Top:    0,
		Width:  screen.Width * 2 / 3,
		Height: screen.Height,
	}
}

// MobileBounds places the mobile window at the right edge of the desktop
// region, sized by the device. Zero device dimensions fall back to half the
// screen width and the full screen height.
func MobileBounds(screen Size, desktop Bounds, device Device) Bounds {
	width := device.Width
	if width == 0 {
		width = screen.Width / 2
	}
	height := device.Height
	if height == 0 {
		height = screen.Height
	}
	return Bounds{
		Left:   desktop.Right(),
		Top:    desktop.Top,
		Width:  width,
		Height: height,
	}
}

// Bootstrapper opens the window pair for a new session. It does not touch
// session state; the returned Seed is committed by the Synchronizer.
type Bootstrapper struct {
	host     Host
	settings Settings
	logger   Logger

	// tag returns an origin tag for window creation commands.
	tag func() string
}

// NewBootstrapper creates a bootstrapper.
func NewBootstrapper(host Host, settings Settings, logger Logger) *Bootstrapper {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Bootstrapper{
		host:     host,
		settings: settings,
		logger:   logger,
		tag:      func() string { return "" },
	}
}

// Bootstrap opens the desktop/mobile window pair.
func (b *Bootstrapper) Bootstrap(ctx context.Context, trigger Trigger) (Seed, error) {
	source, err := b.host.ActiveTab(ctx, trigger.WindowID)
	if err != nil {
		return Seed{}, fmt.Errorf("failed to find invoking tab: %w", err)
	}
	url := source.URL

	desktopWindow := source.WindowID
	desktopTab := source
	opened := NoWindow
	fail := func(err error) (Seed, error) {
		b.discard(ctx, opened)
		return Seed{}, err
	}

	if b.settings.StartSession() == SessionModeNew {
		win, err := b.host.CreateWindow(ctx, WindowSpec{
			URL:     url,
			Focused: true,
			Origin:  b.tag(),
		})
		if err != nil {
			return Seed{}, fmt.Errorf("failed to open desktop window: %w", err)
		}
		opened = win.ID
		if len(win.Tabs) == 0 {
			return fail(fmt.Errorf("desktop window %d opened without a tab", win.ID))
		}
		desktopWindow = win.ID
		desktopTab = win.Tabs[0]
	}

	screen, err := b.host.ScreenSize(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to read screen size: %w", err))
	}

	device := b.settings.Device()
	desktopBounds := DesktopBounds(screen)
	mobileBounds := MobileBounds(screen, desktopBounds, device)

	if err := b.host.UpdateWindow(ctx, desktopWindow, desktopBounds); err != nil {
		// Geometry is cosmetic; the session still works with the old size.
		b.logger.Warnf("failed to resize desktop window %d to %s: %v", desktopWindow, desktopBounds, err)
	}

	mobile, err := b.host.CreateWindow(ctx, WindowSpec{
		URL:     url,
		Bounds:  mobileBounds,
		Focused: false,
		Device:  &device,
		Origin:  b.tag(),
	})
	if err != nil {
		return fail(fmt.Errorf("failed to open mobile window: %w", err))
	}
	if len(mobile.Tabs) == 0 {
		b.discard(ctx, mobile.ID)
		return fail(fmt.Errorf("mobile window %d opened without a tab", mobile.ID))
	}

	seed := Seed{
		DesktopWindow: desktopWindow,
		MobileWindow:  mobile.ID,
		DesktopTab:    desktopTab.ID,
		MobileTab:     mobile.Tabs[0].ID,
		DesktopBounds: desktopBounds,
		MobileBounds:  mobileBounds,
		URL:           url,
	}
	b.logger.Infof("bootstrapped session: desktop window %d (%s), mobile window %d (%s, device %q), url %q",
		seed.DesktopWindow, desktopBounds, seed.MobileWindow, mobileBounds, device.Name, url)
	return seed, nil
}

// discard closes a window opened by a bootstrap that did not complete.
func (b *Bootstrapper) discard(ctx context.Context, id WindowID) {
	if !id.Valid() {
		return
	}
	if err := b.host.RemoveWindow(ctx, id); err != nil {
		b.logger.Warnf("failed to close window %d: %v", id, err)
	}
}
