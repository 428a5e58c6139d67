package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/tabmirror/pkg/mirror"
)

const blankPage = "data:text/html,<html><body style='height:4000px'>tabmirror</body></html>"

func launchHost(t *testing.T) *Host {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser integration test in short mode")
	}

	manager := NewManager()
	if err := manager.Initialize(); err != nil {
		t.Skipf("playwright unavailable: %v", err)
	}
	host, err := manager.Launch(Options{
		Headless:   true,
		ScreenSize: mirror.Size{Width: 1920, Height: 1080},
	})
	if err != nil {
		_ = manager.Shutdown()
		t.Skipf("chromium unavailable: %v", err)
	}
	t.Cleanup(func() { _ = manager.Shutdown() })
	return host
}

func waitFor(t *testing.T, host *Host, kind mirror.EventType) mirror.Event {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-host.Events():
			require.True(t, ok, "event stream closed")
			if ev.Type == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func TestHost_WindowLifecycle(t *testing.T) {
	host := launchHost(t)
	ctx := context.Background()

	win, err := host.OpenWindow(ctx, blankPage)
	require.NoError(t, err)
	require.Len(t, win.Tabs, 1)

	created := waitFor(t, host, mirror.EventTabCreated)
	assert.Equal(t, win.Tabs[0].ID, created.Tab.ID)
	assert.Equal(t, win.ID, created.WindowID)

	tab, err := host.CreateTab(ctx, mirror.CreateTabRequest{WindowID: win.ID, Active: true, Origin: "tag-create"})
	require.NoError(t, err)
	created = waitFor(t, host, mirror.EventTabCreated)
	assert.Equal(t, tab.ID, created.Tab.ID)
	assert.Equal(t, "tag-create", created.Origin)

	_, err = host.UpdateTab(ctx, tab.ID, mirror.TabUpdate{URL: blankPage, Origin: "tag-nav"})
	require.NoError(t, err)
	updated := waitFor(t, host, mirror.EventTabUpdated)
	assert.Equal(t, tab.ID, updated.Tab.ID)
	assert.Equal(t, "tag-nav", updated.Origin)

	got, err := host.GetTab(ctx, tab.ID)
	require.NoError(t, err)
	assert.Equal(t, blankPage, got.URL)

	require.NoError(t, host.SendMessage(ctx, tab.ID, mirror.Message{Type: mirror.MessageScroll, ScrollPercentage: 0.5}))

	require.NoError(t, host.RemoveTab(ctx, tab.ID))
	removed := waitFor(t, host, mirror.EventTabRemoved)
	assert.Equal(t, tab.ID, removed.Tab.ID)

	require.NoError(t, host.RemoveWindow(ctx, win.ID))
	gone := waitFor(t, host, mirror.EventWindowRemoved)
	assert.Equal(t, win.ID, gone.WindowID)

	_, err = host.GetTab(ctx, win.Tabs[0].ID)
	assert.ErrorIs(t, err, ErrTabNotFound)
}

func TestHost_CreateMobileWindow(t *testing.T) {
	host := launchHost(t)
	ctx := context.Background()

	device := &mirror.Device{Name: "Test Phone", Width: 390, Height: 844, UserAgent: "TestPhone/1.0", Mobile: true, Touch: true}
	win, err := host.CreateWindow(ctx, mirror.WindowSpec{
		URL:    blankPage,
		Bounds: mirror.Bounds{Left: 1280, Top: 0, Width: 390, Height: 844},
		Device: device,
		Origin: "tag-window",
	})
	require.NoError(t, err)
	require.Len(t, win.Tabs, 1)
	assert.Equal(t, blankPage, win.Tabs[0].URL)

	created := waitFor(t, host, mirror.EventTabCreated)
	assert.Equal(t, "tag-window", created.Origin)
	assert.Equal(t, win.ID, created.WindowID)

	active, err := host.ActiveTab(ctx, win.ID)
	require.NoError(t, err)
	assert.Equal(t, win.Tabs[0].ID, active.ID)

	size, err := host.ScreenSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, mirror.Size{Width: 1920, Height: 1080}, size)
}

func TestHost_InvalidIdentifiers(t *testing.T) {
	host := newHost(nil, Options{})
	defer host.Close()
	ctx := context.Background()

	_, err := host.GetTab(ctx, mirror.NoTab)
	assert.ErrorIs(t, err, mirror.ErrInvalidIdentifier)

	_, err = host.UpdateTab(ctx, mirror.TabID(-5), mirror.TabUpdate{Active: true})
	assert.ErrorIs(t, err, mirror.ErrInvalidIdentifier)

	err = host.RemoveWindow(ctx, mirror.NoWindow)
	assert.ErrorIs(t, err, mirror.ErrInvalidIdentifier)

	_, err = host.GetTab(ctx, 42)
	assert.ErrorIs(t, err, ErrTabNotFound)

	err = host.UpdateWindow(ctx, 42, mirror.Bounds{})
	assert.ErrorIs(t, err, ErrWindowNotFound)

	_, err = host.ActiveTab(ctx, mirror.NoWindow)
	assert.ErrorIs(t, err, ErrTabNotFound)
}

func TestHost_ClosedHostRejectsCommands(t *testing.T) {
	host := newHost(nil, Options{})
	require.NoError(t, host.Close())
	require.NoError(t, host.Close())

	_, err := host.CreateTab(context.Background(), mirror.CreateTabRequest{WindowID: 1})
	assert.ErrorIs(t, err, ErrClosed)

	_, ok := <-host.Events()
	assert.False(t, ok)
}

func TestHost_ScreenSizeFallback(t *testing.T) {
	host := newHost(nil, Options{})
	defer host.Close()

	size, err := host.ScreenSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mirror.Size{Width: DefaultScreenWidth, Height: DefaultScreenHeight}, size)
}
