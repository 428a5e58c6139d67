package mirror

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// activeSession opens W1/T1 on https://example.com and bootstraps a session
// reusing it. The mobile window comes back as W2 with T2.
func activeSession(t *testing.T, settings StaticSettings, opts ...Option) (*Synchronizer, *mockHost) {
	t.Helper()
	host := newMockHost()
	win, tab := host.openWindow("https://example.com")
	require.Equal(t, WindowID(1), win)
	require.Equal(t, TabID(1), tab)

	s := NewSynchronizer(host, settings, opts...)
	require.NoError(t, s.startSession(context.Background(), Trigger{WindowID: NoWindow}))
	drain(t, s, host)
	return s, host
}

func reuseSettings() StaticSettings {
	return StaticSettings{DeviceProfile: testDevice, Mode: SessionModeReuse, Lock: ScrollLockOff}
}

func TestSynchronizer_BootstrapReuse(t *testing.T) {
	s, host := activeSession(t, reuseSettings())

	snap := s.Snapshot()
	assert.Equal(t, PhaseActive, snap.Phase)
	assert.Equal(t, WindowID(1), snap.DesktopWindow)
	assert.Equal(t, WindowID(2), snap.MobileWindow)
	assert.Equal(t, WindowID(1), snap.FocusedWindow)
	assert.False(t, snap.Creating)
	assert.Equal(t, []Pair{{Desktop: 1, Mobile: 2}}, snap.Pairs)

	mobileTab, ok := host.tab(2)
	require.True(t, ok)
	assert.Equal(t, WindowID(2), mobileTab.WindowID)
	assert.Equal(t, "https://example.com", mobileTab.URL)

	// The mobile window's own creation event must not spawn a mirror.
	assert.Empty(t, host.createdTabs)
	assert.Equal(t, 0, s.echoes.pending())
}

func TestSynchronizer_TriggerWhileActive(t *testing.T) {
	s, host := activeSession(t, reuseSettings())

	err := s.startSession(context.Background(), Trigger{WindowID: 1})
	assert.ErrorIs(t, err, ErrSessionActive)
	assert.Len(t, host.createdWindows, 1)
	assert.Equal(t, WindowID(2), s.Snapshot().MobileWindow)
}

func TestSynchronizer_TabCreatedIsMirroredOnce(t *testing.T) {
	s, host := activeSession(t, reuseSettings())

	ev := host.userOpenTab(1, "https://example.com/a")
	require.Equal(t, TabID(3), ev.Tab.ID)
	s.Handle(context.Background(), ev)

	require.Len(t, host.createdTabs, 1)
	assert.Equal(t, WindowID(2), host.createdTabs[0].WindowID)
	assert.False(t, s.state.Guard.Held())

	peer, err := s.pairs.CorrespondingTab(3)
	require.NoError(t, err)
	assert.Equal(t, TabID(4), peer)
	assert.True(t, s.pairs.IsDesktopTab(3))

	mirror, ok := host.tab(4)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/a", mirror.URL)

	// Feeding the mirror's own creation and navigation events back in
	// must not produce another hop.
	handled := drain(t, s, host)
	assert.Equal(t, 2, handled)
	assert.Len(t, host.createdTabs, 1)
	assert.Len(t, host.tabsIn(1), 2)
	assert.Len(t, host.tabsIn(2), 2)
}

func TestSynchronizer_TabCreatedInMobileWindow(t *testing.T) {
	s, host := activeSession(t, reuseSettings())

	s.Handle(context.Background(), host.userOpenTab(2, "https://m.example.com"))
	drain(t, s, host)

	require.Len(t, host.createdTabs, 1)
	assert.Equal(t, WindowID(1), host.createdTabs[0].WindowID)

	// Orientation follows the window, not the event source.
	assert.True(t, s.pairs.IsDesktopTab(4))
	assert.Equal(t, SideMobile, s.pairs.Side(3))
}

func TestSynchronizer_TabCreatedWithoutURL(t *testing.T) {
	s, host := activeSession(t, reuseSettings())

	s.Handle(context.Background(), host.userOpenTab(1, ""))
	drain(t, s, host)

	require.Len(t, host.createdTabs, 1)
	assert.Empty(t, host.updates)
	assert.True(t, s.pairs.Contains(3))
}

func TestSynchronizer_TabCreatedWhileIdle(t *testing.T) {
	host := newMockHost()
	win, _ := host.openWindow("https://example.com")
	s := NewSynchronizer(host, reuseSettings())

	s.Handle(context.Background(), host.userOpenTab(win, "https://example.com/b"))
	assert.Empty(t, host.createdTabs)
	assert.Equal(t, 0, s.pairs.Len())
}

func TestSynchronizer_TabCreatedInUntrackedWindow(t *testing.T) {
	s, host := activeSession(t, reuseSettings())
	other, _ := host.openWindow("https://other.example")

	s.Handle(context.Background(), host.userOpenTab(other, "https://other.example/x"))
	assert.Empty(t, host.createdTabs)
}

func TestSynchronizer_GuardBlocksReentrantCreation(t *testing.T) {
	s, host := activeSession(t, reuseSettings())

	require.True(t, s.state.Guard.TryEnter())
	s.Handle(context.Background(), host.userOpenTab(1, "https://example.com/c"))
	assert.Empty(t, host.createdTabs)
	s.state.Guard.Leave()
}

func TestSynchronizer_CreateFailureReleasesGuard(t *testing.T) {
	s, host := activeSession(t, reuseSettings())
	host.createErr = errors.New("window closed")

	s.Handle(context.Background(), host.userOpenTab(1, "https://example.com/d"))
	assert.False(t, s.state.Guard.Held())
	assert.False(t, s.pairs.Contains(3))
	assert.Equal(t, 0, s.echoes.pending())
}

func TestSynchronizer_TabRemoved(t *testing.T) {
	s, host := activeSession(t, reuseSettings())
	s.Handle(context.Background(), host.userOpenTab(1, "https://example.com/a"))
	drain(t, s, host)
	require.True(t, s.pairs.Contains(3))

	s.Handle(context.Background(), host.userCloseTab(3))
	assert.Equal(t, []TabID{4}, host.removed)
	assert.False(t, s.pairs.Contains(3))
	assert.False(t, s.pairs.Contains(4))

	// The echo of closing T4 finds no pair and stops there.
	drain(t, s, host)
	assert.Equal(t, []TabID{4}, host.removed)
	assert.Equal(t, []Pair{{Desktop: 1, Mobile: 2}}, s.pairs.Pairs())
}

func TestSynchronizer_UnpairedTabRemoved(t *testing.T) {
	s, host := activeSession(t, reuseSettings())
	_, tab := host.openWindow("https://other.example")

	s.Handle(context.Background(), host.userCloseTab(tab))
	assert.Empty(t, host.removed)
	assert.Equal(t, 1, s.pairs.Len())
}

func TestSynchronizer_TabActivated(t *testing.T) {
	s, host := activeSession(t, reuseSettings())
	s.Handle(context.Background(), host.userOpenTab(1, "https://example.com/a"))
	drain(t, s, host)
	host.updates = nil

	tab1, _ := host.tab(1)
	s.Handle(context.Background(), Event{Type: EventTabActivated, Tab: tab1, WindowID: 1})

	require.Len(t, host.updates, 1)
	assert.Equal(t, TabID(2), host.updates[0].ID)
	assert.True(t, host.updates[0].Update.Active)
	assert.Empty(t, host.updates[0].Update.URL)

	mirror, _ := host.tab(2)
	assert.True(t, mirror.Active)

	// The activation echo on T2 is ours and is not bounced back to T1.
	drain(t, s, host)
	assert.Len(t, host.updates, 1)
}

func TestSynchronizer_ActivationOfAlreadyActivePeer(t *testing.T) {
	s, host := activeSession(t, reuseSettings())

	mirror, _ := host.tab(2)
	require.True(t, mirror.Active)
	pending := s.echoes.pending()

	tab1, _ := host.tab(1)
	s.Handle(context.Background(), Event{Type: EventTabActivated, Tab: tab1, WindowID: 1})

	require.Len(t, host.updates, 1)
	assert.True(t, host.updates[0].Update.Active)
	assert.Empty(t, host.updates[0].Update.Origin)
	assert.Equal(t, pending, s.echoes.pending(), "no echo is expected when nothing changes")
	assert.Equal(t, 0, drain(t, s, host))

	// A later user activation of the mobile tab is still mirrored.
	s.Handle(context.Background(), host.userOpenTab(1, ""))
	drain(t, s, host)
	host.updates = nil
	s.Handle(context.Background(), Event{Type: EventTabActivated, Tab: mirror, WindowID: 2})
	require.Len(t, host.updates, 1)
	assert.Equal(t, TabID(1), host.updates[0].ID)
}

func TestSynchronizer_ActivationInUntrackedWindow(t *testing.T) {
	s, host := activeSession(t, reuseSettings())
	other, tab := host.openWindow("https://other.example")
	require.Equal(t, WindowID(3), other)

	// Even a paired tab reported from an untracked window is ignored.
	require.NoError(t, s.pairs.AddPair(tab, 99))
	s.Handle(context.Background(), Event{Type: EventTabActivated, Tab: Tab{ID: tab, WindowID: other}, WindowID: other})
	assert.Empty(t, host.updates)
}

func TestSynchronizer_NavigationFollowsFocus(t *testing.T) {
	s, host := activeSession(t, reuseSettings())

	s.Handle(context.Background(), Event{Type: EventWindowFocusChanged, WindowID: 1})
	s.Handle(context.Background(), Event{
		Type:     EventTabUpdated,
		Tab:      Tab{ID: 1, WindowID: 1},
		WindowID: 1,
		URL:      "https://example.com/next",
	})

	require.Len(t, host.updates, 1)
	assert.Equal(t, TabID(2), host.updates[0].ID)
	assert.Equal(t, "https://example.com/next", host.updates[0].Update.URL)

	// T2's navigation echo is recognized and does not bounce back.
	assert.Equal(t, 1, drain(t, s, host))
	assert.Len(t, host.updates, 1)
}

func TestSynchronizer_NavigationInUnfocusedWindow(t *testing.T) {
	s, host := activeSession(t, reuseSettings())

	s.Handle(context.Background(), Event{Type: EventWindowFocusChanged, WindowID: 2})
	s.Handle(context.Background(), Event{
		Type:     EventTabUpdated,
		Tab:      Tab{ID: 1, WindowID: 1},
		WindowID: 1,
		URL:      "https://example.com/redirected",
	})
	assert.Empty(t, host.updates)
}

func TestSynchronizer_NavigationFromMobileWindow(t *testing.T) {
	s, host := activeSession(t, reuseSettings())

	s.Handle(context.Background(), Event{Type: EventWindowFocusChanged, WindowID: 2})
	s.Handle(context.Background(), Event{
		Type:     EventTabUpdated,
		Tab:      Tab{ID: 2, WindowID: 2},
		WindowID: 2,
		URL:      "https://example.com/from-phone",
	})

	require.Len(t, host.updates, 1)
	assert.Equal(t, TabID(1), host.updates[0].ID)
}

func TestSynchronizer_UntaggedEchoMatchedByKey(t *testing.T) {
	s, host := activeSession(t, reuseSettings())
	s.Handle(context.Background(), Event{Type: EventWindowFocusChanged, WindowID: 1})
	s.Handle(context.Background(), Event{
		Type: EventTabUpdated, Tab: Tab{ID: 1, WindowID: 1}, WindowID: 1, URL: "https://EXAMPLE.com/x",
	})
	require.Len(t, host.updates, 1)

	// Drop the tagged echo and deliver one without an origin, as a host
	// that cannot correlate would. Focus on the mobile side lets it through
	// the focus filter, so only the ledger can stop it.
	<-host.events
	s.Handle(context.Background(), Event{Type: EventWindowFocusChanged, WindowID: 2})
	s.Handle(context.Background(), Event{
		Type: EventTabUpdated, Tab: Tab{ID: 2, WindowID: 2}, WindowID: 2, URL: "https://example.com/x",
	})
	assert.Len(t, host.updates, 1)
}

func TestSynchronizer_MobileWindowRemovedResets(t *testing.T) {
	var snapshots []Snapshot
	s, host := activeSession(t, reuseSettings(), WithChangeNotifier(func(snap Snapshot) {
		snapshots = append(snapshots, snap)
	}))
	s.Handle(context.Background(), host.userOpenTab(1, "https://example.com/a"))
	drain(t, s, host)

	s.Handle(context.Background(), Event{Type: EventWindowRemoved, WindowID: 2})

	snap := s.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Equal(t, NoWindow, snap.DesktopWindow)
	assert.Equal(t, NoWindow, snap.MobileWindow)
	assert.Equal(t, NoWindow, snap.FocusedWindow)
	assert.Empty(t, snap.Pairs)
	require.NotEmpty(t, snapshots)
	assert.Equal(t, PhaseIdle, snapshots[len(snapshots)-1].Phase)

	// The system can be re-armed.
	require.NoError(t, s.startSession(context.Background(), Trigger{WindowID: 1}))
	assert.Equal(t, PhaseActive, s.Snapshot().Phase)
}

func TestSynchronizer_DesktopWindowRemovedIsIgnored(t *testing.T) {
	s, _ := activeSession(t, reuseSettings())

	s.Handle(context.Background(), Event{Type: EventWindowRemoved, WindowID: 1})
	assert.Equal(t, PhaseActive, s.Snapshot().Phase)
	assert.Equal(t, 1, s.pairs.Len())
}

func TestSynchronizer_RelaysMessages(t *testing.T) {
	s, host := activeSession(t, reuseSettings())

	msg := &Message{Type: MessageScroll, ScrollPercentage: 0.42}
	s.Handle(context.Background(), Event{Type: EventMessage, Tab: Tab{ID: 1}, WindowID: 1, Message: msg})

	require.Len(t, host.sent, 1)
	assert.Equal(t, TabID(2), host.sent[0].To)
	assert.InDelta(t, 0.42, host.sent[0].Msg.ScrollPercentage, 1e-9)
}

func TestSynchronizer_InvalidTabIsLogged(t *testing.T) {
	logger := &recordingLogger{}
	s, host := activeSession(t, reuseSettings(), WithLogger(logger))

	s.Handle(context.Background(), Event{Type: EventTabRemoved, Tab: Tab{ID: -4}, WindowID: 1})
	assert.Empty(t, host.removed)
	assert.True(t, logger.has("ERROR"))
}

func TestSynchronizer_RunAndStartSession(t *testing.T) {
	host := newMockHost()
	host.openWindow("https://example.com")

	notified := make(chan Snapshot, 16)
	s := NewSynchronizer(host, reuseSettings(), WithChangeNotifier(func(snap Snapshot) {
		notified <- snap
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.NoError(t, s.StartSession(ctx, Trigger{WindowID: NoWindow}))
	assert.ErrorIs(t, s.StartSession(ctx, Trigger{WindowID: NoWindow}), ErrSessionActive)

	select {
	case snap := <-notified:
		assert.Equal(t, PhaseActive, snap.Phase)
	case <-time.After(time.Second):
		t.Fatal("no change notification after bootstrap")
	}

	host.emit(host.userOpenTab(1, "https://example.com/live"))
	require.Eventually(t, func() bool {
		return len(s.Snapshot().Pairs) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
