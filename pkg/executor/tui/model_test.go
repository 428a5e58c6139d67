package tui

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/tabmirror/pkg/mirror"
)

type fakeMirror struct {
	starts   int
	startErr error
	snapshot mirror.Snapshot
}

func (f *fakeMirror) StartSession(ctx context.Context, trigger mirror.Trigger) error {
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.snapshot = mirror.Snapshot{
		Phase:         mirror.PhaseActive,
		DesktopWindow: 1,
		MobileWindow:  2,
		FocusedWindow: 1,
		Pairs:         []mirror.Pair{{Desktop: 10, Mobile: 20}},
	}
	return nil
}

func (f *fakeMirror) Snapshot() mirror.Snapshot { return f.snapshot }

func idle() mirror.Snapshot {
	return mirror.Snapshot{
		Phase:         mirror.PhaseIdle,
		DesktopWindow: mirror.NoWindow,
		MobileWindow:  mirror.NoWindow,
		FocusedWindow: mirror.NoWindow,
	}
}

func newTestModel(session Mirror) *model {
	m := initialModel(context.Background(), session)
	m.now = func() time.Time { return time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC) }
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return &m
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestModel_MirrorKeyStartsSession(t *testing.T) {
	session := &fakeMirror{snapshot: idle()}
	m := newTestModel(session)

	_, cmd := m.Update(keyPress('m'))
	require.NotNil(t, cmd)
	assert.True(t, m.starting)

	_, again := m.Update(keyPress('m'))
	assert.Nil(t, again, "second press while starting is ignored")

	msg := cmd()
	m.Update(msg)

	assert.Equal(t, 1, session.starts)
	assert.False(t, m.starting)
	assert.Equal(t, mirror.PhaseActive, m.snapshot.Phase)
	assert.Contains(t, m.View(), "active")
	assert.Contains(t, m.View(), "10⇄20")
	assert.Contains(t, m.View(), "window 1 (focused)")
}

func TestModel_MirrorKeyWhileActive(t *testing.T) {
	session := &fakeMirror{snapshot: idle()}
	m := newTestModel(session)
	m.Update(snapshotMsg(mirror.Snapshot{Phase: mirror.PhaseActive, DesktopWindow: 1, MobileWindow: 2}))

	_, cmd := m.Update(keyPress('m'))
	assert.Nil(t, cmd)
	assert.Equal(t, 0, session.starts)
	assert.Contains(t, m.View(), "already active")
}

func TestModel_StartFailure(t *testing.T) {
	session := &fakeMirror{snapshot: idle(), startErr: errors.New("no active tab")}
	m := newTestModel(session)

	_, cmd := m.Update(keyPress('m'))
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.EqualError(t, m.lastErr, "no active tab")
	assert.Contains(t, m.View(), "Failed to start mirror session: no active tab")
	assert.Contains(t, m.View(), "idle")

	m.Update(keyPress('c'))
	assert.Nil(t, m.lastErr)
	assert.Empty(t, m.activity)
}

func TestModel_SnapshotActivity(t *testing.T) {
	m := newTestModel(&fakeMirror{snapshot: idle()})

	active := mirror.Snapshot{Phase: mirror.PhaseActive, DesktopWindow: 1, MobileWindow: 2, Pairs: []mirror.Pair{{Desktop: 10, Mobile: 20}}}
	m.Update(snapshotMsg(active))

	more := active
	more.Pairs = []mirror.Pair{{Desktop: 10, Mobile: 20}, {Desktop: 11, Mobile: 21}}
	m.Update(snapshotMsg(more))
	m.Update(snapshotMsg(active))
	m.Update(snapshotMsg(idle()))

	require.Len(t, m.activity, 4)
	assert.Equal(t, "Session active: desktop window 1, mobile window 2", m.activity[0].text)
	assert.Equal(t, "Mirrored tab 11 ⇄ 21", m.activity[1].text)
	assert.Equal(t, "Closed mirrored tab, 1 pair(s) left", m.activity[2].text)
	assert.Equal(t, "Mobile window closed, session idle", m.activity[3].text)
}

func TestModel_ActivityIsBounded(t *testing.T) {
	m := newTestModel(&fakeMirror{snapshot: idle()})
	for i := 0; i < maxActivity+5; i++ {
		m.addActivity(fmt.Sprintf("entry %d", i), false)
	}
	require.Len(t, m.activity, maxActivity)
	assert.Equal(t, fmt.Sprintf("entry %d", maxActivity+4), m.activity[maxActivity-1].text)
}

func TestModel_QuitAndHelp(t *testing.T) {
	m := newTestModel(&fakeMirror{snapshot: idle()})

	m.Update(keyPress('?'))
	assert.True(t, m.help.ShowAll)

	_, cmd := m.Update(keyPress('q'))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_ViewBeforeReady(t *testing.T) {
	m := initialModel(context.Background(), &fakeMirror{snapshot: idle()})
	assert.Equal(t, "Initializing...", m.View())
}

func TestModel_HeaderAndLogPath(t *testing.T) {
	m := newTestModel(&fakeMirror{snapshot: idle()})
	m.device = "iPhone 14"
	m.logPath = "/tmp/tabmirror.log"

	view := m.View()
	assert.Contains(t, view, "emulating iPhone 14")
	assert.Contains(t, view, "Log: /tmp/tabmirror.log")
	assert.Contains(t, view, "No activity yet")
}
