package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/tabmirror/pkg/mirror"
)

// Init implements tea.Model.
func (m *model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles all state updates for the TUI model.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case snapshotMsg:
		m.applySnapshot(mirror.Snapshot(msg))
		return m, nil

	case sessionStartedMsg:
		m.starting = false
		m.handleSessionStarted(msg.err)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Clear):
		m.activity = nil
		m.lastErr = nil
	case key.Matches(msg, m.keys.Mirror):
		return m, m.startSession()
	}
	return m, nil
}

// startSession triggers a session from the focused window. Repeated presses
// while a trigger is running are ignored.
func (m *model) startSession() tea.Cmd {
	if m.starting {
		return nil
	}
	if m.snapshot.Phase == mirror.PhaseActive {
		m.addActivity("Mirror session already active", false)
		return nil
	}
	m.starting = true
	m.addActivity("Opening mobile window...", false)

	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		return sessionStartedMsg{err: session.StartSession(ctx, mirror.Trigger{WindowID: mirror.NoWindow})}
	}
}

func (m *model) handleSessionStarted(err error) {
	switch {
	case err == nil:
		m.lastErr = nil
		m.applySnapshot(m.session.Snapshot())
	case errors.Is(err, mirror.ErrSessionActive):
		m.addActivity("Mirror session already active", false)
	default:
		m.lastErr = err
		m.addActivity(fmt.Sprintf("Failed to start mirror session: %v", err), true)
	}
}

// applySnapshot records a new session state and logs what changed.
func (m *model) applySnapshot(snap mirror.Snapshot) {
	prev := m.snapshot
	m.snapshot = snap

	switch {
	case snap.Phase == mirror.PhaseActive && prev.Phase != mirror.PhaseActive:
		m.addActivity(fmt.Sprintf("Session active: desktop window %d, mobile window %d", snap.DesktopWindow, snap.MobileWindow), false)
	case snap.Phase == mirror.PhaseIdle && prev.Phase == mirror.PhaseActive:
		m.addActivity("Mobile window closed, session idle", false)
	case len(snap.Pairs) > len(prev.Pairs):
		p := snap.Pairs[len(snap.Pairs)-1]
		m.addActivity(fmt.Sprintf("Mirrored tab %d ⇄ %d", p.Desktop, p.Mobile), false)
	case len(snap.Pairs) < len(prev.Pairs):
		m.addActivity(fmt.Sprintf("Closed mirrored tab, %d pair(s) left", len(snap.Pairs)), false)
	}
}
