package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/tabmirror/pkg/mirror"
)

// View renders the entire TUI interface.
func (m *model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	sections := []string{
		m.buildHeader(),
		m.buildTips(),
		m.buildStatusPanel(),
		m.buildActivity(),
		m.help.View(m.keys),
		m.buildBottomBar(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *model) buildHeader() string {
	title := headerStyle.Render("⇄ Tab Mirror")
	if m.device == "" {
		return title
	}
	return title + tipsStyle.Render("  emulating "+m.device)
}

func (m *model) buildTips() string {
	return tipsStyle.Render("  Focus a browser tab, then press m to open its mobile mirror")
}

func (m *model) buildStatusPanel() string {
	var b strings.Builder
	snap := m.snapshot

	b.WriteString(labelStyle.Render("Session  "))
	switch {
	case m.starting:
		b.WriteString(m.spinner.View() + " " + valueStyle.Render("starting"))
	case snap.Phase == mirror.PhaseActive:
		b.WriteString(activeStyle.Render("active"))
	default:
		b.WriteString(idleStyle.Render("idle"))
	}
	b.WriteString("\n")

	if snap.Phase == mirror.PhaseActive {
		fmt.Fprintf(&b, "%s%s\n", labelStyle.Render("Desktop  "), valueStyle.Render(windowLabel(snap.DesktopWindow, snap.FocusedWindow)))
		fmt.Fprintf(&b, "%s%s\n", labelStyle.Render("Mobile   "), valueStyle.Render(windowLabel(snap.MobileWindow, snap.FocusedWindow)))
		b.WriteString(labelStyle.Render("Pairs    "))
		b.WriteString(valueStyle.Render(formatPairs(snap.Pairs)))
	}

	width := m.width - 4
	if width < 20 {
		width = 20
	}
	return panelStyle.Width(width).Render(strings.TrimRight(b.String(), "\n"))
}

func (m *model) buildActivity() string {
	if len(m.activity) == 0 {
		return tipsStyle.Render("  No activity yet")
	}
	lines := make([]string, 0, len(m.activity))
	for _, a := range m.activity {
		line := fmt.Sprintf("  %s  %s", a.at.Format("15:04:05"), a.text)
		if a.isError {
			lines = append(lines, errorStyle.Render(line))
		} else {
			lines = append(lines, tipsStyle.Render(line))
		}
	}
	return strings.Join(lines, "\n")
}

func (m *model) buildBottomBar() string {
	if m.logPath == "" {
		return ""
	}
	return statusBarStyle.Render("Log: " + m.logPath)
}

func windowLabel(id, focused mirror.WindowID) string {
	label := fmt.Sprintf("window %d", id)
	if id == focused {
		label += " (focused)"
	}
	return label
}

func formatPairs(pairs []mirror.Pair) string {
	if len(pairs) == 0 {
		return "none"
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("%d⇄%d", p.Desktop, p.Mobile)
	}
	return strings.Join(parts, "  ")
}
