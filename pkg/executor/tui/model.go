package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"

	"github.com/entrhq/tabmirror/pkg/mirror"
)

// maxActivity bounds the activity log shown under the status panel.
const maxActivity = 8

// model represents the state of the TUI application.
type model struct {
	// Bubble Tea components
	spinner spinner.Model
	help    help.Model
	keys    keyMap

	// Session integration
	ctx     context.Context
	session Mirror
	device  string
	logPath string

	// Session state
	snapshot mirror.Snapshot
	starting bool
	activity []activityEntry
	lastErr  error

	// Window dimensions
	width  int
	height int
	ready  bool

	now func() time.Time
}

type activityEntry struct {
	at      time.Time
	text    string
	isError bool
}

// snapshotMsg carries a session change from the synchronizer
type snapshotMsg mirror.Snapshot

// sessionStartedMsg reports the result of a trigger
type sessionStartedMsg struct{ err error }

func initialModel(ctx context.Context, session Mirror) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = activeStyle

	return model{
		spinner:  s,
		help:     help.New(),
		keys:     defaultKeyMap(),
		ctx:      ctx,
		session:  session,
		snapshot: session.Snapshot(),
		now:      time.Now,
	}
}

func (m *model) addActivity(text string, isError bool) {
	m.activity = append(m.activity, activityEntry{at: m.now(), text: text, isError: isError})
	if len(m.activity) > maxActivity {
		m.activity = m.activity[len(m.activity)-maxActivity:]
	}
}
