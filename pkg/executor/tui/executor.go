// Package tui provides a terminal user interface for a mirror session.
//
// The TUI codebase is split into multiple files:
// - executor.go: Executor implementation and program lifecycle
// - model.go: Model structure and state
// - keys.go: Key bindings
// - update.go: Bubble Tea Update function and message handling
// - view.go: Bubble Tea View function and rendering
// - styles.go: Color schemes and styling
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/tabmirror/pkg/mirror"
)

// Mirror is the session controller driven by the TUI.
type Mirror interface {
	StartSession(ctx context.Context, trigger mirror.Trigger) error
	Snapshot() mirror.Snapshot
}

// Executor runs the interactive status screen.
type Executor struct {
	session Mirror
	updates <-chan mirror.Snapshot
	program *tea.Program
	device  string
	logPath string
}

// ExecutorOption is a function that configures an Executor.
type ExecutorOption func(*Executor)

// WithDevice sets the device name shown in the header.
func WithDevice(name string) ExecutorOption {
	return func(e *Executor) {
		e.device = name
	}
}

// WithLogPath sets the log file shown in the status bar.
func WithLogPath(path string) ExecutorOption {
	return func(e *Executor) {
		e.logPath = path
	}
}

// NewExecutor creates a TUI executor. updates may be nil.
func NewExecutor(session Mirror, updates <-chan mirror.Snapshot, opts ...ExecutorOption) *Executor {
	e := &Executor{
		session: session,
		updates: updates,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run starts the TUI and blocks until the user exits or ctx is done.
func (e *Executor) Run(ctx context.Context) error {
	m := initialModel(ctx, e.session)
	m.device = e.device
	m.logPath = e.logPath

	e.program = tea.NewProgram(
		&m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	go func() {
		// Forward session changes to the TUI
		if e.updates == nil {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-e.updates:
				if !ok {
					return
				}
				e.program.Send(snapshotMsg(snap))
			}
		}
	}()

	if _, err := e.program.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to run TUI program: %w", err)
	}

	return nil
}
