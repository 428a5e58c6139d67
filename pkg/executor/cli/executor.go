// Package cli provides a line-oriented executor for a mirror session.
//
// Example usage:
//
//	sync := mirror.NewSynchronizer(host, settings,
//	    mirror.WithChangeNotifier(notify),
//	)
//	go sync.Run(ctx)
//
//	executor := cli.NewExecutor(sync, updates,
//	    cli.WithAutoStart(true),
//	)
//	if err := executor.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/entrhq/tabmirror/pkg/mirror"
)

// Mirror is the session controller driven by the executor.
type Mirror interface {
	StartSession(ctx context.Context, trigger mirror.Trigger) error
	Snapshot() mirror.Snapshot
}

// Executor reads commands from a terminal and prints session changes.
type Executor struct {
	session Mirror
	updates <-chan mirror.Snapshot
	reader  io.Reader

	mu     sync.Mutex
	writer io.Writer

	autoStart bool
	last      mirror.Snapshot
}

// ExecutorOption is a function that configures an Executor.
type ExecutorOption func(*Executor)

// WithWriter sets a custom output writer (default is os.Stdout).
func WithWriter(w io.Writer) ExecutorOption {
	return func(e *Executor) {
		e.writer = w
	}
}

// WithReader sets a custom input reader (default is os.Stdin).
func WithReader(r io.Reader) ExecutorOption {
	return func(e *Executor) {
		e.reader = r
	}
}

// WithAutoStart starts a session as soon as the executor runs.
func WithAutoStart(start bool) ExecutorOption {
	return func(e *Executor) {
		e.autoStart = start
	}
}

// NewExecutor creates a CLI executor. updates may be nil.
func NewExecutor(m Mirror, updates <-chan mirror.Snapshot, opts ...ExecutorOption) *Executor {
	e := &Executor{
		session: m,
		updates: updates,
		reader:  os.Stdin,
		writer:  os.Stdout,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run processes commands until the user exits, input ends or ctx is done.
func (e *Executor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	updatesDone := make(chan struct{})
	go e.handleUpdates(ctx, updatesDone)
	defer func() {
		cancel()
		<-updatesDone
	}()

	e.println("Tab Mirror")
	e.println("Commands: mirror (m), status (s), pairs (p), help (h), quit (q)")
	e.println("")

	if e.autoStart {
		e.startSession(ctx)
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	go e.readLines(ctx, lines, readErr)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		case line := <-lines:
			if quit := e.handleCommand(ctx, strings.TrimSpace(line)); quit {
				return nil
			}
		}
	}
}

func (e *Executor) readLines(ctx context.Context, lines chan<- string, readErr chan<- error) {
	reader := bufio.NewReader(e.reader)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			readErr <- err
			return
		}
	}
}

// handleCommand runs a single command and reports whether to exit.
func (e *Executor) handleCommand(ctx context.Context, input string) bool {
	switch strings.ToLower(input) {
	case "":
	case "mirror", "m":
		e.startSession(ctx)
	case "status", "s":
		e.println(FormatStatus(e.session.Snapshot()))
	case "pairs", "p":
		e.printPairs(e.session.Snapshot())
	case "help", "h", "?":
		e.println("mirror  start a mirror session from the focused window")
		e.println("status  show the session phase and windows")
		e.println("pairs   list mirrored tab pairs")
		e.println("quit    exit")
	case "quit", "exit", "q":
		e.println("Shutting down...")
		return true
	default:
		e.printf("Unknown command %q. Type 'help' for commands.\n", input)
	}
	return false
}

func (e *Executor) startSession(ctx context.Context) {
	err := e.session.StartSession(ctx, mirror.Trigger{WindowID: mirror.NoWindow})
	switch {
	case err == nil:
		e.println("✅ Mirror session started")
	case errors.Is(err, mirror.ErrSessionActive):
		e.println("Mirror session already active")
	default:
		e.printf("❌ Failed to start mirror session: %v\n", err)
	}
}

// handleUpdates prints phase changes and pair count changes.
func (e *Executor) handleUpdates(ctx context.Context, done chan struct{}) {
	defer close(done)
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
			e.handleUpdate(snap)
		}
	}
}

func (e *Executor) handleUpdate(snap mirror.Snapshot) {
	e.mu.Lock()
	prev := e.last
	e.last = snap
	e.mu.Unlock()

	switch {
	case snap.Phase != prev.Phase && snap.Phase == mirror.PhaseActive:
		e.printf("Session active: desktop window %d, mobile window %d\n", snap.DesktopWindow, snap.MobileWindow)
	case snap.Phase != prev.Phase && snap.Phase == mirror.PhaseIdle && prev.Phase != "":
		e.println("Mobile window closed, session idle")
	case len(snap.Pairs) != len(prev.Pairs):
		e.printf("%d mirrored tab pair(s)\n", len(snap.Pairs))
	}
}

func (e *Executor) printPairs(snap mirror.Snapshot) {
	if len(snap.Pairs) == 0 {
		e.println("No mirrored tabs")
		return
	}
	for _, p := range snap.Pairs {
		e.printf("  desktop %d ⇄ mobile %d\n", p.Desktop, p.Mobile)
	}
}

func (e *Executor) println(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintln(e.writer, s)
}

func (e *Executor) printf(format string, v ...interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintf(e.writer, format, v...)
}

// FormatStatus renders a one-line description of a snapshot.
func FormatStatus(snap mirror.Snapshot) string {
	if snap.Phase != mirror.PhaseActive {
		return "Idle: no mirror session"
	}
	focus := "none"
	if snap.FocusedWindow.Valid() {
		focus = fmt.Sprintf("%d", snap.FocusedWindow)
	}
	return fmt.Sprintf("Active: desktop window %d, mobile window %d, focused %s, %d pair(s)",
		snap.DesktopWindow, snap.MobileWindow, focus, len(snap.Pairs))
}
