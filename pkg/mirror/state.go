package mirror

import (
	"sync"
	"sync/atomic"
)

// Phase is the lifecycle stage of a mirror session.
type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseActive Phase = "active"
)

// LoopGuard marks the single critical section that creates a mirror tab.
// While it is held no other programmatic tab creation may start.
type LoopGuard struct {
	held atomic.Bool
}

// TryEnter acquires the guard. It returns false if the guard is already held.
func (g *LoopGuard) TryEnter() bool {
	return g.held.CompareAndSwap(false, true)
}

// Leave releases the guard.
func (g *LoopGuard) Leave() {
	g.held.Store(false)
}

// Held reports whether a mirror tab is being created.
func (g *LoopGuard) Held() bool {
	return g.held.Load()
}

// FocusTracker remembers which window has input focus. Any window id is
// recorded, including windows outside the mirrored pair.
type FocusTracker struct {
	mu      sync.RWMutex
	current WindowID
}

// NewFocusTracker creates a tracker with no focused window.
func NewFocusTracker() *FocusTracker {
	return &FocusTracker{current: NoWindow}
}

// Set records id as the focused window.
func (f *FocusTracker) Set(id WindowID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = id
}

// Current returns the focused window, or NoWindow.
func (f *FocusTracker) Current() WindowID {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

// IsFocused reports whether id is the focused window.
func (f *FocusTracker) IsFocused(id WindowID) bool {
	return f.Current() == id
}

// SessionState is the process-wide state of the mirror session.
type SessionState struct {
	mu      sync.RWMutex
	desktop WindowID
	mobile  WindowID

	Guard LoopGuard
	Focus *FocusTracker
}

// NewSessionState creates an Idle state.
func NewSessionState() *SessionState {
	return &SessionState{
		desktop: NoWindow,
		mobile:  NoWindow,
		Focus:   NewFocusTracker(),
	}
}

// Activate records the window pair and moves the session to Active.
func (s *SessionState) Activate(desktop, mobile WindowID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.desktop = desktop
	s.mobile = mobile
}

// Reset returns the state to Idle.
func (s *SessionState) Reset() {
	s.mu.Lock()
	s.desktop = NoWindow
	s.mobile = NoWindow
	s.mu.Unlock()

	s.Guard.Leave()
	s.Focus.Set(NoWindow)
}

// Phase reports whether a session is running.
func (s *SessionState) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.desktop.Valid() && s.mobile.Valid() {
		return PhaseActive
	}
	return PhaseIdle
}

// Windows returns the tracked desktop and mobile windows.
func (s *SessionState) Windows() (desktop, mobile WindowID) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.desktop, s.mobile
}

// Tracks reports whether id is the desktop or the mobile window.
func (s *SessionState) Tracks(id WindowID) bool {
	if !id.Valid() {
		return false
	}
	desktop, mobile := s.Windows()
	return id == desktop || id == mobile
}

// MirrorWindow returns the window paired with id, or NoWindow for an untracked id.
func (s *SessionState) MirrorWindow(id WindowID) WindowID {
	desktop, mobile := s.Windows()
	switch {
	case !id.Valid():
		return NoWindow
	case id == desktop:
		return mobile
	case id == mobile:
		return desktop
	default:
		return NoWindow
	}
}

// Snapshot is a read-only copy of the session for status displays.
type Snapshot struct {
	Phase         Phase
	DesktopWindow WindowID
	MobileWindow  WindowID
	FocusedWindow WindowID
	Creating      bool
	Pairs         []Pair
}
