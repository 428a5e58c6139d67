package mirror

import (
	"context"
	"errors"
	"time"
)

// Synchronizer owns the pairing store and session state and replays tab
// lifecycle events between the desktop and mobile windows.
type Synchronizer struct {
	host     Host
	settings Settings
	logger   Logger

	pairs     *PairStore
	state     *SessionState
	echoes    *echoLedger
	bootstrap *Bootstrapper
	relay     *MessageRelay
	rewriter  *RequestRewriter

	triggers chan triggerRequest
	onChange func(Snapshot)
}

type triggerRequest struct {
	trigger Trigger
	reply   chan error
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEchoWindow sets how long expected echoes stay outstanding.
func WithEchoWindow(d time.Duration) Option {
	return func(s *Synchronizer) {
		s.echoes = newEchoLedger(d)
	}
}

// WithURLFilter limits header rewriting to matching request URLs.
func WithURLFilter(filter *URLFilter) Option {
	return func(s *Synchronizer) {
		s.rewriter.filter = filter
	}
}

// WithChangeNotifier registers a callback invoked after every state change.
// It runs on the event loop and must not block.
func WithChangeNotifier(fn func(Snapshot)) Option {
	return func(s *Synchronizer) {
		s.onChange = fn
	}
}

// NewSynchronizer creates a Synchronizer in the Idle phase.
func NewSynchronizer(host Host, settings Settings, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		host:     host,
		settings: settings,
		logger:   nopLogger{},
		pairs:    NewPairStore(),
		state:    NewSessionState(),
		echoes:   newEchoLedger(DefaultEchoWindow),
		triggers: make(chan triggerRequest),
	}
	s.rewriter = NewRequestRewriter(s.pairs, settings, nil)

	for _, opt := range opts {
		opt(s)
	}

	s.bootstrap = NewBootstrapper(host, settings, s.logger)
	s.bootstrap.tag = func() string {
		return s.echoes.expect(EventTabCreated, NoTab, "")
	}
	s.relay = NewMessageRelay(host, s.pairs, settings, s.logger)
	return s
}

// Rewriter returns the request rewriter bound to this synchronizer's pairs.
func (s *Synchronizer) Rewriter() *RequestRewriter {
	return s.rewriter
}

// Snapshot returns a copy of the current session.
func (s *Synchronizer) Snapshot() Snapshot {
	desktop, mobile := s.state.Windows()
	return Snapshot{
		Phase:         s.state.Phase(),
		DesktopWindow: desktop,
		MobileWindow:  mobile,
		FocusedWindow: s.state.Focus.Current(),
		Creating:      s.state.Guard.Held(),
		Pairs:         s.pairs.Pairs(),
	}
}

// Run processes host events and triggers one at a time until ctx is done or
// the host closes its event channel.
func (s *Synchronizer) Run(ctx context.Context) error {
	events := s.host.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-s.triggers:
			req.reply <- s.startSession(ctx, req.trigger)
		case ev, ok := <-events:
			if !ok {
				s.logger.Infof("host event stream closed")
				return nil
			}
			s.Handle(ctx, ev)
		}
	}
}

// StartSession runs the bootstrapper on the event loop and waits for it.
// It returns ErrSessionActive if a session is already running.
func (s *Synchronizer) StartSession(ctx context.Context, trigger Trigger) error {
	req := triggerRequest{trigger: trigger, reply: make(chan error, 1)}
	select {
	case s.triggers <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Synchronizer) startSession(ctx context.Context, trigger Trigger) error {
	if s.state.Phase() == PhaseActive {
		desktop, mobile := s.state.Windows()
		s.logger.Infof("trigger ignored: session already active (desktop %d, mobile %d)", desktop, mobile)
		return ErrSessionActive
	}

	seed, err := s.bootstrap.Bootstrap(ctx, trigger)
	if err != nil {
		s.logger.Errorf("bootstrap failed: %v", err)
		return err
	}
	return s.commit(seed)
}

// commit registers the first pair before activating so that no event sees an
// Active session without it.
func (s *Synchronizer) commit(seed Seed) error {
	if err := s.pairs.AddPair(seed.DesktopTab, seed.MobileTab); err != nil {
		s.logger.Errorf("bootstrap produced unusable tabs: %v", err)
		return err
	}
	s.state.Focus.Set(seed.DesktopWindow)
	s.state.Activate(seed.DesktopWindow, seed.MobileWindow)
	s.logger.Infof("session active: pair (%d, %d)", seed.DesktopTab, seed.MobileTab)
	s.notify()
	return nil
}

// Handle processes a single event.
func (s *Synchronizer) Handle(ctx context.Context, ev Event) {
	s.logger.Debugf("event: %s", ev)

	switch ev.Type {
	case EventTabCreated:
		s.onTabCreated(ctx, ev)
	case EventTabRemoved:
		s.onTabRemoved(ctx, ev)
	case EventTabActivated:
		s.onTabActivated(ctx, ev)
	case EventTabUpdated:
		s.onTabUpdated(ctx, ev)
	case EventWindowFocusChanged:
		s.state.Focus.Set(ev.WindowID)
		s.notify()
	case EventWindowRemoved:
		s.onWindowRemoved(ev)
	case EventMessage:
		s.onMessage(ctx, ev)
	default:
		s.logger.Debugf("ignoring unknown event type %q", ev.Type)
	}
}

func (s *Synchronizer) onTabCreated(ctx context.Context, ev Event) {
	if s.echoes.consume(ev) {
		s.logger.Debugf("tab %d is our own creation", ev.Tab.ID)
		return
	}
	if s.state.Phase() != PhaseActive || s.pairs.Contains(ev.Tab.ID) {
		return
	}

	source := ev.Tab
	if !source.WindowID.Valid() {
		source.WindowID = ev.WindowID
	}
	target := s.state.MirrorWindow(source.WindowID)
	if !target.Valid() {
		return
	}

	if !s.state.Guard.TryEnter() {
		s.logger.Debugf("mirror creation in progress, ignoring tab %d", source.ID)
		return
	}
	defer s.state.Guard.Leave()

	tag := s.echoes.expect(EventTabCreated, NoTab, "")
	created, err := s.host.CreateTab(ctx, CreateTabRequest{
		WindowID: target,
		Active:   source.Active,
		Origin:   tag,
	})
	if err != nil {
		s.echoes.forget(tag)
		s.logger.Warnf("failed to create mirror of tab %d in window %d: %v", source.ID, target, err)
		return
	}

	if source.URL != "" {
		navTag := s.echoes.expect(EventTabUpdated, created.ID, source.URL)
		if _, err := s.host.UpdateTab(ctx, created.ID, TabUpdate{URL: source.URL, Origin: navTag}); err != nil {
			s.echoes.forget(navTag)
			s.logger.Warnf("failed to navigate mirror tab %d to %q: %v", created.ID, source.URL, err)
		}
	}

	desktopWindow, _ := s.state.Windows()
	desktop, mobile := source.ID, created.ID
	if source.WindowID != desktopWindow {
		desktop, mobile = created.ID, source.ID
	}
	if err := s.pairs.AddPair(desktop, mobile); err != nil {
		s.logger.Errorf("failed to register pair for tab %d: %v", source.ID, err)
		return
	}
	s.logger.Infof("mirrored tab %d as %d in window %d", source.ID, created.ID, target)
	s.notify()
}

func (s *Synchronizer) onTabRemoved(ctx context.Context, ev Event) {
	s.echoes.consume(ev)

	peer, ok := s.peerOf(ev.Tab.ID)
	if !ok {
		return
	}
	s.pairs.RemoveTabPair(ev.Tab.ID)
	s.notify()

	tag := s.echoes.expect(EventTabRemoved, peer, "")
	if err := s.host.RemoveTab(ctx, peer); err != nil {
		s.echoes.forget(tag)
		s.logger.Warnf("failed to close tab %d mirroring %d: %v", peer, ev.Tab.ID, err)
		return
	}
	s.logger.Infof("closed tab %d mirroring %d", peer, ev.Tab.ID)
}

func (s *Synchronizer) onTabActivated(ctx context.Context, ev Event) {
	if s.echoes.consume(ev) {
		return
	}
	if !s.state.Tracks(ev.WindowID) {
		return
	}

	peer, ok := s.peerOf(ev.Tab.ID)
	if !ok {
		return
	}

	// Hosts only report activations that change the selected tab.
	update := TabUpdate{Active: true}
	if current, err := s.host.GetTab(ctx, peer); err != nil || !current.Active {
		update.Origin = s.echoes.expect(EventTabActivated, peer, "")
	}
	if _, err := s.host.UpdateTab(ctx, peer, update); err != nil {
		if update.Origin != "" {
			s.echoes.forget(update.Origin)
		}
		s.logger.Warnf("failed to activate tab %d mirroring %d: %v", peer, ev.Tab.ID, err)
	}
}

func (s *Synchronizer) onTabUpdated(ctx context.Context, ev Event) {
	if ev.URL == "" {
		return
	}
	if s.echoes.consume(ev) {
		s.logger.Debugf("tab %d navigation to %q is our own", ev.Tab.ID, ev.URL)
		return
	}

	peer, ok := s.peerOf(ev.Tab.ID)
	if !ok {
		return
	}
	if !s.state.Focus.IsFocused(ev.WindowID) {
		s.logger.Debugf("tab %d navigated in unfocused window %d, not mirroring", ev.Tab.ID, ev.WindowID)
		return
	}

	tag := s.echoes.expect(EventTabUpdated, peer, ev.URL)
	if _, err := s.host.UpdateTab(ctx, peer, TabUpdate{URL: ev.URL, Origin: tag}); err != nil {
		s.echoes.forget(tag)
		s.logger.Warnf("failed to navigate tab %d to %q: %v", peer, ev.URL, err)
	}
}

func (s *Synchronizer) onWindowRemoved(ev Event) {
	_, mobile := s.state.Windows()
	if !mobile.Valid() || ev.WindowID != mobile {
		return
	}

	count := s.pairs.Len()
	s.pairs.ClearPairings()
	s.echoes.reset()
	s.state.Reset()
	s.logger.Infof("mobile window %d closed, cleared %d pairs, session idle", ev.WindowID, count)
	s.notify()
}

func (s *Synchronizer) onMessage(ctx context.Context, ev Event) {
	if ev.Message == nil {
		return
	}
	if _, err := s.relay.Relay(ctx, ev.Tab.ID, *ev.Message); err != nil {
		s.logger.Warnf("message relay from tab %d failed: %v", ev.Tab.ID, err)
	}
}

// peerOf looks up the mirror of id. Invalid ids are a host contract
// violation and are logged as errors.
func (s *Synchronizer) peerOf(id TabID) (TabID, bool) {
	peer, err := s.pairs.CorrespondingTab(id)
	switch {
	case err == nil:
		return peer, true
	case errors.Is(err, ErrNoCorrespondingTab):
		return NoTab, false
	default:
		s.logger.Errorf("host reported unusable tab: %v", err)
		return NoTab, false
	}
}

func (s *Synchronizer) notify() {
	if s.onChange != nil {
		s.onChange(s.Snapshot())
	}
}
