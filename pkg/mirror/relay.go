package mirror

import (
	"context"
	"errors"
	"fmt"
)

// MessageRelay forwards content-script messages from a tab to its mirror.
type MessageRelay struct {
	host     Host
	pairs    *PairStore
	settings Settings
	logger   Logger
}

// NewMessageRelay creates a relay.
func NewMessageRelay(host Host, pairs *PairStore, settings Settings, logger Logger) *MessageRelay {
	if logger == nil {
		logger = nopLogger{}
	}
	return &MessageRelay{
		host:     host,
		pairs:    pairs,
		settings: settings,
		logger:   logger,
	}
}

// Relay delivers msg from sender to the paired tab. It reports whether the
// message was sent. Scroll messages are held back while scroll-lock is on and
// messages from unpaired tabs are dropped.
func (r *MessageRelay) Relay(ctx context.Context, sender TabID, msg Message) (bool, error) {
	if msg.Type == MessageScroll && r.settings.ScrollLock() == ScrollLockOn {
		r.logger.Debugf("scroll lock on, not relaying scroll from tab %d", sender)
		return false, nil
	}

	peer, err := r.pairs.CorrespondingTab(sender)
	if errors.Is(err, ErrNoCorrespondingTab) {
		r.logger.Infof("no corresponding tab for message sender %d, dropping %s message", sender, msg.Type)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := r.host.SendMessage(ctx, peer, msg); err != nil {
		return false, fmt.Errorf("failed to relay %s message to tab %d: %w", msg.Type, peer, err)
	}
	return true, nil
}
