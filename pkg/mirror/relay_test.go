package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSendHost struct {
	*mockHost
}

func (h failingSendHost) SendMessage(ctx context.Context, id TabID, msg Message) error {
	return errors.New("tab crashed")
}

func TestMessageRelay(t *testing.T) {
	tests := []struct {
		name     string
		lock     ScrollLock
		sender   TabID
		msg      Message
		wantSent bool
		wantTo   TabID
	}{
		{
			name:     "scroll from desktop with lock off",
			lock:     ScrollLockOff,
			sender:   1,
			msg:      Message{Type: MessageScroll, ScrollPercentage: 0.5},
			wantSent: true,
			wantTo:   2,
		},
		{
			name:     "scroll from mobile with lock off",
			lock:     ScrollLockOff,
			sender:   2,
			msg:      Message{Type: MessageScroll, ScrollPercentage: 1},
			wantSent: true,
			wantTo:   1,
		},
		{
			name:   "scroll suppressed with lock on",
			lock:   ScrollLockOn,
			sender: 1,
			msg:    Message{Type: MessageScroll, ScrollPercentage: 0.5},
		},
		{
			name:     "other messages pass with lock on",
			lock:     ScrollLockOn,
			sender:   1,
			msg:      Message{Type: "highlight", Payload: json.RawMessage(`{"selector":"h1"}`)},
			wantSent: true,
			wantTo:   2,
		},
		{
			name:   "unpaired sender dropped",
			lock:   ScrollLockOff,
			sender: 7,
			msg:    Message{Type: MessageScroll, ScrollPercentage: 0.1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := newMockHost()
			pairs := NewPairStore()
			require.NoError(t, pairs.AddPair(1, 2))

			relay := NewMessageRelay(host, pairs, StaticSettings{Lock: tt.lock}, nil)
			sent, err := relay.Relay(context.Background(), tt.sender, tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSent, sent)

			if !tt.wantSent {
				assert.Empty(t, host.sent)
				return
			}
			require.Len(t, host.sent, 1)
			assert.Equal(t, tt.wantTo, host.sent[0].To)
			assert.Equal(t, tt.msg, host.sent[0].Msg)
		})
	}
}

func TestMessageRelay_InvalidSender(t *testing.T) {
	relay := NewMessageRelay(newMockHost(), NewPairStore(), StaticSettings{}, nil)
	_, err := relay.Relay(context.Background(), -1, Message{Type: MessageScroll})
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestMessageRelay_SendFailure(t *testing.T) {
	pairs := NewPairStore()
	require.NoError(t, pairs.AddPair(1, 2))
	relay := NewMessageRelay(failingSendHost{newMockHost()}, pairs, StaticSettings{}, nil)

	sent, err := relay.Relay(context.Background(), 1, Message{Type: MessageScroll})
	assert.False(t, sent)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to relay scroll message to tab 2")
}

func TestMessage_JSON(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{"type":"scroll","scrollPercentage":0.25}`), &msg))
	assert.Equal(t, MessageScroll, msg.Type)
	assert.InDelta(t, 0.25, msg.ScrollPercentage, 1e-9)
}
