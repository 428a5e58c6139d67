package browser

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/entrhq/tabmirror/pkg/mirror"
)

// contentScript is injected into every page of every window.
//
//go:embed content.js
var contentScript string

const (
	// bindingName is the page function the content script reports through
	bindingName = "__tabmirrorSend"

	// receiveScript delivers a relayed message to the content script
	receiveScript = "msg => window.__tabmirror && window.__tabmirror.receive(msg)"

	// Control messages handled by the host and never relayed
	controlFocus     mirror.MessageType = "__focus"
	controlActivated mirror.MessageType = "__activated"
)

// decodeMessage converts a binding argument to a Message.
func decodeMessage(arg interface{}) (mirror.Message, error) {
	raw, err := json.Marshal(arg)
	if err != nil {
		return mirror.Message{}, fmt.Errorf("failed to encode content message: %w", err)
	}

	var msg mirror.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return mirror.Message{}, fmt.Errorf("failed to decode content message: %w", err)
	}
	if msg.Type == "" {
		return mirror.Message{}, fmt.Errorf("content message has no type")
	}
	return msg, nil
}

// encodeMessage converts a Message to a value playwright can pass to
// Evaluate.
func encodeMessage(msg mirror.Message) (map[string]interface{}, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return out, nil
}
