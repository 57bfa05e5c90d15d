package live

import (
	"encoding/json"
	"fmt"

	"github.com/Clark-Hu/care-map/internal/snapshot"
)

// MessageType discriminates live payloads.
type MessageType string

const (
	// TypeInitialData is sent once, right after a subscriber is registered.
	TypeInitialData MessageType = "initial_data"
	// TypeDataUpdate is sent after every committed rating.
	TypeDataUpdate MessageType = "data_update"
)

// Message is the JSON envelope written to subscribers.
type Message struct {
	Type MessageType       `json:"type"`
	Data snapshot.Snapshot `json:"data"`
}

// Encode serializes a snapshot into a wire message.
func Encode(msgType MessageType, snap snapshot.Snapshot) ([]byte, error) {
	if snap == nil {
		snap = snapshot.Snapshot{}
	}
	payload, err := json.Marshal(Message{Type: msgType, Data: snap})
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", msgType, err)
	}
	return payload, nil
}
