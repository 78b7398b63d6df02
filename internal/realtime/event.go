package realtime

import (
	"encoding/json"
	"fmt"
)

// Event is the wire envelope for both directions of the websocket channel.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

func marshalEvent(name string, data interface{}) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %q event data: %w", name, err)
		}
		raw = encoded
	}
	return json.Marshal(Event{Name: name, Data: raw})
}
