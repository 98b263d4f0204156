package websocket

import "encoding/json"

// Message defines the structure for feed messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// Encode marshals the message for the wire; marshal failures collapse to an
// empty JSON object rather than a dropped frame.
func (m Message) Encode() []byte {
	data, err := json.Marshal(m)
	if err != nil {
		return []byte("{}")
	}
	return data
}
