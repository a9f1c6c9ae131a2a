package server

// Command is a request decoded from a WebSocket client.
type Command struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

// Message is the envelope sent to WebSocket clients. On the inbound path
// Raw carries the undecoded client bytes for the command handler.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	Raw     []byte      `json:"-"`
}

// NewMessage wraps a payload for broadcasting.
func NewMessage(msgType string, payload interface{}) Message {
	return Message{Type: msgType, Payload: payload}
}
