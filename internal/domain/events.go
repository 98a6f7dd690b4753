package domain

import "encoding/json"

// Tipos de evento del feed websocket.
const (
	EventMessageNew         = "message:new"
	EventConversationNew    = "conversation:new"
	EventConversationUpdate = "conversation:update"
	EventConnected          = "connected"
	EventPing               = "ping"
	EventPong               = "pong"
)

// Event es el sobre común de todo payload intercambiado por websocket.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent serializa data y construye el sobre. Un data que no serializa
// produce un evento sin payload.
func NewEvent(eventType string, data any) Event {
	if data == nil {
		return Event{Type: eventType}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{Type: eventType}
	}
	return Event{Type: eventType, Data: raw}
}
