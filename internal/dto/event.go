package dto

// Event is broadcast to websocket viewers.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
