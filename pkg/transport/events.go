package transport

import "chatsync/pkg/models"

// EventType names a push stream event.
type EventType string

const (
	EventNewMessage     EventType = "newMessage"
	EventMessageUpdated EventType = "messageUpdated"
	EventMessageDeleted EventType = "messageDeleted"
	EventMessageReacted EventType = "messageReacted"
	EventTyping         EventType = "typing"
)

// Event is the push wire envelope. Message payloads use the same shape as
// REST responses so the feed treats both sources uniformly.
type Event struct {
	Type      EventType       `json:"type"`
	GroupID   string          `json:"group_id"`
	Message   *models.Message `json:"message,omitempty"`
	MessageID string          `json:"message_id,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	IsTyping  bool            `json:"is_typing,omitempty"`
}

// join/leave handshake frames sent by the client.
type controlFrame struct {
	Type    string `json:"type"` // "join" | "leave"
	GroupID string `json:"group_id"`
}
