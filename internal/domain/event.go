package domain

import (
	"time"
)

type EventType string

const (
	EventMessageCreated   EventType = "message.created"
	EventMessageDelivered EventType = "message.delivered"
	EventMessageRead      EventType = "message.read"
	EventPresenceChanged  EventType = "presence.changed"
	EventTyping           EventType = "typing"
	EventError            EventType = "error"
)

// Event is the envelope written to websocket connections.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}

type MessageCreatedPayload struct {
	Message *Message `json:"message"`
}

type MessageReadPayload struct {
	MessageID int64     `json:"message_id"`
	ChatID    int64     `json:"chat_id"`
	ReaderID  int64     `json:"reader_id"`
	Timestamp time.Time `json:"timestamp"`
}

type MessageDeliveredPayload struct {
	MessageID int64     `json:"message_id"`
	ChatID    int64     `json:"chat_id"`
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

type PresencePayload struct {
	UserID   int64     `json:"user_id"`
	IsOnline bool      `json:"is_online"`
	LastSeen time.Time `json:"last_seen"`
}

type TypingPayload struct {
	UserID   int64 `json:"user_id"`
	ChatID   int64 `json:"chat_id"`
	IsTyping bool  `json:"is_typing"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
