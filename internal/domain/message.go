package domain

import (
	"time"
)

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeVideo MessageType = "video"
	MessageTypeAudio MessageType = "audio"
	MessageTypeFile  MessageType = "file"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeVideo, MessageTypeAudio, MessageTypeFile:
		return true
	}
	return false
}

// MessageStatus is ordered: sent < delivered < read.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

func (s MessageStatus) Rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	}
	return 0
}

func (s MessageStatus) Valid() bool {
	return s.Rank() > 0
}

// Advance returns the later of s and next; statuses never move backwards.
func (s MessageStatus) Advance(next MessageStatus) MessageStatus {
	if next.Rank() > s.Rank() {
		return next
	}
	return s
}

type Message struct {
	ID              int64         `json:"id"`
	ChatID          int64         `json:"chat_id"`
	SenderID        int64         `json:"sender_id"`
	Content         string        `json:"content"`
	Type            MessageType   `json:"type"`
	QuotedMessageID *int64        `json:"quoted_message_id,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	Status          MessageStatus `json:"status"`
}

// Receipt is the per-recipient status row; the sender never has one.
type Receipt struct {
	MessageID int64         `json:"message_id"`
	UserID    int64         `json:"user_id"`
	Status    MessageStatus `json:"status"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// AggregateStatus derives the message-level status from every recipient row.
// All read gives read; otherwise any row at or past delivered gives delivered; otherwise sent.
func AggregateStatus(receipts []*Receipt) MessageStatus {
	if len(receipts) == 0 {
		return StatusSent
	}
	allRead := true
	agg := StatusSent
	for _, r := range receipts {
		if r.Status != StatusRead {
			allRead = false
		}
		if r.Status.Rank() >= StatusDelivered.Rank() {
			agg = StatusDelivered
		}
	}
	if allRead {
		return StatusRead
	}
	return agg
}
