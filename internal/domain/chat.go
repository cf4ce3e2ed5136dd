package domain

import (
	"time"
)

type ChatKind string

const (
	ChatKindDirect ChatKind = "direct"
	ChatKindGroup  ChatKind = "group"
)

type Chat struct {
	ID          int64     `json:"id"`
	Kind        ChatKind  `json:"kind"`
	Name        *string   `json:"name,omitempty"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	Description *string   `json:"description,omitempty"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ParticipantRole string

const (
	ParticipantRoleAdmin  ParticipantRole = "admin"
	ParticipantRoleMember ParticipantRole = "member"
)

type ChatParticipant struct {
	ChatID   int64           `json:"chat_id"`
	UserID   int64           `json:"user_id"`
	Role     ParticipantRole `json:"role"`
	JoinedAt time.Time       `json:"joined_at"`
}

// ChatSummary is a chat as seen by one viewer.
type ChatSummary struct {
	Chat
	Title             string         `json:"title"`
	LastMessage       string         `json:"last_message"`
	LastMessageTime   *time.Time     `json:"last_message_time,omitempty"`
	LastMessageSent   bool           `json:"last_message_sent"`
	LastMessageStatus *MessageStatus `json:"last_message_status,omitempty"`
	UnreadCount       int            `json:"unread_count"`
	PeerUserID        *int64         `json:"peer_user_id,omitempty"`
	IsOnline          bool           `json:"is_online"`
	LastSeen          *time.Time     `json:"last_seen,omitempty"`
}

// DirectPairKey orders the pair so {a,b} and {b,a} map to the same key.
func DirectPairKey(a, b int64) [2]int64 {
	if a > b {
		a, b = b, a
	}
	return [2]int64{a, b}
}
