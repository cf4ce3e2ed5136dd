package repository

import (
	"context"
	"time"

	"gallan_chat/internal/domain"
)

// Repositories is the storage surface every service depends on. A backend
// (memory or postgres) fills it once at startup.
type Repositories struct {
	User      UserRepository
	Contact   ContactRepository
	Chat      ChatRepository
	Message   MessageRepository
	RateLimit RateLimitRepository
}

type UserRepository interface {
	// Create assigns the id; a username already taken (case-insensitive) yields ErrConflict.
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateProfile(ctx context.Context, user *domain.User) error
	UpdatePresence(ctx context.Context, id int64, online bool, lastSeen time.Time) error
}

type ContactRepository interface {
	Create(ctx context.Context, contact *domain.Contact) error
	Get(ctx context.Context, ownerID, contactUserID int64) (*domain.Contact, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*domain.ContactView, error)
	Update(ctx context.Context, contact *domain.Contact) error
}

type ChatRepository interface {
	// CreateDirect stores the chat and both participants atomically.
	// A second chat for the same unordered pair yields ErrConflict.
	CreateDirect(ctx context.Context, chat *domain.Chat, userA, userB int64) error
	GetDirect(ctx context.Context, userA, userB int64) (*domain.Chat, error)
	CreateGroup(ctx context.Context, chat *domain.Chat, participants []*domain.ChatParticipant) error
	GetByID(ctx context.Context, id int64) (*domain.Chat, error)
	IsParticipant(ctx context.Context, chatID, userID int64) (bool, error)
	ListParticipants(ctx context.Context, chatID int64) ([]*domain.ChatParticipant, error)
	// ListByUser orders by updated_at descending.
	ListByUser(ctx context.Context, userID int64) ([]*domain.Chat, error)
	ListIDsByUser(ctx context.Context, userID int64) ([]int64, error)
}

type MessageRepository interface {
	// Create assigns a monotonically increasing id, stores the receipts and
	// bumps the chat's updated_at in one step.
	Create(ctx context.Context, message *domain.Message, receipts []*domain.Receipt) error
	GetByID(ctx context.Context, id int64) (*domain.Message, error)
	// ListByChat orders by (created_at, id) ascending.
	ListByChat(ctx context.Context, chatID int64) ([]*domain.Message, error)
	LastInChat(ctx context.Context, chatID int64) (*domain.Message, error)
	GetReceipt(ctx context.Context, messageID, userID int64) (*domain.Receipt, error)
	ListReceipts(ctx context.Context, messageID int64) ([]*domain.Receipt, error)
	// ListUserReceiptsBelow returns the user's receipts in the chat whose status ranks below the given one.
	ListUserReceiptsBelow(ctx context.Context, chatID, userID int64, below domain.MessageStatus) ([]*domain.Receipt, error)
	// AdvanceReceipt moves a receipt forward only. changed is false when the stored status was already at or past status.
	AdvanceReceipt(ctx context.Context, messageID, userID int64, status domain.MessageStatus, at time.Time) (receipt *domain.Receipt, changed bool, err error)
	// AdvanceStatus moves the aggregate status forward only.
	AdvanceStatus(ctx context.Context, messageID int64, status domain.MessageStatus) error
	CountUnread(ctx context.Context, chatID, userID int64) (int, error)
}
