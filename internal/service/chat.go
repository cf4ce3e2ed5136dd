package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gallan_chat/internal/domain"
	"gallan_chat/internal/repository"
	"gallan_chat/pkg/errors"
	"gallan_chat/pkg/logger"
)

type ChatService interface {
	CreateDirectChat(ctx context.Context, userA, userB int64) (*domain.Chat, error)
	CreateGroupChat(ctx context.Context, creatorID int64, input GroupChatInput) (*domain.Chat, error)
	IsParticipant(ctx context.Context, chatID, userID int64) (bool, error)
	GetChat(ctx context.Context, chatID, viewerID int64) (*domain.ChatSummary, error)
	ListChatsForUser(ctx context.Context, userID int64) ([]*domain.ChatSummary, error)
	ListParticipants(ctx context.Context, chatID int64) ([]*domain.ChatParticipant, error)
	ListChatIDsForUser(ctx context.Context, userID int64) ([]int64, error)
}

type GroupChatInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	AvatarURL   *string `json:"avatar_url"`
	MemberIDs   []int64 `json:"member_ids"`
}

type chatService struct {
	chatRepo    repository.ChatRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	contactRepo repository.ContactRepository
	log         logger.Logger
}

func NewChatService(repos *repository.Repositories, log logger.Logger) ChatService {
	return &chatService{
		chatRepo:    repos.Chat,
		messageRepo: repos.Message,
		userRepo:    repos.User,
		contactRepo: repos.Contact,
		log:         log,
	}
}

func (s *chatService) CreateDirectChat(ctx context.Context, userA, userB int64) (*domain.Chat, error) {
	if userA == userB {
		return nil, fmt.Errorf("%w: cannot start a chat with yourself", errors.ErrInvalidArgument)
	}

	existing, err := s.chatRepo.GetDirect(ctx, userA, userB)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	for _, id := range []int64{userA, userB} {
		if _, err := s.userRepo.GetByID(ctx, id); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	chat := &domain.Chat{
		Kind:      domain.ChatKindDirect,
		CreatedBy: userA,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.chatRepo.CreateDirect(ctx, chat, userA, userB)
	if errors.Is(err, errors.ErrConflict) {
		// Lost the race to a concurrent creator; the pair now has a chat.
		return s.chatRepo.GetDirect(ctx, userA, userB)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("Direct chat created", "chat_id", chat.ID, "user_a", userA, "user_b", userB)
	return chat, nil
}

func (s *chatService) CreateGroupChat(ctx context.Context, creatorID int64, input GroupChatInput) (*domain.Chat, error) {
	if len(input.MemberIDs) == 0 {
		return nil, fmt.Errorf("%w: member list is empty", errors.ErrInvalidArgument)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: group name is required", errors.ErrInvalidArgument)
	}

	now := time.Now().UTC()
	participants := []*domain.ChatParticipant{{UserID: creatorID, Role: domain.ParticipantRoleAdmin, JoinedAt: now}}
	seen := map[int64]bool{creatorID: true}
	for _, id := range input.MemberIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		participants = append(participants, &domain.ChatParticipant{UserID: id, Role: domain.ParticipantRoleMember, JoinedAt: now})
	}

	chat := &domain.Chat{
		Kind:        domain.ChatKindGroup,
		Name:        &name,
		AvatarURL:   input.AvatarURL,
		Description: input.Description,
		CreatedBy:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.chatRepo.CreateGroup(ctx, chat, participants); err != nil {
		return nil, err
	}

	s.log.Info("Group chat created", "chat_id", chat.ID, "members", len(participants))
	return chat, nil
}

func (s *chatService) IsParticipant(ctx context.Context, chatID, userID int64) (bool, error) {
	return s.chatRepo.IsParticipant(ctx, chatID, userID)
}

func (s *chatService) GetChat(ctx context.Context, chatID, viewerID int64) (*domain.ChatSummary, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := requireParticipant(ctx, s.chatRepo, chatID, viewerID); err != nil {
		return nil, err
	}
	return s.summarize(ctx, chat, viewerID)
}

func (s *chatService) ListChatsForUser(ctx context.Context, userID int64) ([]*domain.ChatSummary, error) {
	chats, err := s.chatRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]*domain.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summary, err := s.summarize(ctx, chat, userID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *chatService) ListParticipants(ctx context.Context, chatID int64) ([]*domain.ChatParticipant, error) {
	return s.chatRepo.ListParticipants(ctx, chatID)
}

func (s *chatService) ListChatIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	return s.chatRepo.ListIDsByUser(ctx, userID)
}

func (s *chatService) summarize(ctx context.Context, chat *domain.Chat, viewerID int64) (*domain.ChatSummary, error) {
	summary := &domain.ChatSummary{Chat: *chat}

	if chat.Kind == domain.ChatKindGroup {
		if chat.Name != nil {
			summary.Title = *chat.Name
		}
	} else if err := s.fillPeer(ctx, summary, viewerID); err != nil {
		return nil, err
	}

	last, err := s.messageRepo.LastInChat(ctx, chat.ID)
	switch {
	case err == nil:
		summary.LastMessage = last.Content
		summary.LastMessageTime = &last.CreatedAt
		summary.LastMessageSent = last.SenderID == viewerID
		status, err := s.viewerStatus(ctx, last, viewerID)
		if err != nil {
			return nil, err
		}
		summary.LastMessageStatus = &status
	case !errors.Is(err, errors.ErrNotFound):
		return nil, err
	}

	unread, err := s.messageRepo.CountUnread(ctx, chat.ID, viewerID)
	if err != nil {
		return nil, err
	}
	summary.UnreadCount = unread

	return summary, nil
}

// viewerStatus is what the recipients hold for the viewer's own message and
// the viewer's own row otherwise.
func (s *chatService) viewerStatus(ctx context.Context, last *domain.Message, viewerID int64) (domain.MessageStatus, error) {
	if last.SenderID == viewerID {
		receipts, err := s.messageRepo.ListReceipts(ctx, last.ID)
		if err != nil {
			return "", err
		}
		status := domain.AggregateStatus(receipts)
		if status.Rank() < last.Status.Rank() {
			status = last.Status
		}
		return status, nil
	}

	rc, err := s.messageRepo.GetReceipt(ctx, last.ID, viewerID)
	switch {
	case err == nil:
		return rc.Status, nil
	case errors.Is(err, errors.ErrNotFound):
		return last.Status, nil
	default:
		return "", err
	}
}

// fillPeer titles a direct chat after the other participant, preferring the viewer's contact name.
func (s *chatService) fillPeer(ctx context.Context, summary *domain.ChatSummary, viewerID int64) error {
	participants, err := s.chatRepo.ListParticipants(ctx, summary.ID)
	if err != nil {
		return err
	}

	for _, p := range participants {
		if p.UserID == viewerID {
			continue
		}
		peer, err := s.userRepo.GetByID(ctx, p.UserID)
		if err != nil {
			return err
		}
		summary.PeerUserID = &peer.ID
		summary.Title = peer.DisplayName
		summary.IsOnline = peer.IsOnline
		lastSeen := peer.LastSeen
		summary.LastSeen = &lastSeen
		if summary.AvatarURL == nil {
			summary.AvatarURL = peer.AvatarURL
		}
		if contact, err := s.contactRepo.Get(ctx, viewerID, peer.ID); err == nil {
			summary.Title = contact.DisplayName
		}
		return nil
	}
	return nil
}

func requireParticipant(ctx context.Context, chats repository.ChatRepository, chatID, userID int64) error {
	ok, err := chats.IsParticipant(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: user %d is not a participant of chat %d", errors.ErrForbidden, userID, chatID)
	}
	return nil
}
