package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gallan_chat/internal/config"
	"gallan_chat/internal/domain"
	"gallan_chat/internal/repository"
	"gallan_chat/pkg/errors"
	"gallan_chat/pkg/logger"
)

type MessageService interface {
	PostMessage(ctx context.Context, input PostMessageInput) (*domain.Message, error)
	MarkRead(ctx context.Context, messageID, readerID int64) (*domain.Receipt, error)
	// MarkChatRead marks every message the reader received in the chat as read and returns how many changed.
	MarkChatRead(ctx context.Context, chatID, readerID int64) (int, error)
	// DeliverPending upgrades the user's sent receipts in the chat to delivered.
	DeliverPending(ctx context.Context, chatID, userID int64) (int, error)
	ListMessages(ctx context.Context, chatID, viewerID int64) ([]*domain.Message, error)
}

type PostMessageInput struct {
	ChatID          int64              `json:"chat_id"`
	SenderID        int64              `json:"-"`
	Content         string             `json:"content"`
	Type            domain.MessageType `json:"type"`
	QuotedMessageID *int64             `json:"quoted_message_id"`
}

type messageService struct {
	messageRepo repository.MessageRepository
	chatRepo    repository.ChatRepository
	broadcaster Broadcaster
	policy      config.DeliveryPolicy
	locks       *keyedMutex
	now         func() time.Time
	log         logger.Logger
}

func NewMessageService(repos *repository.Repositories, broadcaster Broadcaster, policy config.DeliveryPolicy, log logger.Logger) MessageService {
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	return &messageService{
		messageRepo: repos.Message,
		chatRepo:    repos.Chat,
		broadcaster: broadcaster,
		policy:      policy,
		locks:       newKeyedMutex(),
		now:         func() time.Time { return time.Now().UTC() },
		log:         log,
	}
}

func (s *messageService) PostMessage(ctx context.Context, input PostMessageInput) (*domain.Message, error) {
	if input.Type == "" {
		input.Type = domain.MessageTypeText
	}
	if !input.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown message type %q", errors.ErrInvalidArgument, input.Type)
	}
	if input.Type == domain.MessageTypeText && strings.TrimSpace(input.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", errors.ErrInvalidArgument)
	}

	if _, err := s.chatRepo.GetByID(ctx, input.ChatID); err != nil {
		return nil, err
	}
	if err := requireParticipant(ctx, s.chatRepo, input.ChatID, input.SenderID); err != nil {
		return nil, err
	}

	if input.QuotedMessageID != nil {
		quoted, err := s.messageRepo.GetByID(ctx, *input.QuotedMessageID)
		if err != nil || quoted.ChatID != input.ChatID {
			return nil, fmt.Errorf("%w: quoted message %d is not in this chat", errors.ErrInvalidArgument, *input.QuotedMessageID)
		}
	}

	participants, err := s.chatRepo.ListParticipants(ctx, input.ChatID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	receipts := make([]*domain.Receipt, 0, len(participants))
	for _, p := range participants {
		if p.UserID == input.SenderID {
			continue
		}
		receipts = append(receipts, &domain.Receipt{
			UserID:    p.UserID,
			Status:    s.initialStatus(input.ChatID, p.UserID),
			UpdatedAt: now,
		})
	}

	message := &domain.Message{
		ChatID:          input.ChatID,
		SenderID:        input.SenderID,
		Content:         input.Content,
		Type:            input.Type,
		QuotedMessageID: input.QuotedMessageID,
		CreatedAt:       now,
		Status:          domain.StatusSent,
	}
	if err := s.messageRepo.Create(ctx, message, receipts); err != nil {
		return nil, err
	}

	s.log.Debug("Message created", "message_id", message.ID, "chat_id", message.ChatID, "recipients", len(receipts))

	s.broadcaster.Broadcast(message.ChatID, domain.Event{
		Type:    domain.EventMessageCreated,
		Payload: domain.MessageCreatedPayload{Message: message},
	}, "")

	if err := s.deliverLateSubscribers(ctx, message, receipts); err != nil {
		return nil, err
	}

	return message, nil
}

// deliverLateSubscribers catches recipients who subscribed between the
// initial status decision and the insert; their DeliverPending ran before
// the row existed.
func (s *messageService) deliverLateSubscribers(ctx context.Context, message *domain.Message, receipts []*domain.Receipt) error {
	if s.policy != config.DeliveryConnectivity {
		return nil
	}
	for _, rc := range receipts {
		if rc.Status != domain.StatusSent || !s.broadcaster.IsSubscribed(message.ChatID, rc.UserID) {
			continue
		}
		if _, err := s.advance(ctx, message, rc.UserID, domain.StatusDelivered); err != nil {
			return err
		}
	}
	return nil
}

func (s *messageService) initialStatus(chatID, userID int64) domain.MessageStatus {
	if s.policy == config.DeliveryUniform || s.broadcaster.IsSubscribed(chatID, userID) {
		return domain.StatusDelivered
	}
	return domain.StatusSent
}

func (s *messageService) MarkRead(ctx context.Context, messageID, readerID int64) (*domain.Receipt, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID == readerID {
		return nil, fmt.Errorf("%w: cannot mark your own message as read", errors.ErrForbidden)
	}
	if err := requireParticipant(ctx, s.chatRepo, message.ChatID, readerID); err != nil {
		return nil, err
	}
	return s.advance(ctx, message, readerID, domain.StatusRead)
}

func (s *messageService) MarkChatRead(ctx context.Context, chatID, readerID int64) (int, error) {
	return s.advanceChat(ctx, chatID, readerID, domain.StatusRead)
}

func (s *messageService) DeliverPending(ctx context.Context, chatID, userID int64) (int, error) {
	return s.advanceChat(ctx, chatID, userID, domain.StatusDelivered)
}

func (s *messageService) advanceChat(ctx context.Context, chatID, userID int64, status domain.MessageStatus) (int, error) {
	if _, err := s.chatRepo.GetByID(ctx, chatID); err != nil {
		return 0, err
	}
	if err := requireParticipant(ctx, s.chatRepo, chatID, userID); err != nil {
		return 0, err
	}

	pending, err := s.messageRepo.ListUserReceiptsBelow(ctx, chatID, userID, status)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, rc := range pending {
		message, err := s.messageRepo.GetByID(ctx, rc.MessageID)
		if err != nil {
			return changed, err
		}
		updated, err := s.advance(ctx, message, userID, status)
		if err != nil {
			return changed, err
		}
		if updated.Status == status {
			changed++
		}
	}
	return changed, nil
}

// advance moves one receipt forward and re-derives the message aggregate from
// every receipt. The per-message lock makes the read-modify-write atomic, so
// concurrent readers cannot both miss the transition to read.
func (s *messageService) advance(ctx context.Context, message *domain.Message, userID int64, status domain.MessageStatus) (*domain.Receipt, error) {
	unlock := s.locks.Lock(message.ID)
	defer unlock()

	now := s.now()
	receipt, changed, err := s.messageRepo.AdvanceReceipt(ctx, message.ID, userID, status, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		return receipt, nil
	}

	if receipt.Status == domain.StatusDelivered {
		s.broadcaster.NotifyUser(message.SenderID, domain.Event{
			Type: domain.EventMessageDelivered,
			Payload: domain.MessageDeliveredPayload{
				MessageID: message.ID,
				ChatID:    message.ChatID,
				UserID:    userID,
				Timestamp: now,
			},
		})
	}

	current, err := s.messageRepo.GetByID(ctx, message.ID)
	if err != nil {
		return nil, err
	}
	receipts, err := s.messageRepo.ListReceipts(ctx, message.ID)
	if err != nil {
		return nil, err
	}

	aggregate := domain.AggregateStatus(receipts)
	if aggregate.Rank() <= current.Status.Rank() {
		return receipt, nil
	}
	if err := s.messageRepo.AdvanceStatus(ctx, message.ID, aggregate); err != nil {
		return nil, err
	}

	if aggregate == domain.StatusRead {
		s.log.Debug("Message read by all recipients", "message_id", message.ID, "chat_id", message.ChatID)
		s.broadcaster.NotifyUser(message.SenderID, domain.Event{
			Type: domain.EventMessageRead,
			Payload: domain.MessageReadPayload{
				MessageID: message.ID,
				ChatID:    message.ChatID,
				ReaderID:  userID,
				Timestamp: now,
			},
		})
	}
	return receipt, nil
}

func (s *messageService) ListMessages(ctx context.Context, chatID, viewerID int64) ([]*domain.Message, error) {
	if _, err := s.chatRepo.GetByID(ctx, chatID); err != nil {
		return nil, err
	}
	if err := requireParticipant(ctx, s.chatRepo, chatID, viewerID); err != nil {
		return nil, err
	}
	return s.messageRepo.ListByChat(ctx, chatID)
}
