package service

import (
	"context"
	"time"

	"gallan_chat/internal/domain"
	"gallan_chat/internal/repository"
	"gallan_chat/pkg/logger"
)

type PresenceService interface {
	SetOnline(ctx context.Context, userID int64) error
	SetOffline(ctx context.Context, userID int64) error
}

type presenceService struct {
	userRepo    repository.UserRepository
	chatRepo    repository.ChatRepository
	broadcaster Broadcaster
	log         logger.Logger
}

func NewPresenceService(repos *repository.Repositories, broadcaster Broadcaster, log logger.Logger) PresenceService {
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	return &presenceService{
		userRepo:    repos.User,
		chatRepo:    repos.Chat,
		broadcaster: broadcaster,
		log:         log,
	}
}

func (s *presenceService) SetOnline(ctx context.Context, userID int64) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.set(ctx, userID, true, user.LastSeen)
}

func (s *presenceService) SetOffline(ctx context.Context, userID int64) error {
	return s.set(ctx, userID, false, time.Now().UTC())
}

func (s *presenceService) set(ctx context.Context, userID int64, online bool, lastSeen time.Time) error {
	if err := s.userRepo.UpdatePresence(ctx, userID, online, lastSeen); err != nil {
		return err
	}

	chatIDs, err := s.chatRepo.ListIDsByUser(ctx, userID)
	if err != nil {
		return err
	}

	event := domain.Event{
		Type:    domain.EventPresenceChanged,
		Payload: domain.PresencePayload{UserID: userID, IsOnline: online, LastSeen: lastSeen},
	}
	for _, chatID := range chatIDs {
		s.broadcaster.Broadcast(chatID, event, "")
	}

	s.log.Debug("Presence changed", "user_id", userID, "online", online, "chats", len(chatIDs))
	return nil
}
