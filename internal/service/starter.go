package service

import (
	"context"

	"gallan_chat/internal/config"
	"gallan_chat/internal/domain"
	"gallan_chat/internal/repository"
	"gallan_chat/pkg/errors"
	"gallan_chat/pkg/logger"
)

const maxStarters = 5

// StarterGenerator produces ranked conversation starters for a context.
type StarterGenerator interface {
	Generate(ctx context.Context, sc *domain.StarterContext) ([]domain.ConversationStarter, error)
}

type StarterService interface {
	GetStarters(ctx context.Context, chatID, requesterID int64) ([]domain.ConversationStarter, error)
}

type starterService struct {
	chatRepo    repository.ChatRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	contactRepo repository.ContactRepository
	generator   StarterGenerator
	cfg         config.StartersConfig
	log         logger.Logger
}

// NewStarterService accepts a nil generator, in which case only the fallback list is served.
func NewStarterService(repos *repository.Repositories, generator StarterGenerator, cfg config.StartersConfig, log logger.Logger) StarterService {
	return &starterService{
		chatRepo:    repos.Chat,
		messageRepo: repos.Message,
		userRepo:    repos.User,
		contactRepo: repos.Contact,
		generator:   generator,
		cfg:         cfg,
		log:         log,
	}
}

func (s *starterService) GetStarters(ctx context.Context, chatID, requesterID int64) ([]domain.ConversationStarter, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := requireParticipant(ctx, s.chatRepo, chatID, requesterID); err != nil {
		return nil, err
	}

	sc, err := s.buildContext(ctx, chat, requesterID)
	if err != nil {
		return nil, err
	}

	fallback := s.cfg.Fallback.For(sc.Counterpart.IsScholar)
	if s.generator == nil {
		return normalizeStarters(fallback), nil
	}

	starters, err := s.generator.Generate(ctx, sc)
	if err != nil {
		s.log.Warn("Starter generation failed, serving fallback", "error", err, "chat_id", chatID)
		return normalizeStarters(fallback), nil
	}
	starters = normalizeStarters(starters)
	if len(starters) == 0 {
		return normalizeStarters(fallback), nil
	}
	return starters, nil
}

func (s *starterService) buildContext(ctx context.Context, chat *domain.Chat, requesterID int64) (*domain.StarterContext, error) {
	requester, err := s.userRepo.GetByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	requester.PasswordHash = ""

	sc := &domain.StarterContext{Requester: requester}

	if chat.Kind == domain.ChatKindGroup {
		if chat.Name != nil {
			sc.Counterpart.DisplayName = *chat.Name
		}
		if chat.Description != nil {
			sc.Counterpart.Status = *chat.Description
		}
	} else {
		participants, err := s.chatRepo.ListParticipants(ctx, chat.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range participants {
			if p.UserID == requesterID {
				continue
			}
			peer, err := s.userRepo.GetByID(ctx, p.UserID)
			if err != nil {
				return nil, err
			}
			sc.Counterpart = domain.StarterCounterpart{DisplayName: peer.DisplayName, Status: peer.Status}
			contact, err := s.contactRepo.Get(ctx, requesterID, peer.ID)
			if err == nil {
				sc.Counterpart.DisplayName = contact.DisplayName
				sc.Counterpart.IsScholar = contact.Flags.Scholar
			} else if !errors.Is(err, errors.ErrNotFound) {
				return nil, err
			}
			break
		}
	}

	messages, err := s.messageRepo.ListByChat(ctx, chat.ID)
	if err != nil {
		return nil, err
	}
	if n := s.cfg.RecentMessages; n > 0 && len(messages) > n {
		messages = messages[len(messages)-n:]
	}
	sc.RecentMessages = messages

	return sc, nil
}

func normalizeStarters(in []domain.ConversationStarter) []domain.ConversationStarter {
	out := make([]domain.ConversationStarter, 0, maxStarters)
	for _, st := range in {
		if st.Text == "" {
			continue
		}
		if !st.Category.Valid() {
			st.Category = domain.StarterGeneral
		}
		out = append(out, st)
		if len(out) == maxStarters {
			break
		}
	}
	return out
}
