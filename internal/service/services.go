package service

import (
	"gallan_chat/internal/config"
	"gallan_chat/internal/repository"
	"gallan_chat/pkg/logger"
)

type Services struct {
	Auth      AuthService
	User      UserService
	Contact   ContactService
	Chat      ChatService
	Message   MessageService
	Presence  PresenceService
	Starter   StarterService
	RateLimit RateLimitService
}

func NewServices(repos *repository.Repositories, broadcaster Broadcaster, generator StarterGenerator, cfg *config.Config, log logger.Logger) *Services {
	services := &Services{
		Auth:     NewAuthService(repos.User, cfg.JWT, log.With("component", "auth")),
		User:     NewUserService(repos.User, log.With("component", "user")),
		Contact:  NewContactService(repos.Contact, repos.User, log.With("component", "contact")),
		Chat:     NewChatService(repos, log.With("component", "chat")),
		Message:  NewMessageService(repos, broadcaster, cfg.Delivery.Policy, log.With("component", "ledger")),
		Presence: NewPresenceService(repos, broadcaster, log.With("component", "presence")),
		Starter:  NewStarterService(repos, generator, cfg.Starters, log.With("component", "starters")),
	}

	if repos.RateLimit != nil {
		services.RateLimit = NewRateLimitService(repos.RateLimit, log)
		log.Info("Rate limiting enabled")
	} else {
		log.Warn("Rate limit repository is nil, rate limiting disabled")
	}

	return services
}
