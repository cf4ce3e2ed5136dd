package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"gallan_chat/internal/config"
	"gallan_chat/internal/middleware"
	"gallan_chat/internal/service"
	"gallan_chat/internal/ws"
	"gallan_chat/pkg/errors"
	"gallan_chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health    *HealthHandler
	Auth      *AuthHandler
	User      *UserHandler
	Contact   *ContactHandler
	Chat      *ChatHandler
	Message   *MessageHandler
	Starter   *StarterHandler
	WebSocket *WebSocketHandler
}

func NewHandlers(services *service.Services, hub *ws.Hub, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(cfg),
		Auth:      NewAuthHandler(services.Auth, log),
		User:      NewUserHandler(services.User, log),
		Contact:   NewContactHandler(services.Contact, log),
		Chat:      NewChatHandler(services.Chat, log),
		Message:   NewMessageHandler(services.Message, log),
		Starter:   NewStarterHandler(services.Starter, log),
		WebSocket: NewWebSocketHandler(services, hub, cfg.WebSocket.SendBuffer, log.With("component", "ws")),
	}
}

// respondError hands err to middleware.ErrorHandler, which picks the status.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func badRequest(c *gin.Context, err error) {
	respondError(c, fmt.Errorf("%w: %v", errors.ErrInvalidArgument, err))
}

func currentUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return 0, false
	}
	return v.(int64), true
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, errors.NewAPIError(fmt.Sprintf("invalid %s", name), http.StatusBadRequest))
		return 0, false
	}
	return id, true
}
