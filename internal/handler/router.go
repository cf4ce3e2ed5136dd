package handler

import (
	"gallan_chat/internal/config"
	"gallan_chat/internal/middleware"
	"gallan_chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

func NewRouter(h *Handlers, auth *middleware.AuthMiddleware, limiter *middleware.RateLimitMiddleware, cfg *config.Config, log logger.Logger) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.ErrorHandler(log))

	router.GET("/health", h.Health.Check)
	router.GET("/ws", h.WebSocket.Serve)

	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.Use(limiter.Limit("auth"))
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
	}

	protected := v1.Group("")
	protected.Use(auth.RequireAuth())
	protected.Use(limiter.Limit("api"))
	{
		protected.GET("/users/me", h.User.GetMe)
		protected.PATCH("/users/me", h.User.UpdateMe)

		protected.GET("/contacts", h.Contact.List)
		protected.POST("/contacts", h.Contact.Add)
		protected.PATCH("/contacts/:contactId", h.Contact.Update)

		protected.GET("/chats", h.Chat.List)
		protected.POST("/chats", h.Chat.CreateDirect)
		protected.POST("/chats/group", h.Chat.CreateGroup)
		protected.GET("/chats/:id", h.Chat.Get)
		protected.GET("/chats/:id/messages", h.Message.List)
		protected.POST("/chats/:id/messages", h.Message.Post)
		protected.POST("/chats/:id/read", h.Message.MarkChatRead)
		protected.GET("/chats/:id/starters", h.Starter.Get)

		protected.POST("/messages/:id/read", h.Message.MarkRead)
	}

	return router
}
