package handler

import (
	"net/http"

	"gallan_chat/internal/config"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	environment string
	storage     string
}

func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{
		environment: cfg.Environment,
		storage:     cfg.Storage.Backend,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"service":     "gallan-chat",
		"environment": h.environment,
		"storage":     h.storage,
	})
}
