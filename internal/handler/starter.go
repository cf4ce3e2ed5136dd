package handler

import (
	"net/http"

	"gallan_chat/internal/service"
	"gallan_chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type StarterHandler struct {
	starterService service.StarterService
	log            logger.Logger
}

func NewStarterHandler(starterService service.StarterService, log logger.Logger) *StarterHandler {
	return &StarterHandler{
		starterService: starterService,
		log:            log,
	}
}

func (h *StarterHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	chatID, ok := idParam(c, "id")
	if !ok {
		return
	}

	starters, err := h.starterService.GetStarters(c.Request.Context(), chatID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"starters": starters})
}
