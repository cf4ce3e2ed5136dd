package handler

import (
	"net/http"

	"gallan_chat/internal/domain"
	"gallan_chat/internal/service"
	"gallan_chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	messageService service.MessageService
	log            logger.Logger
}

func NewMessageHandler(messageService service.MessageService, log logger.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		log:            log,
	}
}

func (h *MessageHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	chatID, ok := idParam(c, "id")
	if !ok {
		return
	}

	messages, err := h.messageService.ListMessages(c.Request.Context(), chatID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type PostMessageRequest struct {
	Content         string             `json:"content"`
	Type            domain.MessageType `json:"type"`
	QuotedMessageID *int64             `json:"quoted_message_id"`
}

func (h *MessageHandler) Post(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	chatID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	message, err := h.messageService.PostMessage(c.Request.Context(), service.PostMessageInput{
		ChatID:          chatID,
		SenderID:        userID,
		Content:         req.Content,
		Type:            req.Type,
		QuotedMessageID: req.QuotedMessageID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

func (h *MessageHandler) MarkChatRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	chatID, ok := idParam(c, "id")
	if !ok {
		return
	}

	n, err := h.messageService.MarkChatRead(c.Request.Context(), chatID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"marked": n})
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	messageID, ok := idParam(c, "id")
	if !ok {
		return
	}

	receipt, err := h.messageService.MarkRead(c.Request.Context(), messageID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, receipt)
}
