package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"gallan_chat/internal/domain"
	"gallan_chat/internal/service"
	"gallan_chat/internal/ws"
	"gallan_chat/pkg/errors"
	"gallan_chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const frameTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	frameSubscribe   = "subscribe"
	frameUnsubscribe = "unsubscribe"
	frameTyping      = "typing"
	frameRead        = "read"
	frameMessage     = "message"
)

type chatFrame struct {
	ChatID int64 `json:"chat_id"`
}

type typingFrame struct {
	ChatID   int64 `json:"chat_id"`
	IsTyping bool  `json:"is_typing"`
}

type readFrame struct {
	MessageID int64 `json:"message_id"`
}

type WebSocketHandler struct {
	authService     service.AuthService
	chatService     service.ChatService
	messageService  service.MessageService
	presenceService service.PresenceService
	hub             *ws.Hub
	sendBuffer      int
	log             logger.Logger

	presenceMu sync.Mutex
	// online holds the users last written as online by this node.
	online map[int64]bool
}

func NewWebSocketHandler(services *service.Services, hub *ws.Hub, sendBuffer int, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		authService:     services.Auth,
		chatService:     services.Chat,
		messageService:  services.Message,
		presenceService: services.Presence,
		hub:             hub,
		sendBuffer:      sendBuffer,
		log:             log,
		online:          make(map[int64]bool),
	}
}

// Serve upgrades GET /ws. The token comes from ?token= or a Bearer header.
func (h *WebSocketHandler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
		return
	}

	userID, err := h.authService.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := ws.NewClient(conn, userID, h.sendBuffer, h.log)
	h.hub.Register(client)
	h.syncPresence(userID)
	h.log.Info("WebSocket connected", "user_id", userID, "conn_id", client.ID())

	go client.WritePump()
	client.ReadPump(h.handleFrame)

	h.hub.Unregister(client)
	h.syncPresence(userID)
	h.log.Info("WebSocket disconnected", "user_id", userID, "conn_id", client.ID())
}

// syncPresence writes the presence matching the hub's current connection
// count. Writes are serialized, so a disconnect racing a reconnect ends on
// the state of the live connections.
func (h *WebSocketHandler) syncPresence(userID int64) {
	h.presenceMu.Lock()
	defer h.presenceMu.Unlock()

	online := h.hub.ConnectionCount(userID) > 0
	if online == h.online[userID] {
		return
	}

	ctx := context.Background()
	if online {
		if err := h.presenceService.SetOnline(ctx, userID); err != nil {
			h.log.Error("Failed to set user online", "error", err, "user_id", userID)
			return
		}
		h.online[userID] = true
		return
	}

	if err := h.presenceService.SetOffline(ctx, userID); err != nil {
		h.log.Error("Failed to set user offline", "error", err, "user_id", userID)
		return
	}
	delete(h.online, userID)
}

func (h *WebSocketHandler) handleFrame(client *ws.Client, frame ws.Frame) {
	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()

	if err := h.dispatch(ctx, client, frame); err != nil {
		h.log.Debug("Frame rejected", "type", frame.Type, "error", err, "conn_id", client.ID())
		sendError(client, err)
	}
}

func (h *WebSocketHandler) dispatch(ctx context.Context, client *ws.Client, frame ws.Frame) error {
	switch frame.Type {
	case frameSubscribe:
		var p chatFrame
		if err := decodeFrame(frame, &p); err != nil {
			return err
		}
		if err := h.hub.Subscribe(ctx, p.ChatID, client); err != nil {
			return err
		}
		_, err := h.messageService.DeliverPending(ctx, p.ChatID, client.UserID())
		return err

	case frameUnsubscribe:
		var p chatFrame
		if err := decodeFrame(frame, &p); err != nil {
			return err
		}
		h.hub.Unsubscribe(p.ChatID, client)
		return nil

	case frameTyping:
		var p typingFrame
		if err := decodeFrame(frame, &p); err != nil {
			return err
		}
		ok, err := h.chatService.IsParticipant(ctx, p.ChatID, client.UserID())
		if err != nil {
			return err
		}
		if !ok {
			return errors.ErrForbidden
		}
		h.hub.Broadcast(p.ChatID, domain.Event{
			Type:    domain.EventTyping,
			Payload: domain.TypingPayload{UserID: client.UserID(), ChatID: p.ChatID, IsTyping: p.IsTyping},
		}, client.ID())
		return nil

	case frameRead:
		var p readFrame
		if err := decodeFrame(frame, &p); err != nil {
			return err
		}
		_, err := h.messageService.MarkRead(ctx, p.MessageID, client.UserID())
		return err

	case frameMessage:
		var input service.PostMessageInput
		if err := decodeFrame(frame, &input); err != nil {
			return err
		}
		input.SenderID = client.UserID()
		_, err := h.messageService.PostMessage(ctx, input)
		return err

	default:
		return errors.NewAPIError("unknown frame type", http.StatusBadRequest)
	}
}

func decodeFrame(frame ws.Frame, v interface{}) error {
	if len(frame.Payload) == 0 {
		return errors.NewAPIError("payload required", http.StatusBadRequest)
	}
	if err := json.Unmarshal(frame.Payload, v); err != nil {
		return errors.NewAPIError("malformed payload", http.StatusBadRequest)
	}
	return nil
}

func sendError(client *ws.Client, err error) {
	message := err.Error()
	if errors.HTTPStatusFromError(err) >= 500 {
		message = "Internal server error"
	}
	data, mErr := json.Marshal(domain.Event{
		Type:    domain.EventError,
		Payload: domain.ErrorPayload{Message: message},
	})
	if mErr != nil {
		return
	}
	client.Deliver(data)
}
