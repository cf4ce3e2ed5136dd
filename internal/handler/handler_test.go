package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gallan_chat/internal/config"
	"gallan_chat/internal/domain"
	"gallan_chat/internal/middleware"
	"gallan_chat/internal/repository/memory"
	"gallan_chat/internal/service"
	"gallan_chat/internal/ws"
	"gallan_chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *gin.Engine
	hub    *ws.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{AllowedOrigins: []string{"*"}},
		Storage:     config.StorageConfig{Backend: config.StorageMemory},
		JWT:         config.JWTConfig{Secret: "test-secret", TTL: time.Hour, Issuer: "gallan-chat"},
		Delivery:    config.DeliveryConfig{Policy: config.DeliveryConnectivity},
		Starters:    config.StartersConfig{RecentMessages: 10, Fallback: domain.DefaultFallbackStarters},
		WebSocket:   config.WebSocketConfig{SendBuffer: 32},
	}
	log := logger.NewNop()

	repos := memory.New(log)
	hub := ws.NewHub(repos.Chat, log)
	services := service.NewServices(repos, hub, nil, cfg, log)
	handlers := NewHandlers(services, hub, cfg, log)

	router := NewRouter(handlers,
		middleware.NewAuthMiddleware(services.Auth, log),
		middleware.NewRateLimitMiddleware(services.RateLimit, cfg.RateLimit.PerMinute, log),
		cfg, log)

	return &testServer{router: router, hub: hub}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func (s *testServer) register(t *testing.T, username string) service.AuthResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username":     username,
		"password":     "secret123",
		"display_name": strings.ToUpper(username),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp service.AuthResponse
	decode(t, w, &resp)
	return resp
}

func (s *testServer) directChat(t *testing.T, token string, peerID int64) domain.ChatSummary {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/chats", token, gin.H{"contact_id": peerID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary domain.ChatSummary
	decode(t, w, &summary)
	return summary
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["storage"])
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "amina")

	w := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "AMINA", "password": "secret123"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "amina", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "amina", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp service.AuthResponse
	decode(t, w, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "amina", resp.User.Username)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "bilal"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	decode(t, w, &body)
	assert.NotEmpty(t, body["error"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/chats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/chats", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfileUpdate(t *testing.T) {
	s := newTestServer(t)
	a := s.register(t, "amina")

	w := s.do(t, http.MethodPatch, "/api/v1/users/me", a.Token, gin.H{"status": "Reading"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/users/me", a.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var user domain.User
	decode(t, w, &user)
	assert.Equal(t, "Reading", user.Status)
	assert.Equal(t, "AMINA", user.DisplayName)
}

func TestContacts(t *testing.T) {
	s := newTestServer(t)
	a := s.register(t, "amina")
	b := s.register(t, "bilal")

	w := s.do(t, http.MethodPost, "/api/v1/contacts", a.Token, gin.H{"username": "bilal", "display_name": "Bilal bhai"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/contacts", a.Token, gin.H{"username": "bilal"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/contacts", a.Token, gin.H{"username": "nobody"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/contacts/%d", b.User.ID), a.Token, gin.H{
		"flags": gin.H{"is_starred": true},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/contacts", a.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Contacts []domain.ContactView `json:"contacts"`
	}
	decode(t, w, &body)
	require.Len(t, body.Contacts, 1)
	assert.Equal(t, "Bilal bhai", body.Contacts[0].DisplayName)
	assert.True(t, body.Contacts[0].Flags.Starred)
}

func TestDirectChatIsIdempotent(t *testing.T) {
	s := newTestServer(t)
	a := s.register(t, "amina")
	b := s.register(t, "bilal")

	first := s.directChat(t, a.Token, b.User.ID)
	second := s.directChat(t, b.Token, a.User.ID)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, domain.ChatKindDirect, first.Kind)
	assert.Equal(t, "BILAL", first.Title)
	assert.Equal(t, "AMINA", second.Title)

	w := s.do(t, http.MethodPost, "/api/v1/chats", a.Token, gin.H{"contact_id": a.User.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMessagesOverREST(t *testing.T) {
	s := newTestServer(t)
	a := s.register(t, "amina")
	b := s.register(t, "bilal")
	c := s.register(t, "chand")
	chat := s.directChat(t, a.Token, b.User.ID)
	messagesPath := fmt.Sprintf("/api/v1/chats/%d/messages", chat.ID)

	w := s.do(t, http.MethodPost, messagesPath, a.Token, gin.H{"content": "Assalamu alaikum"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var msg domain.Message
	decode(t, w, &msg)
	assert.Equal(t, domain.StatusSent, msg.Status)

	w = s.do(t, http.MethodPost, messagesPath, a.Token, gin.H{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, messagesPath, c.Token, gin.H{"content": "hi"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, messagesPath, c.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/messages/%d/read", msg.ID), a.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/messages/%d/read", msg.ID), b.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, messagesPath, a.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Messages []domain.Message `json:"messages"`
	}
	decode(t, w, &body)
	require.Len(t, body.Messages, 1)
	assert.Equal(t, domain.StatusRead, body.Messages[0].Status)
}

func TestMarkChatRead(t *testing.T) {
	s := newTestServer(t)
	a := s.register(t, "amina")
	b := s.register(t, "bilal")
	chat := s.directChat(t, a.Token, b.User.ID)

	for i := 0; i < 3; i++ {
		w := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/chats/%d/messages", chat.ID), a.Token, gin.H{"content": fmt.Sprintf("msg %d", i)})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/chats/%d", chat.ID), b.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary domain.ChatSummary
	decode(t, w, &summary)
	assert.Equal(t, 3, summary.UnreadCount)
	assert.Equal(t, "msg 2", summary.LastMessage)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/chats/%d/read", chat.ID), b.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var marked struct {
		Marked int `json:"marked"`
	}
	decode(t, w, &marked)
	assert.Equal(t, 3, marked.Marked)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/chats/%d", chat.ID), b.Token, nil)
	decode(t, w, &summary)
	assert.Zero(t, summary.UnreadCount)
}

func TestBadIDParam(t *testing.T) {
	s := newTestServer(t)
	a := s.register(t, "amina")

	w := s.do(t, http.MethodGet, "/api/v1/chats/abc", a.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/chats/999", a.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartersFallBackWithoutGenerator(t *testing.T) {
	s := newTestServer(t)
	a := s.register(t, "amina")
	b := s.register(t, "bilal")
	chat := s.directChat(t, a.Token, b.User.ID)

	w := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/chats/%d/starters", chat.ID), a.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Starters []domain.ConversationStarter `json:"starters"`
	}
	decode(t, w, &body)
	assert.NotEmpty(t, body.Starters)
}

func dialWS(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, frameType string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(ws.Frame{Type: frameType, Payload: raw}))
}

type wireEvent struct {
	Type    domain.EventType `json:"type"`
	Payload json.RawMessage  `json:"payload"`
}

// readUntil skips unrelated events until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want domain.EventType) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var ev wireEvent
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type == want {
			return ev
		}
	}
}

func TestWebSocketRejectsMissingToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/ws", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/ws?token=garbage", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebSocketMessageFlow(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	a := s.register(t, "amina")
	b := s.register(t, "bilal")
	chat := s.directChat(t, a.Token, b.User.ID)

	connA := dialWS(t, srv, a.Token)
	connB := dialWS(t, srv, b.Token)

	sendFrame(t, connA, frameSubscribe, chatFrame{ChatID: chat.ID})
	sendFrame(t, connB, frameSubscribe, chatFrame{ChatID: chat.ID})
	require.Eventually(t, func() bool {
		return s.hub.IsSubscribed(chat.ID, a.User.ID) && s.hub.IsSubscribed(chat.ID, b.User.ID)
	}, 2*time.Second, 10*time.Millisecond)

	sendFrame(t, connA, frameMessage, gin.H{"chat_id": chat.ID, "content": "Kya haal hai?"})

	ev := readUntil(t, connB, domain.EventMessageCreated)
	var created struct {
		Message domain.Message `json:"message"`
	}
	require.NoError(t, json.Unmarshal(ev.Payload, &created))
	assert.Equal(t, "Kya haal hai?", created.Message.Content)
	assert.Equal(t, a.User.ID, created.Message.SenderID)

	sendFrame(t, connB, frameTyping, typingFrame{ChatID: chat.ID, IsTyping: true})
	ev = readUntil(t, connA, domain.EventTyping)
	var typing domain.TypingPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &typing))
	assert.Equal(t, b.User.ID, typing.UserID)

	sendFrame(t, connB, frameRead, readFrame{MessageID: created.Message.ID})
	ev = readUntil(t, connA, domain.EventMessageRead)
	var read domain.MessageReadPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &read))
	assert.Equal(t, created.Message.ID, read.MessageID)
	assert.Equal(t, b.User.ID, read.ReaderID)
}

func TestWebSocketErrorFrames(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	a := s.register(t, "amina")
	conn := dialWS(t, srv, a.Token)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	ev := readUntil(t, conn, domain.EventError)
	assert.Contains(t, string(ev.Payload), "unknown frame type")

	sendFrame(t, conn, frameSubscribe, chatFrame{ChatID: 42})
	ev = readUntil(t, conn, domain.EventError)
	assert.Contains(t, string(ev.Payload), "forbidden")
}

func TestWebSocketPresence(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	a := s.register(t, "amina")
	b := s.register(t, "bilal")
	s.directChat(t, a.Token, b.User.ID)

	dialWS(t, srv, a.Token)
	require.Eventually(t, func() bool {
		return s.hub.ConnectionCount(a.User.ID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		w := s.do(t, http.MethodGet, "/api/v1/chats", b.Token, nil)
		var body struct {
			Chats []domain.ChatSummary `json:"chats"`
		}
		if json.Unmarshal(w.Body.Bytes(), &body) != nil || len(body.Chats) != 1 {
			return false
		}
		return body.Chats[0].IsOnline
	}, 2*time.Second, 10*time.Millisecond)
}
