package handler

import (
	"context"
	"testing"
	"time"

	"gallan_chat/internal/config"
	"gallan_chat/internal/repository/memory"
	"gallan_chat/internal/service"
	"gallan_chat/internal/ws"
	"gallan_chat/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id     string
	userID int64
}

func (f *fakeConn) ID() string            { return f.id }
func (f *fakeConn) UserID() int64         { return f.userID }
func (f *fakeConn) Deliver(_ []byte) bool { return true }

func newPresenceFixture(t *testing.T) (*WebSocketHandler, *ws.Hub, service.UserService, int64) {
	t.Helper()
	log := logger.NewNop()
	cfg := &config.Config{
		JWT:       config.JWTConfig{Secret: "test-secret", TTL: time.Hour, Issuer: "gallan-chat"},
		Delivery:  config.DeliveryConfig{Policy: config.DeliveryConnectivity},
		WebSocket: config.WebSocketConfig{SendBuffer: 8},
	}
	repos := memory.New(log)
	hub := ws.NewHub(repos.Chat, log)
	services := service.NewServices(repos, hub, nil, cfg, log)

	resp, err := services.Auth.Register(context.Background(), "amina", "secret123", "Amina")
	require.NoError(t, err)

	return NewWebSocketHandler(services, hub, 8, log), hub, services.User, resp.User.ID
}

func isOnline(t *testing.T, users service.UserService, id int64) bool {
	t.Helper()
	u, err := users.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u.IsOnline
}

func TestPresenceFollowsConnectionCount(t *testing.T) {
	h, hub, users, userID := newPresenceFixture(t)
	first := &fakeConn{id: "c1", userID: userID}
	second := &fakeConn{id: "c2", userID: userID}

	hub.Register(first)
	h.syncPresence(userID)
	assert.True(t, isOnline(t, users, userID))

	hub.Register(second)
	h.syncPresence(userID)
	hub.Unregister(first)
	h.syncPresence(userID)
	assert.True(t, isOnline(t, users, userID))

	hub.Unregister(second)
	h.syncPresence(userID)
	assert.False(t, isOnline(t, users, userID))
}

func TestLateDisconnectDoesNotOverrideReconnect(t *testing.T) {
	h, hub, users, userID := newPresenceFixture(t)
	old := &fakeConn{id: "old", userID: userID}
	fresh := &fakeConn{id: "fresh", userID: userID}

	hub.Register(old)
	h.syncPresence(userID)

	// The old socket drops and the new one registers before either side writes presence.
	hub.Unregister(old)
	hub.Register(fresh)
	h.syncPresence(userID) // reconnect path
	h.syncPresence(userID) // disconnect path, finishing last

	assert.True(t, isOnline(t, users, userID))
}
