// Package ws holds live connections and fans events out to them.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"gallan_chat/internal/domain"
	"gallan_chat/internal/relay"
	"gallan_chat/pkg/errors"
	"gallan_chat/pkg/logger"
)

// Subscriber is one live connection. Deliver must not block.
type Subscriber interface {
	ID() string
	UserID() int64
	Deliver(payload []byte) bool
}

type ParticipantChecker interface {
	IsParticipant(ctx context.Context, chatID, userID int64) (bool, error)
}

// Publisher forwards local events to other nodes.
type Publisher interface {
	Publish(env relay.Envelope) error
}

type Hub struct {
	checker ParticipantChecker
	log     logger.Logger

	mu    sync.RWMutex
	conns map[string]Subscriber
	chats map[int64]map[string]Subscriber
	users map[int64]map[string]Subscriber
	// joined tracks which chats each connection has subscribed to.
	joined map[string]map[int64]struct{}

	publisher Publisher
}

func NewHub(checker ParticipantChecker, log logger.Logger) *Hub {
	return &Hub{
		checker: checker,
		log:     log,
		conns:   make(map[string]Subscriber),
		chats:   make(map[int64]map[string]Subscriber),
		users:   make(map[int64]map[string]Subscriber),
		joined:  make(map[string]map[int64]struct{}),
	}
}

// SetPublisher enables cross-node fan-out. Call before serving traffic.
func (h *Hub) SetPublisher(p Publisher) {
	h.publisher = p
}

// Register adds a connection and returns how many connections its user now has.
func (h *Hub) Register(sub Subscriber) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[sub.ID()] = sub
	set := h.users[sub.UserID()]
	if set == nil {
		set = make(map[string]Subscriber)
		h.users[sub.UserID()] = set
	}
	set[sub.ID()] = sub
	return len(set)
}

// Unregister drops the connection from every chat and returns how many
// connections its user still has.
func (h *Hub) Unregister(sub Subscriber) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := sub.ID()
	for chatID := range h.joined[id] {
		h.leaveLocked(chatID, id)
	}
	delete(h.joined, id)
	delete(h.conns, id)

	set := h.users[sub.UserID()]
	delete(set, id)
	if len(set) == 0 {
		delete(h.users, sub.UserID())
	}
	return len(set)
}

// Subscribe joins the connection to a chat; non-participants get ErrForbidden.
func (h *Hub) Subscribe(ctx context.Context, chatID int64, sub Subscriber) error {
	ok, err := h.checker.IsParticipant(ctx, chatID, sub.UserID())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: user %d is not a participant of chat %d", errors.ErrForbidden, sub.UserID(), chatID)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, live := h.conns[sub.ID()]; !live {
		return fmt.Errorf("%w: connection %s is not registered", errors.ErrNotFound, sub.ID())
	}

	set := h.chats[chatID]
	if set == nil {
		set = make(map[string]Subscriber)
		h.chats[chatID] = set
	}
	set[sub.ID()] = sub

	joined := h.joined[sub.ID()]
	if joined == nil {
		joined = make(map[int64]struct{})
		h.joined[sub.ID()] = joined
	}
	joined[chatID] = struct{}{}
	return nil
}

func (h *Hub) Unsubscribe(chatID int64, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(chatID, sub.ID())
	delete(h.joined[sub.ID()], chatID)
}

func (h *Hub) leaveLocked(chatID int64, connID string) {
	if set := h.chats[chatID]; set != nil {
		delete(set, connID)
		if len(set) == 0 {
			delete(h.chats, chatID)
		}
	}
}

// IsSubscribed reports whether any connection of userID is subscribed to chatID on this node.
func (h *Hub) IsSubscribed(chatID, userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id := range h.chats[chatID] {
		if h.conns[id].UserID() == userID {
			return true
		}
	}
	return false
}

func (h *Hub) ConnectionCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

func (h *Hub) Broadcast(chatID int64, event domain.Event, excludeConnID string) {
	payload, ok := h.encode(event)
	if !ok {
		return
	}
	h.deliverChat(chatID, payload, excludeConnID)
	h.publish(relay.Envelope{Scope: relay.ScopeChat, ChatID: chatID, Exclude: excludeConnID, Event: payload})
}

func (h *Hub) NotifyUser(userID int64, event domain.Event) {
	payload, ok := h.encode(event)
	if !ok {
		return
	}
	h.deliverUser(userID, payload)
	h.publish(relay.Envelope{Scope: relay.ScopeUser, UserID: userID, Event: payload})
}

// DeliverRemote hands an envelope from another node to local connections only.
func (h *Hub) DeliverRemote(env relay.Envelope) {
	switch env.Scope {
	case relay.ScopeChat:
		h.deliverChat(env.ChatID, env.Event, env.Exclude)
	case relay.ScopeUser:
		h.deliverUser(env.UserID, env.Event)
	default:
		h.log.Warn("Unknown relay scope", "scope", env.Scope)
	}
}

func (h *Hub) deliverChat(chatID int64, payload []byte, excludeConnID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, sub := range h.chats[chatID] {
		if id == excludeConnID {
			continue
		}
		if !sub.Deliver(payload) {
			h.log.Debug("Dropped event for slow connection", "conn_id", id, "chat_id", chatID)
		}
	}
}

func (h *Hub) deliverUser(userID int64, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, sub := range h.users[userID] {
		if !sub.Deliver(payload) {
			h.log.Debug("Dropped event for slow connection", "conn_id", id, "user_id", userID)
		}
	}
}

func (h *Hub) encode(event domain.Event) ([]byte, bool) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("Failed to encode event", "error", err, "type", event.Type)
		return nil, false
	}
	return payload, true
}

func (h *Hub) publish(env relay.Envelope) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(env); err != nil {
		h.log.Debug("Failed to relay event", "error", err, "scope", env.Scope)
	}
}
