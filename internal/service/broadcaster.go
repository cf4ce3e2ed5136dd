package service

import (
	"gallan_chat/internal/domain"
)

// Broadcaster fans events out to live connections. Calls never block on
// network I/O and never fail; zero recipients is a normal outcome.
type Broadcaster interface {
	Broadcast(chatID int64, event domain.Event, excludeConnID string)
	NotifyUser(userID int64, event domain.Event)
	IsSubscribed(chatID, userID int64) bool
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(int64, domain.Event, string) {}
func (nopBroadcaster) NotifyUser(int64, domain.Event)        {}
func (nopBroadcaster) IsSubscribed(int64, int64) bool        { return false }
