package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"gallan_chat/internal/config"
	"gallan_chat/internal/domain"
	"gallan_chat/internal/repository"
	"gallan_chat/internal/repository/memory"
	"gallan_chat/pkg/logger"

	"github.com/stretchr/testify/require"
)

type sentEvent struct {
	chatID  int64
	userID  int64
	exclude string
	event   domain.Event
}

// recordingBroadcaster captures every event and reports the subscriptions it was told about.
type recordingBroadcaster struct {
	mu         sync.Mutex
	subscribed map[[2]int64]bool
	chat       []sentEvent
	user       []sentEvent
	// afterCheck runs after every IsSubscribed call, outside the lock.
	afterCheck func(chatID, userID int64)
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{subscribed: make(map[[2]int64]bool)}
}

func (b *recordingBroadcaster) subscribe(chatID, userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribed[[2]int64{chatID, userID}] = true
}

func (b *recordingBroadcaster) Broadcast(chatID int64, event domain.Event, excludeConnID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chat = append(b.chat, sentEvent{chatID: chatID, exclude: excludeConnID, event: event})
}

func (b *recordingBroadcaster) NotifyUser(userID int64, event domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.user = append(b.user, sentEvent{userID: userID, event: event})
}

func (b *recordingBroadcaster) IsSubscribed(chatID, userID int64) bool {
	b.mu.Lock()
	ok := b.subscribed[[2]int64{chatID, userID}]
	hook := b.afterCheck
	b.mu.Unlock()

	if hook != nil {
		hook(chatID, userID)
	}
	return ok
}

func (b *recordingBroadcaster) userEvents(userID int64, typ domain.EventType) []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.Event
	for _, e := range b.user {
		if e.userID == userID && e.event.Type == typ {
			out = append(out, e.event)
		}
	}
	return out
}

func (b *recordingBroadcaster) chatEvents(chatID int64, typ domain.EventType) []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.Event
	for _, e := range b.chat {
		if e.chatID == chatID && e.event.Type == typ {
			out = append(out, e.event)
		}
	}
	return out
}

type fixture struct {
	repos       *repository.Repositories
	broadcaster *recordingBroadcaster
	chats       ChatService
	messages    MessageService
	presence    PresenceService
}

func newFixture(t *testing.T, policy config.DeliveryPolicy) *fixture {
	t.Helper()
	log := logger.NewNop()
	repos := memory.New(log)
	b := newRecordingBroadcaster()

	messages := NewMessageService(repos, b, policy, log).(*messageService)
	messages.now = newTickingClock(time.Now().Add(time.Hour)).Now

	return &fixture{
		repos:       repos,
		broadcaster: b,
		chats:       NewChatService(repos, log),
		messages:    messages,
		presence:    NewPresenceService(repos, b, log),
	}
}

// tickingClock advances one millisecond per call so message times never collide.
type tickingClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTickingClock(start time.Time) *tickingClock {
	return &tickingClock{t: start.UTC()}
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func (f *fixture) user(t *testing.T, name string) *domain.User {
	t.Helper()
	u := &domain.User{Username: name, DisplayName: name, Status: domain.DefaultUserStatus}
	require.NoError(t, f.repos.User.Create(context.Background(), u))
	return u
}

func (f *fixture) post(t *testing.T, chatID, senderID int64, content string) *domain.Message {
	t.Helper()
	m, err := f.messages.PostMessage(context.Background(), PostMessageInput{
		ChatID: chatID, SenderID: senderID, Content: content, Type: domain.MessageTypeText,
	})
	require.NoError(t, err)
	return m
}

func (f *fixture) message(t *testing.T, id int64) *domain.Message {
	t.Helper()
	m, err := f.repos.Message.GetByID(context.Background(), id)
	require.NoError(t, err)
	return m
}
