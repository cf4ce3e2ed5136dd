// Package memory is the process-local storage backend. All repositories share
// one store guarded by a single lock, so id assignment is serialized.
package memory

import (
	"sync"

	"gallan_chat/internal/domain"
	"gallan_chat/internal/repository"
	"gallan_chat/pkg/logger"
)

type store struct {
	mu  sync.RWMutex
	log logger.Logger

	nextUserID    int64
	nextContactID int64
	nextChatID    int64
	nextMessageID int64

	users     map[int64]*domain.User
	usernames map[string]int64

	contacts map[int64]map[int64]*domain.Contact

	chats        map[int64]*domain.Chat
	direct       map[[2]int64]int64
	participants map[int64]map[int64]*domain.ChatParticipant
	userChats    map[int64]map[int64]struct{}

	messages     map[int64]*domain.Message
	chatMessages map[int64][]int64
	receipts     map[int64]map[int64]*domain.Receipt
}

func New(log logger.Logger) *repository.Repositories {
	s := &store{
		log:          log,
		users:        make(map[int64]*domain.User),
		usernames:    make(map[string]int64),
		contacts:     make(map[int64]map[int64]*domain.Contact),
		chats:        make(map[int64]*domain.Chat),
		direct:       make(map[[2]int64]int64),
		participants: make(map[int64]map[int64]*domain.ChatParticipant),
		userChats:    make(map[int64]map[int64]struct{}),
		messages:     make(map[int64]*domain.Message),
		chatMessages: make(map[int64][]int64),
		receipts:     make(map[int64]map[int64]*domain.Receipt),
	}

	log.Info("Using in-memory storage backend")

	return &repository.Repositories{
		User:    &userRepository{s: s},
		Contact: &contactRepository{s: s},
		Chat:    &chatRepository{s: s},
		Message: &messageRepository{s: s},
	}
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func copyChat(ch *domain.Chat) *domain.Chat {
	c := *ch
	return &c
}

func copyMessage(m *domain.Message) *domain.Message {
	c := *m
	return &c
}

func copyReceipt(r *domain.Receipt) *domain.Receipt {
	c := *r
	return &c
}
