package memory

import (
	"context"
	"fmt"
	"sort"

	"gallan_chat/internal/domain"
	"gallan_chat/pkg/errors"
)

type chatRepository struct {
	s *store
}

func (r *chatRepository) CreateDirect(ctx context.Context, chat *domain.Chat, userA, userB int64) error {
	key := domain.DirectPairKey(userA, userB)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, id := range key {
		if _, ok := r.s.users[id]; !ok {
			return fmt.Errorf("%w: user %d", errors.ErrNotFound, id)
		}
	}
	if _, exists := r.s.direct[key]; exists {
		return fmt.Errorf("%w: direct chat already exists", errors.ErrConflict)
	}

	r.s.nextChatID++
	chat.ID = r.s.nextChatID
	r.s.chats[chat.ID] = copyChat(chat)
	r.s.direct[key] = chat.ID

	for _, id := range key {
		r.addParticipant(&domain.ChatParticipant{
			ChatID:   chat.ID,
			UserID:   id,
			Role:     domain.ParticipantRoleMember,
			JoinedAt: chat.CreatedAt,
		})
	}
	return nil
}

func (r *chatRepository) GetDirect(ctx context.Context, userA, userB int64) (*domain.Chat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.direct[domain.DirectPairKey(userA, userB)]
	if !ok {
		return nil, fmt.Errorf("%w: direct chat", errors.ErrNotFound)
	}
	return copyChat(r.s.chats[id]), nil
}

func (r *chatRepository) CreateGroup(ctx context.Context, chat *domain.Chat, participants []*domain.ChatParticipant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range participants {
		if _, ok := r.s.users[p.UserID]; !ok {
			return fmt.Errorf("%w: user %d", errors.ErrNotFound, p.UserID)
		}
	}

	r.s.nextChatID++
	chat.ID = r.s.nextChatID
	r.s.chats[chat.ID] = copyChat(chat)
	for _, p := range participants {
		p.ChatID = chat.ID
		r.addParticipant(p)
	}
	return nil
}

// addParticipant expects the write lock to be held.
func (r *chatRepository) addParticipant(p *domain.ChatParticipant) {
	members := r.s.participants[p.ChatID]
	if members == nil {
		members = make(map[int64]*domain.ChatParticipant)
		r.s.participants[p.ChatID] = members
	}
	c := *p
	members[p.UserID] = &c

	chats := r.s.userChats[p.UserID]
	if chats == nil {
		chats = make(map[int64]struct{})
		r.s.userChats[p.UserID] = chats
	}
	chats[p.ChatID] = struct{}{}
}

func (r *chatRepository) GetByID(ctx context.Context, id int64) (*domain.Chat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ch, ok := r.s.chats[id]
	if !ok {
		return nil, fmt.Errorf("%w: chat %d", errors.ErrNotFound, id)
	}
	return copyChat(ch), nil
}

func (r *chatRepository) IsParticipant(ctx context.Context, chatID, userID int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.participants[chatID][userID]
	return ok, nil
}

func (r *chatRepository) ListParticipants(ctx context.Context, chatID int64) ([]*domain.ChatParticipant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if _, ok := r.s.chats[chatID]; !ok {
		return nil, fmt.Errorf("%w: chat %d", errors.ErrNotFound, chatID)
	}

	out := make([]*domain.ChatParticipant, 0, len(r.s.participants[chatID]))
	for _, p := range r.s.participants[chatID] {
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *chatRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Chat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Chat, 0, len(r.s.userChats[userID]))
	for id := range r.s.userChats[userID] {
		out = append(out, copyChat(r.s.chats[id]))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (r *chatRepository) ListIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := make([]int64, 0, len(r.s.userChats[userID]))
	for id := range r.s.userChats[userID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
