package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gallan_chat/internal/domain"
	"gallan_chat/pkg/errors"
)

type messageRepository struct {
	s *store
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message, receipts []*domain.Receipt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	chat, ok := r.s.chats[message.ChatID]
	if !ok {
		return fmt.Errorf("%w: chat %d", errors.ErrNotFound, message.ChatID)
	}

	// Never stamp a message earlier than the chat's latest activity.
	if message.CreatedAt.Before(chat.UpdatedAt) {
		message.CreatedAt = chat.UpdatedAt
	}

	r.s.nextMessageID++
	message.ID = r.s.nextMessageID
	r.s.messages[message.ID] = copyMessage(message)
	r.s.chatMessages[message.ChatID] = append(r.s.chatMessages[message.ChatID], message.ID)

	rows := make(map[int64]*domain.Receipt, len(receipts))
	for _, rc := range receipts {
		rc.MessageID = message.ID
		rows[rc.UserID] = copyReceipt(rc)
	}
	r.s.receipts[message.ID] = rows

	chat.UpdatedAt = message.CreatedAt
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.messages[id]
	if !ok {
		return nil, fmt.Errorf("%w: message %d", errors.ErrNotFound, id)
	}
	return copyMessage(m), nil
}

func (r *messageRepository) ListByChat(ctx context.Context, chatID int64) ([]*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := r.s.chatMessages[chatID]
	out := make([]*domain.Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyMessage(r.s.messages[id]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *messageRepository) LastInChat(ctx context.Context, chatID int64) (*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var last *domain.Message
	for _, id := range r.s.chatMessages[chatID] {
		m := r.s.messages[id]
		if last == nil || m.CreatedAt.After(last.CreatedAt) || (m.CreatedAt.Equal(last.CreatedAt) && m.ID > last.ID) {
			last = m
		}
	}
	if last == nil {
		return nil, fmt.Errorf("%w: chat %d has no messages", errors.ErrNotFound, chatID)
	}
	return copyMessage(last), nil
}

func (r *messageRepository) GetReceipt(ctx context.Context, messageID, userID int64) (*domain.Receipt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rc, ok := r.s.receipts[messageID][userID]
	if !ok {
		return nil, fmt.Errorf("%w: receipt for message %d user %d", errors.ErrNotFound, messageID, userID)
	}
	return copyReceipt(rc), nil
}

func (r *messageRepository) ListReceipts(ctx context.Context, messageID int64) ([]*domain.Receipt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Receipt, 0, len(r.s.receipts[messageID]))
	for _, rc := range r.s.receipts[messageID] {
		out = append(out, copyReceipt(rc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *messageRepository) ListUserReceiptsBelow(ctx context.Context, chatID, userID int64, below domain.MessageStatus) ([]*domain.Receipt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.Receipt
	for _, id := range r.s.chatMessages[chatID] {
		rc, ok := r.s.receipts[id][userID]
		if ok && rc.Status.Rank() < below.Rank() {
			out = append(out, copyReceipt(rc))
		}
	}
	return out, nil
}

func (r *messageRepository) AdvanceReceipt(ctx context.Context, messageID, userID int64, status domain.MessageStatus, at time.Time) (*domain.Receipt, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rc, ok := r.s.receipts[messageID][userID]
	if !ok {
		return nil, false, fmt.Errorf("%w: receipt for message %d user %d", errors.ErrNotFound, messageID, userID)
	}
	if status.Rank() <= rc.Status.Rank() {
		return copyReceipt(rc), false, nil
	}
	rc.Status = status
	rc.UpdatedAt = at
	return copyReceipt(rc), true, nil
}

func (r *messageRepository) AdvanceStatus(ctx context.Context, messageID int64, status domain.MessageStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.messages[messageID]
	if !ok {
		return fmt.Errorf("%w: message %d", errors.ErrNotFound, messageID)
	}
	m.Status = m.Status.Advance(status)
	return nil
}

func (r *messageRepository) CountUnread(ctx context.Context, chatID, userID int64) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for _, id := range r.s.chatMessages[chatID] {
		if rc, ok := r.s.receipts[id][userID]; ok && rc.Status != domain.StatusRead {
			n++
		}
	}
	return n, nil
}
