package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gallan_chat/internal/domain"
	"gallan_chat/pkg/errors"
)

type userRepository struct {
	s *store
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	key := strings.ToLower(user.Username)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, taken := r.s.usernames[key]; taken {
		return fmt.Errorf("%w: username %q is taken", errors.ErrConflict, user.Username)
	}

	r.s.nextUserID++
	user.ID = r.s.nextUserID
	r.s.users[user.ID] = copyUser(user)
	r.s.usernames[key] = user.ID
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %d", errors.ErrNotFound, id)
	}
	return copyUser(u), nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.usernames[strings.ToLower(username)]
	if !ok {
		return nil, fmt.Errorf("%w: user %q", errors.ErrNotFound, username)
	}
	return copyUser(r.s.users[id]), nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[user.ID]
	if !ok {
		return fmt.Errorf("%w: user %d", errors.ErrNotFound, user.ID)
	}
	u.DisplayName = user.DisplayName
	u.Status = user.Status
	u.AvatarURL = user.AvatarURL
	return nil
}

func (r *userRepository) UpdatePresence(ctx context.Context, id int64, online bool, lastSeen time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return fmt.Errorf("%w: user %d", errors.ErrNotFound, id)
	}
	u.IsOnline = online
	u.LastSeen = lastSeen
	return nil
}
