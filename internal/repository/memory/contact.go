package memory

import (
	"context"
	"fmt"
	"sort"

	"gallan_chat/internal/domain"
	"gallan_chat/pkg/errors"
)

type contactRepository struct {
	s *store
}

func (r *contactRepository) Create(ctx context.Context, contact *domain.Contact) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[contact.ContactUserID]; !ok {
		return fmt.Errorf("%w: user %d", errors.ErrNotFound, contact.ContactUserID)
	}

	owned := r.s.contacts[contact.OwnerUserID]
	if owned == nil {
		owned = make(map[int64]*domain.Contact)
		r.s.contacts[contact.OwnerUserID] = owned
	}
	if _, exists := owned[contact.ContactUserID]; exists {
		return fmt.Errorf("%w: contact already exists", errors.ErrConflict)
	}

	r.s.nextContactID++
	contact.ID = r.s.nextContactID
	c := *contact
	owned[contact.ContactUserID] = &c
	return nil
}

func (r *contactRepository) Get(ctx context.Context, ownerID, contactUserID int64) (*domain.Contact, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.contacts[ownerID][contactUserID]
	if !ok {
		return nil, fmt.Errorf("%w: contact %d", errors.ErrNotFound, contactUserID)
	}
	out := *c
	return &out, nil
}

func (r *contactRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*domain.ContactView, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	views := make([]*domain.ContactView, 0, len(r.s.contacts[ownerID]))
	for _, c := range r.s.contacts[ownerID] {
		u := r.s.users[c.ContactUserID]
		views = append(views, &domain.ContactView{
			Contact:   *c,
			Username:  u.Username,
			Status:    u.Status,
			AvatarURL: u.AvatarURL,
			IsOnline:  u.IsOnline,
			LastSeen:  u.LastSeen,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].DisplayName < views[j].DisplayName })
	return views, nil
}

func (r *contactRepository) Update(ctx context.Context, contact *domain.Contact) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.contacts[contact.OwnerUserID][contact.ContactUserID]
	if !ok {
		return fmt.Errorf("%w: contact %d", errors.ErrNotFound, contact.ContactUserID)
	}
	c.DisplayName = contact.DisplayName
	c.Flags = contact.Flags
	return nil
}
