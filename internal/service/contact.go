package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gallan_chat/internal/domain"
	"gallan_chat/internal/repository"
	"gallan_chat/pkg/errors"
	"gallan_chat/pkg/logger"
)

type ContactService interface {
	AddContact(ctx context.Context, ownerID int64, username, displayName string) (*domain.Contact, error)
	ListContacts(ctx context.Context, ownerID int64) ([]*domain.ContactView, error)
	UpdateContact(ctx context.Context, ownerID, contactUserID int64, update ContactUpdate) (*domain.Contact, error)
}

type ContactUpdate struct {
	DisplayName *string              `json:"display_name"`
	Flags       *domain.ContactFlags `json:"flags"`
}

type contactService struct {
	contactRepo repository.ContactRepository
	userRepo    repository.UserRepository
	log         logger.Logger
}

func NewContactService(contactRepo repository.ContactRepository, userRepo repository.UserRepository, log logger.Logger) ContactService {
	return &contactService{
		contactRepo: contactRepo,
		userRepo:    userRepo,
		log:         log,
	}
}

func (s *contactService) AddContact(ctx context.Context, ownerID int64, username, displayName string) (*domain.Contact, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", errors.ErrInvalidArgument)
	}

	target, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == ownerID {
		return nil, fmt.Errorf("%w: cannot add yourself as a contact", errors.ErrInvalidArgument)
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = target.DisplayName
	}

	contact := &domain.Contact{
		OwnerUserID:   ownerID,
		ContactUserID: target.ID,
		DisplayName:   displayName,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.contactRepo.Create(ctx, contact); err != nil {
		return nil, err
	}

	s.log.Debug("Contact added", "owner_id", ownerID, "contact_user_id", target.ID)
	return contact, nil
}

func (s *contactService) ListContacts(ctx context.Context, ownerID int64) ([]*domain.ContactView, error) {
	return s.contactRepo.ListByOwner(ctx, ownerID)
}

func (s *contactService) UpdateContact(ctx context.Context, ownerID, contactUserID int64, update ContactUpdate) (*domain.Contact, error) {
	contact, err := s.contactRepo.Get(ctx, ownerID, contactUserID)
	if err != nil {
		return nil, err
	}

	if update.DisplayName != nil {
		name := strings.TrimSpace(*update.DisplayName)
		if name == "" {
			return nil, fmt.Errorf("%w: display name must not be empty", errors.ErrInvalidArgument)
		}
		contact.DisplayName = name
	}
	if update.Flags != nil {
		contact.Flags = *update.Flags
	}

	if err := s.contactRepo.Update(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}
