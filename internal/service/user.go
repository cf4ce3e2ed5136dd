package service

import (
	"context"
	"fmt"
	"strings"

	"gallan_chat/internal/domain"
	"gallan_chat/internal/repository"
	"gallan_chat/pkg/errors"
	"gallan_chat/pkg/logger"
)

type UserService interface {
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID int64, update ProfileUpdate) (*domain.User, error)
}

// ProfileUpdate leaves a field untouched when it is nil.
type ProfileUpdate struct {
	DisplayName *string `json:"display_name"`
	Status      *string `json:"status"`
	AvatarURL   *string `json:"avatar_url"`
}

type userService struct {
	userRepo repository.UserRepository
	log      logger.Logger
}

func NewUserService(userRepo repository.UserRepository, log logger.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		log:      log,
	}
}

func (s *userService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID int64, update ProfileUpdate) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.DisplayName != nil {
		name := strings.TrimSpace(*update.DisplayName)
		if name == "" || len(name) > maxDisplayNameLength {
			return nil, fmt.Errorf("%w: display name must be 1-%d characters", errors.ErrInvalidArgument, maxDisplayNameLength)
		}
		user.DisplayName = name
	}
	if update.Status != nil {
		user.Status = strings.TrimSpace(*update.Status)
	}
	if update.AvatarURL != nil {
		if *update.AvatarURL == "" {
			user.AvatarURL = nil
		} else {
			user.AvatarURL = update.AvatarURL
		}
	}

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}
