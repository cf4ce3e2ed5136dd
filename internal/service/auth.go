package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gallan_chat/internal/config"
	"gallan_chat/internal/domain"
	"gallan_chat/internal/repository"
	"gallan_chat/pkg/errors"
	"gallan_chat/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength    = 6
	maxUsernameLength    = 50
	maxDisplayNameLength = 100
)

type AuthService interface {
	Register(ctx context.Context, username, password, displayName string) (*AuthResponse, error)
	Login(ctx context.Context, username, password string) (*AuthResponse, error)
	// ValidateToken returns the user id carried by a token.
	ValidateToken(tokenString string) (int64, error)
}

type AuthResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

type authService struct {
	userRepo repository.UserRepository
	jwtCfg   config.JWTConfig
	log      logger.Logger
}

func NewAuthService(userRepo repository.UserRepository, jwtCfg config.JWTConfig, log logger.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		jwtCfg:   jwtCfg,
		log:      log,
	}
}

func (s *authService) Register(ctx context.Context, username, password, displayName string) (*AuthResponse, error) {
	username = strings.TrimSpace(username)
	displayName = strings.TrimSpace(displayName)

	if username == "" {
		return nil, fmt.Errorf("%w: username is required", errors.ErrInvalidArgument)
	}
	if len(username) > maxUsernameLength {
		return nil, fmt.Errorf("%w: username is too long (max %d characters)", errors.ErrInvalidArgument, maxUsernameLength)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", errors.ErrInvalidArgument, minPasswordLength)
	}
	if displayName == "" {
		displayName = username
	}
	if len(displayName) > maxDisplayNameLength {
		return nil, fmt.Errorf("%w: display name is too long (max %d characters)", errors.ErrInvalidArgument, maxDisplayNameLength)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Error("Failed to hash password", "error", err)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		DisplayName:  displayName,
		Status:       domain.DefaultUserStatus,
		LastSeen:     now,
		CreatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("User registered", "user_id", user.ID, "username", user.Username)
	return s.respond(user)
}

func (s *authService) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errors.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errors.ErrInvalidCredentials
	}

	return s.respond(user)
}

func (s *authService) respond(user *domain.User) (*AuthResponse, error) {
	token, err := s.issueToken(user.ID)
	if err != nil {
		s.log.Error("Failed to sign token", "error", err, "user_id", user.ID)
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	user.PasswordHash = ""
	return &AuthResponse{User: user, Token: token}, nil
}

func (s *authService) issueToken(userID int64) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    s.jwtCfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtCfg.TTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtCfg.Secret))
}

func (s *authService) ValidateToken(tokenString string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.jwtCfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.jwtCfg.Issuer),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("%w: bad subject", errors.ErrInvalidToken)
	}
	return userID, nil
}
