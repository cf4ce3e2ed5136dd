package service

import (
	"context"
	"time"

	"gallan_chat/internal/repository"
	"gallan_chat/pkg/logger"
)

type RateLimitService interface {
	// Allow counts one hit against key and reports whether it was within limit.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, remaining int, err error)
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	log           logger.Logger
}

func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, log logger.Logger) RateLimitService {
	return &rateLimitService{
		rateLimitRepo: rateLimitRepo,
		log:           log,
	}
}

// Allow decides from the INCR result alone.
func (s *rateLimitService) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	count, err := s.rateLimitRepo.Increment(ctx, key, window)
	if err != nil {
		return false, 0, err
	}

	if count > int64(limit) {
		return false, 0, nil
	}
	return true, limit - int(count), nil
}
