package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/persistence"
	"github.com/spec-kit/task-service/internal/repository"
	apperrors "github.com/spec-kit/task-service/pkg/util"
)

// ProfileService reads and updates the caller's own identity record.
// Reads go through a Redis cache; any mutation invalidates the entry.
type ProfileService struct {
	users    repository.UserRepository
	cache    *persistence.Redis
	logger   *zap.Logger
	cacheTTL time.Duration
}

// ProfileUpdateInput carries a partial profile update.
type ProfileUpdateInput struct {
	Name  *string
	Email *string
}

// cachedProfile is the cache representation; the password hash is never
// written to Redis.
type cachedProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewProfileService builds the service.
func NewProfileService(users repository.UserRepository, cache *persistence.Redis, logger *zap.Logger, cacheTTL time.Duration) *ProfileService {
	return &ProfileService{users: users, cache: cache, logger: logger, cacheTTL: cacheTTL}
}

// GetSelf returns the caller's identity record.
func (s *ProfileService) GetSelf(ctx context.Context, userID string) (*domain.User, error) {
	if cached := s.cacheGet(ctx, userID); cached != nil {
		return cached, nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.FromStorage(err, "user")
	}
	s.cacheSet(ctx, user)
	return user, nil
}

// UpdateSelf changes name and/or email, re-validating email uniqueness.
func (s *ProfileService) UpdateSelf(ctx context.Context, userID string, input ProfileUpdateInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.FromStorage(err, "user")
	}

	var patch repository.UserPatch
	if input.Name != nil {
		name := *input.Name
		if name == "" {
			return nil, apperrors.NewValidationError("name cannot be empty", map[string]any{"name": "required"})
		}
		patch.Name = &name
	}
	if input.Email != nil {
		email := NormalizeEmail(*input.Email)
		if !emailPattern.MatchString(email) {
			return nil, apperrors.NewValidationError("invalid email address", map[string]any{"email": "must be a valid email address"})
		}
		if email != user.Email {
			if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing.ID != userID {
				return nil, apperrors.NewDuplicateEmail()
			} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.FromStorage(err, "user")
			}
			patch.Email = &email
		}
	}

	if patch.IsEmpty() {
		return user, nil
	}

	// Only the changed columns are written; the password hash is never
	// part of a profile patch.
	updated, err := s.users.Update(ctx, userID, patch)
	if err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewDuplicateEmail()
		}
		return nil, apperrors.FromStorage(err, "user")
	}

	s.cacheInvalidate(ctx, userID)
	return updated, nil
}

func profileCacheKey(userID string) string {
	return "profile:" + userID
}

func (s *ProfileService) cacheGet(ctx context.Context, userID string) *domain.User {
	if s.cache == nil || s.cache.Client == nil {
		return nil
	}
	raw, err := s.cache.Client.Get(ctx, profileCacheKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("profile cache read failed", zap.Error(err))
		}
		return nil
	}
	var cached cachedProfile
	if err := json.Unmarshal(raw, &cached); err != nil {
		s.logger.Warn("profile cache entry corrupt", zap.Error(err))
		return nil
	}
	return &domain.User{
		ID:        cached.ID,
		Name:      cached.Name,
		Email:     cached.Email,
		CreatedAt: cached.CreatedAt,
		UpdatedAt: cached.UpdatedAt,
	}
}

func (s *ProfileService) cacheSet(ctx context.Context, user *domain.User) {
	if s.cache == nil || s.cache.Client == nil || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(cachedProfile{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
	if err != nil {
		return
	}
	if err := s.cache.Client.Set(ctx, profileCacheKey(user.ID), raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("profile cache write failed", zap.Error(err))
	}
}

func (s *ProfileService) cacheInvalidate(ctx context.Context, userID string) {
	if s.cache == nil || s.cache.Client == nil {
		return
	}
	if err := s.cache.Client.Del(ctx, profileCacheKey(userID)).Err(); err != nil {
		s.logger.Warn("profile cache invalidation failed", zap.Error(err))
	}
}
