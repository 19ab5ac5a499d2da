package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/user-api/internal/domain"
)

// CachedUserRepository decorates a UserRepository with a read-through Redis
// cache keyed by username. The username lookup is the hot path: the auth
// middleware performs it on every token-bearing request. Cache failures
// degrade to the inner repository and are never surfaced to callers.
type CachedUserRepository struct {
	inner  UserRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedUserRepository wraps inner with a Redis cache. A nil client
// disables caching entirely.
func NewCachedUserRepository(inner UserRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedUserRepository {
	return &CachedUserRepository{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (r *CachedUserRepository) Create(ctx context.Context, user *domain.User) error {
	return r.inner.Create(ctx, user)
}

// Update writes through and invalidates the cached record so a stale username
// or role set never satisfies a subsequent lookup.
func (r *CachedUserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := r.inner.Update(ctx, user); err != nil {
		return err
	}
	r.invalidate(ctx, user.Username)
	return nil
}

func (r *CachedUserRepository) GetByID(ctx context.Context, id int) (*domain.User, error) {
	return r.inner.GetByID(ctx, id)
}

func (r *CachedUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if r.client == nil {
		return r.inner.GetByUsername(ctx, username)
	}

	key := cacheKey(username)
	if payload, err := r.client.Get(ctx, key).Bytes(); err == nil {
		var user domain.User
		if err := json.Unmarshal(payload, &user); err == nil {
			return &user, nil
		}
		r.invalidate(ctx, username)
	} else if !errors.Is(err, redis.Nil) && r.logger != nil {
		r.logger.Warn("user cache read failed", zap.String("username", username), zap.Error(err))
	}

	user, err := r.inner.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(user); err == nil {
		if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil && r.logger != nil {
			r.logger.Warn("user cache write failed", zap.String("username", username), zap.Error(err))
		}
	}
	return user, nil
}

func (r *CachedUserRepository) invalidate(ctx context.Context, username string) {
	if r.client == nil {
		return
	}
	if err := r.client.Del(ctx, cacheKey(username)).Err(); err != nil && r.logger != nil {
		r.logger.Warn("user cache invalidation failed", zap.String("username", username), zap.Error(err))
	}
}

func cacheKey(username string) string {
	return fmt.Sprintf("user:name:%s", username)
}
