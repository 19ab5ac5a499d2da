package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/user-api/internal/domain"
	"github.com/spec-kit/user-api/internal/repository"
)

type fakeUserRepo struct {
	users   map[string]*domain.User
	lookups int
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.users[user.Username] = user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.users[user.Username] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*domain.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.lookups++
	if u, ok := r.users[username]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func newCachedRepo(t *testing.T) (*repository.CachedUserRepository, *fakeUserRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	inner := &fakeUserRepo{users: map[string]*domain.User{
		"alice": {ID: 1, Username: "alice", Email: "alice@example.com", Roles: []string{domain.RoleUser}, Status: domain.UserStatusActive},
	}}
	return repository.NewCachedUserRepository(inner, client, time.Minute, zap.NewNop()), inner
}

func TestCachedGetByUsername(t *testing.T) {
	repo, inner := newCachedRepo(t)
	ctx := context.Background()

	user, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, 1, inner.lookups)

	// Second read is served from the cache.
	user, err = repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, []string{domain.RoleUser}, user.Roles)
	require.Equal(t, 1, inner.lookups)
}

func TestCachedNotFound(t *testing.T) {
	repo, inner := newCachedRepo(t)
	ctx := context.Background()

	_, err := repo.GetByUsername(ctx, "ghost")
	require.ErrorIs(t, err, pgx.ErrNoRows)

	// Misses are not cached.
	_, err = repo.GetByUsername(ctx, "ghost")
	require.ErrorIs(t, err, pgx.ErrNoRows)
	require.Equal(t, 2, inner.lookups)
}

func TestCachedUpdateInvalidates(t *testing.T) {
	repo, inner := newCachedRepo(t)
	ctx := context.Background()

	user, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 1, inner.lookups)

	user.Email = "new@example.com"
	require.NoError(t, repo.Update(ctx, user))

	fresh, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "new@example.com", fresh.Email)
	require.Equal(t, 2, inner.lookups)
}
