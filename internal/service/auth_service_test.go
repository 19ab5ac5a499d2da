package service_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/user-api/internal/auth"
	"github.com/spec-kit/user-api/internal/config"
	"github.com/spec-kit/user-api/internal/domain"
	"github.com/spec-kit/user-api/internal/events"
	"github.com/spec-kit/user-api/internal/service"
)

type memoryUserRepo struct {
	users  map[string]*domain.User
	nextID int
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]*domain.User), nextID: 1}
}

func (r *memoryUserRepo) Create(_ context.Context, user *domain.User) error {
	user.ID = r.nextID
	r.nextID++
	r.users[user.Username] = user
	return nil
}

func (r *memoryUserRepo) Update(_ context.Context, user *domain.User) error {
	r.users[user.Username] = user
	return nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id int) (*domain.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	if u, ok := r.users[username]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:     "service-test-secret",
			TokenTTLHours: 1,
			BcryptCost:    bcrypt.MinCost,
		},
	}
}

func TestRegisterIssuesToken(t *testing.T) {
	repo := newMemoryUserRepo()
	dispatcher := events.NewInMemoryDispatcher()

	var published []events.EventType
	dispatcher.Subscribe(events.EventUserRegistered, func(_ context.Context, e events.Event) error {
		published = append(published, e.Type)
		return nil
	})

	svc := service.NewAuthService(testConfig(), repo, dispatcher)

	user, token, exp, err := svc.Register(context.Background(), "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)
	require.Equal(t, []string{domain.RoleUser}, user.Roles)
	require.False(t, exp.IsZero())

	claims, err := svc.Codec().Decode(token)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Subject)
	require.Equal(t, user.ID, claims.UserID)

	require.Equal(t, []events.EventType{events.EventUserRegistered}, published)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := service.NewAuthService(testConfig(), repo, events.NewInMemoryDispatcher())

	_, _, _, err := svc.Register(context.Background(), "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	_, _, _, err = svc.Register(context.Background(), "alice", "other@example.com", "s3cret")
	require.Error(t, err)
}

func TestLogin(t *testing.T) {
	repo := newMemoryUserRepo()
	dispatcher := events.NewInMemoryDispatcher()

	var failures []events.Event
	dispatcher.Subscribe(events.EventLoginFailed, func(_ context.Context, e events.Event) error {
		failures = append(failures, e)
		return nil
	})

	svc := service.NewAuthService(testConfig(), repo, dispatcher)
	_, _, _, err := svc.Register(context.Background(), "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	t.Run("correct password", func(t *testing.T) {
		user, token, _, err := svc.Login(context.Background(), "alice", "s3cret")
		require.NoError(t, err)
		require.Equal(t, "alice", user.Username)

		subject, err := svc.Codec().ExtractSubject(token)
		require.NoError(t, err)
		require.Equal(t, "alice", subject)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, _, err := svc.Login(context.Background(), "alice", "wrong")
		require.Error(t, err)
		require.Len(t, failures, 1)
		require.Equal(t, "alice", failures[0].Username)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, _, _, err := svc.Login(context.Background(), "ghost", "s3cret")
		require.Error(t, err)
	})
}

func TestChangePassword(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := service.NewAuthService(testConfig(), repo, events.NewInMemoryDispatcher())

	user, _, _, err := svc.Register(context.Background(), "alice", "alice@example.com", "old-pass")
	require.NoError(t, err)

	t.Run("wrong current password", func(t *testing.T) {
		err := svc.ChangePassword(context.Background(), user.ID, "wrong", "new-pass")
		require.Error(t, err)
	})

	t.Run("correct current password", func(t *testing.T) {
		require.NoError(t, svc.ChangePassword(context.Background(), user.ID, "old-pass", "new-pass"))

		stored, err := repo.GetByUsername(context.Background(), "alice")
		require.NoError(t, err)
		require.NoError(t, auth.ComparePassword(stored.PasswordHash, "new-pass"))
	})
}
