package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medkeep/medkeep/internal/models"
	"github.com/medkeep/medkeep/internal/server/storage"
)

func TestUserStorage_CreateUser(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	tests := []struct {
		wantError error
		user      *models.User
		name      string
	}{
		{
			name: "create new user successfully",
			user: &models.User{
				ID:           uuid.New().String(),
				Username:     "alice",
				Email:        "alice@example.com",
				PasswordHash: "hash123",
				CreatedAt:    time.Now().UTC(),
			},
			wantError: nil,
		},
		{
			name: "create user with last login",
			user: &models.User{
				ID:           uuid.New().String(),
				Username:     "bob",
				Email:        "bob@example.com",
				PasswordHash: "hash456",
				CreatedAt:    time.Now().UTC(),
				LastLogin:    timePtr(time.Now().UTC()),
			},
			wantError: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.CreateUser(ctx, tt.user)
			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
			} else {
				require.NoError(t, err)

				// Verify user was created
				retrieved, err := s.GetUserByID(ctx, tt.user.ID)
				require.NoError(t, err)
				assert.Equal(t, tt.user.ID, retrieved.ID)
				assert.Equal(t, tt.user.Username, retrieved.Username)
				assert.Equal(t, tt.user.Email, retrieved.Email)
				assert.Equal(t, tt.user.PasswordHash, retrieved.PasswordHash)
			}
		})
	}
}

func TestUserStorage_CreateUser_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user1 := &models.User{
		ID:           uuid.New().String(),
		Username:     "first",
		Email:        "duplicate@example.com",
		PasswordHash: "hash1",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.CreateUser(ctx, user1))

	// Второй пользователь с тем же email
	user2 := &models.User{
		ID:           uuid.New().String(),
		Username:     "second",
		Email:        "duplicate@example.com",
		PasswordHash: "hash2",
		CreatedAt:    time.Now().UTC(),
	}
	err := s.CreateUser(ctx, user2)
	assert.ErrorIs(t, err, storage.ErrUserAlreadyExists)
}

func TestUserStorage_GetUserByEmail(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hash123",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.CreateUser(ctx, user))

	retrieved, err := s.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, retrieved.ID)
	assert.Equal(t, user.PasswordHash, retrieved.PasswordHash)

	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestUserStorage_GetUserByID_NotFound(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.GetUserByID(ctx, uuid.New().String())
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestUserStorage_UpdateLastLogin(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hash123",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.CreateUser(ctx, user))
	require.Nil(t, mustGetUser(t, s, user.ID).LastLogin)

	loginTime := time.Now().UTC()
	require.NoError(t, s.UpdateLastLogin(ctx, user.ID, loginTime))

	retrieved := mustGetUser(t, s, user.ID)
	require.NotNil(t, retrieved.LastLogin)
	assert.WithinDuration(t, loginTime, *retrieved.LastLogin, time.Second)

	// Несуществующий пользователь
	err := s.UpdateLastLogin(ctx, uuid.New().String(), loginTime)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

// setupTestStorage создает in-memory хранилище для теста
func setupTestStorage(t *testing.T) (*Storage, func()) {
	t.Helper()

	s, err := New(context.Background(), ":memory:")
	require.NoError(t, err)

	cleanup := func() {
		_ = s.Close()
	}

	return s, cleanup
}

func mustGetUser(t *testing.T, s *Storage, id string) *models.User {
	t.Helper()

	user, err := s.GetUserByID(context.Background(), id)
	require.NoError(t, err)
	return user
}

func timePtr(t time.Time) *time.Time {
	return &t
}
