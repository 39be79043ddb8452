package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/common"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/auth"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/models"
)

func TestUserServiceLogin(t *testing.T) {
	ctx := context.Background()
	secret := []byte("test-jwt-secret")

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	alice := &models.User{ID: 1, Username: "alice", Email: "alice@example.com",
		PasswordHash: string(hash), Role: models.RoleUser, Enabled: true, Verified: true}
	pending := &models.User{ID: 2, Username: "pending", Email: "pending@example.com",
		PasswordHash: string(hash), Role: models.RoleUser, Enabled: false}

	repos := &fakeRepoManager{
		users: &fakeUsersRepo{byID: map[int64]*models.User{1: alice, 2: pending}},
	}
	svc := NewUserService(nil, repos, secret, 15*time.Minute)

	t.Run("valid credentials", func(t *testing.T) {
		res, err := svc.Login(ctx, "alice@example.com", "correct horse")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, res.User.ID)

		id, err := auth.GetUserIDFromToken(res.Token, secret)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, id)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "alice@example.com", "wrong")
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, "ghost@example.com", "correct horse")
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	})

	t.Run("unverified account", func(t *testing.T) {
		_, err := svc.Login(ctx, "pending@example.com", "correct horse")
		assert.ErrorIs(t, err, common.ErrorUnauthorized)
	})
}
