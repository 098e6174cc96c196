package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avencore/datahaven/internal/database/testutil"
	apperrors "github.com/avencore/datahaven/pkg/errors"
)

func TestUserCreateNormalisesAndHashes(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewUserService(db)
	require.NoError(t, err)

	user, err := svc.Create(context.Background(), CreateUserInput{
		Username: "  alice  ",
		Email:    "  Alice@Example.COM ",
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, "alice@example.com", user.Email)
	require.NotEqual(t, "correct horse", user.PasswordHash)
}

func TestAuthenticate(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewUserService(db)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateUserInput{
		Username: "alice", Email: "alice@example.com", Password: "correct horse",
	})
	require.NoError(t, err)

	user, err := svc.Authenticate(context.Background(), "alice", "correct horse")
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)

	_, err = svc.Authenticate(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = svc.Authenticate(context.Background(), "nobody", "correct horse")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = svc.Authenticate(context.Background(), "", "")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestEnsureAdmin(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewUserService(db)
	require.NoError(t, err)

	// Blank password skips seeding.
	require.NoError(t, svc.EnsureAdmin(context.Background(), "admin", "admin@localhost", ""))
	users, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, users)

	require.NoError(t, svc.EnsureAdmin(context.Background(), "admin", "admin@localhost", "hunter22"))
	require.NoError(t, svc.EnsureAdmin(context.Background(), "admin", "admin@localhost", "hunter22"))

	users, err = svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.True(t, users[0].IsAdmin)
}
