package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"relaychat/internal/database"
	"relaychat/internal/database/databasetest"
	"relaychat/internal/models"
	"relaychat/pkg/auth"
)

func newUser(t *testing.T, db *database.Database) *models.User {
	t.Helper()
	user := &models.User{
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "x",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, db.SaveUser(user))
	return user
}

func TestIssueAndValidate(t *testing.T) {
	db := databasetest.New(t)
	user := newUser(t, db)
	sessions := auth.NewSessionManager(db, 0)

	token, expiresAt, err := sessions.Issue(user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.WithinDuration(t, time.Now().Add(auth.DefaultSessionTTL), expiresAt, time.Minute)

	userID, err := sessions.Validate(token)
	require.NoError(t, err)
	require.Equal(t, user.ID, userID)
}

func TestValidateRejectsUnknownToken(t *testing.T) {
	db := databasetest.New(t)
	sessions := auth.NewSessionManager(db, 0)

	_, err := sessions.Validate("")
	require.True(t, errors.Is(err, auth.ErrInvalidSession))

	_, err = sessions.Validate(uuid.NewString())
	require.True(t, errors.Is(err, auth.ErrInvalidSession))
}

func TestValidatePrunesExpiredSession(t *testing.T) {
	db := databasetest.New(t)
	user := newUser(t, db)
	sessions := auth.NewSessionManager(db, 0)

	token := uuid.NewString()
	require.NoError(t, db.SaveSession(&models.UserSession{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	_, err := sessions.Validate(token)
	require.True(t, errors.Is(err, auth.ErrExpiredSession))

	// The expired row was pruned on sight.
	_, err = db.FindSessionByToken(token)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRevoke(t *testing.T) {
	db := databasetest.New(t)
	user := newUser(t, db)
	sessions := auth.NewSessionManager(db, time.Hour)

	token, _, err := sessions.Issue(user.ID)
	require.NoError(t, err)
	require.NoError(t, sessions.Revoke(token))

	_, err = sessions.Validate(token)
	require.True(t, errors.Is(err, auth.ErrInvalidSession))

	// Revoking again is harmless.
	require.NoError(t, sessions.Revoke(token))
}

func TestConcurrentSessionsPerUser(t *testing.T) {
	db := databasetest.New(t)
	user := newUser(t, db)
	sessions := auth.NewSessionManager(db, time.Hour)

	t1, _, err := sessions.Issue(user.ID)
	require.NoError(t, err)
	t2, _, err := sessions.Issue(user.ID)
	require.NoError(t, err)
	require.NotEqual(t, t1, t2)

	// Revoking one device leaves the other valid.
	require.NoError(t, sessions.Revoke(t1))
	userID, err := sessions.Validate(t2)
	require.NoError(t, err)
	require.Equal(t, user.ID, userID)
}
