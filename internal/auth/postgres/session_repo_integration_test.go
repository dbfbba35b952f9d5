// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Courier Contributors

//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierchat/courier/internal/auth"
	"github.com/courierchat/courier/internal/auth/postgres"
	"github.com/courierchat/courier/pkg/errutil"
)

// createTestSession inserts a session for the given user and registers cleanup.
func createTestSession(ctx context.Context, t *testing.T, userID uuid.UUID, ttl time.Duration) (*auth.Session, string) {
	t.Helper()
	token, hash, err := auth.GenerateSessionToken()
	require.NoError(t, err)

	session, err := auth.NewSession(userID, hash, ttl)
	require.NoError(t, err)

	repo := postgres.NewSessionRepository(testPool)
	require.NoError(t, repo.Create(ctx, session))

	t.Cleanup(func() {
		_, _ = testPool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, session.ID.String())
	})

	return session, token
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewSessionRepository(testPool)
	user := createTestUser(ctx, t, uniqueName("sess"), "Session Tester")

	t.Run("round-trips a session by token hash", func(t *testing.T) {
		session, token := createTestSession(ctx, t, user.ID, time.Hour)

		got, err := repo.GetByTokenHash(ctx, auth.HashSessionToken(token))
		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)
		assert.Equal(t, user.ID, got.UserID)
		assert.Equal(t, session.TokenHash, got.TokenHash)
		assert.WithinDuration(t, session.ExpiresAt, got.ExpiresAt, time.Second)
	})

	t.Run("rejects duplicate token hash", func(t *testing.T) {
		session, _ := createTestSession(ctx, t, user.ID, time.Hour)

		dup, err := auth.NewSession(user.ID, session.TokenHash, time.Hour)
		require.NoError(t, err)

		err = repo.Create(ctx, dup)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrConflict)
		errutil.AssertErrorCode(t, err, "SESSION_TOKEN_COLLISION")
	})

	t.Run("returns ErrNotFound for unknown hash", func(t *testing.T) {
		_, err := repo.GetByTokenHash(ctx, auth.HashSessionToken("no-such-token"))
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestSessionRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewSessionRepository(testPool)
	user := createTestUser(ctx, t, uniqueName("del"), "Delete Tester")

	t.Run("deletes by ID", func(t *testing.T) {
		session, token := createTestSession(ctx, t, user.ID, time.Hour)

		require.NoError(t, repo.DeleteByID(ctx, session.ID))

		_, err := repo.GetByTokenHash(ctx, auth.HashSessionToken(token))
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("deletes by token hash", func(t *testing.T) {
		session, _ := createTestSession(ctx, t, user.ID, time.Hour)

		require.NoError(t, repo.DeleteByTokenHash(ctx, session.TokenHash))
		assert.ErrorIs(t, repo.DeleteByTokenHash(ctx, session.TokenHash), auth.ErrNotFound)
	})

	t.Run("delete of missing ID reports ErrNotFound", func(t *testing.T) {
		err := repo.DeleteByID(ctx, ulid.Make())
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("cascades when the user is deleted", func(t *testing.T) {
		victim := createTestUser(ctx, t, uniqueName("gone"), "Gone Tester")
		session, _ := createTestSession(ctx, t, victim.ID, time.Hour)

		_, err := testPool.Exec(ctx, `DELETE FROM users WHERE id = $1`, victim.ID)
		require.NoError(t, err)

		_, err = repo.GetByTokenHash(ctx, session.TokenHash)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewSessionRepository(testPool)
	user := createTestUser(ctx, t, uniqueName("prune"), "Prune Tester")

	expired1, _ := createTestSession(ctx, t, user.ID, -time.Minute)
	expired2, _ := createTestSession(ctx, t, user.ID, -time.Hour)
	live, _ := createTestSession(ctx, t, user.ID, time.Hour)

	count, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	// Other tests may have left expired sessions behind.
	assert.GreaterOrEqual(t, count, int64(2))

	_, err = repo.GetByTokenHash(ctx, expired1.TokenHash)
	assert.ErrorIs(t, err, auth.ErrNotFound)
	_, err = repo.GetByTokenHash(ctx, expired2.TokenHash)
	assert.ErrorIs(t, err, auth.ErrNotFound)

	got, err := repo.GetByTokenHash(ctx, live.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)
}
