package tokenstore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/groupdesk/groupdesk-be/internal/database"
	"github.com/groupdesk/groupdesk-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteSessionStore(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteSessionStore(newTestDB(t))

	now := time.Now()
	session := models.Session{
		Token:     "token-1",
		UserID:    "user-1",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, store.Put(ctx, session))

	got, err := store.Get(ctx, "token-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, "token-1"))
	assert.ErrorIs(t, store.Delete(ctx, "token-1"), ErrNotFound)
}

func TestSQLiteSessionStoreDeleteExpired(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteSessionStore(newTestDB(t))

	now := time.Now()
	require.NoError(t, store.Put(ctx, models.Session{
		Token: "live", UserID: "u", IssuedAt: now, ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, store.Put(ctx, models.Session{
		Token: "dead", UserID: "u", IssuedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}))

	purged, err := store.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	_, err = store.Get(ctx, "dead")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, "live")
	assert.NoError(t, err)
}

func TestSQLiteResetTokenStoreMarkUsedIsSingleShot(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteResetTokenStore(newTestDB(t))

	now := time.Now()
	require.NoError(t, store.Put(ctx, models.PasswordResetToken{
		Token:     "aaaabbbbccccddddeeeeffff00001111",
		UserID:    "user-1",
		IssuedAt:  now,
		ExpiresAt: now.Add(24 * time.Hour),
	}))

	claimed, err := store.MarkUsed(ctx, "aaaabbbbccccddddeeeeffff00001111")
	require.NoError(t, err)
	assert.True(t, claimed)

	// The second claim loses.
	claimed, err = store.MarkUsed(ctx, "aaaabbbbccccddddeeeeffff00001111")
	require.NoError(t, err)
	assert.False(t, claimed)

	got, err := store.Get(ctx, "aaaabbbbccccddddeeeeffff00001111")
	require.NoError(t, err)
	assert.True(t, got.Used)
}

func TestSQLiteResetTokenStoreMarkUsedUnknownToken(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteResetTokenStore(newTestDB(t))

	claimed, err := store.MarkUsed(ctx, "aaaabbbbccccddddeeeeffff00001111")
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestSQLiteResetTokenStoreDeleteExpiredBefore(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteResetTokenStore(newTestDB(t))

	now := time.Now()
	require.NoError(t, store.Put(ctx, models.PasswordResetToken{
		Token: "11111111111111111111111111111111", UserID: "u",
		IssuedAt: now, ExpiresAt: now.Add(24 * time.Hour),
	}))
	require.NoError(t, store.Put(ctx, models.PasswordResetToken{
		Token: "22222222222222222222222222222222", UserID: "u",
		IssuedAt: now.Add(-10 * 24 * time.Hour), ExpiresAt: now.Add(-9 * 24 * time.Hour),
	}))

	purged, err := store.DeleteExpiredBefore(ctx, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	_, err = store.Get(ctx, "11111111111111111111111111111111")
	assert.NoError(t, err)
	_, err = store.Get(ctx, "22222222222222222222222222222222")
	assert.ErrorIs(t, err, ErrNotFound)
}
