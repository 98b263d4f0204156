package services

import (
	"context"
	"testing"
	"time"

	"github.com/groupdesk/groupdesk-be/internal/apperr"
	"github.com/groupdesk/groupdesk-be/internal/auth"
	"github.com/groupdesk/groupdesk-be/internal/models"
	"github.com/groupdesk/groupdesk-be/internal/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResetFixture(t *testing.T) (*PasswordResetService, *UserService, *tokenstore.SQLiteResetTokenStore) {
	t.Helper()
	db := newTestDB(t)
	users := NewUserService(db)
	events := NewEventService(db)
	store := tokenstore.NewSQLiteResetTokenStore(db)
	return NewPasswordResetService(store, users, events), users, store
}

func TestRequestIssuesToken(t *testing.T) {
	ctx := context.Background()
	resets, users, _ := newResetFixture(t)
	created := mustCreateUser(t, users, "alice", "alice@example.com", "g1", false)

	user, token, err := resets.Request(ctx, "alice@example.com")
	require.NoError(t, err)

	assert.Equal(t, created.ID, user.ID)
	assert.True(t, auth.ValidResetTokenFormat(token.Token))
	assert.False(t, token.Used)
	assert.WithinDuration(t, time.Now().Add(ResetTokenTTL), token.ExpiresAt, time.Minute)
}

func TestRequestUnknownEmail(t *testing.T) {
	ctx := context.Background()
	resets, _, _ := newResetFixture(t)

	_, _, err := resets.Request(ctx, "nonexistent@example.com")
	assert.Equal(t, apperr.CodeUserNotFound, apperr.CodeOf(err))
}

func TestRequestEmailLookupIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	resets, users, _ := newResetFixture(t)
	mustCreateUser(t, users, "alice", "alice@example.com", "g1", false)

	_, _, err := resets.Request(ctx, "Alice@Example.com")
	assert.Equal(t, apperr.CodeUserNotFound, apperr.CodeOf(err))
}

func TestRequestDoesNotInvalidateEarlierTokens(t *testing.T) {
	ctx := context.Background()
	resets, users, _ := newResetFixture(t)
	mustCreateUser(t, users, "alice", "alice@example.com", "g1", false)

	_, first, err := resets.Request(ctx, "alice@example.com")
	require.NoError(t, err)
	_, second, err := resets.Request(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	// Both outstanding tokens remain redeemable.
	_, err = resets.Validate(ctx, first.Token)
	assert.NoError(t, err)
	_, err = resets.Validate(ctx, second.Token)
	assert.NoError(t, err)
}

func TestValidateUnknownToken(t *testing.T) {
	ctx := context.Background()
	resets, _, _ := newResetFixture(t)

	_, err := resets.Validate(ctx, "aaaabbbbccccddddeeeeffff00001111")
	assert.Equal(t, apperr.CodeTokenNotFound, apperr.CodeOf(err))
}

func TestValidateExpiredToken(t *testing.T) {
	ctx := context.Background()
	resets, users, store := newResetFixture(t)
	created := mustCreateUser(t, users, "alice", "alice@example.com", "g1", false)

	now := time.Now()
	require.NoError(t, store.Put(ctx, models.PasswordResetToken{
		Token:     "aaaabbbbccccddddeeeeffff00001111",
		UserID:    created.ID,
		IssuedAt:  now.Add(-25 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}))

	_, err := resets.Validate(ctx, "aaaabbbbccccddddeeeeffff00001111")
	assert.Equal(t, apperr.CodeTokenExpired, apperr.CodeOf(err))
}

func TestValidateUsedToken(t *testing.T) {
	ctx := context.Background()
	resets, users, store := newResetFixture(t)
	created := mustCreateUser(t, users, "alice", "alice@example.com", "g1", false)

	now := time.Now()
	require.NoError(t, store.Put(ctx, models.PasswordResetToken{
		Token:     "aaaabbbbccccddddeeeeffff00001111",
		UserID:    created.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(24 * time.Hour),
		Used:      true,
	}))

	_, err := resets.Validate(ctx, "aaaabbbbccccddddeeeeffff00001111")
	assert.Equal(t, apperr.CodeTokenAlreadyUsed, apperr.CodeOf(err))
}

func TestValidateChecksUsedBeforeExpiry(t *testing.T) {
	ctx := context.Background()
	resets, users, store := newResetFixture(t)
	created := mustCreateUser(t, users, "alice", "alice@example.com", "g1", false)

	// Both used and expired: the used check wins per the fixed order
	// existence -> used -> expiry.
	now := time.Now()
	require.NoError(t, store.Put(ctx, models.PasswordResetToken{
		Token:     "aaaabbbbccccddddeeeeffff00001111",
		UserID:    created.ID,
		IssuedAt:  now.Add(-48 * time.Hour),
		ExpiresAt: now.Add(-24 * time.Hour),
		Used:      true,
	}))

	_, err := resets.Validate(ctx, "aaaabbbbccccddddeeeeffff00001111")
	assert.Equal(t, apperr.CodeTokenAlreadyUsed, apperr.CodeOf(err))
}

func TestValidateDoesNotConsume(t *testing.T) {
	ctx := context.Background()
	resets, users, store := newResetFixture(t)
	mustCreateUser(t, users, "alice", "alice@example.com", "g1", false)

	_, token, err := resets.Request(ctx, "alice@example.com")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = resets.Validate(ctx, token.Token)
		require.NoError(t, err)
	}

	stored, err := store.Get(ctx, token.Token)
	require.NoError(t, err)
	assert.False(t, stored.Used)
}

func TestResetWeakPassword(t *testing.T) {
	ctx := context.Background()
	resets, users, store := newResetFixture(t)
	mustCreateUser(t, users, "alice", "alice@example.com", "g1", false)

	_, token, err := resets.Request(ctx, "alice@example.com")
	require.NoError(t, err)

	_, err = resets.Reset(ctx, token.Token, "short1!")
	assert.Equal(t, apperr.CodeWeakPassword, apperr.CodeOf(err))

	// A rejected password must not burn the token.
	stored, err := store.Get(ctx, token.Token)
	require.NoError(t, err)
	assert.False(t, stored.Used)
}

func TestResetLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	resets, users, _ := newResetFixture(t)
	created := mustCreateUser(t, users, "alice", "alice@example.com", "g1", false)

	// Request a token for a known user.
	_, token, err := resets.Request(ctx, "alice@example.com")
	require.NoError(t, err)

	// Validate echoes the right user.
	user, err := resets.Validate(ctx, token.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.Empty(t, user.PasswordHash)

	// Reset with a compliant password.
	user, err = resets.Reset(ctx, token.Token, "newpass1!")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.Empty(t, user.PasswordHash)

	// The new credential works, the old one is gone.
	stored, err := users.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(stored.PasswordHash, "newpass1!"))
	assert.False(t, auth.CheckPassword(stored.PasswordHash, "abc123!@"))

	// The same token is now single-use spent.
	_, err = resets.Validate(ctx, token.Token)
	assert.Equal(t, apperr.CodeTokenAlreadyUsed, apperr.CodeOf(err))

	_, err = resets.Reset(ctx, token.Token, "another1!")
	assert.Equal(t, apperr.CodeTokenAlreadyUsed, apperr.CodeOf(err))
}

func TestResetLosesRaceWhenTokenClaimedConcurrently(t *testing.T) {
	ctx := context.Background()
	resets, users, store := newResetFixture(t)
	mustCreateUser(t, users, "alice", "alice@example.com", "g1", false)

	_, token, err := resets.Request(ctx, "alice@example.com")
	require.NoError(t, err)

	// A concurrent request claims the token first.
	claimed, err := store.MarkUsed(ctx, token.Token)
	require.NoError(t, err)
	require.True(t, claimed)

	_, err = resets.Reset(ctx, token.Token, "newpass1!")
	assert.Equal(t, apperr.CodeTokenAlreadyUsed, apperr.CodeOf(err))
}
