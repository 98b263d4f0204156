package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/groupdesk/groupdesk-be/internal/apperr"
	"github.com/groupdesk/groupdesk-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateQuestionWithTags(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := mustCreateUser(t, f.users, "alice", "alice@example.com", "g1", false)

	q, err := f.questions.CreateQuestion(ctx, alice, "Printer offline", "The 3rd floor printer shows offline.")
	require.NoError(t, err)

	assert.Equal(t, "g1", q.GroupID)
	assert.Equal(t, alice.ID, q.AuthorID)
	assert.Equal(t, models.QuestionStatusOpen, q.Status)
	assert.Equal(t, []string{"printer", "vpn"}, q.Tags)
}

func TestCreateQuestionTaggerFailureFallsBackToEmptyTags(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tagger.err = errors.New("model unavailable")
	alice := mustCreateUser(t, f.users, "alice", "alice@example.com", "g1", false)

	q, err := f.questions.CreateQuestion(ctx, alice, "Printer offline", "Still offline.")
	require.NoError(t, err)
	assert.Empty(t, q.Tags)

	// The question really persisted despite the tagger failure.
	got, err := f.questions.GetQuestion(ctx, alice, q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.ID, got.ID)
}

func TestCreateQuestionValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := mustCreateUser(t, f.users, "alice", "alice@example.com", "g1", false)

	_, err := f.questions.CreateQuestion(ctx, alice, "", "content")
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
	_, err = f.questions.CreateQuestion(ctx, alice, "title", "")
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestQuestionGroupScoping(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := mustCreateUser(t, f.users, "alice", "alice@example.com", "g1", false)
	bob := mustCreateUser(t, f.users, "bob", "bob@example.com", "g2", false)
	admin := mustCreateUser(t, f.users, "root", "root@example.com", "g2", true)

	q, err := f.questions.CreateQuestion(ctx, alice, "VPN drops", "VPN drops every hour.")
	require.NoError(t, err)

	// Members of another group are denied; admins bypass scoping.
	_, err = f.questions.GetQuestion(ctx, bob, q.ID)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "Access denied"))

	got, err := f.questions.GetQuestion(ctx, admin, q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.ID, got.ID)
}

func TestListQuestionsScopes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := mustCreateUser(t, f.users, "alice", "alice@example.com", "g1", false)
	bob := mustCreateUser(t, f.users, "bob", "bob@example.com", "g2", false)
	admin := mustCreateUser(t, f.users, "root", "root@example.com", "g2", true)

	_, err := f.questions.CreateQuestion(ctx, alice, "Q1", "c")
	require.NoError(t, err)
	_, err = f.questions.CreateQuestion(ctx, bob, "Q2", "c")
	require.NoError(t, err)

	fromAlice, err := f.questions.ListQuestions(ctx, alice, "")
	require.NoError(t, err)
	require.Len(t, fromAlice, 1)
	assert.Equal(t, "Q1", fromAlice[0].Title)

	fromAdmin, err := f.questions.ListQuestions(ctx, admin, "")
	require.NoError(t, err)
	assert.Len(t, fromAdmin, 2)

	filtered, err := f.questions.ListQuestions(ctx, admin, "g2")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Q2", filtered[0].Title)
}

func TestCloseQuestionAuthorOrAdminOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := mustCreateUser(t, f.users, "alice", "alice@example.com", "g1", false)
	carol := mustCreateUser(t, f.users, "carol", "carol@example.com", "g1", false)

	q, err := f.questions.CreateQuestion(ctx, alice, "VPN drops", "c")
	require.NoError(t, err)

	_, err = f.questions.CloseQuestion(ctx, carol, q.ID)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	closed, err := f.questions.CloseQuestion(ctx, alice, q.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuestionStatusClosed, closed.Status)
}

func TestDeleteQuestionCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := mustCreateUser(t, f.users, "alice", "alice@example.com", "g1", false)

	q, err := f.questions.CreateQuestion(ctx, alice, "VPN drops", "c")
	require.NoError(t, err)
	_, err = f.comments.AddComment(ctx, alice, q.ID, "me too")
	require.NoError(t, err)
	a, err := f.attachments.Upload(ctx, alice, q.ID, "log.txt", "text/plain", 5, strings.NewReader("hello"))
	require.NoError(t, err)

	require.NoError(t, f.questions.DeleteQuestion(ctx, alice, q.ID))

	_, err = f.questions.GetQuestion(ctx, alice, q.ID)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	// Blob cleanup was attempted for the attachment.
	assert.Contains(t, f.blobs.deletes, a.StorageKey)

	var comments int
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM comments WHERE question_id = ?", q.ID).Scan(&comments))
	assert.Zero(t, comments)
}
