package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/groupdesk/groupdesk-be/internal/database"
	"github.com/groupdesk/groupdesk-be/internal/mail"
	"github.com/groupdesk/groupdesk-be/internal/models"
	ws "github.com/groupdesk/groupdesk-be/internal/websocket"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func mustCreateUser(t *testing.T, users *UserService, username, email, groupID string, isAdmin bool) models.User {
	t.Helper()
	user, err := users.CreateUser(context.Background(), username, email, "abc123!@", groupID, isAdmin)
	require.NoError(t, err)
	return user
}

// fakeTagger returns canned tags or a canned error.
type fakeTagger struct {
	tags []string
	err  error
}

func (f *fakeTagger) GenerateTags(ctx context.Context, title, content string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tags, nil
}

// fakeBlobStore records uploads and deletes in memory.
type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
	deletes []string
	failPut bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}}
}

func (f *fakeBlobStore) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return errors.New("bucket unreachable")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[key] = data
	f.puts++
	return nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deletes = append(f.deletes, key)
	return nil
}

func (f *fakeBlobStore) PresignDownload(ctx context.Context, key, filename string) (string, error) {
	return "https://blobs.example.com/" + key, nil
}

// recordingMailer captures every message instead of sending it.
type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// fixture wires the full service graph over one in-memory database.
type fixture struct {
	db          *sql.DB
	users       *UserService
	groups      *GroupService
	events      *EventService
	questions   *QuestionService
	comments    *CommentService
	attachments *AttachmentService
	tagger      *fakeTagger
	blobs       *fakeBlobStore
	mailer      *recordingMailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	f := &fixture{
		db:     db,
		tagger: &fakeTagger{tags: []string{"printer", "vpn"}},
		blobs:  newFakeBlobStore(),
		mailer: &recordingMailer{},
	}
	f.users = NewUserService(db)
	f.groups = NewGroupService(db)
	f.events = NewEventService(db)

	// A hub without Run is fine here: nothing subscribes, broadcasts fall
	// through.
	hub := ws.NewHub()

	f.questions = NewQuestionService(db, f.tagger, f.blobs, hub, f.events)
	f.comments = NewCommentService(db, f.questions, f.users, f.mailer, hub, f.events)
	f.attachments = NewAttachmentService(db, f.blobs, f.questions)
	return f
}
