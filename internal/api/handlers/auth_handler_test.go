package handlers_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"

	"github.com/groupdesk/groupdesk-be/internal/api"
	"github.com/groupdesk/groupdesk-be/internal/auth"
	"github.com/groupdesk/groupdesk-be/internal/config"
	"github.com/groupdesk/groupdesk-be/internal/database"
	"github.com/groupdesk/groupdesk-be/internal/mail"
	"github.com/groupdesk/groupdesk-be/internal/models"
	"github.com/groupdesk/groupdesk-be/internal/services"
	"github.com/groupdesk/groupdesk-be/internal/tokenstore"
	ws "github.com/groupdesk/groupdesk-be/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type stubTagger struct{}

func (stubTagger) GenerateTags(ctx context.Context, title, content string) ([]string, error) {
	return []string{}, nil
}

type stubBlobStore struct{}

func (stubBlobStore) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	return nil
}
func (stubBlobStore) Delete(ctx context.Context, key string) error { return nil }
func (stubBlobStore) PresignDownload(ctx context.Context, key, filename string) (string, error) {
	return "https://blobs.example.com/" + key, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *recordingMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) last() (mail.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return mail.Message{}, false
	}
	return m.sent[len(m.sent)-1], true
}

// --- fixture ---

type testApp struct {
	server *httptest.Server
	db     *sql.DB
	users  *services.UserService
	mailer *recordingMailer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })

	mailer := &recordingMailer{}
	hub := ws.NewHub()
	go hub.Run()

	userService := services.NewUserService(db)
	eventService := services.NewEventService(db)
	sessionService := services.NewSessionService(tokenstore.NewSQLiteSessionStore(db), userService, eventService)
	resetService := services.NewPasswordResetService(tokenstore.NewSQLiteResetTokenStore(db), userService, eventService)
	groupService := services.NewGroupService(db)
	questionService := services.NewQuestionService(db, stubTagger{}, stubBlobStore{}, hub, eventService)
	commentService := services.NewCommentService(db, questionService, userService, mailer, hub, eventService)
	attachmentService := services.NewAttachmentService(db, stubBlobStore{}, questionService)

	cfg := &config.Config{
		Env:        "development",
		CORSOrigin: "http://localhost:3000",
		AppBaseURL: "http://localhost:3000",
	}

	router := api.NewRouter(cfg, api.Services{
		Sessions:    sessionService,
		Resets:      resetService,
		Users:       userService,
		Groups:      groupService,
		Questions:   questionService,
		Comments:    commentService,
		Attachments: attachmentService,
		Events:      eventService,
		Mailer:      mailer,
		Hub:         hub,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testApp{server: server, db: db, users: userService, mailer: mailer}
}

func (a *testApp) createUser(t *testing.T, username, email string, isAdmin bool) models.User {
	t.Helper()
	user, err := a.users.CreateUser(context.Background(), username, email, "abc123!@", "g1", isAdmin)
	require.NoError(t, err)
	return user
}

func (a *testApp) postJSON(t *testing.T, path string, body interface{}, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (a *testApp) get(t *testing.T, path string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.server.URL+path, nil)
	require.NoError(t, err)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func errorCode(body map[string]interface{}) string {
	e, _ := body["error"].(map[string]interface{})
	code, _ := e["code"].(string)
	return code
}

func (a *testApp) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	resp := a.postJSON(t, "/api/v1/auth/login", map[string]string{
		"username": username, "password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == auth.SessionCookieName {
			session = c
		}
	}
	resp.Body.Close()
	require.NotNil(t, session)
	return session
}

// --- tests ---

func TestLoginEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "alice", "alice@example.com", false)

	resp := app.postJSON(t, "/api/v1/auth/login", map[string]string{
		"username": "alice", "password": "abc123!@",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == auth.SessionCookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, session.SameSite)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["sessionToken"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
	assert.Nil(t, user["passwordHash"])
}

func TestLoginRejectsBadCredentialsUniformly(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "alice", "alice@example.com", false)

	wrongPass := app.postJSON(t, "/api/v1/auth/login", map[string]string{
		"username": "alice", "password": "wrongpass1!",
	})
	unknownUser := app.postJSON(t, "/api/v1/auth/login", map[string]string{
		"username": "nonexistent", "password": "anypass1!",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPass.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.StatusCode)

	bodyA := decodeBody(t, wrongPass)
	bodyB := decodeBody(t, unknownUser)
	assert.Equal(t, bodyA["error"], bodyB["error"])
}

func TestMeRequiresSession(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "alice", "alice@example.com", false)

	resp := app.get(t, "/api/v1/auth/me")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	session := app.login(t, "alice", "abc123!@")
	resp = app.get(t, "/api/v1/auth/me", session)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
}

func TestLogoutInvalidatesSession(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "alice", "alice@example.com", false)
	session := app.login(t, "alice", "abc123!@")

	resp := app.postJSON(t, "/api/v1/auth/logout", nil, session)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = app.get(t, "/api/v1/auth/me", session)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestRequestPasswordResetHidesAccountExistence(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "alice", "alice@example.com", false)

	known := app.postJSON(t, "/api/v1/auth/request-password-reset", map[string]string{
		"email": "alice@example.com",
	})
	unknown := app.postJSON(t, "/api/v1/auth/request-password-reset", map[string]string{
		"email": "nonexistent@example.com",
	})

	require.Equal(t, http.StatusOK, known.StatusCode)
	require.Equal(t, http.StatusOK, unknown.StatusCode)

	bodyA := decodeBody(t, known)
	bodyB := decodeBody(t, unknown)
	// The two responses are byte-for-byte the same shape.
	assert.Equal(t, bodyA, bodyB)

	// Only the real account got an email.
	msg, ok := app.mailer.last()
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", msg.To)
}

func TestRequestPasswordResetValidatesEmail(t *testing.T) {
	app := newTestApp(t)

	for _, email := range []string{"", "not-an-email", "missing@tld"} {
		resp := app.postJSON(t, "/api/v1/auth/request-password-reset", map[string]string{"email": email})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(body))
	}
}

var resetLinkPattern = regexp.MustCompile(`token=([a-f0-9]{32})`)

func (a *testApp) requestResetToken(t *testing.T, email string) string {
	t.Helper()
	resp := a.postJSON(t, "/api/v1/auth/request-password-reset", map[string]string{"email": email})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	msg, ok := a.mailer.last()
	require.True(t, ok)
	match := resetLinkPattern.FindStringSubmatch(msg.Text)
	require.Len(t, match, 2)
	return match[1]
}

func TestValidateResetTokenEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "alice", "alice@example.com", false)

	// Malformed tokens are rejected before any lookup.
	for _, token := range []string{"short", "ABCDEF00112233445566778899AABBCC", "zzzzbbbbccccddddeeeeffff00001111"} {
		resp := app.get(t, "/api/v1/auth/validate-reset-token?token="+token)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, false, body["valid"])
		assert.Equal(t, "INVALID_TOKEN", errorCode(body))
	}

	// Well-formed but unknown.
	resp := app.get(t, "/api/v1/auth/validate-reset-token?token=aaaabbbbccccddddeeeeffff00001111")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "TOKEN_NOT_FOUND", errorCode(body))

	// A real token echoes the sanitized user.
	token := app.requestResetToken(t, "alice@example.com")
	resp = app.get(t, "/api/v1/auth/validate-reset-token?token="+token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, true, body["valid"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "alice@example.com", user["email"])
}

func TestResetPasswordEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "alice", "alice@example.com", false)
	token := app.requestResetToken(t, "alice@example.com")

	// Weak passwords are rejected with a class-specific message before the
	// token is touched.
	resp := app.postJSON(t, "/api/v1/auth/reset-password", map[string]string{
		"token": token, "newPassword": "abcdefgh",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "WEAK_PASSWORD", errorCode(body))

	// Unknown tokens are 404.
	resp = app.postJSON(t, "/api/v1/auth/reset-password", map[string]string{
		"token": "aaaabbbbccccddddeeeeffff00001111", "newPassword": "newpass1!",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, "TOKEN_NOT_FOUND", errorCode(body))

	// The real reset succeeds exactly once.
	resp = app.postJSON(t, "/api/v1/auth/reset-password", map[string]string{
		"token": token, "newPassword": "newpass1!",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])

	resp = app.postJSON(t, "/api/v1/auth/reset-password", map[string]string{
		"token": token, "newPassword": "another1!",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, "TOKEN_ALREADY_USED", errorCode(body))

	// The new password logs in, the old one does not.
	app.login(t, "alice", "newpass1!")
	resp = app.postJSON(t, "/api/v1/auth/login", map[string]string{
		"username": "alice", "password": "abc123!@",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminGate(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "alice", "alice@example.com", false)
	app.createUser(t, "root", "root@example.com", true)

	// Unauthenticated requests are 401 before any role check.
	resp := app.get(t, "/api/v1/admin/users")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Authenticated non-admins are 403.
	session := app.login(t, "alice", "abc123!@")
	resp = app.get(t, "/api/v1/admin/users", session)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	adminSession := app.login(t, "root", "abc123!@")
	resp = app.get(t, "/api/v1/admin/users", adminSession)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestQuestionRoutesEnforceGroupScope(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "alice", "alice@example.com", false)
	aliceSession := app.login(t, "alice", "abc123!@")

	resp := app.postJSON(t, "/api/v1/questions", map[string]string{
		"title": "Printer offline", "content": "3rd floor printer is down",
	}, aliceSession)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody(t, resp)
	questionID := created["id"].(string)

	// A member of another group cannot see it.
	_, err := app.users.CreateUser(context.Background(), "bob", "bob@example.com", "abc123!@", "g2", false)
	require.NoError(t, err)
	bobSession := app.login(t, "bob", "abc123!@")

	resp = app.get(t, "/api/v1/questions/"+questionID, bobSession)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "FORBIDDEN", errorCode(body))
}
