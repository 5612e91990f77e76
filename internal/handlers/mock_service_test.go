package handlers

import (
	"context"
	"net/http"
	"time"

	"chat_playground/internal/models"
	"chat_playground/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockTokens struct {
	ids       map[string]models.Identity
	lastToken string
}

func (m *mockTokens) Issue(id models.Identity) (string, error) {
	return "issued-token", nil
}

func (m *mockTokens) Verify(token string) (models.Identity, error) {
	m.lastToken = token
	id, ok := m.ids[token]
	if !ok {
		return models.Identity{}, service.ErrInvalidToken
	}
	return id, nil
}

func (m *mockTokens) TTL() time.Duration { return service.DefaultTokenTTL }

type mockAuth struct {
	result    service.AuthResult
	err       error
	users     []models.User
	usersErr  error
	resetErr  error
	changeErr error

	lastEmail    string
	lastPassword string
	lastResetID  int
	lastChange   [3]any
}

func (m *mockAuth) Register(ctx context.Context, email, password string) (service.AuthResult, error) {
	m.lastEmail, m.lastPassword = email, password
	return m.result, m.err
}

func (m *mockAuth) Login(ctx context.Context, email, password string) (service.AuthResult, error) {
	m.lastEmail, m.lastPassword = email, password
	return m.result, m.err
}

func (m *mockAuth) ChangePassword(ctx context.Context, userID int, current, next string) error {
	m.lastChange = [3]any{userID, current, next}
	return m.changeErr
}

func (m *mockAuth) ResetPassword(ctx context.Context, userID int) (string, error) {
	m.lastResetID = userID
	return service.DefaultResetPassword, m.resetErr
}

func (m *mockAuth) ListUsers(ctx context.Context) ([]models.User, error) {
	return m.users, m.usersErr
}

func (m *mockAuth) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	return false, nil
}

type mockLimiter struct {
	remaining int
	err       error
	calls     int
	lastUser  int

	updateErr   error
	updateCalls int
	lastLimit   int

	window    service.Window
	hasWindow bool
}

func (m *mockLimiter) CheckAndConsume(ctx context.Context, userID int) (int, error) {
	m.calls++
	m.lastUser = userID
	return m.remaining, m.err
}

func (m *mockLimiter) UpdateLimit(ctx context.Context, userID, limit int) error {
	m.updateCalls++
	m.lastUser, m.lastLimit = userID, limit
	return m.updateErr
}

func (m *mockLimiter) Snapshot(userID int) (service.Window, bool) {
	return m.window, m.hasWindow
}

func (m *mockLimiter) Run(ctx context.Context, tick time.Duration) {}

type mockChat struct {
	turn    service.ChatTurn
	err     error
	history []models.Chat
	recent  []models.Chat

	sendCalls int
	lastID    models.Identity
	lastMsgs  []models.ChatMessage
}

func (m *mockChat) Send(ctx context.Context, id models.Identity, msgs []models.ChatMessage) (service.ChatTurn, error) {
	m.sendCalls++
	m.lastID, m.lastMsgs = id, msgs
	return m.turn, m.err
}

func (m *mockChat) History(ctx context.Context, userID int) ([]models.Chat, error) {
	return m.history, m.err
}

func (m *mockChat) Recent(ctx context.Context) ([]models.Chat, error) {
	return m.recent, m.err
}

// ---- Shared Test Helpers ----

const (
	userToken  = "user-token"
	adminToken = "admin-token"
)

var (
	testUser  = models.Identity{ID: 1, Email: "u@x.com", Raw: []byte(`{"id":1,"email":"u@x.com","isAdmin":false}`)}
	testAdmin = models.Identity{ID: 2, Email: "a@x.com", IsAdmin: true, Raw: []byte(`{"id":2,"email":"a@x.com","isAdmin":true}`)}
)

type mocks struct {
	tokens  *mockTokens
	auth    *mockAuth
	limiter *mockLimiter
	chat    *mockChat
}

func newMocks() *mocks {
	return &mocks{
		tokens: &mockTokens{ids: map[string]models.Identity{
			userToken:  testUser,
			adminToken: testAdmin,
		}},
		auth:    &mockAuth{},
		limiter: &mockLimiter{},
		chat:    &mockChat{},
	}
}

func (m *mocks) service() *service.Service {
	return &service.Service{Tokens: m.tokens, Auth: m.auth, Limiter: m.limiter, Chat: m.chat}
}

func newTestRouter(s *service.Service) *gin.Engine {
	return newTestRouterWith(s, Options{})
}

func newTestRouterWith(s *service.Service, opts Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, nil, opts)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
