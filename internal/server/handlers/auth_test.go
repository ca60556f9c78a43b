package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medkeep/medkeep/internal/crypto"
	"github.com/medkeep/medkeep/internal/models"
	"github.com/medkeep/medkeep/internal/server/sessions"
	"github.com/medkeep/medkeep/internal/server/storage"
	"github.com/medkeep/medkeep/internal/server/web"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors in tests
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

// setupTestRenderer parses the embedded templates for handler tests
func setupTestRenderer(t *testing.T) *web.Renderer {
	t.Helper()
	renderer, err := web.NewRenderer()
	require.NoError(t, err)
	return renderer
}

// newFormRequest builds a POST request with urlencoded form body
func newFormRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// withUserID injects an authenticated user into the request context
func withUserID(req *http.Request, userID string) *http.Request {
	ctx := context.WithValue(req.Context(), UserIDKey, userID)
	return req.WithContext(ctx)
}

// mockUserStorage is a mock implementation of UserStorage for testing
type mockUserStorage struct {
	users        map[string]*models.User // email -> User
	createError  error
	getUserError error
	lastLogins   map[string]time.Time // userID -> last login
}

func newMockUserStorage() *mockUserStorage {
	return &mockUserStorage{
		users:      make(map[string]*models.User),
		lastLogins: make(map[string]time.Time),
	}
}

func (m *mockUserStorage) CreateUser(ctx context.Context, user *models.User) error {
	if m.createError != nil {
		return m.createError
	}
	if _, exists := m.users[user.Email]; exists {
		return storage.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.getUserError != nil {
		return nil, m.getUserError
	}
	user, ok := m.users[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserStorage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	if m.getUserError != nil {
		return nil, m.getUserError
	}
	for _, user := range m.users {
		if user.ID == userID {
			return user, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (m *mockUserStorage) UpdateLastLogin(ctx context.Context, userID string, lastLogin time.Time) error {
	m.lastLogins[userID] = lastLogin
	return nil
}

// mockSessionStorage is a mock implementation of SessionStorage for testing
type mockSessionStorage struct {
	sessions map[string]*models.Session // token -> Session
}

func newMockSessionStorage() *mockSessionStorage {
	return &mockSessionStorage{sessions: make(map[string]*models.Session)}
}

func (m *mockSessionStorage) SaveSession(ctx context.Context, session *models.Session) error {
	m.sessions[session.Token] = session
	return nil
}

func (m *mockSessionStorage) GetSession(ctx context.Context, token string) (*models.Session, error) {
	session, ok := m.sessions[token]
	if !ok {
		return nil, storage.ErrSessionNotFound
	}
	return session, nil
}

func (m *mockSessionStorage) DeleteSession(ctx context.Context, token string) error {
	if _, ok := m.sessions[token]; !ok {
		return storage.ErrSessionNotFound
	}
	delete(m.sessions, token)
	return nil
}

func (m *mockSessionStorage) DeleteUserSessions(ctx context.Context, userID string) (int, error) {
	count := 0
	for token, session := range m.sessions {
		if session.UserID == userID {
			delete(m.sessions, token)
			count++
		}
	}
	return count, nil
}

func (m *mockSessionStorage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	count := 0
	for token, session := range m.sessions {
		if session.Expired(now) {
			delete(m.sessions, token)
			count++
		}
	}
	return count, nil
}

func setupAuthHandler(t *testing.T, userStorage *mockUserStorage, sessionStorage *mockSessionStorage) *AuthHandler {
	t.Helper()
	sessionService := sessions.NewService(sessionStorage, time.Hour)
	// Минимальная стоимость bcrypt, чтобы тесты не тормозили
	return NewAuthHandler(setupTestLogger(), userStorage, sessionService, setupTestRenderer(t), 4, time.Hour)
}

// createTestUser registers a user with a real bcrypt hash
func createTestUser(t *testing.T, userStorage *mockUserStorage, email, password string) *models.User {
	t.Helper()
	hash, err := crypto.HashPassword(password, 4)
	require.NoError(t, err)
	user := &models.User{
		ID:           "user-" + email,
		Username:     "tester",
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, userStorage.CreateUser(context.Background(), user))
	return user
}

func TestAuthHandler_SignupForm(t *testing.T) {
	handler := setupAuthHandler(t, newMockUserStorage(), newMockSessionStorage())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	handler.SignupForm(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "/createUser")
}

func TestAuthHandler_Register_Success(t *testing.T) {
	userStorage := newMockUserStorage()
	handler := setupAuthHandler(t, userStorage, newMockSessionStorage())

	form := url.Values{}
	form.Set("username", "alice")
	form.Set("email", "alice@example.com")
	form.Set("password", "secret123")

	w := httptest.NewRecorder()
	handler.Register(w, newFormRequest("/createUser", form))

	assert.Equal(t, http.StatusOK, w.Code)
	// После успешной регистрации показывается форма входа
	assert.Contains(t, w.Body.String(), `action="/login"`)

	user, err := userStorage.GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEmpty(t, user.ID)
	// Пароль сохранен как bcrypt хеш, а не открытым текстом
	assert.NotEqual(t, "secret123", user.PasswordHash)
	require.NoError(t, crypto.VerifyPassword("secret123", user.PasswordHash))
}

func TestAuthHandler_Register_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		password string
		wantMsg  string
	}{
		{
			name:     "empty username",
			username: "",
			email:    "a@example.com",
			password: "secret123",
			wantMsg:  "username cannot be empty",
		},
		{
			name:     "invalid email",
			username: "alice",
			email:    "not-an-email",
			password: "secret123",
			wantMsg:  "email format is invalid",
		},
		{
			name:     "short password",
			username: "alice",
			email:    "a@example.com",
			password: "a1",
			wantMsg:  "password must be at least 8 characters",
		},
		{
			name:     "password without digit",
			username: "alice",
			email:    "a@example.com",
			password: "passwordonly",
			wantMsg:  "password must contain at least one letter and one digit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userStorage := newMockUserStorage()
			handler := setupAuthHandler(t, userStorage, newMockSessionStorage())

			form := url.Values{}
			form.Set("username", tt.username)
			form.Set("email", tt.email)
			form.Set("password", tt.password)

			w := httptest.NewRecorder()
			handler.Register(w, newFormRequest("/createUser", form))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantMsg)
			// Пользователь не создан
			assert.Empty(t, userStorage.users)
		})
	}
}

func TestAuthHandler_Register_EchoesEmailOnError(t *testing.T) {
	handler := setupAuthHandler(t, newMockUserStorage(), newMockSessionStorage())

	form := url.Values{}
	form.Set("username", "alice")
	form.Set("email", "alice@example.com")
	form.Set("password", "short")

	w := httptest.NewRecorder()
	handler.Register(w, newFormRequest("/createUser", form))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	// Введенный email сохраняется в форме
	assert.Contains(t, w.Body.String(), `value="alice@example.com"`)
}

func TestAuthHandler_Register_DuplicateEmail(t *testing.T) {
	userStorage := newMockUserStorage()
	createTestUser(t, userStorage, "alice@example.com", "secret123")
	handler := setupAuthHandler(t, userStorage, newMockSessionStorage())

	form := url.Values{}
	form.Set("username", "other")
	form.Set("email", "alice@example.com")
	form.Set("password", "secret456")

	w := httptest.NewRecorder()
	handler.Register(w, newFormRequest("/createUser", form))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "email is already registered")
}

func TestAuthHandler_Login_Success(t *testing.T) {
	userStorage := newMockUserStorage()
	sessionStorage := newMockSessionStorage()
	user := createTestUser(t, userStorage, "alice@example.com", "secret123")
	handler := setupAuthHandler(t, userStorage, sessionStorage)

	form := url.Values{}
	form.Set("email", "alice@example.com")
	form.Set("password", "secret123")

	w := httptest.NewRecorder()
	handler.Login(w, newFormRequest("/login", form))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	// Cookie с токеном сессии установлена
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, SessionCookieName, cookie.Name)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	// Сессия сохранена на сервере
	session, err := sessionStorage.GetSession(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)

	// last_login обновлен
	assert.Contains(t, userStorage.lastLogins, user.ID)
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	userStorage := newMockUserStorage()
	createTestUser(t, userStorage, "alice@example.com", "secret123")
	handler := setupAuthHandler(t, userStorage, newMockSessionStorage())

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", "secret123"},
		{"wrong password", "alice@example.com", "wrongpass1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{}
			form.Set("email", tt.email)
			form.Set("password", tt.password)

			w := httptest.NewRecorder()
			handler.Login(w, newFormRequest("/login", form))

			// Ответ одинаковый для обоих случаев
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "Invalid email or password")
			assert.Empty(t, w.Result().Cookies())
		})
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	userStorage := newMockUserStorage()
	sessionStorage := newMockSessionStorage()
	handler := setupAuthHandler(t, userStorage, sessionStorage)

	session := &models.Session{
		Token:     "session-token",
		UserID:    "user1",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, sessionStorage.SaveSession(context.Background(), session))

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "session-token"})

	w := httptest.NewRecorder()
	handler.Logout(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	// Сессия удалена на сервере
	_, err := sessionStorage.GetSession(context.Background(), "session-token")
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)

	// Cookie сброшена
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestAuthHandler_Logout_WithoutSession(t *testing.T) {
	handler := setupAuthHandler(t, newMockUserStorage(), newMockSessionStorage())

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	w := httptest.NewRecorder()

	handler.Logout(w, req)

	// Идемпотентно: без cookie тоже редирект на вход
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestAuthHandler_Dashboard(t *testing.T) {
	userStorage := newMockUserStorage()
	user := createTestUser(t, userStorage, "alice@example.com", "secret123")
	handler := setupAuthHandler(t, userStorage, newMockSessionStorage())

	req := withUserID(httptest.NewRequest(http.MethodGet, "/dashboard", nil), user.ID)
	w := httptest.NewRecorder()

	handler.Dashboard(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), user.Username)
}

func TestAuthHandler_Dashboard_Unauthenticated(t *testing.T) {
	handler := setupAuthHandler(t, newMockUserStorage(), newMockSessionStorage())

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	w := httptest.NewRecorder()

	handler.Dashboard(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}
