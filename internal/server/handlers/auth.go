package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/medkeep/medkeep/internal/crypto"
	"github.com/medkeep/medkeep/internal/models"
	"github.com/medkeep/medkeep/internal/server/sessions"
	"github.com/medkeep/medkeep/internal/server/storage"
	"github.com/medkeep/medkeep/internal/server/web"
	"github.com/medkeep/medkeep/internal/validation"
)

// AuthHandler обрабатывает регистрацию, вход и выход пользователей
type AuthHandler struct {
	logger      *slog.Logger
	userStorage storage.UserStorage
	sessions    *sessions.Service
	renderer    *web.Renderer
	bcryptCost  int
	sessionTTL  time.Duration
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(
	logger *slog.Logger,
	userStorage storage.UserStorage,
	sessionService *sessions.Service,
	renderer *web.Renderer,
	bcryptCost int,
	sessionTTL time.Duration,
) *AuthHandler {
	return &AuthHandler{
		logger:      logger,
		userStorage: userStorage,
		sessions:    sessionService,
		renderer:    renderer,
		bcryptCost:  bcryptCost,
		sessionTTL:  sessionTTL,
	}
}

// SignupForm обрабатывает GET /
// Показывает форму регистрации
func (h *AuthHandler) SignupForm(w http.ResponseWriter, r *http.Request) {
	h.render(r, w, "signup.html", http.StatusOK, web.SignupData{})
}

// Register обрабатывает POST /createUser
// Регистрация нового пользователя. При ошибках валидации форма
// рендерится заново со списком ошибок и введенным email
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		h.logger.WarnContext(ctx, "failed to parse signup form", slog.Any("error", err))
		h.render(r, w, "signup.html", http.StatusBadRequest, web.SignupData{
			Errors: []string{"invalid form data"},
		})
		return
	}

	username := r.PostFormValue("username")
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	// Собираем все ошибки валидации, а не только первую
	var formErrors []string
	if err := validation.ValidateUsername(username); err != nil {
		formErrors = append(formErrors, err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		formErrors = append(formErrors, err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		formErrors = append(formErrors, err.Error())
	}

	if len(formErrors) > 0 {
		h.logger.WarnContext(ctx, "signup validation failed",
			slog.String("email", email),
			slog.Int("errors", len(formErrors)))
		h.render(r, w, "signup.html", http.StatusBadRequest, web.SignupData{
			Email:  email,
			Errors: formErrors,
		})
		return
	}

	hash, err := crypto.HashPassword(password, h.bcryptCost)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		h.render(r, w, "signup.html", http.StatusInternalServerError, web.SignupData{
			Email:  email,
			Errors: []string{"failed to process password"},
		})
		return
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	if err := h.userStorage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			h.logger.WarnContext(ctx, "signup rejected: email already registered",
				slog.String("email", email))
			h.render(r, w, "signup.html", http.StatusConflict, web.SignupData{
				Email:  email,
				Errors: []string{"email is already registered"},
			})
			return
		}
		h.logger.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
		h.render(r, w, "signup.html", http.StatusInternalServerError, web.SignupData{
			Email:  email,
			Errors: []string{"failed to save user"},
		})
		return
	}

	h.logger.InfoContext(ctx, "user registered successfully",
		slog.String("user_id", user.ID),
		slog.String("email", email))

	// После регистрации показываем форму входа
	h.render(r, w, "login.html", http.StatusOK, web.LoginData{})
}

// LoginForm обрабатывает GET /login
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(r, w, "login.html", http.StatusOK, web.LoginData{})
}

// Login обрабатывает POST /login
// Неизвестный email и неверный пароль дают одинаковый ответ,
// чтобы не раскрывать существование аккаунта
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		h.logger.WarnContext(ctx, "failed to parse login form", slog.Any("error", err))
		h.render(r, w, "login.html", http.StatusBadRequest, web.LoginData{
			Error: "invalid form data",
		})
		return
	}

	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	user, err := h.userStorage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.logger.WarnContext(ctx, "login failed: user not found", slog.String("email", email))
			h.render(r, w, "login.html", http.StatusUnauthorized, web.LoginData{
				Error: "Invalid email or password",
			})
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		h.render(r, w, "login.html", http.StatusInternalServerError, web.LoginData{
			Error: "internal server error",
		})
		return
	}

	if err := crypto.VerifyPassword(password, user.PasswordHash); err != nil {
		h.logger.WarnContext(ctx, "login failed: invalid password", slog.String("email", email))
		h.render(r, w, "login.html", http.StatusUnauthorized, web.LoginData{
			Error: "Invalid email or password",
		})
		return
	}

	token, err := h.sessions.Create(ctx, user.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create session", slog.Any("error", err))
		h.render(r, w, "login.html", http.StatusInternalServerError, web.LoginData{
			Error: "internal server error",
		})
		return
	}

	// Обновляем last_login. Не критичная ошибка, логируем но не прерываем
	if err := h.userStorage.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		h.logger.WarnContext(ctx, "failed to update last login", slog.Any("error", err))
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.InfoContext(ctx, "user logged in successfully",
		slog.String("user_id", user.ID),
		slog.String("email", email))

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Logout обрабатывает GET /logout
// Идемпотентен: выход без активной сессии тоже ведет на /login
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.sessions.Destroy(ctx, cookie.Value); err != nil {
			h.logger.ErrorContext(ctx, "failed to destroy session", slog.Any("error", err))
		}
	}

	// Сбрасываем cookie в любом случае
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/login", http.StatusFound)
}

// Dashboard обрабатывает GET /dashboard
func (h *AuthHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	user, err := h.userStorage.GetUserByID(ctx, userID)
	if err != nil {
		// Сессия указывает на удаленного пользователя: на вход
		h.logger.WarnContext(ctx, "dashboard: user not found", slog.String("user_id", userID))
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	h.render(r, w, "dashboard.html", http.StatusOK, web.DashboardData{
		Username: user.Username,
	})
}

// render рендерит шаблон и логирует ошибку рендеринга
func (h *AuthHandler) render(r *http.Request, w http.ResponseWriter, name string, statusCode int, data any) {
	if err := h.renderer.Render(w, name, statusCode, data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render template",
			slog.String("template", name),
			slog.Any("error", err))
	}
}
