package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/medkeep/medkeep/internal/server/handlers"
	"github.com/medkeep/medkeep/internal/server/sessions"
	"github.com/medkeep/medkeep/internal/server/storage"
)

// resolveSession извлекает токен из cookie и возвращает ID пользователя.
// Пустая строка означает отсутствие валидной сессии
func resolveSession(logger *slog.Logger, sessionService *sessions.Service, r *http.Request) string {
	cookie, err := r.Cookie(handlers.SessionCookieName)
	if err != nil {
		return ""
	}

	userID, err := sessionService.Resolve(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, storage.ErrSessionNotFound) {
			logger.Error("failed to resolve session", "error", err)
		}
		return ""
	}

	return userID
}

// SessionAuth создает middleware для браузерных маршрутов.
// Без валидной сессии запрос перенаправляется на страницу входа
func SessionAuth(logger *slog.Logger, sessionService *sessions.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := resolveSession(logger, sessionService, r)
			if userID == "" {
				logger.Debug("unauthenticated request", "path", r.URL.Path)
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), handlers.UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionAuthAPI создает middleware для JSON маршрутов.
// Без валидной сессии возвращается 401 вместо редиректа
func SessionAuthAPI(logger *slog.Logger, sessionService *sessions.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := resolveSession(logger, sessionService, r)
			if userID == "" {
				logger.Debug("unauthenticated API request", "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Unauthorized","message":"authentication required"}`))
				return
			}

			ctx := context.WithValue(r.Context(), handlers.UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionContext создает middleware для открытых маршрутов: валидная
// сессия добавляется в контекст, ее отсутствие запрос не блокирует
func SessionContext(logger *slog.Logger, sessionService *sessions.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID := resolveSession(logger, sessionService, r); userID != "" {
				ctx := context.WithValue(r.Context(), handlers.UserIDKey, userID)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}
