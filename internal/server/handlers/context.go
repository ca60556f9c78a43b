package handlers

import "context"

// SessionCookieName имя cookie с токеном сессии
const SessionCookieName = "medkeep_session"

// contextKey тип для ключей контекста (избегаем коллизий)
type contextKey string

// UserIDKey ключ контекста для ID аутентифицированного пользователя
const UserIDKey contextKey = "user_id"

// GetUserID извлекает ID пользователя из контекста запроса.
// Возвращает false, если запрос не аутентифицирован
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}
