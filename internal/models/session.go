package models

import "time"

// Session представляет серверную сессию пользователя.
// Токен непрозрачный: случайные байты, никакой информации в себе не несет.
type Session struct {
	ExpiresAt time.Time `json:"expires_at"` // время истечения
	CreatedAt time.Time `json:"created_at"` // время создания
	Token     string    `json:"token"`      // непрозрачный идентификатор сессии
	UserID    string    `json:"user_id"`    // ID аутентифицированного пользователя
}

// Expired сообщает, истекла ли сессия на момент now
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
