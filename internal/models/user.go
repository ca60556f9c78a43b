package models

import "time"

// User представляет пользователя в системе
type User struct {
	CreatedAt    time.Time  `json:"created_at"`           // время регистрации
	LastLogin    *time.Time `json:"last_login,omitempty"` // время последнего входа
	ID           string     `json:"id"`                   // UUID пользователя
	Username     string     `json:"username"`             // отображаемое имя
	Email        string     `json:"email"`                // уникальный email, ключ для входа
	PasswordHash string     `json:"-"`                    // bcrypt хеш пароля, наружу не отдается
}
