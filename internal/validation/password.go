package validation

import (
	"fmt"
	"unicode"
)

const (
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 8
	// MaxPasswordLen максимальная длина пароля.
	// bcrypt учитывает только первые 72 байта, более длинные пароли отклоняем
	MaxPasswordLen = 72
)

// ValidatePassword проверяет пароль по политике:
// длина 8-72 символа, хотя бы одна буква и хотя бы одна цифра
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLen)
	}

	if len(password) > MaxPasswordLen {
		return fmt.Errorf("password must be at most %d characters", MaxPasswordLen)
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasLetter || !hasDigit {
		return fmt.Errorf("password must contain at least one letter and one digit")
	}

	return nil
}

// ValidateUsername проверяет отображаемое имя пользователя при регистрации
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	if len(username) > 64 {
		return fmt.Errorf("username must be at most 64 characters")
	}

	return nil
}
