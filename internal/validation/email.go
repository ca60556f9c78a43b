package validation

import (
	"fmt"
	"regexp"
)

// EmailPattern определяет допустимый формат email.
// Упрощенная проверка: local@domain.tld, без пробелов
var EmailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// MaxEmailLen максимальная длина email
const MaxEmailLen = 254

// ValidateEmail проверяет формат email для регистрации и входа.
// Возвращает описательную ошибку, пригодную для показа в форме.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}

	if len(email) > MaxEmailLen {
		return fmt.Errorf("email must be at most %d characters", MaxEmailLen)
	}

	if !EmailPattern.MatchString(email) {
		return fmt.Errorf("email format is invalid")
	}

	return nil
}
