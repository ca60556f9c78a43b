package crypto

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost стоимость bcrypt по умолчанию.
// Соль генерируется внутри bcrypt случайно для каждого вызова
const DefaultBcryptCost = 10

// HashPassword хеширует пароль через bcrypt с указанной стоимостью.
// cost <= 0 заменяется на DefaultBcryptCost
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	if cost <= 0 {
		cost = DefaultBcryptCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// VerifyPassword проверяет, соответствует ли пароль сохраненному bcrypt хешу
func VerifyPassword(password, hashedPassword string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if hashedPassword == "" {
		return fmt.Errorf("hashed password cannot be empty")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		return fmt.Errorf("invalid password")
	}

	return nil
}
