package sessions

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/medkeep/medkeep/internal/models"
	"github.com/medkeep/medkeep/internal/server/storage"
)

// tokenBytes длина случайной части токена сессии
const tokenBytes = 32

// Service управляет жизненным циклом серверных сессий поверх SessionStorage
type Service struct {
	storage storage.SessionStorage
	ttl     time.Duration
}

// NewService создает сервис сессий.
// ttl задает срок жизни каждой новой сессии
func NewService(sessionStorage storage.SessionStorage, ttl time.Duration) *Service {
	return &Service{
		storage: sessionStorage,
		ttl:     ttl,
	}
}

// Create создает сессию для пользователя и возвращает непрозрачный токен
func (s *Service) Create(ctx context.Context, userID string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	now := time.Now()
	session := &models.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.storage.SaveSession(ctx, session); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}

	return token, nil
}

// Resolve возвращает ID пользователя по токену сессии.
// Истекшая сессия удаляется и считается отсутствующей
func (s *Service) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", storage.ErrSessionNotFound
	}

	session, err := s.storage.GetSession(ctx, token)
	if err != nil {
		return "", err
	}

	if session.Expired(time.Now()) {
		// Ленивая очистка: ошибка удаления здесь не критична
		_ = s.storage.DeleteSession(ctx, token)
		return "", storage.ErrSessionNotFound
	}

	return session.UserID, nil
}

// Destroy удаляет сессию. Идемпотентно: отсутствующий токен не ошибка
func (s *Service) Destroy(ctx context.Context, token string) error {
	err := s.storage.DeleteSession(ctx, token)
	if err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// DeleteExpired удаляет все истекшие сессии, возвращает их количество
func (s *Service) DeleteExpired(ctx context.Context) (int, error) {
	return s.storage.DeleteExpiredSessions(ctx, time.Now())
}

// generateToken генерирует URL-safe непрозрачный токен
func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
