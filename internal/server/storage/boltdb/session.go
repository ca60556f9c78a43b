package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/medkeep/medkeep/internal/models"
	"github.com/medkeep/medkeep/internal/server/storage"
)

// SaveSession stores a new session keyed by its token
func (s *Storage) SaveSession(ctx context.Context, session *models.Session) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSessions)
		if bucket == nil {
			return fmt.Errorf("sessions bucket not found")
		}

		// Сериализуем сессию в JSON
		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		if err := bucket.Put([]byte(session.Token), data); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}

		return nil
	})
}

// GetSession retrieves session by token value
func (s *Storage) GetSession(ctx context.Context, token string) (*models.Session, error) {
	var session *models.Session

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSessions)
		if bucket == nil {
			return fmt.Errorf("sessions bucket not found")
		}

		data := bucket.Get([]byte(token))
		if data == nil {
			return storage.ErrSessionNotFound
		}

		session = &models.Session{}
		if err := json.Unmarshal(data, session); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return session, nil
}

// DeleteSession deletes session by token value
func (s *Storage) DeleteSession(ctx context.Context, token string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSessions)
		if bucket == nil {
			return fmt.Errorf("sessions bucket not found")
		}

		if bucket.Get([]byte(token)) == nil {
			return storage.ErrSessionNotFound
		}

		if err := bucket.Delete([]byte(token)); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}

		return nil
	})
}

// DeleteUserSessions deletes all sessions for a user
func (s *Storage) DeleteUserSessions(ctx context.Context, userID string) (int, error) {
	deleted := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSessions)
		if bucket == nil {
			return fmt.Errorf("sessions bucket not found")
		}

		// Собираем ключи заранее: удалять во время обхода курсором нельзя
		var keys [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			var session models.Session
			if err := json.Unmarshal(v, &session); err != nil {
				return fmt.Errorf("failed to unmarshal session: %w", err)
			}
			if session.UserID == userID {
				keys = append(keys, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range keys {
			if err := bucket.Delete(k); err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
			deleted++
		}

		return nil
	})

	if err != nil {
		return 0, err
	}

	return deleted, nil
}

// DeleteExpiredSessions removes all sessions expired before now
func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	deleted := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSessions)
		if bucket == nil {
			return fmt.Errorf("sessions bucket not found")
		}

		var keys [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			var session models.Session
			if err := json.Unmarshal(v, &session); err != nil {
				return fmt.Errorf("failed to unmarshal session: %w", err)
			}
			if session.Expired(now) {
				keys = append(keys, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range keys {
			if err := bucket.Delete(k); err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
			deleted++
		}

		return nil
	})

	if err != nil {
		return 0, err
	}

	return deleted, nil
}
