package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/medkeep/medkeep/internal/models"
	"github.com/medkeep/medkeep/internal/server/storage"
)

// CreateMedicine inserts a new record if the owner holds fewer than
// maxPerOwner records. Проверка лимита и вставка выполняются одним
// оператором, поэтому параллельные добавления не могут превысить лимит
func (s *Storage) CreateMedicine(ctx context.Context, medicine *models.Medicine, maxPerOwner int) error {
	query := `
		INSERT INTO medicines (id, owner_id, name, stock, created_at)
		SELECT ?, ?, ?, ?, ?
		WHERE (SELECT COUNT(*) FROM medicines WHERE owner_id = ?) < ?
	`

	result, err := s.db.ExecContext(ctx, query,
		medicine.ID,
		medicine.OwnerID,
		medicine.Name,
		medicine.Stock,
		medicine.CreatedAt,
		medicine.OwnerID,
		maxPerOwner,
	)

	if err != nil {
		return fmt.Errorf("failed to insert medicine: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	// Нулевая вставка означает, что владелец уже на лимите
	if rows == 0 {
		return storage.ErrCapExceeded
	}

	return nil
}

// GetMedicine retrieves a record by ID regardless of owner
func (s *Storage) GetMedicine(ctx context.Context, id string) (*models.Medicine, error) {
	query := `
		SELECT id, owner_id, name, stock, created_at
		FROM medicines
		WHERE id = ?
	`

	return s.scanMedicine(s.db.QueryRowContext(ctx, query, id))
}

// GetOwnedMedicine retrieves a record by ID scoped to an owner
func (s *Storage) GetOwnedMedicine(ctx context.Context, id, ownerID string) (*models.Medicine, error) {
	query := `
		SELECT id, owner_id, name, stock, created_at
		FROM medicines
		WHERE id = ? AND owner_id = ?
	`

	return s.scanMedicine(s.db.QueryRowContext(ctx, query, id, ownerID))
}

// ListMedicines returns the owner's records newest first, sliced by limit/offset
func (s *Storage) ListMedicines(ctx context.Context, ownerID string, limit, offset int) ([]*models.Medicine, error) {
	query := `
		SELECT id, owner_id, name, stock, created_at
		FROM medicines
		WHERE owner_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query medicines: %w", err)
	}

	return s.collectMedicines(rows)
}

// CountMedicines returns the total number of the owner's records
func (s *Storage) CountMedicines(ctx context.Context, ownerID string) (int, error) {
	query := `SELECT COUNT(*) FROM medicines WHERE owner_id = ?`

	var count int
	if err := s.db.QueryRowContext(ctx, query, ownerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count medicines: %w", err)
	}

	return count, nil
}

// SearchMedicines returns the owner's records whose name contains the query
// as a case-insensitive substring. Empty query matches all records
func (s *Storage) SearchMedicines(ctx context.Context, ownerID, query string) ([]*models.Medicine, error) {
	// Экранируем спецсимволы LIKE, чтобы искать подстроку буквально
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	sqlQuery := `
		SELECT id, owner_id, name, stock, created_at
		FROM medicines
		WHERE owner_id = ? AND lower(name) LIKE ? ESCAPE '\'
		ORDER BY created_at DESC, id DESC
	`

	rows, err := s.db.QueryContext(ctx, sqlQuery, ownerID, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search medicines: %w", err)
	}

	return s.collectMedicines(rows)
}

// UpdateMedicine replaces name and stock of a record.
// ownerID empty skips the ownership check
func (s *Storage) UpdateMedicine(ctx context.Context, id, ownerID, name string, stock int) error {
	query := `UPDATE medicines SET name = ?, stock = ? WHERE id = ?`
	args := []any{name, stock, id}

	if ownerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, ownerID)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update medicine: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrMedicineNotFound
	}

	return nil
}

// DeleteMedicine deletes a record by ID. Deleting an absent record is not
// an error. ownerID empty skips the ownership check
func (s *Storage) DeleteMedicine(ctx context.Context, id, ownerID string) error {
	query := `DELETE FROM medicines WHERE id = ?`
	args := []any{id}

	if ownerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, ownerID)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete medicine: %w", err)
	}

	return nil
}

// scanMedicine читает одну строку medicines в модель
func (s *Storage) scanMedicine(row *sql.Row) (*models.Medicine, error) {
	medicine := &models.Medicine{}

	err := row.Scan(
		&medicine.ID,
		&medicine.OwnerID,
		&medicine.Name,
		&medicine.Stock,
		&medicine.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrMedicineNotFound
		}
		return nil, fmt.Errorf("failed to get medicine: %w", err)
	}

	return medicine, nil
}

// collectMedicines читает все строки результата в слайс моделей
func (s *Storage) collectMedicines(rows *sql.Rows) ([]*models.Medicine, error) {
	defer func() {
		_ = rows.Close()
	}()

	medicines := []*models.Medicine{}

	for rows.Next() {
		medicine := &models.Medicine{}
		if err := rows.Scan(
			&medicine.ID,
			&medicine.OwnerID,
			&medicine.Name,
			&medicine.Stock,
			&medicine.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan medicine: %w", err)
		}
		medicines = append(medicines, medicine)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return medicines, nil
}

// escapeLike экранирует символы шаблона LIKE (% _ \)
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
