// Package inventory содержит транспортно-независимую логику работы
// с личным списком лекарств: лимит на владельца, пагинация и поиск.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medkeep/medkeep/internal/models"
	"github.com/medkeep/medkeep/internal/server/storage"
)

const (
	// DefaultMaxPerOwner максимум записей на одного владельца
	DefaultMaxPerOwner = 5
	// DefaultPageSize размер страницы списка
	DefaultPageSize = 3
)

// Validation errors
var (
	ErrEmptyName     = errors.New("medicine name cannot be empty")
	ErrNegativeStock = errors.New("stock cannot be negative")
)

// Page результат постраничного списка
type Page struct {
	Items       []*models.Medicine
	CurrentPage int
	TotalPages  int
}

// Service реализует операции над инвентарем поверх MedicineStorage
type Service struct {
	storage     storage.MedicineStorage
	maxPerOwner int
	pageSize    int
	ownerChecks bool
}

// NewService создает сервис инвентаря.
// ownerChecks=false воспроизводит историческое поведение, когда
// get/update/delete не проверяли владельца записи
func NewService(medicineStorage storage.MedicineStorage, maxPerOwner, pageSize int, ownerChecks bool) *Service {
	if maxPerOwner <= 0 {
		maxPerOwner = DefaultMaxPerOwner
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Service{
		storage:     medicineStorage,
		maxPerOwner: maxPerOwner,
		pageSize:    pageSize,
		ownerChecks: ownerChecks,
	}
}

// Add создает запись после проверки входа и лимита владельца.
// Возвращает storage.ErrCapExceeded, когда владелец уже на лимите
func (s *Service) Add(ctx context.Context, ownerID, name string, stock int) (*models.Medicine, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if stock < 0 {
		return nil, ErrNegativeStock
	}

	medicine := &models.Medicine{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      name,
		Stock:     stock,
		CreatedAt: time.Now(),
	}

	if err := s.storage.CreateMedicine(ctx, medicine, s.maxPerOwner); err != nil {
		if errors.Is(err, storage.ErrCapExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to add medicine: %w", err)
	}

	return medicine, nil
}

// List возвращает страницу записей владельца, новые первыми.
// page < 1 трактуется как первая страница; страница за пределами
// дает пустой список, а не ошибку
func (s *Service) List(ctx context.Context, ownerID string, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}

	count, err := s.storage.CountMedicines(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count medicines: %w", err)
	}

	offset := (page - 1) * s.pageSize
	items, err := s.storage.ListMedicines(ctx, ownerID, s.pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list medicines: %w", err)
	}

	return &Page{
		Items:       items,
		CurrentPage: page,
		TotalPages:  (count + s.pageSize - 1) / s.pageSize,
	}, nil
}

// Search возвращает все записи владельца, имя которых содержит query
// без учета регистра. Пустой query возвращает весь список
func (s *Service) Search(ctx context.Context, ownerID, query string) ([]*models.Medicine, error) {
	items, err := s.storage.SearchMedicines(ctx, ownerID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search medicines: %w", err)
	}
	return items, nil
}

// Get возвращает запись для формы редактирования
func (s *Service) Get(ctx context.Context, id, ownerID string) (*models.Medicine, error) {
	if s.ownerChecks {
		return s.storage.GetOwnedMedicine(ctx, id, ownerID)
	}
	return s.storage.GetMedicine(ctx, id)
}

// Update заменяет имя и остаток записи. Владелец и время создания
// не изменяются
func (s *Service) Update(ctx context.Context, id, ownerID, name string, stock int) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if stock < 0 {
		return ErrNegativeStock
	}

	return s.storage.UpdateMedicine(ctx, id, s.scopeOwner(ownerID), name, stock)
}

// Delete удаляет запись. Удаление отсутствующей записи не ошибка
func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	return s.storage.DeleteMedicine(ctx, id, s.scopeOwner(ownerID))
}

// PageSize возвращает настроенный размер страницы
func (s *Service) PageSize() int {
	return s.pageSize
}

// MaxPerOwner возвращает настроенный лимит записей на владельца
func (s *Service) MaxPerOwner() int {
	return s.maxPerOwner
}

// scopeOwner возвращает ownerID для фильтрации или пустую строку,
// когда проверки владельца отключены
func (s *Service) scopeOwner(ownerID string) string {
	if s.ownerChecks {
		return ownerID
	}
	return ""
}
