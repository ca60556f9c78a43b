package storage

import (
	"context"

	"github.com/medkeep/medkeep/internal/models"
)

// MedicineStorage defines interface for medicine record persistence.
// All listing operations are scoped to a single owner.
type MedicineStorage interface {
	// CreateMedicine inserts a new record if the owner currently holds
	// fewer than maxPerOwner records. The check and the insert are a single
	// atomic statement, so concurrent adds cannot exceed the cap.
	// Returns ErrCapExceeded when the owner is at the limit.
	CreateMedicine(ctx context.Context, medicine *models.Medicine, maxPerOwner int) error

	// GetMedicine retrieves a record by ID regardless of owner
	// Returns ErrMedicineNotFound if record doesn't exist
	GetMedicine(ctx context.Context, id string) (*models.Medicine, error)

	// GetOwnedMedicine retrieves a record by ID scoped to an owner
	// Returns ErrMedicineNotFound if record doesn't exist or belongs to
	// another owner
	GetOwnedMedicine(ctx context.Context, id, ownerID string) (*models.Medicine, error)

	// ListMedicines returns the owner's records ordered by creation time
	// descending (newest first), sliced by limit/offset.
	// Returns empty slice when offset is past the end
	ListMedicines(ctx context.Context, ownerID string, limit, offset int) ([]*models.Medicine, error)

	// CountMedicines returns the total number of the owner's records
	CountMedicines(ctx context.Context, ownerID string) (int, error)

	// SearchMedicines returns the owner's records whose name contains the
	// query as a case-insensitive substring. Empty query matches all.
	// The result is unpaginated, ordered newest first
	SearchMedicines(ctx context.Context, ownerID, query string) ([]*models.Medicine, error)

	// UpdateMedicine replaces name and stock of a record. Owner and
	// creation time are immutable. ownerID empty skips the ownership check.
	// Returns ErrMedicineNotFound on zero matched rows
	UpdateMedicine(ctx context.Context, id, ownerID, name string, stock int) error

	// DeleteMedicine deletes a record by ID. ownerID empty skips the
	// ownership check. Deleting an absent record is not an error
	DeleteMedicine(ctx context.Context, id, ownerID string) error
}
