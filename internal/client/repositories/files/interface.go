package files

import (
	"context"

	"github.com/dmitrijs2005/gophsend/internal/client/models"
)

// Repository stores OwnedFile records.
type Repository interface {
	// Upsert inserts f or replaces the record with the same id.
	Upsert(ctx context.Context, f *models.OwnedFile) error

	// Get returns the record with id, or common.ErrNotFound.
	Get(ctx context.Context, id string) (*models.OwnedFile, error)

	// List returns all records, oldest first.
	List(ctx context.Context) ([]*models.OwnedFile, error)

	// Delete removes the record with id, or returns common.ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Clear removes every record.
	Clear(ctx context.Context) error
}
