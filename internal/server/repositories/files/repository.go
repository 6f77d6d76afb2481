// Package files stores the records of uploaded files: postgres for
// deployments and an in-memory map for development and tests.
package files

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/server/models"
)

type Repository interface {
	// Create inserts a new record; the id must be unused.
	Create(ctx context.Context, f *models.File) error
	// Get returns the record with id or common.ErrNotFound.
	Get(ctx context.Context, id string) (*models.File, error)
	// RotateNonce replaces the nonce only while it still equals old and
	// returns common.ErrVersionConflict otherwise.
	RotateNonce(ctx context.Context, id, old, next string) error
	// SetAuthKey installs a password-derived auth key.
	SetAuthKey(ctx context.Context, id string, authKey []byte) error
	SetDownloadLimit(ctx context.Context, id string, limit int) error
	// IncrementDownloads counts one download and returns the new count. It
	// returns common.ErrNotFound when the limit is already reached.
	IncrementDownloads(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
	// ListExpired returns records out of time or downloads at now.
	ListExpired(ctx context.Context, now time.Time) ([]*models.File, error)
}
