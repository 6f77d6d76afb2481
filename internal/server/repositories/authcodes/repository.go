// Package authcodes stores the one-time authorization codes of the
// development identity provider.
package authcodes

import (
	"context"

	"github.com/dmitrijs2005/gophsend/internal/server/models"
)

// Repository defines operations for issuing and redeeming authorization codes.
type Repository interface {
	// Create stores a new code.
	Create(ctx context.Context, c *models.AuthCode) error

	// Consume removes the code and returns it. A code can be consumed once;
	// later calls return common.ErrNotFound.
	Consume(ctx context.Context, code string) (*models.AuthCode, error)
}
