// Package filelists stores each user's encrypted file list.
package filelists

import (
	"context"

	"github.com/dmitrijs2005/gophsend/internal/server/models"
)

type Repository interface {
	// Get returns the list of userID encrypted under kid, or
	// common.ErrNotFound.
	Get(ctx context.Context, userID, kid string) (*models.FileList, error)
	// Put replaces the list.
	Put(ctx context.Context, l *models.FileList) error
}
