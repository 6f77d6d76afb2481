// Package blobs stores uploaded ciphertext: on the local filesystem or in
// an S3-compatible object store.
package blobs

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

type Store interface {
	// Put stores size bytes read from r under key. A negative size means
	// unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	// Get opens the blob and returns its length, or common.ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, int64, error)
	// Delete removes the blob; a missing blob is not an error.
	Delete(ctx context.Context, key string) error
}

// NewStorageKey returns a fresh key that spreads blobs over one prefix per day.
func NewStorageKey(now time.Time) string {
	return fmt.Sprintf("files/%d/%d/%d/%v", now.Year(), now.Month(), now.Day(), uuid.New())
}
