package files

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/server/models"
)

// MemoryRepository keeps records in a map. Records are copied in and out.
type MemoryRepository struct {
	mu    sync.Mutex
	files map[string]*models.File
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{files: make(map[string]*models.File)}
}

func clone(f *models.File) *models.File {
	c := *f
	c.AuthKey = append([]byte(nil), f.AuthKey...)
	c.Metadata = append([]byte(nil), f.Metadata...)
	return &c
}

func (r *MemoryRepository) Create(_ context.Context, f *models.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[f.ID]; ok {
		return fmt.Errorf("file %s already exists", f.ID)
	}
	r.files[f.ID] = clone(f)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return clone(f), nil
}

func (r *MemoryRepository) update(id string, fn func(f *models.File) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return common.ErrNotFound
	}
	return fn(f)
}

func (r *MemoryRepository) RotateNonce(_ context.Context, id, old, next string) error {
	err := r.update(id, func(f *models.File) error {
		if f.Nonce != old {
			return common.ErrVersionConflict
		}
		f.Nonce = next
		return nil
	})
	if errors.Is(err, common.ErrNotFound) {
		return common.ErrVersionConflict
	}
	return err
}

func (r *MemoryRepository) SetAuthKey(_ context.Context, id string, authKey []byte) error {
	return r.update(id, func(f *models.File) error {
		f.AuthKey = append([]byte(nil), authKey...)
		f.HasPassword = true
		return nil
	})
}

func (r *MemoryRepository) SetDownloadLimit(_ context.Context, id string, limit int) error {
	return r.update(id, func(f *models.File) error {
		f.DownloadLimit = limit
		return nil
	})
}

func (r *MemoryRepository) IncrementDownloads(_ context.Context, id string) (int, error) {
	var n int
	err := r.update(id, func(f *models.File) error {
		if f.DownloadCount >= f.DownloadLimit {
			return common.ErrNotFound
		}
		f.DownloadCount++
		n = f.DownloadCount
		return nil
	})
	return n, err
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.files, id)
	return nil
}

func (r *MemoryRepository) ListExpired(_ context.Context, now time.Time) ([]*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.File
	for _, f := range r.files {
		if f.Expired(now) {
			out = append(out, clone(f))
		}
	}
	return out, nil
}
