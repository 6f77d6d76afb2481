package filelists

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/server/models"
)

type MemoryRepository struct {
	mu    sync.Mutex
	lists map[[2]string]models.FileList
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{lists: make(map[[2]string]models.FileList)}
}

func (r *MemoryRepository) Get(_ context.Context, userID, kid string) (*models.FileList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lists[[2]string{userID, kid}]
	if !ok {
		return nil, common.ErrNotFound
	}
	l.Data = append([]byte(nil), l.Data...)
	return &l, nil
}

func (r *MemoryRepository) Put(_ context.Context, l *models.FileList) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *l
	c.Data = append([]byte(nil), l.Data...)
	r.lists[[2]string{l.UserID, l.Kid}] = c
	return nil
}
