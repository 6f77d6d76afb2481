package authcodes

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/server/models"
)

type MemoryRepository struct {
	mu    sync.Mutex
	codes map[string]models.AuthCode
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{codes: make(map[string]models.AuthCode)}
}

func (r *MemoryRepository) Create(_ context.Context, c *models.AuthCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[c.Code] = *c
	return nil
}

func (r *MemoryRepository) Consume(_ context.Context, code string) (*models.AuthCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[code]
	if !ok {
		return nil, common.ErrNotFound
	}
	delete(r.codes, code)
	return &c, nil
}
