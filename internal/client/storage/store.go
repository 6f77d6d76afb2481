// Package storage is the client's persisted state: small key/value records,
// the files the user owns and the tombstones of removed files. It also
// implements the merge of the local file list with the remote copy.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/client/models"
	"github.com/dmitrijs2005/gophsend/internal/client/repositories/files"
	"github.com/dmitrijs2005/gophsend/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophsend/internal/client/repositories/tombstones"
	"github.com/dmitrijs2005/gophsend/internal/dbx"
	"github.com/dmitrijs2005/gophsend/internal/logging"
)

// LocalStore serialises all writes through one mutex. Reads go straight to
// the database.
type LocalStore struct {
	mu     sync.Mutex
	db     *sql.DB
	meta   metadata.Repository
	files  files.Repository
	tombs  tombstones.Repository
	now    func() time.Time
	logger logging.Logger
}

func NewLocalStore(db *sql.DB, logger logging.Logger) *LocalStore {
	return &LocalStore{
		db:     db,
		meta:   metadata.NewSQLiteRepository(db),
		files:  files.NewSQLiteRepository(db),
		tombs:  tombstones.NewSQLiteRepository(db),
		now:    time.Now,
		logger: logger,
	}
}

// Open initialises the database at dsn and returns a store over it.
func Open(ctx context.Context, dsn string, logger logging.Logger) (*LocalStore, error) {
	db, err := InitDatabase(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	return NewLocalStore(db, logger), nil
}

func (s *LocalStore) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key, or nil when there is none.
func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.meta.Get(ctx, key)
}

func (s *LocalStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta.Set(ctx, key, value)
}

// Delete removes keys; missing keys are ignored.
func (s *LocalStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta.Delete(ctx, keys...)
}

func (s *LocalStore) Files(ctx context.Context) ([]*models.OwnedFile, error) {
	return s.files.List(ctx)
}

// GetFile returns the owned file with id, or common.ErrNotFound.
func (s *LocalStore) GetFile(ctx context.Context, id string) (*models.OwnedFile, error) {
	return s.files.Get(ctx, id)
}

// AddFile stores a newly uploaded file.
func (s *LocalStore) AddFile(ctx context.Context, f *models.OwnedFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := tombstones.NewSQLiteRepository(tx).Delete(ctx, f.ID); err != nil {
			return err
		}
		return files.NewSQLiteRepository(tx).Upsert(ctx, f)
	})
}

// WriteFile persists changes to an owned file.
func (s *LocalStore) WriteFile(ctx context.Context, f *models.OwnedFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files.Upsert(ctx, f)
}

// RemoveFile deletes the file and leaves a tombstone so the next merge
// removes it from the remote list too.
func (s *LocalStore) RemoveFile(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(ctx, id)
}

func (s *LocalStore) removeLocked(ctx context.Context, id string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := files.NewSQLiteRepository(tx).Delete(ctx, id); err != nil {
			return err
		}
		return tombstones.NewSQLiteRepository(tx).Add(ctx, id, s.now())
	})
}

// ClearLocalFiles forgets every owned file and tombstone.
func (s *LocalStore) ClearLocalFiles(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := files.NewSQLiteRepository(tx).Clear(ctx); err != nil {
			return err
		}
		return tombstones.NewSQLiteRepository(tx).Clear(ctx)
	})
}

// SetMany stores several values atomically.
func (s *LocalStore) SetMany(ctx context.Context, values map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		for k, v := range values {
			if err := repo.Set(ctx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}
