package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/logging"
	"github.com/dmitrijs2005/gophsend/internal/server/models"
	"github.com/dmitrijs2005/gophsend/internal/server/repositories/repomanager"
)

// MaxFileListSize caps a stored file list.
const MaxFileListSize = 8 << 20

// FileListService keeps one encrypted file list per user and key id. The
// lists are opaque to the server.
type FileListService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
	logger      logging.Logger
}

func NewFileListService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *FileListService {
	return &FileListService{db: db, repomanager: m, now: time.Now, logger: logger}
}

// Get returns the stored list or common.ErrNotFound.
func (s *FileListService) Get(ctx context.Context, userID, kid string) ([]byte, error) {
	if kid == "" {
		return nil, fmt.Errorf("%w: missing key id", common.ErrValidation)
	}
	l, err := s.repomanager.FileLists(s.db).Get(ctx, userID, kid)
	if err != nil {
		return nil, err
	}
	return l.Data, nil
}

// Put replaces the stored list.
func (s *FileListService) Put(ctx context.Context, userID, kid string, data []byte) error {
	switch {
	case kid == "":
		return fmt.Errorf("%w: missing key id", common.ErrValidation)
	case len(data) == 0:
		return fmt.Errorf("%w: empty file list", common.ErrValidation)
	case len(data) > MaxFileListSize:
		return fmt.Errorf("%w: file list exceeds %d bytes", common.ErrValidation, MaxFileListSize)
	}

	err := s.repomanager.FileLists(s.db).Put(ctx, &models.FileList{
		UserID:    userID,
		Kid:       kid,
		Data:      data,
		UpdatedAt: s.now(),
	})
	if err != nil {
		return fmt.Errorf("store file list: %w", err)
	}
	s.logger.Debug(ctx, "file list stored", "user", userID, "bytes", len(data))
	return nil
}
