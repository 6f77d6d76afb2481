package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/client/client"
	"github.com/dmitrijs2005/gophsend/internal/client/models"
	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/cryptox"
	"github.com/dmitrijs2005/gophsend/internal/logging"
)

// FileStore is the part of the local store the owner operations touch.
type FileStore interface {
	GetFile(ctx context.Context, id string) (*models.OwnedFile, error)
	WriteFile(ctx context.Context, f *models.OwnedFile) error
	RemoveFile(ctx context.Context, id string) error
}

// FileService runs owner operations on uploaded files and keeps the local
// records in step.
type FileService struct {
	client client.Client
	store  FileStore
	now    func() time.Time
	logger logging.Logger
}

func NewFileService(c client.Client, store FileStore, logger logging.Logger) *FileService {
	return &FileService{client: c, store: store, now: time.Now, logger: logger}
}

// Delete removes the file from the service and from the local list. A file
// the service no longer knows is still removed locally.
func (s *FileService) Delete(ctx context.Context, id string) error {
	f, err := s.store.GetFile(ctx, id)
	if err != nil {
		return err
	}
	if err := s.client.Delete(ctx, f.ID, f.OwnerToken); err != nil && !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return s.store.RemoveFile(ctx, id)
}

// ChangeLimit sets a new download limit.
func (s *FileService) ChangeLimit(ctx context.Context, id string, limit int) error {
	if limit < 1 {
		return fmt.Errorf("%w: download limit must be positive", common.ErrValidation)
	}
	f, err := s.store.GetFile(ctx, id)
	if err != nil {
		return err
	}
	if err := s.client.SetDownloadLimit(ctx, f.ID, f.OwnerToken, limit); err != nil {
		return fmt.Errorf("change limit of %s: %w", id, err)
	}
	f.DownloadLimit = limit
	f.UpdatedAt = s.now()
	return s.store.WriteFile(ctx, f)
}

// ApplyPassword replaces the file's auth key with one derived from password
// and marks f accordingly. It does not persist f.
func (s *FileService) ApplyPassword(ctx context.Context, f *models.OwnedFile, password string) error {
	if password == "" {
		return fmt.Errorf("%w: empty password", common.ErrValidation)
	}
	authKey := cryptox.PasswordAuthKey(password, f.ShareURL())
	defer common.WipeByteArray(authKey)

	if err := s.client.SetPassword(ctx, f.ID, f.OwnerToken, common.B64Encode(authKey)); err != nil {
		return fmt.Errorf("set password of %s: %w", f.ID, err)
	}
	f.HasPassword = true
	f.UpdatedAt = s.now()
	return nil
}

// SetPassword protects a stored file with password. Setting the same
// password again yields the same key.
func (s *FileService) SetPassword(ctx context.Context, id, password string) error {
	f, err := s.store.GetFile(ctx, id)
	if err != nil {
		return err
	}
	if err := s.ApplyPassword(ctx, f, password); err != nil {
		return err
	}
	return s.store.WriteFile(ctx, f)
}

// Refresh copies the service's download counters into f and reports whether
// anything changed. A new download limit counts as an update of f, so it
// wins over file-list copies written before. It returns common.ErrNotFound
// once the file is gone.
func (s *FileService) Refresh(ctx context.Context, f *models.OwnedFile) (bool, error) {
	status, err := s.client.Info(ctx, f.ID, f.OwnerToken)
	if err != nil {
		return false, err
	}
	changed := false
	if status.DownloadCount != f.DownloadCount {
		f.DownloadCount = status.DownloadCount
		changed = true
	}
	if status.DownloadLimit != f.DownloadLimit {
		f.DownloadLimit = status.DownloadLimit
		f.UpdatedAt = s.now()
		changed = true
	}
	return changed, nil
}

// Info refreshes a stored file. A file the service reports gone is removed
// from the local list and common.ErrNotFound is returned.
func (s *FileService) Info(ctx context.Context, id string) (*models.OwnedFile, error) {
	f, err := s.store.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}
	changed, err := s.Refresh(ctx, f)
	switch {
	case errors.Is(err, common.ErrNotFound):
		if rmErr := s.store.RemoveFile(ctx, id); rmErr != nil {
			s.logger.Warn(ctx, "failed to remove vanished file", "id", id, "error", rmErr)
		}
		return nil, err
	case err != nil:
		return nil, err
	case changed:
		if err := s.store.WriteFile(ctx, f); err != nil {
			return nil, err
		}
	}
	return f, nil
}
