package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophsend/internal/client/client"
	"github.com/dmitrijs2005/gophsend/internal/client/models"
	"github.com/dmitrijs2005/gophsend/internal/client/storage"
	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/cryptox"
	"github.com/dmitrijs2005/gophsend/internal/logging"
)

// FileListStore is the part of the local store the synchronisation uses.
type FileListStore interface {
	Files(ctx context.Context) ([]*models.OwnedFile, error)
	Merge(ctx context.Context, remote []*models.OwnedFile, refresher storage.Refresher) (models.SyncResult, error)
	Prune(ctx context.Context, refresher storage.Refresher) (models.SyncResult, error)
}

// SessionForgetter signs a session out.
type SessionForgetter interface {
	ForgetSession(ctx context.Context, session *models.Session) error
}

// FileListSync keeps the local list of owned files in step with the
// encrypted copy stored under the user's account. Calls are serialised.
type FileListSync struct {
	mu        sync.Mutex
	client    client.Client
	store     FileListStore
	refresher storage.Refresher
	sessions  SessionForgetter
	logger    logging.Logger
}

func NewFileListSync(c client.Client, store FileListStore, refresher storage.Refresher, sessions SessionForgetter, logger logging.Logger) *FileListSync {
	return &FileListSync{client: c, store: store, refresher: refresher, sessions: sessions, logger: logger}
}

// Sync reconciles the lists. Without a signed-in session only local
// housekeeping runs. A 401 from the service signs the session out. Other
// remote failures are logged and do not fail the sync; the returned error is
// reserved for local failures and cancellation.
func (s *FileListSync) Sync(ctx context.Context, session *models.Session) (models.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !session.LoggedIn() {
		return s.store.Prune(ctx, s.refresher)
	}

	key := session.FileListKey()
	defer common.WipeByteArray(key)
	kid := cryptox.FileListID(key)
	bearer := session.BearerToken()

	remote, err := s.fetch(ctx, bearer, kid, key)
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		s.logger.Warn(ctx, "file list rejected the session, signing out")
		if err := s.sessions.ForgetSession(ctx, session); err != nil {
			return models.SyncResult{}, fmt.Errorf("forget session: %w", err)
		}
		return models.SyncResult{Incoming: true}, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return models.SyncResult{}, err
	case err != nil:
		s.logger.Warn(ctx, "file list unavailable, merging without it", "error", err)
		remote = nil
	}

	result, err := s.store.Merge(ctx, remote, s.refresher)
	if err != nil {
		return result, err
	}

	if result.Outgoing {
		if err := s.push(ctx, bearer, kid, key); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			s.logger.Warn(ctx, "failed to upload file list", "error", err)
		}
	}
	return result, nil
}

// fetch returns the decrypted remote list. An account without a list yields
// an empty, non-nil slice.
func (s *FileListSync) fetch(ctx context.Context, bearer, kid string, key []byte) ([]*models.OwnedFile, error) {
	blob, err := s.client.GetFileList(ctx, bearer, kid)
	if errors.Is(err, common.ErrNotFound) {
		return []*models.OwnedFile{}, nil
	}
	if err != nil {
		return nil, err
	}

	list := []*models.OwnedFile{}
	if err := cryptox.DecryptFileList(blob, key, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.OwnedFile{}
	}
	return list, nil
}

func (s *FileListSync) push(ctx context.Context, bearer, kid string, key []byte) error {
	files, err := s.store.Files(ctx)
	if err != nil {
		return err
	}
	if files == nil {
		files = []*models.OwnedFile{}
	}
	blob, err := cryptox.EncryptFileList(files, key)
	if err != nil {
		return err
	}
	return s.client.PutFileList(ctx, bearer, kid, blob)
}
