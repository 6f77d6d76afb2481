// Package services contains server-side business logic. This file implements
// FileService: uploads, the signed metadata and download requests, and the
// owner operations on a file.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/cryptox"
	"github.com/dmitrijs2005/gophsend/internal/logging"
	"github.com/dmitrijs2005/gophsend/internal/server/blobs"
	"github.com/dmitrijs2005/gophsend/internal/server/config"
	"github.com/dmitrijs2005/gophsend/internal/server/models"
	"github.com/dmitrijs2005/gophsend/internal/server/repositories/repomanager"
)

const (
	fileIDSize = 8
	nonceSize  = 16
)

// ChallengeError rejects a signed request. Nonce is the challenge the client
// has to sign next.
type ChallengeError struct {
	Nonce string
}

func (e *ChallengeError) Error() string {
	return "signature rejected"
}

func (e *ChallengeError) Unwrap() error {
	return common.ErrUnauthorized
}

// UploadInput carries an upload request. Size is the ciphertext length, or
// negative when the client streams without announcing it.
type UploadInput struct {
	Body          io.Reader
	Size          int64
	Metadata      []byte
	AuthKey       string
	OwnerToken    string
	TimeLimit     time.Duration
	DownloadLimit int
	UserID        string
}

// Download is an open ciphertext stream. Nonce is the rotated challenge.
type Download struct {
	Body  io.ReadCloser
	Size  int64
	Nonce string
}

// FileStatus is what the owner learns about a file.
type FileStatus struct {
	DownloadCount int
	DownloadLimit int
	TTL           time.Duration
}

// FileService owns file records and their blobs.
type FileService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	blobs        blobs.Store
	maxFileSize  int64
	maxExpire    time.Duration
	maxDownloads int
	now          func() time.Time
	logger       logging.Logger
}

// NewFileService constructs a FileService using repositories, a blob store
// and the upload limits of cfg.
func NewFileService(db *sql.DB, m repomanager.RepositoryManager, store blobs.Store, cfg *config.Config, logger logging.Logger) *FileService {
	return &FileService{
		db:           db,
		repomanager:  m,
		blobs:        store,
		maxFileSize:  cfg.MaxFileSize,
		maxExpire:    cfg.MaxExpire,
		maxDownloads: cfg.MaxDownloads,
		now:          time.Now,
		logger:       logger,
	}
}

func newNonce() string {
	return common.B64Encode(common.GenerateRandByteArray(nonceSize))
}

func (s *FileService) validateUpload(in UploadInput) error {
	switch {
	case len(in.Metadata) == 0:
		return fmt.Errorf("%w: missing metadata", common.ErrValidation)
	case in.OwnerToken == "":
		return fmt.Errorf("%w: missing owner token", common.ErrValidation)
	case in.Size > s.maxFileSize:
		return fmt.Errorf("%w: file exceeds %d bytes", common.ErrValidation, s.maxFileSize)
	case in.TimeLimit <= 0 || in.TimeLimit > s.maxExpire:
		return fmt.Errorf("%w: time limit must be within (0, %v]", common.ErrValidation, s.maxExpire)
	case in.DownloadLimit < 1 || in.DownloadLimit > s.maxDownloads:
		return fmt.Errorf("%w: download limit must be within [1, %d]", common.ErrValidation, s.maxDownloads)
	}
	return nil
}

// Upload stores the ciphertext and creates the file record. The blob is
// removed again when the record cannot be created.
func (s *FileService) Upload(ctx context.Context, in UploadInput) (*models.File, error) {
	if err := s.validateUpload(in); err != nil {
		return nil, err
	}
	authKey, err := common.B64Decode(in.AuthKey)
	if err != nil || len(authKey) == 0 {
		return nil, fmt.Errorf("%w: invalid auth key", common.ErrValidation)
	}

	id, err := common.MakeRandHexString(fileIDSize)
	if err != nil {
		return nil, err
	}
	now := s.now()
	f := &models.File{
		ID:            id,
		OwnerToken:    in.OwnerToken,
		AuthKey:       authKey,
		Nonce:         newNonce(),
		Metadata:      in.Metadata,
		StorageKey:    blobs.NewStorageKey(now),
		UserID:        in.UserID,
		DownloadLimit: in.DownloadLimit,
		CreatedAt:     now,
		ExpiresAt:     now.Add(in.TimeLimit),
	}

	counted := &countingReader{r: io.LimitReader(in.Body, s.maxFileSize+1)}
	if err := s.blobs.Put(ctx, f.StorageKey, counted, in.Size); err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}
	if counted.n > s.maxFileSize {
		s.dropBlob(ctx, f.StorageKey)
		return nil, fmt.Errorf("%w: file exceeds %d bytes", common.ErrValidation, s.maxFileSize)
	}
	f.Size = counted.n

	if err := s.repomanager.Files(s.db).Create(ctx, f); err != nil {
		s.dropBlob(ctx, f.StorageKey)
		return nil, fmt.Errorf("create file record: %w", err)
	}

	s.logger.Info(ctx, "file uploaded", "id", f.ID, "size", f.Size, "user", f.UserID)
	return f, nil
}

// live returns the record with id; expired files are reported as missing.
func (s *FileService) live(ctx context.Context, id string) (*models.File, error) {
	f, err := s.repomanager.Files(s.db).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Expired(s.now()) {
		return nil, common.ErrNotFound
	}
	return f, nil
}

// Exists reports whether the file needs a password and returns the current
// challenge.
func (s *FileService) Exists(ctx context.Context, id string) (requiresPassword bool, nonce string, err error) {
	f, err := s.live(ctx, id)
	if err != nil {
		return false, "", err
	}
	return f.HasPassword, f.Nonce, nil
}

// authorize checks a signed request and rotates the nonce. A signature over
// a stale nonce fails with the current one so the client can retry.
func (s *FileService) authorize(ctx context.Context, id, header string) (*models.File, string, error) {
	f, err := s.live(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !cryptox.VerifyAuthHeader(f.AuthKey, f.Nonce, header) {
		return nil, "", &ChallengeError{Nonce: f.Nonce}
	}

	next := newNonce()
	err = s.repomanager.Files(s.db).RotateNonce(ctx, id, f.Nonce, next)
	if errors.Is(err, common.ErrVersionConflict) {
		current, getErr := s.live(ctx, id)
		if getErr != nil {
			return nil, "", getErr
		}
		return nil, "", &ChallengeError{Nonce: current.Nonce}
	}
	if err != nil {
		return nil, "", fmt.Errorf("rotate nonce: %w", err)
	}
	f.Nonce = next
	return f, next, nil
}

// Metadata returns the encrypted metadata of a file to a signed request.
func (s *FileService) Metadata(ctx context.Context, id, authHeader string) (*models.File, string, error) {
	return s.authorize(ctx, id, authHeader)
}

// Download counts a download and opens the ciphertext. The file is removed
// once the stream of its last allowed download is closed.
func (s *FileService) Download(ctx context.Context, id, authHeader string) (*Download, error) {
	f, nonce, err := s.authorize(ctx, id, authHeader)
	if err != nil {
		return nil, err
	}

	count, err := s.repomanager.Files(s.db).IncrementDownloads(ctx, id)
	if err != nil {
		return nil, err
	}

	body, size, err := s.blobs.Get(ctx, f.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}

	s.logger.Info(ctx, "download started", "id", id, "count", count, "limit", f.DownloadLimit)
	if count < f.DownloadLimit {
		return &Download{Body: body, Size: size, Nonce: nonce}, nil
	}
	return &Download{
		Body:  &finalDownload{ReadCloser: body, done: func() { s.remove(context.WithoutCancel(ctx), f) }},
		Size:  size,
		Nonce: nonce,
	}, nil
}

// owned returns the record with id when ownerToken matches. A wrong token
// reads as common.ErrUnauthorized.
func (s *FileService) owned(ctx context.Context, id, ownerToken string) (*models.File, error) {
	f, err := s.live(ctx, id)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(f.OwnerToken), []byte(ownerToken)) != 1 {
		return nil, common.ErrUnauthorized
	}
	return f, nil
}

func (s *FileService) Info(ctx context.Context, id, ownerToken string) (*FileStatus, error) {
	f, err := s.owned(ctx, id, ownerToken)
	if err != nil {
		return nil, err
	}
	return &FileStatus{
		DownloadCount: f.DownloadCount,
		DownloadLimit: f.DownloadLimit,
		TTL:           f.TTL(s.now()),
	}, nil
}

// SetDownloadLimit changes how many downloads the file allows in total.
func (s *FileService) SetDownloadLimit(ctx context.Context, id, ownerToken string, limit int) error {
	if limit < 1 || limit > s.maxDownloads {
		return fmt.Errorf("%w: download limit must be within [1, %d]", common.ErrValidation, s.maxDownloads)
	}
	f, err := s.owned(ctx, id, ownerToken)
	if err != nil {
		return err
	}
	if limit <= f.DownloadCount {
		return fmt.Errorf("%w: file was already downloaded %d times", common.ErrValidation, f.DownloadCount)
	}
	return s.repomanager.Files(s.db).SetDownloadLimit(ctx, id, limit)
}

// SetPassword replaces the auth key with one derived from a password.
func (s *FileService) SetPassword(ctx context.Context, id, ownerToken, authKey string) error {
	key, err := common.B64Decode(authKey)
	if err != nil || len(key) == 0 {
		return fmt.Errorf("%w: invalid auth key", common.ErrValidation)
	}
	if _, err := s.owned(ctx, id, ownerToken); err != nil {
		return err
	}
	if err := s.repomanager.Files(s.db).SetAuthKey(ctx, id, key); err != nil {
		return err
	}
	s.logger.Info(ctx, "password set", "id", id)
	return nil
}

func (s *FileService) Delete(ctx context.Context, id, ownerToken string) error {
	f, err := s.owned(ctx, id, ownerToken)
	if err != nil {
		return err
	}
	if err := s.repomanager.Files(s.db).Delete(ctx, id); err != nil {
		return err
	}
	s.dropBlob(ctx, f.StorageKey)
	s.logger.Info(ctx, "file deleted", "id", id)
	return nil
}

// Cleanup removes every expired file and returns how many were removed.
func (s *FileService) Cleanup(ctx context.Context) (int, error) {
	expired, err := s.repomanager.Files(s.db).ListExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list expired files: %w", err)
	}
	removed := 0
	for _, f := range expired {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if s.remove(ctx, f) {
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info(ctx, "expired files removed", "count", removed)
	}
	return removed, nil
}

func (s *FileService) remove(ctx context.Context, f *models.File) bool {
	err := s.repomanager.Files(s.db).Delete(ctx, f.ID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		s.logger.Warn(ctx, "failed to delete file record", "id", f.ID, "error", err)
		return false
	}
	s.dropBlob(ctx, f.StorageKey)
	return err == nil
}

func (s *FileService) dropBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn(ctx, "failed to delete blob", "key", key, "error", err)
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// finalDownload runs done once, after the body is closed.
type finalDownload struct {
	io.ReadCloser
	done   func()
	closed bool
}

func (d *finalDownload) Close() error {
	err := d.ReadCloser.Close()
	if !d.closed {
		d.closed = true
		d.done()
	}
	return err
}
