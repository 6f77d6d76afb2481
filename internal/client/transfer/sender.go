package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/client/client"
	"github.com/dmitrijs2005/gophsend/internal/client/models"
	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/cryptox"
	"github.com/dmitrijs2005/gophsend/internal/logging"
)

// PasswordApplier protects an uploaded file with a password.
type PasswordApplier interface {
	ApplyPassword(ctx context.Context, f *models.OwnedFile, password string) error
}

// Sender uploads archives. One Sender runs one upload at a time.
type Sender struct {
	Events
	lifecycle

	client    client.Client
	passwords PasswordApplier
	now       func() time.Time
	logger    logging.Logger
}

func NewSender(c client.Client, passwords PasswordApplier, logger logging.Logger) *Sender {
	return &Sender{client: c, passwords: passwords, now: time.Now, logger: logger}
}

// Upload encrypts archive while streaming it to the service and returns the
// record of the new file. A cancelled upload returns common.ErrCancelled.
func (s *Sender) Upload(ctx context.Context, archive *models.Archive, bearerToken string) (*models.OwnedFile, error) {
	if err := archive.Validate(); err != nil {
		return nil, err
	}
	ctx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	s.Events.reset()

	f, err := s.upload(ctx, archive, bearerToken)
	if err != nil {
		state, phase, err := outcome(ctx, err)
		s.end(state)
		if common.IsReportable(err) {
			s.logger.Error(ctx, "upload failed", "error", err)
		}
		s.fail(err, phase)
		return nil, err
	}

	s.end(StateCompleted)
	s.complete(f)
	return f, nil
}

func (s *Sender) upload(ctx context.Context, archive *models.Archive, bearerToken string) (*models.OwnedFile, error) {
	kc, err := cryptox.NewKeychain()
	if err != nil {
		return nil, err
	}
	defer kc.Wipe()

	meta, err := kc.EncryptMetadata(models.FileMetadata{
		Name:     archive.Name(),
		Size:     archive.Size(),
		Type:     archive.Type(),
		Manifest: archive.Manifest(),
	})
	if err != nil {
		return nil, fmt.Errorf("encrypt metadata: %w", err)
	}
	ownerToken := common.B64Encode(common.GenerateRandByteArray(common.OwnerTokenSize))

	s.phase(PhaseEncrypting)

	src := archive.Open()
	defer src.Close()

	ciphertext, err := kc.EncryptStream(src)
	if err != nil {
		return nil, err
	}
	total := cryptox.EncryptedSize(archive.Size())
	body := newProgressReader(ctx, ciphertext, func(n int64) { s.progress(n, total) })

	started := s.now()
	resp, err := s.client.Upload(ctx, client.UploadRequest{
		Body:          body,
		Size:          total,
		Metadata:      meta,
		AuthKey:       kc.AuthKey(),
		OwnerToken:    ownerToken,
		TimeLimit:     archive.TimeLimit,
		DownloadLimit: archive.DownloadLimit,
		BearerToken:   bearerToken,
	})
	if err != nil {
		return nil, err
	}

	f := &models.OwnedFile{
		ID:            resp.ID,
		URL:           resp.URL,
		Name:          archive.Name(),
		Size:          archive.Size(),
		Type:          archive.Type(),
		Manifest:      archive.Manifest(),
		SecretKey:     kc.SecretKey(),
		OwnerToken:    ownerToken,
		CreatedAt:     started,
		ExpiresAt:     started.Add(archive.TimeLimit),
		DownloadLimit: archive.DownloadLimit,
		UpdatedAt:     started,
	}
	s.logger.Info(ctx, "upload complete", "id", f.ID, "size", total)

	if archive.Password != "" {
		if err := s.passwords.ApplyPassword(ctx, f, archive.Password); err != nil {
			s.discard(ctx, f)
			return nil, err
		}
	}
	return f, nil
}

// discard removes an upload that could not be finished.
func (s *Sender) discard(ctx context.Context, f *models.OwnedFile) {
	if err := s.client.Delete(context.WithoutCancel(ctx), f.ID, f.OwnerToken); err != nil {
		s.logger.Warn(ctx, "failed to remove unfinished upload", "id", f.ID, "error", err)
	}
}
