package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophsend/internal/client/client"
	"github.com/dmitrijs2005/gophsend/internal/client/models"
	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/cryptox"
	"github.com/dmitrijs2005/gophsend/internal/logging"
)

// DownloadOptions selects where plaintext goes. With Stream set and a Dst
// writer the plaintext is written to Dst as it is decrypted; otherwise it is
// buffered and returned in DownloadResult.Data.
type DownloadOptions struct {
	Stream bool
	Dst    io.Writer
}

type DownloadResult struct {
	Info    *models.FileInfo
	Written int64
	Data    []byte
}

// Receiver fetches one shared file.
type Receiver struct {
	Events
	lifecycle

	client   client.Client
	ref      *models.FileReference
	keychain *cryptox.Keychain
	nonce    string
	info     *models.FileInfo
	logger   logging.Logger
}

// NewReceiver prepares a receiver for ref. A password in ref is applied to
// the keychain right away.
func NewReceiver(c client.Client, ref *models.FileReference, logger logging.Logger) (*Receiver, error) {
	kc, err := cryptox.KeychainFromSecret(ref.SecretKey)
	if err != nil {
		return nil, err
	}
	if ref.Password != "" {
		kc.SetPassword(ref.Password, ref.ShareURL())
	}
	return &Receiver{client: c, ref: ref, keychain: kc, logger: logger}, nil
}

// GetMetadata learns what the file is. It returns common.ErrUnauthorized when
// a password is required but missing or wrong, and common.ErrNotFound when
// the file does not exist or has expired.
func (r *Receiver) GetMetadata(ctx context.Context) (*models.FileInfo, error) {
	exists, err := r.client.Exists(ctx, r.ref.ID)
	if err != nil {
		return nil, err
	}
	r.nonce = exists.Nonce
	r.ref.RequiresPassword = exists.RequiresPassword
	if exists.RequiresPassword && r.ref.Password == "" {
		return nil, fmt.Errorf("%w: password required", common.ErrUnauthorized)
	}

	var resp *client.MetadataResponse
	err = r.signed(ctx, func(auth string) (string, error) {
		var err error
		resp, err = r.client.Metadata(ctx, r.ref.ID, auth)
		if err != nil {
			return "", err
		}
		return resp.Nonce, nil
	})
	if err != nil {
		return nil, err
	}

	var meta models.FileMetadata
	if err := r.keychain.DecryptMetadata(resp.Metadata, &meta); err != nil {
		return nil, err
	}
	r.info = &models.FileInfo{
		FileMetadata:     meta,
		TTL:              resp.TTL,
		RequiresPassword: exists.RequiresPassword,
		EncryptedSize:    resp.Size,
	}
	return r.info, nil
}

// signed runs call with an auth header for the current nonce. A 401 that
// brings a new nonce is retried once with it.
func (r *Receiver) signed(ctx context.Context, call func(auth string) (string, error)) error {
	for attempt := 0; ; attempt++ {
		auth, err := r.keychain.AuthHeader(r.nonce)
		if err != nil {
			return err
		}
		next, err := call(auth)

		var challenge *client.ChallengeError
		if errors.As(err, &challenge) {
			if attempt == 0 && challenge.Nonce != "" && challenge.Nonce != r.nonce {
				r.nonce = challenge.Nonce
				continue
			}
			if challenge.Nonce != "" {
				r.nonce = challenge.Nonce
			}
			return err
		}
		if err != nil {
			return err
		}
		if next != "" {
			r.nonce = next
		}
		return nil
	}
}

// Download fetches and decrypts the file, calling GetMetadata first when
// needed. A cancelled download returns common.ErrCancelled.
func (r *Receiver) Download(ctx context.Context, opts DownloadOptions) (*DownloadResult, error) {
	ctx, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	r.Events.reset()

	res, err := r.download(ctx, opts)
	if err != nil {
		state, phase, err := outcome(ctx, err)
		r.end(state)
		if common.IsReportable(err) {
			r.logger.Error(ctx, "download failed", "id", r.ref.ID, "error", err)
		}
		r.fail(err, phase)
		return nil, err
	}

	r.end(StateCompleted)
	r.complete(res)
	return res, nil
}

func (r *Receiver) download(ctx context.Context, opts DownloadOptions) (*DownloadResult, error) {
	if r.info == nil {
		if _, err := r.GetMetadata(ctx); err != nil {
			return nil, err
		}
	}

	r.phase(PhaseDownloading)

	var resp *client.DownloadResponse
	err := r.signed(ctx, func(auth string) (string, error) {
		var err error
		resp, err = r.client.Download(ctx, r.ref.ID, auth)
		if err != nil {
			return "", err
		}
		return resp.Nonce, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	total := r.info.EncryptedSize
	if total <= 0 {
		total = resp.Size
	}
	counted := newProgressReader(ctx, resp.Body, func(n int64) { r.progress(n, total) })

	r.phase(PhaseDecrypting)
	plaintext := r.keychain.DecryptStream(counted)

	res := &DownloadResult{Info: r.info}
	if opts.Stream && opts.Dst != nil {
		n, err := io.Copy(opts.Dst, plaintext)
		if err != nil {
			return nil, err
		}
		res.Written = n
	} else {
		var buf bytes.Buffer
		n, err := io.Copy(&buf, plaintext)
		if err != nil {
			return nil, err
		}
		res.Written = n
		res.Data = buf.Bytes()
	}

	r.logger.Info(ctx, "download complete", "id", r.ref.ID, "size", res.Written)
	return res, nil
}

// Reset returns a finished receiver to the ready state. Fetched metadata is
// kept so Download can be retried.
func (r *Receiver) Reset() {
	r.lifecycle.mu.Lock()
	defer r.lifecycle.mu.Unlock()
	if r.state != StateActive {
		r.state = StateIdle
	}
}

// Info returns the metadata fetched so far, or nil.
func (r *Receiver) Info() *models.FileInfo {
	return r.info
}

// Close wipes the receiver's keys.
func (r *Receiver) Close() {
	r.keychain.Wipe()
}
