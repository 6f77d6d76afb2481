package services

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/dmitrijs2005/gophsend/internal/client/models"
	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/cryptox"
	"github.com/dmitrijs2005/gophsend/internal/logging"
)

// Local records of the sealed session.
const (
	KeySessionSalt     = "salt"
	KeySessionVerifier = "verifier"
	KeySession         = "session"
)

const sessionSaltSize = 32

// SessionStore is the part of the local store the session vault needs.
type SessionStore interface {
	KeyValueStore
	SetMany(ctx context.Context, values map[string][]byte) error
	ClearLocalFiles(ctx context.Context) error
}

// AuthService keeps a signed-in session across restarts. The session is
// sealed with a key derived from a local passphrase; only the salt and a
// verifier of that key are stored next to it.
type AuthService struct {
	store  SessionStore
	logger logging.Logger
}

func NewAuthService(store SessionStore, logger logging.Logger) *AuthService {
	return &AuthService{store: store, logger: logger}
}

// SealSession stores session encrypted under passphrase, replacing any
// previous copy.
func (a *AuthService) SealSession(ctx context.Context, session *models.Session, passphrase []byte) error {
	if !session.LoggedIn() {
		return fmt.Errorf("%w: session is not signed in", common.ErrValidation)
	}

	salt := common.GenerateRandByteArray(sessionSaltSize)
	masterKey := cryptox.DeriveMasterKey(passphrase, salt)
	defer common.WipeByteArray(masterKey)

	sealed, err := cryptox.Seal(session.Record(), masterKey)
	if err != nil {
		return fmt.Errorf("seal session: %w", err)
	}

	return a.store.SetMany(ctx, map[string][]byte{
		KeySessionSalt:     salt,
		KeySessionVerifier: cryptox.MakeVerifier(masterKey),
		KeySession:         sealed,
	})
}

// UnlockSession restores the sealed session. It returns
// common.ErrLocalDataNotAvailable when nothing is stored and
// common.ErrUnauthorized for a wrong passphrase.
func (a *AuthService) UnlockSession(ctx context.Context, passphrase []byte) (*models.Session, error) {
	salt, err := a.store.Get(ctx, KeySessionSalt)
	if err != nil {
		return nil, err
	}
	verifier, err := a.store.Get(ctx, KeySessionVerifier)
	if err != nil {
		return nil, err
	}
	sealed, err := a.store.Get(ctx, KeySession)
	if err != nil {
		return nil, err
	}
	if len(salt) == 0 || len(verifier) == 0 || len(sealed) == 0 {
		return nil, common.ErrLocalDataNotAvailable
	}

	masterKey := cryptox.DeriveMasterKey(passphrase, salt)
	defer common.WipeByteArray(masterKey)

	if subtle.ConstantTimeCompare(verifier, cryptox.MakeVerifier(masterKey)) == 0 {
		return nil, common.ErrUnauthorized
	}

	var rec models.SessionRecord
	if err := cryptox.Open(sealed, masterKey, &rec); err != nil {
		return nil, fmt.Errorf("%w: sealed session: %v", common.ErrAuthentication, err)
	}
	defer common.WipeByteArray(rec.FileListKey)

	return models.SessionFromRecord(rec), nil
}

// HasSealedSession reports whether a sealed session is stored.
func (a *AuthService) HasSealedSession(ctx context.Context) (bool, error) {
	sealed, err := a.store.Get(ctx, KeySession)
	if err != nil {
		return false, err
	}
	return len(sealed) > 0, nil
}

// ForgetSession signs session out and drops the sealed copy. Owned files
// stay in the local list.
func (a *AuthService) ForgetSession(ctx context.Context, session *models.Session) error {
	if session != nil {
		session.Clear()
	}
	return a.store.Delete(ctx, KeySessionSalt, KeySessionVerifier, KeySession)
}

// Logout is ForgetSession followed by clearing the local file list.
func (a *AuthService) Logout(ctx context.Context, session *models.Session) error {
	if err := a.ForgetSession(ctx, session); err != nil {
		return err
	}
	if err := a.store.ClearLocalFiles(ctx); err != nil {
		return fmt.Errorf("clear local files: %w", err)
	}
	a.logger.Info(ctx, "logged out")
	return nil
}
