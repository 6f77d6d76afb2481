// Package services contains the application services of the GophSend client.
// This file holds the key manager: the OAuth login with PKCE and the
// unwrapping of the account's file-list key.
package services

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/client/models"
	"github.com/dmitrijs2005/gophsend/internal/client/oauth"
	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/cryptox"
	"github.com/dmitrijs2005/gophsend/internal/logging"
	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

// Temporary login state kept in the local store between StartLogin and
// FinishLogin.
const (
	KeyPKCEVerifier           = "pkceVerifier"
	KeyOAuthState             = "oauthState"
	KeyScopedBundlePrivateKey = "scopedBundlePrivateKey"
)

const pkceVerifierSize = 64

// KeyValueStore is the small persisted key/value space the key manager uses.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

// OAuthProvider is the identity provider used for login.
type OAuthProvider interface {
	AuthorizationURL(r oauth.AuthorizationRequest) (string, error)
	ExchangeCode(ctx context.Context, code, verifier string) (*oauth.Token, error)
	UserInfo(ctx context.Context, accessToken string) (*models.Profile, error)
}

// scopedKey is one entry of the decrypted key bundle.
type scopedKey struct {
	Kid   string `json:"kid"`
	K     string `json:"k"`
	Kty   string `json:"kty"`
	Scope string `json:"scope"`
}

// KeyManager drives the login flow. It keeps no state of its own: the
// verifier, the state and the bundle private key live in the store until
// FinishLogin removes them.
type KeyManager struct {
	store    KeyValueStore
	provider OAuthProvider
	keyScope string
	now      func() time.Time
	logger   logging.Logger
}

func NewKeyManager(store KeyValueStore, provider OAuthProvider, keyScope string, logger logging.Logger) *KeyManager {
	return &KeyManager{
		store:    store,
		provider: provider,
		keyScope: keyScope,
		now:      time.Now,
		logger:   logger,
	}
}

// PreparePKCE stores a new code verifier and returns its S256 challenge.
func (m *KeyManager) PreparePKCE(ctx context.Context) (string, error) {
	verifier := common.B64Encode(common.GenerateRandByteArray(pkceVerifierSize))
	if err := m.store.Set(ctx, KeyPKCEVerifier, []byte(verifier)); err != nil {
		return "", fmt.Errorf("store pkce verifier: %w", err)
	}
	return pkceChallenge(verifier), nil
}

func pkceChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return common.B64Encode(sum[:])
}

// PrepareScopedBundleKey creates the ephemeral key the provider encrypts the
// key bundle to. The private half is stored; the public JWK is returned
// base64url encoded.
func (m *KeyManager) PrepareScopedBundleKey(ctx context.Context) (string, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate bundle key: %w", err)
	}

	jwk := jose.JSONWebKey{Key: priv, Algorithm: string(jose.ECDH_ES), Use: "enc"}
	thumb, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("bundle key thumbprint: %w", err)
	}
	jwk.KeyID = common.B64Encode(thumb)

	private, err := jwk.MarshalJSON()
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, KeyScopedBundlePrivateKey, private); err != nil {
		return "", fmt.Errorf("store bundle key: %w", err)
	}

	public, err := jwk.Public().MarshalJSON()
	if err != nil {
		return "", err
	}
	return common.B64Encode(public), nil
}

// GetFileListKey decrypts the provider's key bundle with the stored bundle
// key, which is removed afterwards, and derives the file-list key from the
// scoped key of the configured scope.
func (m *KeyManager) GetFileListKey(ctx context.Context, keysJWE string) ([]byte, error) {
	stored, err := m.store.Get(ctx, KeyScopedBundlePrivateKey)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := m.store.Delete(context.WithoutCancel(ctx), KeyScopedBundlePrivateKey); err != nil {
			m.logger.Warn(ctx, "failed to remove bundle key", "error", err)
		}
	}()
	if len(stored) == 0 {
		return nil, fmt.Errorf("%w: no bundle key", common.ErrLocalDataNotAvailable)
	}

	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON(stored); err != nil {
		return nil, fmt.Errorf("decode bundle key: %w", err)
	}

	obj, err := jose.ParseEncrypted(keysJWE,
		[]jose.KeyAlgorithm{jose.ECDH_ES},
		[]jose.ContentEncryption{jose.A256GCM})
	if err != nil {
		return nil, fmt.Errorf("%w: parse key bundle: %v", common.ErrInvalidToken, err)
	}
	plaintext, err := obj.Decrypt(jwk.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: key bundle: %v", common.ErrAuthentication, err)
	}
	defer common.WipeByteArray(plaintext)

	var bundle map[string]scopedKey
	if err := json.Unmarshal(plaintext, &bundle); err != nil {
		return nil, fmt.Errorf("%w: key bundle: %v", common.ErrInvalidToken, err)
	}
	sk, ok := bundle[m.keyScope]
	if !ok || sk.K == "" {
		return nil, fmt.Errorf("%w: key bundle has no key for %q", common.ErrInvalidToken, m.keyScope)
	}
	raw, err := common.B64Decode(sk.K)
	if err != nil {
		return nil, fmt.Errorf("%w: scoped key encoding: %v", common.ErrInvalidToken, err)
	}
	defer common.WipeByteArray(raw)

	return cryptox.DeriveFileListKey(raw)
}

// StartLogin prepares the login state and returns the URL the user has to
// open.
func (m *KeyManager) StartLogin(ctx context.Context) (string, error) {
	state, err := common.MakeRandHexString(16)
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, KeyOAuthState, []byte(state)); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	jwk, err := m.PrepareScopedBundleKey(ctx)
	if err != nil {
		return "", err
	}
	challenge, err := m.PreparePKCE(ctx)
	if err != nil {
		return "", err
	}
	return m.provider.AuthorizationURL(oauth.AuthorizationRequest{
		State:         state,
		CodeChallenge: challenge,
		KeysJWK:       jwk,
	})
}

// FinishLogin completes the flow started by StartLogin. The state is checked
// before anything is sent to the provider. The temporary login state is
// removed whatever the outcome.
func (m *KeyManager) FinishLogin(ctx context.Context, code, state string) (*models.Session, error) {
	defer m.clearLoginState(ctx)

	stored, err := m.store.Get(ctx, KeyOAuthState)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 || subtle.ConstantTimeCompare(stored, []byte(state)) != 1 {
		return nil, common.ErrStateMismatch
	}

	verifier, err := m.store.Get(ctx, KeyPKCEVerifier)
	if err != nil {
		return nil, err
	}
	if len(verifier) == 0 {
		return nil, fmt.Errorf("%w: no pkce verifier", common.ErrLocalDataNotAvailable)
	}

	tok, err := m.provider.ExchangeCode(ctx, code, string(verifier))
	if err != nil {
		return nil, err
	}
	profile, err := m.provider.UserInfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}
	key, err := m.GetFileListKey(ctx, tok.KeysJWE)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	m.logger.Info(ctx, "login complete", "uid", profile.UID)
	return models.NewSession(tok.AccessToken, key, *profile, m.tokenExpiry(tok)), nil
}

func (m *KeyManager) clearLoginState(ctx context.Context) {
	err := m.store.Delete(context.WithoutCancel(ctx), KeyPKCEVerifier, KeyOAuthState, KeyScopedBundlePrivateKey)
	if err != nil {
		m.logger.Warn(ctx, "failed to clear login state", "error", err)
	}
}

// tokenExpiry prefers expires_in and falls back to the exp claim of a JWT
// access token. The signature is not checked here; the server does that.
func (m *KeyManager) tokenExpiry(tok *oauth.Token) time.Time {
	if tok.ExpiresIn > 0 {
		return m.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok.AccessToken, claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
