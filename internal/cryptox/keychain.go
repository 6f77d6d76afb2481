package cryptox

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/gophsend/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	secretKeyLength = 16
	authKeyLength   = 64

	// PasswordIterations is the PBKDF2 work factor for password auth keys.
	PasswordIterations = 100_000
)

var (
	infoMetadata       = []byte("metadata")
	infoAuthentication = []byte("authentication")
)

// Keychain holds the per-file secret and the keys derived from it.
//
// The secret key travels only in the URL fragment of a share link. The auth
// key is handed to the file service at upload time and later proves
// possession of the secret (or of the password) by signing server nonces.
type Keychain struct {
	secretKey []byte
	metaKey   []byte
	authKey   []byte
}

// NewKeychain creates a keychain with a fresh random secret.
func NewKeychain() (*Keychain, error) {
	secret := make([]byte, secretKeyLength)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return newKeychain(secret)
}

// KeychainFromSecret restores a keychain from the base64url secret of a
// share link.
func KeychainFromSecret(secretB64 string) (*Keychain, error) {
	secret, err := common.B64Decode(secretB64)
	if err != nil {
		return nil, fmt.Errorf("invalid secret key: %w", err)
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("invalid secret key: empty")
	}
	return newKeychain(secret)
}

func newKeychain(secret []byte) (*Keychain, error) {
	metaKey, err := hkdfBytes(secret, nil, infoMetadata, keyLength)
	if err != nil {
		return nil, err
	}
	authKey, err := hkdfBytes(secret, nil, infoAuthentication, authKeyLength)
	if err != nil {
		return nil, err
	}
	return &Keychain{secretKey: secret, metaKey: metaKey, authKey: authKey}, nil
}

// SecretKey returns the base64url secret used in share links.
func (k *Keychain) SecretKey() string {
	return common.B64Encode(k.secretKey)
}

// AuthKey returns the base64url auth key registered with the file service.
func (k *Keychain) AuthKey() string {
	return common.B64Encode(k.authKey)
}

// SetPassword replaces the auth key with one derived from password. The
// share URL (without fragment) is the salt, so the same password on the
// same file always yields the same key.
func (k *Keychain) SetPassword(password, shareURL string) {
	common.WipeByteArray(k.authKey)
	k.authKey = PasswordAuthKey(password, shareURL)
}

// PasswordAuthKey derives the auth key for a password protected file.
func PasswordAuthKey(password, shareURL string) []byte {
	return pbkdf2.Key([]byte(password), []byte(shareURL), PasswordIterations, authKeyLength, sha256.New)
}

// AuthHeader signs a server nonce for the Authorization header.
func (k *Keychain) AuthHeader(nonce string) (string, error) {
	sig, err := signNonce(k.authKey, nonce)
	if err != nil {
		return "", err
	}
	return common.AuthScheme + " " + common.B64Encode(sig), nil
}

// VerifyAuthHeader checks a header produced by AuthHeader against the
// stored auth key and the nonce the server issued.
func VerifyAuthHeader(authKey []byte, nonce, header string) bool {
	scheme, value, ok := strings.Cut(header, " ")
	if !ok || scheme != common.AuthScheme {
		return false
	}
	got, err := common.B64Decode(value)
	if err != nil {
		return false
	}
	want, err := signNonce(authKey, nonce)
	if err != nil {
		return false
	}
	return hmac.Equal(got, want)
}

func signNonce(authKey []byte, nonce string) ([]byte, error) {
	raw, err := common.B64Decode(nonce)
	if err != nil {
		return nil, fmt.Errorf("invalid nonce: %w", err)
	}
	mac := hmac.New(sha256.New, authKey)
	mac.Write(raw)
	return mac.Sum(nil), nil
}

// ParseAuthenticate extracts the nonce from a WWW-Authenticate header.
func ParseAuthenticate(header string) (string, bool) {
	scheme, nonce, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || scheme != common.AuthScheme || nonce == "" {
		return "", false
	}
	return nonce, true
}

// EncryptMetadata seals v under the metadata key.
func (k *Keychain) EncryptMetadata(v any) ([]byte, error) {
	return Seal(v, k.metaKey)
}

// DecryptMetadata opens metadata sealed by EncryptMetadata into v.
func (k *Keychain) DecryptMetadata(data []byte, v any) error {
	if err := Open(data, k.metaKey, v); err != nil {
		return fmt.Errorf("%w: metadata: %v", common.ErrAuthentication, err)
	}
	return nil
}

// EncryptStream encrypts file content under the secret key.
func (k *Keychain) EncryptStream(src io.Reader) (io.Reader, error) {
	return EncryptStream(src, k.secretKey)
}

// DecryptStream decrypts file content under the secret key.
func (k *Keychain) DecryptStream(src io.Reader) io.Reader {
	return DecryptStream(src, k.secretKey)
}

// Wipe zeroes all key material.
func (k *Keychain) Wipe() {
	common.WipeByteArray(k.secretKey)
	common.WipeByteArray(k.metaKey)
	common.WipeByteArray(k.authKey)
}
