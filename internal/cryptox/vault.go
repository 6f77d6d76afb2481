package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"

	"golang.org/x/crypto/argon2"
)

const gcmNonceSize = 12

// MakeVerifier returns a value that proves knowledge of masterKey without
// revealing it.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// DeriveMasterKey stretches a local passphrase with argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// EncryptEntry serializes entry to JSON and encrypts it using AES-GCM.
//
// The key must be 16, 24, or 32 bytes long. A fresh random 12-byte nonce is
// generated for every call and returned next to the ciphertext.
func EncryptEntry(entry any, key []byte) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(entry)
	if err != nil {
		return nil, nil, err
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, gcmNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	return aesgcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// DecryptEntry reverses EncryptEntry and unmarshals the JSON into v.
func DecryptEntry(ciphertext, nonce, key []byte, v any) error {
	aesgcm, err := newGCM(key)
	if err != nil {
		return err
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return err
	}

	return json.Unmarshal(plaintext, v)
}

// Seal is EncryptEntry with the nonce prepended to the ciphertext, for
// values stored or sent as a single blob.
func Seal(entry any, key []byte) ([]byte, error) {
	ciphertext, nonce, err := EncryptEntry(entry, key)
	if err != nil {
		return nil, err
	}
	return append(nonce, ciphertext...), nil
}

// Open reverses Seal.
func Open(sealed, key []byte, v any) error {
	if len(sealed) < gcmNonceSize {
		return errors.New("sealed value too short")
	}
	return DecryptEntry(sealed[gcmNonceSize:], sealed[:gcmNonceSize], key, v)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
