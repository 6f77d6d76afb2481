package cryptox

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophsend/internal/common"
)

const fileListKeyLength = 16

var infoFileList = []byte("fileList")

// DeriveFileListKey turns the account's scoped key into the key protecting
// the remote file list.
func DeriveFileListKey(scopedKey []byte) ([]byte, error) {
	if len(scopedKey) == 0 {
		return nil, fmt.Errorf("empty scoped key")
	}
	return hkdfBytes(scopedKey, nil, infoFileList, fileListKeyLength)
}

// FileListID names the remote file list without revealing the key.
func FileListID(key []byte) string {
	sum := sha256.Sum256(key)
	return common.B64Encode(sum[:])[:16]
}

// EncryptFileList encrypts the JSON form of v with the file-list key, using
// the same record stream as file contents.
func EncryptFileList(v any, key []byte) ([]byte, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal file list: %w", err)
	}
	defer common.WipeByteArray(plain)

	enc, err := EncryptStream(bytes.NewReader(plain), key)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(enc)
}

// DecryptFileList decrypts an encrypted file list into v. Every failure,
// including a list that decrypts to something other than JSON, is reported
// as common.ErrAuthentication.
func DecryptFileList(data, key []byte, v any) error {
	plain, err := io.ReadAll(DecryptStream(bytes.NewReader(data), key))
	if err != nil {
		if errors.Is(err, common.ErrAuthentication) {
			return fmt.Errorf("file list: %w", err)
		}
		return fmt.Errorf("%w: file list: %v", common.ErrAuthentication, err)
	}
	defer common.WipeByteArray(plain)

	if err := json.Unmarshal(plain, v); err != nil {
		return fmt.Errorf("%w: file list: %v", common.ErrAuthentication, err)
	}
	return nil
}
