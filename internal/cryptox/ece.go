package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophsend/internal/common"
	"golang.org/x/crypto/hkdf"
)

// RecordSize is the ciphertext size of every record except possibly the last.
const RecordSize = 64 * 1024

const (
	keyLength      = 16
	tagLength      = 16
	nonceLength    = 12
	saltLength     = 16
	headerLength   = saltLength + 4 + 1
	recordOverhead = tagLength + 1

	// A record always carries the tag and a delimiter; the record size in
	// the header must leave room for at least one byte of data.
	minRecordLength = recordOverhead
	minRecordSize   = recordOverhead + 1
	maxRecordSize   = 1 << 24

	delimiterRecord = 0x01
	delimiterFinal  = 0x02
)

var (
	infoContentKey = []byte("Content-Encoding: aes128gcm\x00")
	infoNonce      = []byte("Content-Encoding: nonce\x00")
)

// EncryptedSize returns the length of the stream EncryptStream produces for
// size plaintext bytes.
func EncryptedSize(size int64) int64 {
	return encryptedSize(size, RecordSize)
}

func encryptedSize(size int64, rs int) int64 {
	data := int64(rs - recordOverhead)
	records := (size + data - 1) / data
	if records == 0 {
		records = 1
	}
	return headerLength + size + records*recordOverhead
}

type recordKeys struct {
	aead      cipher.AEAD
	nonceBase []byte
}

func deriveRecordKeys(ikm, salt []byte) (*recordKeys, error) {
	key, err := hkdfBytes(ikm, salt, infoContentKey, keyLength)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	nonceBase, err := hkdfBytes(ikm, salt, infoNonce, nonceLength)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &recordKeys{aead: aead, nonceBase: nonceBase}, nil
}

// nonceFor XORs the record sequence number into the low 8 bytes of base.
func nonceFor(base []byte, seq uint64) []byte {
	nonce := make([]byte, len(base))
	copy(nonce, base)

	var s [8]byte
	binary.BigEndian.PutUint64(s[:], seq)
	off := len(nonce) - len(s)
	for i := range s {
		nonce[off+i] ^= s[i]
	}
	return nonce
}

func hkdfBytes(ikm, salt, info []byte, n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, info), out); err != nil {
		return nil, err
	}
	return out, nil
}

// EncryptStream returns a reader producing the encrypted form of src.
// Nothing is read from src until the returned reader is read.
func EncryptStream(src io.Reader, key []byte) (io.Reader, error) {
	return newEncryptReader(src, key, RecordSize)
}

func newEncryptReader(src io.Reader, key []byte, rs int) (*encryptReader, error) {
	if len(key) == 0 {
		return nil, errors.New("encryption key is empty")
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	keys, err := deriveRecordKeys(key, salt)
	if err != nil {
		return nil, err
	}

	header := make([]byte, headerLength)
	copy(header, salt)
	binary.BigEndian.PutUint32(header[saltLength:], uint32(rs))
	header[headerLength-1] = 0

	return &encryptReader{src: src, keys: keys, rs: rs, out: header}, nil
}

type encryptReader struct {
	src  io.Reader
	keys *recordKeys
	rs   int
	seq  uint64

	out     []byte
	pending []byte
	started bool
	eof     bool
	done    bool
	err     error
}

func (r *encryptReader) Read(p []byte) (int, error) {
	for len(r.out) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		if r.done {
			return 0, io.EOF
		}
		r.err = r.sealNext()
	}
	n := copy(p, r.out)
	r.out = r.out[n:]
	return n, nil
}

// sealNext seals the pending chunk. One chunk of read-ahead tells whether
// the pending chunk is the last one.
func (r *encryptReader) sealNext() error {
	chunk := r.rs - recordOverhead

	if !r.started {
		r.started = true
		data, eof, err := readChunk(r.src, chunk)
		if err != nil {
			return err
		}
		r.pending, r.eof = data, eof
	}

	var following []byte
	if !r.eof {
		data, eof, err := readChunk(r.src, chunk)
		if err != nil {
			return err
		}
		following, r.eof = data, eof
	}

	final := r.eof && len(following) == 0
	delimiter := byte(delimiterRecord)
	if final {
		delimiter = delimiterFinal
	}

	plaintext := append(r.pending, delimiter)
	r.out = r.keys.aead.Seal(nil, nonceFor(r.keys.nonceBase, r.seq), plaintext, nil)
	common.WipeByteArray(plaintext)
	r.seq++

	r.pending = following
	r.done = final
	return nil
}

func readChunk(src io.Reader, size int) ([]byte, bool, error) {
	buf := make([]byte, size, size+1)
	n, err := io.ReadFull(src, buf)
	switch {
	case err == nil:
		return buf, false, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return buf[:n], true, nil
	default:
		return nil, false, err
	}
}

// DecryptStream returns a reader producing the plaintext of an encrypted
// stream. Any integrity failure is reported as common.ErrAuthentication,
// including truncation, reordering, trailing data and a wrong key.
// Read errors of src are returned as they are.
func DecryptStream(src io.Reader, key []byte) io.Reader {
	return &decryptReader{src: src, key: key}
}

type decryptReader struct {
	src  io.Reader
	key  []byte
	keys *recordKeys
	rs   int
	seq  uint64

	out  []byte
	done bool
	err  error
}

func (r *decryptReader) Read(p []byte) (int, error) {
	for len(r.out) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		r.err = r.openNext()
	}
	n := copy(p, r.out)
	r.out = r.out[n:]
	return n, nil
}

func authError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrAuthentication, fmt.Sprintf(format, args...))
}

func (r *decryptReader) readHeader() error {
	if len(r.key) == 0 {
		return errors.New("decryption key is empty")
	}

	header := make([]byte, headerLength)
	if _, err := io.ReadFull(r.src, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return authError("truncated header")
		}
		return err
	}

	rs := binary.BigEndian.Uint32(header[saltLength:])
	if rs < minRecordSize || rs > maxRecordSize {
		return authError("invalid record size %d", rs)
	}

	if idlen := int(header[headerLength-1]); idlen > 0 {
		if _, err := io.ReadFull(r.src, make([]byte, idlen)); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return authError("truncated key id")
			}
			return err
		}
	}

	keys, err := deriveRecordKeys(r.key, header[:saltLength])
	if err != nil {
		return err
	}
	r.keys = keys
	r.rs = int(rs)
	return nil
}

func (r *decryptReader) openNext() error {
	if r.keys == nil {
		if err := r.readHeader(); err != nil {
			return err
		}
	}

	if r.done {
		var extra [1]byte
		n, err := io.ReadFull(r.src, extra[:])
		if n > 0 {
			return authError("data after final record")
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return io.EOF
	}

	buf := make([]byte, r.rs)
	n, err := io.ReadFull(r.src, buf)
	switch {
	case err == nil:
	case errors.Is(err, io.ErrUnexpectedEOF):
		buf = buf[:n]
	case errors.Is(err, io.EOF):
		return authError("stream ended before final record")
	default:
		return err
	}

	if len(buf) < minRecordLength {
		return authError("record %d too short", r.seq)
	}

	plain, err := r.keys.aead.Open(buf[:0], nonceFor(r.keys.nonceBase, r.seq), buf, nil)
	if err != nil {
		return authError("record %d", r.seq)
	}
	r.seq++

	i := len(plain) - 1
	for i >= 0 && plain[i] == 0 {
		i--
	}
	if i < 0 {
		return authError("record %d has no delimiter", r.seq-1)
	}

	switch plain[i] {
	case delimiterFinal:
		r.done = true
	case delimiterRecord:
		if len(buf) < r.rs {
			return authError("short non-final record %d", r.seq-1)
		}
	default:
		return authError("record %d has invalid delimiter", r.seq-1)
	}

	r.out = plain[:i]
	return nil
}
