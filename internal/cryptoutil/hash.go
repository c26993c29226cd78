package cryptoutil

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// ErrTooLarge is returned by ReadAllSHA256 when the reader holds more than the limit.
var ErrTooLarge = errors.New("content exceeds size limit")

// HashEqual performs constant-time comparison of two hex-encoded hashes.
func HashEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// SHA256Hex computes the SHA-256 hash of the input data and returns it as a hex string
func SHA256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ReadAllSHA256 reads r to EOF and hashes the bytes in the same pass.
// A limit <= 0 means unbounded.
func ReadAllSHA256(r io.Reader, limit int64) ([]byte, string, error) {
	h := sha256.New()
	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(io.TeeReader(src, h))
	if err != nil {
		return nil, "", fmt.Errorf("read content: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, "", ErrTooLarge
	}
	return data, hex.EncodeToString(h.Sum(nil)), nil
}
