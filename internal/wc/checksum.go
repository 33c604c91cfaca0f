package wc

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Checksum identifies file content in the pristine store: the lowercase hex
// SHA-256 of the bytes. The zero value means "no content" (directories).
type Checksum string

// ComputeChecksum hashes content.
func ComputeChecksum(content []byte) Checksum {
	sum := sha256.Sum256(content)
	return Checksum(hex.EncodeToString(sum[:]))
}

// ReaderChecksum hashes everything r yields and returns the byte count.
func ReaderChecksum(r io.Reader) (Checksum, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, fmt.Errorf("checksum: %w", err)
	}
	return Checksum(hex.EncodeToString(h.Sum(nil))), n, nil
}

// Valid reports whether c looks like a SHA-256 hex digest.
func (c Checksum) Valid() bool {
	if len(c) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(string(c))
	return err == nil
}

// Short returns the first eight hex digits for log output.
func (c Checksum) Short() string {
	if len(c) < 8 {
		return string(c)
	}
	return string(c[:8])
}
