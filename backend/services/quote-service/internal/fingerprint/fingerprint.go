package fingerprint

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Hasher derives a stable digest from a value.
type Hasher interface {
	Sum(v interface{}) (string, error)
}

// Blake2bHasher digests the JSON encoding of a value with BLAKE2b.
type Blake2bHasher struct {
	size int
}

// NewBlake2bHasher returns a hasher producing size-byte digests (16 when out of range).
func NewBlake2bHasher(size int) *Blake2bHasher {
	if size <= 0 || size > blake2b.Size {
		size = 16
	}
	return &Blake2bHasher{size: size}
}

// Sum hashes v. Map keys are ordered by encoding/json so equal values give equal digests.
func (h *Blake2bHasher) Sum(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint: encode: %w", err)
	}
	return h.SumBytes(data)
}

// SumBytes hashes raw bytes.
func (h *Blake2bHasher) SumBytes(data []byte) (string, error) {
	d, err := blake2b.New(h.size, nil)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	d.Write(data)
	return hex.EncodeToString(d.Sum(nil)), nil
}
