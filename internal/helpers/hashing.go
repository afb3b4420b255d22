package helpers

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// KeyedDigestHex returns hex(blake2b-256(key, data)). Keys longer than 64
// bytes are rejected by blake2b, so they are pre-hashed down to 32.
func KeyedDigestHex(key, data []byte) (string, error) {
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	h, err := blake2b.New256(key)
	if err != nil {
		return "", err
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
