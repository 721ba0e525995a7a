package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint derives the idempotency key for a request payload. Identical
// bytes always give the same key; no normalisation is applied here.
func Fingerprint(prefix string, payload []byte) string {
	sum := sha256.Sum256(payload)
	h := hex.EncodeToString(sum[:])
	if prefix == "" {
		return h
	}
	return prefix + "#" + h
}
