// Package idhash derives opaque correlation tags from record ids.
package idhash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrMissingSecret is returned by Hash when the hasher has no secret configured.
var ErrMissingSecret = errors.New("idhash: ID_HASH_SECRET is not set")

// Hasher computes HMAC-SHA256 tags keyed by a process-wide secret.
type Hasher struct {
	secret []byte
}

// New returns a Hasher for secret. An empty secret is accepted here so the
// failure surfaces where the tag is actually needed.
func New(secret string) *Hasher {
	return &Hasher{secret: []byte(secret)}
}

// Hash returns the hex encoded tag for rawID.
func (h *Hasher) Hash(rawID string) (string, error) {
	if h == nil || len(h.secret) == 0 {
		return "", ErrMissingSecret
	}

	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(rawID))
	return hex.EncodeToString(mac.Sum(nil)), nil
}
