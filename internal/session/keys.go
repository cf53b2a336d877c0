package session

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	minSecretLength = 16
	hashKeyLength   = 64 // HMAC-SHA256 signing key
	blockKeyLength  = 32 // AES-256 encryption key
)

var ErrSecretTooShort = fmt.Errorf("cookie secret must be at least %d bytes", minSecretLength)

// deriveKeys expands the configured cookie secret into independent signing
// and encryption keys so a single secret can be configured.
func deriveKeys(secret []byte) (hashKey, blockKey []byte, err error) {
	if len(secret) < minSecretLength {
		return nil, nil, ErrSecretTooShort
	}

	r := hkdf.New(sha256.New, secret, nil, []byte("portal-session-cookie"))
	hashKey = make([]byte, hashKeyLength)
	if _, err := io.ReadFull(r, hashKey); err != nil {
		return nil, nil, fmt.Errorf("read hash key from hkdf: %w", err)
	}
	blockKey = make([]byte, blockKeyLength)
	if _, err := io.ReadFull(r, blockKey); err != nil {
		return nil, nil, fmt.Errorf("read block key from hkdf: %w", err)
	}
	return hashKey, blockKey, nil
}
