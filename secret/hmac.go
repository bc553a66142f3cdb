package secret

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
)

var (
	// ErrMissingSecret is returned whenever a signing secret is required
	// but empty. It is a configuration error and should stop the process.
	ErrMissingSecret = errors.New("secret: signing secret must not be empty")
)

// DeriveKey turns the process-wide signing secret into a key dedicated to a
// single purpose: sha256(purpose || secret).
//
// Every use of HMAC in gatekeeper gets its own purpose string so a signature
// produced for one feature can never be replayed against another.
func DeriveKey(purpose string, signingSecret []byte) ([]byte, error) {
	if len(signingSecret) == 0 {
		return nil, ErrMissingSecret
	}
	h := sha256.New()
	h.Write([]byte(purpose))
	h.Write(signingSecret)
	return h.Sum(nil), nil
}

// Sign computes HMAC-SHA256 of value using a key returned by DeriveKey.
func Sign(key []byte, value []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(value)
	return mac.Sum(nil)
}
