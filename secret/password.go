package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the number of PBKDF2 rounds used by NewHasher.
	// Changing it makes every stored hash unverifiable, so treat it as part
	// of the storage format.
	DefaultIterations = 100000

	// SaltEntropy is how many random bytes feed the salt digest.
	SaltEntropy = 60

	SaltLength    = sha256.Size * 2
	DigestLength  = sha512.Size * 2
	EncodedLength = SaltLength + DigestLength
)

type (
	// Hasher derives and checks password hashes. The zero value is not
	// usable, call NewHasher.
	Hasher struct {
		Iterations int
		Rand       io.Reader
	}
)

var (
	defaultHasher = NewHasher()
)

func NewHasher() *Hasher {
	return &Hasher{
		Iterations: DefaultIterations,
		Rand:       rand.Reader,
	}
}

// HashPassword hashes password with the default hasher.
func HashPassword(password string) (string, error) {
	return defaultHasher.Hash(password)
}

// Hash returns salt || hex(pbkdf2(password, salt)).
func (h *Hasher) Hash(password string) (string, error) {
	entropy := make([]byte, SaltEntropy)
	if _, err := io.ReadFull(h.Rand, entropy); err != nil {
		return "", fmt.Errorf("unable to read salt entropy, cause %w", err)
	}
	sum := sha256.Sum256(entropy)
	salt := hex.EncodeToString(sum[:])
	return salt + h.digest(password, salt), nil
}

// Verify reports whether candidate is the password that produced encoded.
// Values that are not EncodedLength hex characters never verify.
func (h *Hasher) Verify(encoded, candidate string) bool {
	if !wellFormed(encoded) {
		return false
	}
	salt, stored := encoded[:SaltLength], encoded[SaltLength:]
	return EqualString(h.digest(candidate, salt), stored)
}

func (h *Hasher) digest(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), h.Iterations, sha512.Size, sha512.New)
	return hex.EncodeToString(key)
}

func wellFormed(encoded string) bool {
	if len(encoded) != EncodedLength {
		return false
	}
	for i := 0; i < len(encoded); i++ {
		c := encoded[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
