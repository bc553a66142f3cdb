package secret

import "crypto/subtle"

// Equal reports whether a and b hold the same bytes. The time it takes does
// not depend on where they differ.
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// EqualString is Equal for strings.
func EqualString(a, b string) bool {
	return Equal([]byte(a), []byte(b))
}
