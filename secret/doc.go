// Package secret holds the primitives everything else in gatekeeper trusts:
// password hashing, keyed signatures and the comparison used to check them.
//
// Passwords are stored as a 192 character hex string. The first 64
// characters are the salt (a sha256 of 60 random bytes, kept in its hex form)
// and the remaining 128 are the PBKDF2-HMAC-SHA512 digest of the password.
// The salt is fed to PBKDF2 in its hex text form, not as raw bytes.
//
// Anything derived from a secret (a password digest, a token signature) is
// compared with Equal or EqualString. Plain == on those values is a bug.
//
// Hashing is expensive on purpose (DefaultIterations rounds), so request
// handlers should go through a Pool instead of calling the Hasher directly;
// the pool caps how many derivations run at the same time.
package secret
