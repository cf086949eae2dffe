package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// SecretDigest is the unsalted SHA-256 hex digest stored for the shared admin delete secret.
func SecretDigest(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// DigestMatches compares the digest of secret against a stored digest.
func DigestMatches(secret, storedDigest string) bool {
	if storedDigest == "" {
		return false
	}
	got := SecretDigest(secret)
	return subtle.ConstantTimeCompare([]byte(got), []byte(storedDigest)) == 1
}
