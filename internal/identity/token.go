package identity

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken returns the storage key for a verification token value.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
