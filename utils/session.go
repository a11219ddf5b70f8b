package utils

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// GenerateSessionID returns a random opaque id for an admin session.
func GenerateSessionID() (string, error) {
	buffer := make([]byte, 32)
	if _, err := randRead(buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// HashState hashes an OAuth state value before it is stored in a cookie, so
// the raw value never round-trips through the client twice.
func HashState(state string) string {
	sum := sha256.Sum256([]byte(state))
	return hex.EncodeToString(sum[:])
}
