package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

var randRead = rand.Read

// SlugLength is the fixed length of every issued slug: 8 random bytes
// hex-encoded.
const SlugLength = 16

// GenerateSlug returns a 16-character lowercase hex token suitable for a
// public profile URL.
func GenerateSlug() (string, error) {
	buffer := make([]byte, SlugLength/2)
	if _, err := randRead(buffer); err != nil {
		return "", err
	}
	return hex.EncodeToString(buffer), nil
}

// GenerateUniqueSlug generates slugs until exists reports a free one, trying
// at most maxAttempts times. The existence check is advisory; callers must
// still treat a duplicate-key error on insert as a collision.
func GenerateUniqueSlug(exists func(slug string) (bool, error), maxAttempts int) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		slug, err := GenerateSlug()
		if err != nil {
			return "", err
		}
		taken, err := exists(slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
	}
	return "", fmt.Errorf("no unique slug after %d attempts", maxAttempts)
}
