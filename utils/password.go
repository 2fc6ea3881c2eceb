package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GeneratePassword returns a random URL-safe password of the given length (at least 8)
func GeneratePassword(length int) (string, error) {
	if length < 8 {
		length = 8
	}

	// base64 yields 4 characters per 3 bytes
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length], nil
}
