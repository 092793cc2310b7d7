package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// idBytes is the amount of entropy in a session id (256 bits)
const idBytes = 32

// GenerateID returns a new unguessable session id, base64url encoded
func GenerateID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
