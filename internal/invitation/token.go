package invitation

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateToken returns a 256-bit random token, hex encoded.
func GenerateToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate invitation token: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
