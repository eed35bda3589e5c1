package credential

import (
	"crypto/rand"
	"fmt"
)

// tokenAlphabet matches the panel's token format: alphanumeric only, so
// tokens survive YAML files, headers and URLs without escaping.
const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// TokenLength is the length of generated bearer tokens.
const TokenLength = 32

// GenerateToken returns a new random 32-character alphanumeric token.
func GenerateToken() (string, error) {
	buf := make([]byte, TokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	for i, b := range buf {
		buf[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}

	return string(buf), nil
}
