// Package auth generates and verifies admin API keys. Keys are random,
// prefixed for greppability, and stored only as bcrypt hashes; the
// plaintext is shown once at generation time.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// KeyPrefix marks variantgate API keys in logs and configs.
	KeyPrefix = "vgk_"
	// KeyLength is the random part of the key in bytes (256 bits).
	KeyLength = 32
	// BCryptCost is the cost factor for bcrypt hashing.
	BCryptCost = 12
)

// GenerateAPIKey generates a new random API key with the standard prefix.
func GenerateAPIKey() (string, error) {
	randomBytes := make([]byte, KeyLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return KeyPrefix + base64.RawURLEncoding.EncodeToString(randomBytes), nil
}

// HashAPIKey returns the bcrypt hash of a key for storage in config.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), BCryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash API key: %w", err)
	}
	return string(hash), nil
}

// VerifyAPIKey checks a presented key against a stored bcrypt hash.
func VerifyAPIKey(key, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}

// ExtractBearerToken returns the token from an Authorization header value.
// The "Bearer " scheme is required (case-insensitive); anything else,
// including a bare token, yields "".
func ExtractBearerToken(authHeader string) string {
	header := strings.TrimSpace(authHeader)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// ConstantTimeEqual compares a presented key against a plaintext key
// without leaking timing. Used for the plaintext-key fallback in dev.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
