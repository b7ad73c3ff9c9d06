package id

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// UUID generates a random (v4) UUID string.
func UUID() string {
	return uuid.NewString()
}

// Short generates a short random hex ID (16 characters).
// Used for journal entries where brevity matters more than global uniqueness.
func Short() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// IsValidUUID reports whether s parses as a UUID in canonical form.
func IsValidUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// Normalize lowercases a UUID string so ids compare equal regardless of the
// case a client used when submitting them.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
