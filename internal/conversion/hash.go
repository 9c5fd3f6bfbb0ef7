package conversion

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashIdentifier normalizes and hashes a personal identifier the way
// the Meta pixel does client-side: trim, lowercase, SHA-256, lowercase
// hex. Both sides hashing the same normalized value is what makes
// server events match pixel events. Returns "" for absent input so
// the field is omitted from the payload.
func HashIdentifier(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return ""
	}
	digest := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(digest[:])
}
