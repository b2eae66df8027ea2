// Package sanitize provides shared identifier validation and boundary-aware
// text truncation.
//
// Collection names in the vector store must match: ^[a-z0-9_]{1,64}$
// This package ensures all identifiers conform to that requirement, and owns
// the single truncation routine used for every content preview the engine
// returns to callers.
package sanitize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	// MaxIdentifierLength is the maximum length for collection name components.
	// Qdrant requires collection names to be 1-64 characters.
	MaxIdentifierLength = 64

	// HashSuffixLength is the length of the hash suffix added to truncated identifiers.
	// Format: _<8-char-hash> = 9 characters total
	HashSuffixLength = 9

	// DefaultIdentifier is used when sanitization produces an empty result.
	DefaultIdentifier = "default"
)

// Truncate shortens s to at most limit characters (Unicode code points).
//
// Truncation never splits a multibyte code point and is idempotent: truncating
// an already-truncated string to the same limit returns it unchanged. A
// non-positive limit yields the empty string.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

// Identifier sanitizes a string for use in collection names.
//
// Rules applied:
//   - Converts to lowercase
//   - Replaces invalid characters with underscores
//   - Collapses multiple underscores
//   - Trims leading/trailing underscores
//   - Truncates to MaxIdentifierLength with hash suffix if too long
//   - Returns DefaultIdentifier if result would be empty
//
// Examples:
//
//	"github.com/user" -> "github_com_user"
//	"My Project!"     -> "my_project"
//	"" or "!!!"       -> "default"
func Identifier(s string) string {
	if s == "" {
		return DefaultIdentifier
	}

	s = strings.ToLower(s)

	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			result.WriteRune(r)
		} else {
			result.WriteRune('_')
		}
	}

	sanitized := result.String()
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")

	if sanitized == "" {
		return DefaultIdentifier
	}

	if len(sanitized) > MaxIdentifierLength {
		sanitized = truncateWithHash(sanitized)
	}

	return sanitized
}

// truncateWithHash truncates a string to fit within MaxIdentifierLength,
// appending a hash suffix to preserve uniqueness.
//
// Format: <truncated>_<8-char-hash>
func truncateWithHash(s string) string {
	hash := sha256.Sum256([]byte(s))
	hashSuffix := "_" + hex.EncodeToString(hash[:])[:8]

	maxBase := MaxIdentifierLength - HashSuffixLength
	truncated := s[:maxBase]
	truncated = strings.TrimRight(truncated, "_")

	return truncated + hashSuffix
}
