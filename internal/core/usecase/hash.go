package usecase

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent returns the SHA-256 hex digest used as the content-addressed
// identity of an attachment. It depends only on the bytes: identical content
// always yields the same digest regardless of filename or metadata.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
