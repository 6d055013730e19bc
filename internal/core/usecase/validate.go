package usecase

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/crestline-am/docintake/internal/core/domain"
)

// ValidationResult is the admission verdict for one attachment.
type ValidationResult struct {
	OK     bool
	Reason string
}

// ValidateAttachment checks the extension and size against the known
// category's policy. Without a known category the union of all allowed
// extensions and the largest ceiling apply. The ceiling is inclusive: a file
// at exactly the limit is admitted.
func ValidateAttachment(filename string, sizeBytes int64, known domain.AssetCategory) ValidationResult {
	ext := strings.ToLower(filepath.Ext(filename))

	allowed, maxBytes := admissionLimits(known)
	if _, ok := allowed[ext]; !ok {
		return ValidationResult{Reason: fmt.Sprintf("extension %q not allowed", ext)}
	}
	if sizeBytes > maxBytes {
		return ValidationResult{Reason: fmt.Sprintf("exceeds %d MB", maxBytes/(1024*1024))}
	}
	return ValidationResult{OK: true}
}

func admissionLimits(known domain.AssetCategory) (map[string]struct{}, int64) {
	allowed := make(map[string]struct{})
	var maxBytes int64

	categories := domain.CategoryOrder
	if known.Valid() {
		categories = []domain.AssetCategory{known}
	}
	for _, cat := range categories {
		policy, ok := domain.PolicyFor(cat)
		if !ok {
			continue
		}
		for _, ext := range policy.AllowedExtensions {
			allowed[strings.ToLower(ext)] = struct{}{}
		}
		if ceiling := policy.MaxSizeMB * 1024 * 1024; ceiling > maxBytes {
			maxBytes = ceiling
		}
	}
	return allowed, maxBytes
}
