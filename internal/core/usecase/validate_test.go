package usecase

import (
	"strings"
	"testing"

	"github.com/crestline-am/docintake/internal/core/domain"
)

const mb = 1024 * 1024

func TestValidateAttachmentAdmitsAtExactCeiling(t *testing.T) {
	v := ValidateAttachment("rent_roll.xlsx", 50*mb, domain.CategoryRealEstate)
	if !v.OK {
		t.Fatalf("file at exact ceiling must be admitted: %q", v.Reason)
	}
}

func TestValidateAttachmentRejectsOneByteOver(t *testing.T) {
	v := ValidateAttachment("rent_roll.xlsx", 50*mb+1, domain.CategoryRealEstate)
	if v.OK {
		t.Fatalf("file one byte over ceiling must be rejected")
	}
	if !strings.Contains(v.Reason, "exceeds 50 MB") {
		t.Fatalf("expected size reason, got %q", v.Reason)
	}
}

func TestValidateAttachmentRejectsExtension(t *testing.T) {
	v := ValidateAttachment("setup.exe", 10, domain.CategoryRealEstate)
	if v.OK {
		t.Fatalf("expected rejection of .exe")
	}
	if !strings.Contains(v.Reason, `".exe" not allowed`) {
		t.Fatalf("expected extension reason, got %q", v.Reason)
	}
}

func TestValidateAttachmentExtensionIsCaseInsensitive(t *testing.T) {
	v := ValidateAttachment("Statement.PDF", 10, domain.CategoryRealEstate)
	if !v.OK {
		t.Fatalf("uppercase extension must be admitted: %q", v.Reason)
	}
}

func TestValidateAttachmentUnknownCategoryUsesUnion(t *testing.T) {
	// .dwg is only allowed for infrastructure; without a known category the
	// union of all policies applies, as does the largest ceiling.
	v := ValidateAttachment("site_plan.dwg", 150*mb, "")
	if !v.OK {
		t.Fatalf("expected union admission, got %q", v.Reason)
	}

	v = ValidateAttachment("site_plan.dwg", 201*mb, "")
	if v.OK {
		t.Fatalf("expected rejection above the largest ceiling")
	}
}
