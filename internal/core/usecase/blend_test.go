package usecase

import (
	"testing"

	"github.com/crestline-am/docintake/internal/core/domain"
)

func TestBlendConfidenceWeightedSum(t *testing.T) {
	w := DefaultBlendWeights()

	blended := BlendConfidence(w, 0.90, 0.85, true)
	if blended < 0.90 {
		t.Fatalf("expected blended >= 0.90, got %f", blended)
	}
	if tier := TierFor(DefaultTierThresholds(), blended); tier != domain.TierHigh {
		t.Fatalf("expected high tier, got %q", tier)
	}
}

func TestBlendConfidenceVeryLow(t *testing.T) {
	blended := BlendConfidence(DefaultBlendWeights(), 0.30, 0.40, false)

	if tier := TierFor(DefaultTierThresholds(), blended); tier != domain.TierVeryLow {
		t.Fatalf("expected very_low tier for %f, got %q", blended, tier)
	}
}

func TestTierBoundariesAreInclusive(t *testing.T) {
	th := DefaultTierThresholds()

	cases := []struct {
		blended float64
		want    domain.ConfidenceTier
	}{
		{0.90, domain.TierHigh},
		{0.899999, domain.TierMedium},
		{0.70, domain.TierMedium},
		{0.699999, domain.TierLow},
		{0.50, domain.TierLow},
		{0.499999, domain.TierVeryLow},
		{0.0, domain.TierVeryLow},
	}
	for _, tc := range cases {
		if got := TierFor(th, tc.blended); got != tc.want {
			t.Fatalf("TierFor(%f) = %q, want %q", tc.blended, got, tc.want)
		}
	}
}

func TestBlendConfidenceStaysInRange(t *testing.T) {
	blended := BlendConfidence(BlendWeights{Document: 0.6, Asset: 0.6, Sender: 0.6}, 1.0, 1.0, true)
	if blended > 1.0 {
		t.Fatalf("blended confidence must be capped at 1.0, got %f", blended)
	}
}
