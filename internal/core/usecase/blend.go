package usecase

import "github.com/crestline-am/docintake/internal/core/domain"

// BlendWeights combine the three independent routing signals. They are
// policy, not structure, and come from configuration.
type BlendWeights struct {
	Document float64
	Asset    float64
	Sender   float64
}

func DefaultBlendWeights() BlendWeights {
	return BlendWeights{Document: 0.4, Asset: 0.4, Sender: 0.2}
}

// TierThresholds map blended confidence to a routing tier, evaluated
// top-down.
type TierThresholds struct {
	High   float64
	Medium float64
	Low    float64
}

func DefaultTierThresholds() TierThresholds {
	return TierThresholds{High: 0.90, Medium: 0.70, Low: 0.50}
}

// BlendConfidence computes the weighted routing confidence from the document
// classification, best asset match, and whether the sender has any known
// mapping.
func BlendConfidence(w BlendWeights, docConfidence, assetConfidence float64, senderKnown bool) float64 {
	sender := 0.0
	if senderKnown {
		sender = 1.0
	}
	blended := w.Document*docConfidence + w.Asset*assetConfidence + w.Sender*sender
	if blended > 1.0 {
		blended = 1.0
	}
	if blended < 0 {
		blended = 0
	}
	return blended
}

// TierFor maps a blended confidence to its routing tier.
func TierFor(t TierThresholds, blended float64) domain.ConfidenceTier {
	switch {
	case blended >= t.High:
		return domain.TierHigh
	case blended >= t.Medium:
		return domain.TierMedium
	case blended >= t.Low:
		return domain.TierLow
	default:
		return domain.TierVeryLow
	}
}
