package domain

import "time"

// ProcessingStatus tracks one attachment through the pipeline. The first
// block are transient stages, the second block terminal results.
type ProcessingStatus string

const (
	StatusPending     ProcessingStatus = "pending"
	StatusValidating  ProcessingStatus = "validating"
	StatusHashing     ProcessingStatus = "hashing"
	StatusScanning    ProcessingStatus = "scanning"
	StatusClassifying ProcessingStatus = "classifying"
	StatusResolving   ProcessingStatus = "resolving"
	StatusRouted      ProcessingStatus = "routed"

	StatusSuccess     ProcessingStatus = "success"
	StatusDuplicate   ProcessingStatus = "duplicate"
	StatusInvalidType ProcessingStatus = "invalid_type"
	StatusQuarantined ProcessingStatus = "quarantined"
	StatusError       ProcessingStatus = "error"
)

// Terminal reports whether a status ends processing for the submission.
func (s ProcessingStatus) Terminal() bool {
	switch s {
	case StatusSuccess, StatusDuplicate, StatusInvalidType, StatusQuarantined, StatusError:
		return true
	}
	return false
}

// ConfidenceTier is the routing decision derived from blended confidence.
type ConfidenceTier string

const (
	TierHigh    ConfidenceTier = "high"
	TierMedium  ConfidenceTier = "medium"
	TierLow     ConfidenceTier = "low"
	TierVeryLow ConfidenceTier = "very_low"
)

// DocumentCategory labels what kind of document an attachment is.
type DocumentCategory string

// DocumentUnknown is returned when no classification pattern matched.
const DocumentUnknown DocumentCategory = "unknown"

// Classification is the document classifier's verdict.
type Classification struct {
	Category        DocumentCategory `json:"category"`
	Confidence      float64          `json:"confidence"`
	MatchedPatterns int              `json:"matched_patterns"`
}

// AssetMatch is one resolver candidate.
type AssetMatch struct {
	AssetID    string  `json:"asset_id"`
	Confidence float64 `json:"confidence"`
}

// OutcomeMetadata is the descriptive bag attached to every outcome.
type OutcomeMetadata struct {
	OriginalFilename string    `json:"original_filename"`
	SizeBytes        int64     `json:"size_bytes"`
	Extension        string    `json:"extension"`
	SenderEmail      string    `json:"sender_email"`
	Subject          string    `json:"subject"`
	ProcessedAt      time.Time `json:"processed_at"`
}

// ProcessingOutcome is the pipeline's terminal record for one attachment.
type ProcessingOutcome struct {
	ID               string           `json:"id"`
	Status           ProcessingStatus `json:"status"`
	ContentHash      string           `json:"content_hash,omitempty"`
	DestinationPath  string           `json:"destination_path,omitempty"`
	Confidence       float64          `json:"confidence"`
	DocumentCategory DocumentCategory `json:"document_category,omitempty"`
	Tier             ConfidenceTier   `json:"tier,omitempty"`
	AssetID          string           `json:"asset_id,omitempty"`
	AssetConfidence  float64          `json:"asset_confidence,omitempty"`
	DuplicateOf      string           `json:"duplicate_of,omitempty"`
	QuarantineReason string           `json:"quarantine_reason,omitempty"`
	Error            string           `json:"error,omitempty"`
	Metadata         OutcomeMetadata  `json:"metadata"`
}
