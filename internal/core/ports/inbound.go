package ports

import (
	"context"
	"io"

	"github.com/crestline-am/docintake/internal/core/domain"
)

// AttachmentProcessor runs the full pipeline for a single attachment. It
// always returns a terminal outcome, never panics or raw errors.
type AttachmentProcessor interface {
	ProcessAttachment(ctx context.Context, att domain.Attachment, email domain.EmailContext, known domain.AssetCategory) domain.ProcessingOutcome
}

// BatchProcessor fans the pipeline out over one email's attachments and
// returns outcomes in input order with per-item isolation.
type BatchProcessor interface {
	ProcessEmail(ctx context.Context, atts []domain.Attachment, email domain.EmailContext, known domain.AssetCategory) []domain.ProcessingOutcome
}

// OutcomeReader is the inbound read model for processing outcomes.
type OutcomeReader interface {
	GetOutcome(ctx context.Context, id string) (*domain.ProcessingOutcome, error)
	ListForReview(ctx context.Context, limit int) ([]domain.ProcessingOutcome, error)
}

// RegistryImporter loads asset records from an uploaded workbook.
type RegistryImporter interface {
	ImportWorkbook(ctx context.Context, r io.Reader) (int, error)
}
