package ports

import (
	"context"
	"io"
	"time"

	"github.com/crestline-am/docintake/internal/core/domain"
)

// DocumentStore persists processing outcomes and backs the duplicate index.
// SaveOutcome must be an idempotent upsert keyed by outcome id so callers can
// retry on ambiguous failure.
type DocumentStore interface {
	LookupByHash(ctx context.Context, contentHash string) (*domain.ProcessingOutcome, error)
	SaveOutcome(ctx context.Context, outcome *domain.ProcessingOutcome) error
	GetOutcome(ctx context.Context, id string) (*domain.ProcessingOutcome, error)
	ListForReview(ctx context.Context, limit int) ([]domain.ProcessingOutcome, error)
}

// AssetRegistry reads the known-asset registry. The pipeline never mutates
// assets; UpsertAssets exists for the workbook import path only.
type AssetRegistry interface {
	ListAssets(ctx context.Context) ([]domain.Asset, error)
	GetAsset(ctx context.Context, id string) (*domain.Asset, error)
	UpsertAssets(ctx context.Context, assets []domain.Asset) error
}

// SenderMappings looks up sender→asset associations by normalized address.
// RecordActivity bumps the activity counter and is safe to retry.
type SenderMappings interface {
	ListBySender(ctx context.Context, senderEmail string) ([]domain.SenderMapping, error)
	RecordActivity(ctx context.Context, mappingID string, at time.Time) error
}

// VirusScanner checks a byte buffer against an external scanner. The error
// return is reserved for failures invoking the adapter itself; verdicts,
// including scan errors and timeouts, come back in the result.
type VirusScanner interface {
	Scan(ctx context.Context, filename string, content []byte) (domain.ScanResult, error)
}

// ObjectStorage stages attachment bytes between the intake surface and the
// worker.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MessageQueue transports email envelopes to workers and routed-outcome
// events downstream.
type MessageQueue interface {
	PublishEmailReceived(ctx context.Context, envelope domain.EmailEnvelope) error
	SubscribeEmailReceived(ctx context.Context, handler func(context.Context, domain.EmailEnvelope) error) error
	PublishOutcome(ctx context.Context, outcome domain.ProcessingOutcome) error
}

// DocumentClassifier maps attachment metadata to a document category. Pure:
// identical inputs yield identical classifications.
type DocumentClassifier interface {
	Classify(filename, subject, body string, known domain.AssetCategory) domain.Classification
}

// AssetResolver fuzzy-matches email content against known assets and returns
// qualifying candidates in descending confidence order.
type AssetResolver interface {
	Resolve(subject, body, filename string, assets []domain.Asset) []domain.AssetMatch
}

// TextExtractor pulls plain text out of attachment bytes for classifier
// enrichment. Implementations return "" for formats they do not handle.
type TextExtractor interface {
	Extract(filename string, content []byte) (string, error)
}
