package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crestline-am/docintake/internal/core/domain"
	"github.com/crestline-am/docintake/internal/core/ports"
)

// PipelineConfig carries the tunable routing policy.
type PipelineConfig struct {
	BlendWeights BlendWeights
	Thresholds   TierThresholds

	// SenderFallbackDiscount scales a sender mapping's confidence when it
	// stands in for a missing resolver match.
	SenderFallbackDiscount float64

	// ScanFailOpen admits attachments when the scanner errors or times out.
	// A missing scanner binary always fails open; infected never does.
	ScanFailOpen bool

	// ReviewFolder receives admitted documents that matched no asset.
	ReviewFolder string
}

func (c PipelineConfig) normalize() PipelineConfig {
	if c.BlendWeights.Document <= 0 && c.BlendWeights.Asset <= 0 && c.BlendWeights.Sender <= 0 {
		c.BlendWeights = DefaultBlendWeights()
	}
	if c.Thresholds.High <= 0 {
		c.Thresholds = DefaultTierThresholds()
	}
	if c.SenderFallbackDiscount <= 0 || c.SenderFallbackDiscount > 1 {
		c.SenderFallbackDiscount = 0.8
	}
	if c.ReviewFolder == "" {
		c.ReviewFolder = "_review"
	}
	return c
}

// ProcessAttachmentUseCase runs one attachment through validation, hashing,
// scanning, classification, resolution and routing. Stages are strictly
// sequential; every exit is a terminal ProcessingOutcome.
type ProcessAttachmentUseCase struct {
	store      ports.DocumentStore
	registry   ports.AssetRegistry
	senders    ports.SenderMappings
	scanner    ports.VirusScanner
	classifier ports.DocumentClassifier
	resolver   ports.AssetResolver
	extractor  ports.TextExtractor
	cfg        PipelineConfig
	logger     *slog.Logger
}

func NewProcessAttachmentUseCase(
	store ports.DocumentStore,
	registry ports.AssetRegistry,
	senders ports.SenderMappings,
	scanner ports.VirusScanner,
	classifier ports.DocumentClassifier,
	resolver ports.AssetResolver,
	extractor ports.TextExtractor,
	cfg PipelineConfig,
	logger *slog.Logger,
) *ProcessAttachmentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessAttachmentUseCase{
		store:      store,
		registry:   registry,
		senders:    senders,
		scanner:    scanner,
		classifier: classifier,
		resolver:   resolver,
		extractor:  extractor,
		cfg:        cfg.normalize(),
		logger:     logger,
	}
}

func (uc *ProcessAttachmentUseCase) ProcessAttachment(
	ctx context.Context,
	att domain.Attachment,
	email domain.EmailContext,
	known domain.AssetCategory,
) domain.ProcessingOutcome {
	outcome := newOutcome(att, email)

	outcome.Status = domain.StatusValidating
	if v := ValidateAttachment(att.Filename, int64(len(att.Content)), known); !v.OK {
		outcome.Status = domain.StatusInvalidType
		outcome.Error = v.Reason
		return uc.finish(ctx, outcome)
	}

	outcome.Status = domain.StatusHashing
	outcome.ContentHash = HashContent(att.Content)
	if done := uc.checkDuplicate(ctx, &outcome); done {
		return uc.finish(ctx, outcome)
	}

	outcome.Status = domain.StatusScanning
	if done := uc.scan(ctx, &outcome, att); done {
		return uc.finish(ctx, outcome)
	}

	outcome.Status = domain.StatusClassifying
	body := uc.enrichedBody(att, email)
	cls := uc.classifier.Classify(att.Filename, email.Subject, body, known)
	outcome.DocumentCategory = cls.Category

	outcome.Status = domain.StatusResolving
	assets, err := uc.registry.ListAssets(ctx)
	if err != nil {
		return uc.fail(ctx, outcome, fmt.Errorf("list assets: %w", err))
	}
	matches := uc.resolver.Resolve(email.Subject, body, att.Filename, assets)

	mappings, err := uc.senders.ListBySender(ctx, domain.NormalizeSenderEmail(email.SenderEmail))
	if err != nil {
		return uc.fail(ctx, outcome, fmt.Errorf("lookup sender mappings: %w", err))
	}
	senderKnown := len(mappings) > 0
	uc.applyAssetMatch(&outcome, matches, mappings, senderKnown)

	outcome.Status = domain.StatusRouted
	outcome.Confidence = BlendConfidence(uc.cfg.BlendWeights, cls.Confidence, outcome.AssetConfidence, senderKnown)
	outcome.Tier = TierFor(uc.cfg.Thresholds, outcome.Confidence)
	outcome.DestinationPath = uc.destination(assets, outcome.AssetID, cls.Category, att.Filename, outcome.Metadata.ProcessedAt)
	outcome.Status = domain.StatusSuccess

	uc.recordSenderActivity(ctx, &outcome, mappings)

	return uc.finish(ctx, outcome)
}

// checkDuplicate short-circuits on a known content hash. Returns true when
// processing is done: either a duplicate was found or the index lookup
// itself failed.
func (uc *ProcessAttachmentUseCase) checkDuplicate(ctx context.Context, outcome *domain.ProcessingOutcome) bool {
	prior, err := uc.store.LookupByHash(ctx, outcome.ContentHash)
	if err == nil {
		outcome.Status = domain.StatusDuplicate
		outcome.DuplicateOf = prior.ID
		return true
	}
	if !domain.IsKind(err, domain.ErrNotFound) {
		outcome.Status = domain.StatusError
		outcome.Error = fmt.Sprintf("duplicate lookup: %v", err)
		return true
	}
	return false
}

func (uc *ProcessAttachmentUseCase) scan(ctx context.Context, outcome *domain.ProcessingOutcome, att domain.Attachment) bool {
	result, err := uc.scanner.Scan(ctx, att.Filename, att.Content)
	if err != nil {
		outcome.Status = domain.StatusError
		outcome.Error = fmt.Sprintf("scan attachment: %v", err)
		return true
	}

	switch result.Status {
	case domain.ScanClean:
		return false
	case domain.ScanUnavailable:
		uc.logger.Warn("scanner unavailable, admitting unscanned attachment",
			"filename", att.Filename, "detail", result.Detail)
		return false
	case domain.ScanInfected:
		outcome.Status = domain.StatusQuarantined
		outcome.QuarantineReason = result.Threat
		return true
	default: // scan error or timeout
		if uc.cfg.ScanFailOpen {
			uc.logger.Warn("scan failed, admitting per fail-open policy",
				"filename", att.Filename, "status", string(result.Status), "detail", result.Detail)
			return false
		}
		outcome.Status = domain.StatusQuarantined
		outcome.QuarantineReason = fmt.Sprintf("scan %s: %s", result.Status, result.Detail)
		return true
	}
}

// enrichedBody appends best-effort extracted attachment text to the email
// body so content-bearing formats contribute to classification.
func (uc *ProcessAttachmentUseCase) enrichedBody(att domain.Attachment, email domain.EmailContext) string {
	if uc.extractor == nil {
		return email.Body
	}
	text, err := uc.extractor.Extract(att.Filename, att.Content)
	if err != nil {
		uc.logger.Debug("text extraction failed", "filename", att.Filename, "error", err)
		return email.Body
	}
	if text == "" {
		return email.Body
	}
	return email.Body + "\n" + text
}

// applyAssetMatch takes the best resolver candidate, or falls back to the
// sender's highest-confidence mapping at a discount when the resolver found
// nothing.
func (uc *ProcessAttachmentUseCase) applyAssetMatch(
	outcome *domain.ProcessingOutcome,
	matches []domain.AssetMatch,
	mappings []domain.SenderMapping,
	senderKnown bool,
) {
	if len(matches) > 0 {
		outcome.AssetID = matches[0].AssetID
		outcome.AssetConfidence = matches[0].Confidence
		return
	}
	if !senderKnown {
		return
	}
	best := mappings[0]
	for _, m := range mappings[1:] {
		if m.Confidence > best.Confidence {
			best = m
		}
	}
	outcome.AssetID = best.AssetID
	outcome.AssetConfidence = best.Confidence * uc.cfg.SenderFallbackDiscount
}

// recordSenderActivity bumps the matched mapping's activity counter. The
// write is idempotent under retry; failures only warn.
func (uc *ProcessAttachmentUseCase) recordSenderActivity(
	ctx context.Context,
	outcome *domain.ProcessingOutcome,
	mappings []domain.SenderMapping,
) {
	if outcome.AssetID == "" {
		return
	}
	for _, m := range mappings {
		if m.AssetID != outcome.AssetID {
			continue
		}
		if err := uc.senders.RecordActivity(ctx, m.ID, outcome.Metadata.ProcessedAt); err != nil {
			uc.logger.Warn("record sender activity", "mapping_id", m.ID, "error", err)
		}
		return
	}
}

func (uc *ProcessAttachmentUseCase) destination(
	assets []domain.Asset,
	assetID string,
	category domain.DocumentCategory,
	filename string,
	at time.Time,
) string {
	name := sanitizeFilename(filename)
	if assetID == "" {
		return path.Join(uc.cfg.ReviewFolder, name)
	}
	for i := range assets {
		if assets[i].ID == assetID {
			return path.Join(assets[i].FolderPath, string(category), fmt.Sprintf("%04d", at.Year()), name)
		}
	}
	// Sender-fallback asset missing from the registry listing.
	return path.Join(uc.cfg.ReviewFolder, name)
}

// finish persists the terminal outcome. Losing the duplicate-index race at
// persist time demotes the outcome to a duplicate; any other persistence
// failure is surfaced as an error outcome so the caller can resubmit.
// SaveOutcome is idempotent either way.
func (uc *ProcessAttachmentUseCase) finish(ctx context.Context, outcome domain.ProcessingOutcome) domain.ProcessingOutcome {
	err := uc.store.SaveOutcome(ctx, &outcome)
	if err != nil && domain.IsKind(err, domain.ErrDuplicate) && outcome.Status == domain.StatusSuccess {
		outcome.Status = domain.StatusDuplicate
		outcome.DestinationPath = ""
		if prior, lookupErr := uc.store.LookupByHash(ctx, outcome.ContentHash); lookupErr == nil {
			outcome.DuplicateOf = prior.ID
		}
		err = uc.store.SaveOutcome(ctx, &outcome)
	}
	if err != nil {
		uc.logger.Error("persist outcome", "outcome_id", outcome.ID, "error", err)
		outcome.Status = domain.StatusError
		outcome.Error = fmt.Sprintf("persist outcome: %v", err)
		outcome.DestinationPath = ""
	}
	return outcome
}

func (uc *ProcessAttachmentUseCase) fail(ctx context.Context, outcome domain.ProcessingOutcome, err error) domain.ProcessingOutcome {
	outcome.Status = domain.StatusError
	outcome.Error = err.Error()
	outcome.DestinationPath = ""
	return uc.finish(ctx, outcome)
}

func newOutcome(att domain.Attachment, email domain.EmailContext) domain.ProcessingOutcome {
	return domain.ProcessingOutcome{
		ID:     uuid.NewString(),
		Status: domain.StatusPending,
		Metadata: domain.OutcomeMetadata{
			OriginalFilename: att.Filename,
			SizeBytes:        int64(len(att.Content)),
			Extension:        strings.ToLower(filepath.Ext(att.Filename)),
			SenderEmail:      domain.NormalizeSenderEmail(email.SenderEmail),
			Subject:          email.Subject,
			ProcessedAt:      time.Now().UTC(),
		},
	}
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
