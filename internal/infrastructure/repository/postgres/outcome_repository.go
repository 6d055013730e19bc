package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/crestline-am/docintake/internal/core/domain"
)

// OutcomeRepository persists processing outcomes and serves as the duplicate
// index: the partial unique index over successful content hashes guarantees
// at most one canonical stored document per digest.
type OutcomeRepository struct {
	db *sql.DB
}

func NewOutcomeRepository(db *sql.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

const outcomeColumns = `
id, status, content_hash, destination_path, confidence, document_category,
tier, asset_id, asset_confidence, duplicate_of, quarantine_reason,
error_message, original_filename, size_bytes, extension, sender_email,
subject, processed_at`

func (r *OutcomeRepository) LookupByHash(ctx context.Context, contentHash string) (*domain.ProcessingOutcome, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT`+outcomeColumns+`
FROM outcomes
WHERE content_hash = $1 AND status = $2
`, contentHash, string(domain.StatusSuccess))

	outcome, err := scanOutcome(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "lookup by hash", err)
		}
		return nil, fmt.Errorf("scan outcome by hash: %w", err)
	}
	return outcome, nil
}

// SaveOutcome upserts by id, so retried submissions of the same outcome are
// idempotent.
func (r *OutcomeRepository) SaveOutcome(ctx context.Context, o *domain.ProcessingOutcome) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO outcomes (
	id, status, content_hash, destination_path, confidence, document_category,
	tier, asset_id, asset_confidence, duplicate_of, quarantine_reason,
	error_message, original_filename, size_bytes, extension, sender_email,
	subject, processed_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	content_hash = EXCLUDED.content_hash,
	destination_path = EXCLUDED.destination_path,
	confidence = EXCLUDED.confidence,
	document_category = EXCLUDED.document_category,
	tier = EXCLUDED.tier,
	asset_id = EXCLUDED.asset_id,
	asset_confidence = EXCLUDED.asset_confidence,
	duplicate_of = EXCLUDED.duplicate_of,
	quarantine_reason = EXCLUDED.quarantine_reason,
	error_message = EXCLUDED.error_message,
	processed_at = EXCLUDED.processed_at
`,
		o.ID, string(o.Status), o.ContentHash, o.DestinationPath, o.Confidence,
		string(o.DocumentCategory), string(o.Tier), o.AssetID, o.AssetConfidence,
		o.DuplicateOf, o.QuarantineReason, o.Error, o.Metadata.OriginalFilename,
		o.Metadata.SizeBytes, o.Metadata.Extension, o.Metadata.SenderEmail,
		o.Metadata.Subject, o.Metadata.ProcessedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Another outcome already holds this success hash; the race loser
			// is a duplicate, not a failure.
			return domain.WrapError(domain.ErrDuplicate, "upsert outcome", err)
		}
		return fmt.Errorf("upsert outcome: %w", err)
	}
	return nil
}

func (r *OutcomeRepository) GetOutcome(ctx context.Context, id string) (*domain.ProcessingOutcome, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT`+outcomeColumns+`
FROM outcomes
WHERE id = $1
`, id)

	outcome, err := scanOutcome(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get outcome", err)
		}
		return nil, fmt.Errorf("scan outcome: %w", err)
	}
	return outcome, nil
}

// ListForReview returns the human-review queue: low-confidence routings and
// quarantined attachments, newest first.
func (r *OutcomeRepository) ListForReview(ctx context.Context, limit int) ([]domain.ProcessingOutcome, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT`+outcomeColumns+`
FROM outcomes
WHERE tier IN ($1, $2) OR status = $3
ORDER BY processed_at DESC
LIMIT $4
`, string(domain.TierLow), string(domain.TierVeryLow), string(domain.StatusQuarantined), limit)
	if err != nil {
		return nil, fmt.Errorf("query review outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []domain.ProcessingOutcome
	for rows.Next() {
		outcome, err := scanOutcome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review outcome: %w", err)
		}
		outcomes = append(outcomes, *outcome)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review outcomes: %w", err)
	}
	return outcomes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOutcome(row rowScanner) (*domain.ProcessingOutcome, error) {
	var o domain.ProcessingOutcome
	var status, category, tier string

	err := row.Scan(
		&o.ID, &status, &o.ContentHash, &o.DestinationPath, &o.Confidence,
		&category, &tier, &o.AssetID, &o.AssetConfidence, &o.DuplicateOf,
		&o.QuarantineReason, &o.Error, &o.Metadata.OriginalFilename,
		&o.Metadata.SizeBytes, &o.Metadata.Extension, &o.Metadata.SenderEmail,
		&o.Metadata.Subject, &o.Metadata.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = domain.ProcessingStatus(status)
	o.DocumentCategory = domain.DocumentCategory(category)
	o.Tier = domain.ConfidenceTier(tier)
	return &o, nil
}
