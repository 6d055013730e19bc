package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/crestline-am/docintake/internal/core/domain"
)

// SenderMappingRepository looks up sender→asset associations.
type SenderMappingRepository struct {
	db *sql.DB
}

func NewSenderMappingRepository(db *sql.DB) *SenderMappingRepository {
	return &SenderMappingRepository{db: db}
}

func (r *SenderMappingRepository) ListBySender(ctx context.Context, senderEmail string) ([]domain.SenderMapping, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, sender_email, asset_id, confidence, document_types, email_count, last_activity_date, created_at
FROM sender_mappings
WHERE sender_email = $1
ORDER BY confidence DESC, created_at
`, domain.NormalizeSenderEmail(senderEmail))
	if err != nil {
		return nil, fmt.Errorf("query sender mappings: %w", err)
	}
	defer rows.Close()

	var mappings []domain.SenderMapping
	for rows.Next() {
		var m domain.SenderMapping
		var typesRaw []byte
		if err := rows.Scan(
			&m.ID, &m.SenderEmail, &m.AssetID, &m.Confidence, &typesRaw,
			&m.EmailCount, &m.LastActivityDate, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan sender mapping: %w", err)
		}
		if err := json.Unmarshal(typesRaw, &m.DocumentTypes); err != nil {
			return nil, fmt.Errorf("unmarshal document types: %w", err)
		}
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sender mappings: %w", err)
	}
	return mappings, nil
}

// RecordActivity bumps the mapping's counter once per distinct activity
// timestamp: the guard on last_activity_date makes a retried write with the
// same timestamp a no-op.
func (r *SenderMappingRepository) RecordActivity(ctx context.Context, mappingID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE sender_mappings
SET email_count = email_count + 1, last_activity_date = $2
WHERE id = $1 AND last_activity_date < $2
`, mappingID, at.UTC())
	if err != nil {
		return fmt.Errorf("record sender activity: %w", err)
	}
	return nil
}
