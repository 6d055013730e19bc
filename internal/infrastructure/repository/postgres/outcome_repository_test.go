package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/crestline-am/docintake/internal/core/domain"
)

func newOutcomeRepoWithMock(t *testing.T) (*OutcomeRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &OutcomeRepository{db: db}, mock, func() { _ = db.Close() }
}

func outcomeRows(o domain.ProcessingOutcome) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "status", "content_hash", "destination_path", "confidence",
		"document_category", "tier", "asset_id", "asset_confidence",
		"duplicate_of", "quarantine_reason", "error_message",
		"original_filename", "size_bytes", "extension", "sender_email",
		"subject", "processed_at",
	}).AddRow(
		o.ID, string(o.Status), o.ContentHash, o.DestinationPath, o.Confidence,
		string(o.DocumentCategory), string(o.Tier), o.AssetID, o.AssetConfidence,
		o.DuplicateOf, o.QuarantineReason, o.Error, o.Metadata.OriginalFilename,
		o.Metadata.SizeBytes, o.Metadata.Extension, o.Metadata.SenderEmail,
		o.Metadata.Subject, o.Metadata.ProcessedAt,
	)
}

func TestLookupByHashReturnsNotFound(t *testing.T) {
	repo, mock, done := newOutcomeRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT").
		WithArgs("deadbeef", string(domain.StatusSuccess)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.LookupByHash(context.Background(), "deadbeef")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLookupByHashReturnsCanonicalRecord(t *testing.T) {
	repo, mock, done := newOutcomeRepoWithMock(t)
	defer done()

	stored := domain.ProcessingOutcome{
		ID:          "out-1",
		Status:      domain.StatusSuccess,
		ContentHash: "cafe",
		Metadata: domain.OutcomeMetadata{
			OriginalFilename: "rent_roll.xlsx",
			ProcessedAt:      time.Now().UTC(),
		},
	}
	mock.ExpectQuery("SELECT").
		WithArgs("cafe", string(domain.StatusSuccess)).
		WillReturnRows(outcomeRows(stored))

	got, err := repo.LookupByHash(context.Background(), "cafe")
	if err != nil {
		t.Fatalf("LookupByHash: %v", err)
	}
	if got.ID != "out-1" || got.Status != domain.StatusSuccess {
		t.Fatalf("unexpected record %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveOutcomeUpserts(t *testing.T) {
	repo, mock, done := newOutcomeRepoWithMock(t)
	defer done()

	outcome := domain.ProcessingOutcome{
		ID:          "out-1",
		Status:      domain.StatusSuccess,
		ContentHash: "cafe",
		Metadata: domain.OutcomeMetadata{
			OriginalFilename: "rent_roll.xlsx",
			ProcessedAt:      time.Now().UTC(),
		},
	}

	mock.ExpectExec("INSERT INTO outcomes").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveOutcome(context.Background(), &outcome); err != nil {
		t.Fatalf("SaveOutcome: %v", err)
	}

	// A retried save hits the same upsert and stays idempotent.
	mock.ExpectExec("INSERT INTO outcomes").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.SaveOutcome(context.Background(), &outcome); err != nil {
		t.Fatalf("retried SaveOutcome: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveOutcomeMapsUniqueViolationToDuplicate(t *testing.T) {
	repo, mock, done := newOutcomeRepoWithMock(t)
	defer done()

	outcome := domain.ProcessingOutcome{
		ID:          "out-2",
		Status:      domain.StatusSuccess,
		ContentHash: "cafe",
		Metadata: domain.OutcomeMetadata{
			OriginalFilename: "rent_roll.xlsx",
			ProcessedAt:      time.Now().UTC(),
		},
	}

	mock.ExpectExec("INSERT INTO outcomes").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_outcomes_success_hash"})

	err := repo.SaveOutcome(context.Background(), &outcome)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListForReviewScansRows(t *testing.T) {
	repo, mock, done := newOutcomeRepoWithMock(t)
	defer done()

	first := domain.ProcessingOutcome{
		ID:     "out-1",
		Status: domain.StatusQuarantined,
		Metadata: domain.OutcomeMetadata{
			OriginalFilename: "a.pdf",
			ProcessedAt:      time.Now().UTC(),
		},
	}
	second := domain.ProcessingOutcome{
		ID:     "out-2",
		Status: domain.StatusSuccess,
		Tier:   domain.TierLow,
		Metadata: domain.OutcomeMetadata{
			OriginalFilename: "b.pdf",
			ProcessedAt:      time.Now().UTC(),
		},
	}

	rows := outcomeRows(first)
	rows.AddRow(
		second.ID, string(second.Status), second.ContentHash, second.DestinationPath,
		second.Confidence, string(second.DocumentCategory), string(second.Tier),
		second.AssetID, second.AssetConfidence, second.DuplicateOf,
		second.QuarantineReason, second.Error, second.Metadata.OriginalFilename,
		second.Metadata.SizeBytes, second.Metadata.Extension,
		second.Metadata.SenderEmail, second.Metadata.Subject, second.Metadata.ProcessedAt,
	)

	mock.ExpectQuery("SELECT").
		WithArgs(string(domain.TierLow), string(domain.TierVeryLow), string(domain.StatusQuarantined), 10).
		WillReturnRows(rows)

	got, err := repo.ListForReview(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListForReview: %v", err)
	}
	if len(got) != 2 || got[0].ID != "out-1" || got[1].ID != "out-2" {
		t.Fatalf("unexpected review queue %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
