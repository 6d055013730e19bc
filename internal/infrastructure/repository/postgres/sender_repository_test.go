package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newSenderRepoWithMock(t *testing.T) (*SenderMappingRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &SenderMappingRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestListBySenderNormalizesAddress(t *testing.T) {
	repo, mock, done := newSenderRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "sender_email", "asset_id", "confidence", "document_types",
		"email_count", "last_activity_date", "created_at",
	}).AddRow("map-1", "reports@alpha.com", "asset-1", 0.9, []byte(`["rent_roll"]`), 4, now, now)

	mock.ExpectQuery("SELECT").
		WithArgs("reports@alpha.com").
		WillReturnRows(rows)

	mappings, err := repo.ListBySender(context.Background(), "  Reports@Alpha.COM ")
	if err != nil {
		t.Fatalf("ListBySender: %v", err)
	}
	if len(mappings) != 1 || mappings[0].AssetID != "asset-1" {
		t.Fatalf("unexpected mappings %+v", mappings)
	}
	if mappings[0].DocumentTypes[0] != "rent_roll" {
		t.Fatalf("expected decoded document types, got %+v", mappings[0].DocumentTypes)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListBySenderEmptyResult(t *testing.T) {
	repo, mock, done := newSenderRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT").
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "sender_email", "asset_id", "confidence", "document_types",
			"email_count", "last_activity_date", "created_at",
		}))

	mappings, err := repo.ListBySender(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("ListBySender: %v", err)
	}
	if len(mappings) != 0 {
		t.Fatalf("expected no mappings, got %+v", mappings)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordActivityIsIdempotentForRepeatedTimestamp(t *testing.T) {
	repo, mock, done := newSenderRepoWithMock(t)
	defer done()

	at := time.Now().UTC()

	mock.ExpectExec("UPDATE sender_mappings").
		WithArgs("map-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.RecordActivity(context.Background(), "map-1", at); err != nil {
		t.Fatalf("RecordActivity: %v", err)
	}

	// Same timestamp again: the guard matches no rows and that is fine.
	mock.ExpectExec("UPDATE sender_mappings").
		WithArgs("map-1", at).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.RecordActivity(context.Background(), "map-1", at); err != nil {
		t.Fatalf("retried RecordActivity: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
