package localfs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/crestline-am/docintake/internal/core/domain"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestSaveAndOpenRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	content := []byte("quarterly report body")
	if err := s.Save(ctx, "emails/msg-1/Q2_Report.pdf", bytes.NewReader(content)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	rc, err := s.Open(ctx, "emails/msg-1/Q2_Report.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("read %q, want %q", got, content)
	}
}

func TestSaveOverwritesExistingKey(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.Save(ctx, "k", bytes.NewReader([]byte("v1"))); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save(ctx, "k", bytes.NewReader([]byte("v2"))); err != nil {
		t.Fatalf("Save() second error = %v", err)
	}

	rc, err := s.Open(ctx, "k")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "v2" {
		t.Fatalf("read %q, want v2", got)
	}
}

func TestOpenMissingKeyIsNotFound(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Open(context.Background(), "emails/missing/none.pdf")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("Open() error = %v, want not-found kind", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.Save(ctx, "emails/msg-2/a.pdf", bytes.NewReader([]byte("x"))); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Delete(ctx, "emails/msg-2/a.pdf"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "emails/msg-2/a.pdf"); err != nil {
		t.Fatalf("Delete() second call error = %v", err)
	}
	if _, err := s.Open(ctx, "emails/msg-2/a.pdf"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("Open() after delete error = %v, want not-found kind", err)
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	base := t.TempDir()
	s, err := New(filepath.Join(base, "staging"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = s.Save(context.Background(), "../escape.pdf", bytes.NewReader([]byte("x")))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("Save() error = %v, want invalid-input kind", err)
	}
	if _, statErr := os.Stat(filepath.Join(base, "escape.pdf")); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("traversal key wrote outside the staging dir")
	}
}

func TestRejectsEmptyKey(t *testing.T) {
	s := newTestStorage(t)

	if err := s.Save(context.Background(), "  ", bytes.NewReader(nil)); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("Save() error = %v, want invalid-input kind", err)
	}
}
