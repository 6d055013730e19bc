package clamav

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/crestline-am/docintake/internal/core/domain"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fakescan")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestScanCleanExitZero(t *testing.T) {
	s := New(writeScript(t, "exit 0"), time.Second, t.TempDir(), nil)

	result, err := s.Scan(context.Background(), "doc.pdf", []byte("clean"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Status != domain.ScanClean {
		t.Fatalf("expected clean, got %+v", result)
	}
}

func TestScanInfectedParsesThreat(t *testing.T) {
	s := New(writeScript(t, `echo "/tmp/f: Eicar-Test-Signature FOUND"
exit 1`), time.Second, t.TempDir(), nil)

	result, err := s.Scan(context.Background(), "doc.pdf", []byte("bad"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Status != domain.ScanInfected {
		t.Fatalf("expected infected, got %+v", result)
	}
	if result.Threat != "Eicar-Test-Signature" {
		t.Fatalf("expected parsed threat label, got %q", result.Threat)
	}
}

func TestScanErrorExitCode(t *testing.T) {
	s := New(writeScript(t, `echo "database outdated"
exit 2`), time.Second, t.TempDir(), nil)

	result, err := s.Scan(context.Background(), "doc.pdf", []byte("x"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Status != domain.ScanError {
		t.Fatalf("expected scan error, got %+v", result)
	}
	if result.Detail != "database outdated" {
		t.Fatalf("expected scanner output as detail, got %q", result.Detail)
	}
}

func TestScanTimeout(t *testing.T) {
	s := New(writeScript(t, "sleep 5"), 50*time.Millisecond, t.TempDir(), nil)

	result, err := s.Scan(context.Background(), "doc.pdf", []byte("slow"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Status != domain.ScanTimeout {
		t.Fatalf("expected timeout, got %+v", result)
	}
}

func TestScanMissingBinaryIsUnavailable(t *testing.T) {
	s := New("definitely-not-a-real-scanner-binary", time.Second, t.TempDir(), nil)

	result, err := s.Scan(context.Background(), "doc.pdf", []byte("x"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Status != domain.ScanUnavailable {
		t.Fatalf("expected unavailable, got %+v", result)
	}
}

func TestScanRemovesTransientFile(t *testing.T) {
	tmpDir := t.TempDir()
	s := New(writeScript(t, "exit 0"), time.Second, tmpDir, nil)

	if _, err := s.Scan(context.Background(), "doc.pdf", []byte("clean")); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("read tmp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected transient files removed, found %d entries", len(entries))
	}
}

func TestScanRemovesTransientFileOnInfection(t *testing.T) {
	tmpDir := t.TempDir()
	s := New(writeScript(t, `echo "f: X FOUND"
exit 1`), time.Second, tmpDir, nil)

	if _, err := s.Scan(context.Background(), "doc.pdf", []byte("bad")); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("read tmp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected transient files removed, found %d entries", len(entries))
	}
}
