// Package clamav adapts a command-line virus scanner into the pipeline's
// scan stage. The attachment is staged to a transient file, the scanner runs
// under a bounded timeout, and its exit status is parsed into a verdict.
package clamav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/crestline-am/docintake/internal/core/domain"
)

const (
	defaultBinary  = "clamscan"
	defaultTimeout = 30 * time.Second
)

type Scanner struct {
	binary  string
	timeout time.Duration
	tmpDir  string
	logger  *slog.Logger
}

func New(binary string, timeout time.Duration, tmpDir string, logger *slog.Logger) *Scanner {
	if binary == "" {
		binary = defaultBinary
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{binary: binary, timeout: timeout, tmpDir: tmpDir, logger: logger}
}

// Scan writes the content to a transient file and runs the scanner over it.
// Verdicts, including scan errors and timeouts, come back in the result; the
// error return is reserved for staging failures and caller cancellation. The
// transient file is removed on every path.
func (s *Scanner) Scan(ctx context.Context, filename string, content []byte) (domain.ScanResult, error) {
	if _, err := exec.LookPath(s.binary); err != nil {
		return domain.ScanResult{
			Status: domain.ScanUnavailable,
			Detail: fmt.Sprintf("%s not found in PATH", s.binary),
		}, nil
	}

	path, cleanup, err := s.stage(filename, content)
	if err != nil {
		return domain.ScanResult{}, fmt.Errorf("stage attachment for scan: %w", err)
	}
	defer cleanup()

	scanCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(scanCtx, s.binary, "--no-summary", path)
	output, runErr := cmd.CombinedOutput()

	if ctxErr := scanCtx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return domain.ScanResult{Status: domain.ScanTimeout, Detail: "scan deadline exceeded"}, nil
		}
		// Caller cancellation; the subprocess has already been killed.
		return domain.ScanResult{}, ctxErr
	}

	if runErr == nil {
		return domain.ScanResult{Status: domain.ScanClean}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) && exitErr.ExitCode() == 1 {
		return domain.ScanResult{Status: domain.ScanInfected, Threat: parseThreat(output)}, nil
	}
	return domain.ScanResult{Status: domain.ScanError, Detail: firstLine(output)}, nil
}

func (s *Scanner) stage(filename string, content []byte) (string, func(), error) {
	f, err := os.CreateTemp(s.tmpDir, "scan-*"+filepath.Ext(filename))
	if err != nil {
		return "", nil, fmt.Errorf("create transient file: %w", err)
	}
	path := f.Name()
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("remove transient scan file", "path", path, "error", err)
		}
	}

	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write transient file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close transient file: %w", err)
	}
	return path, cleanup, nil
}

// parseThreat extracts the signature name from clamscan's
// "<path>: <threat> FOUND" report line.
func parseThreat(output []byte) string {
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasSuffix(line, " FOUND") {
			continue
		}
		line = strings.TrimSuffix(line, " FOUND")
		if idx := strings.LastIndex(line, ": "); idx >= 0 {
			return line[idx+2:]
		}
		return line
	}
	return "unknown threat"
}

func firstLine(output []byte) string {
	text := strings.TrimSpace(string(output))
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return text
}
