package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/crestline-am/docintake/internal/core/domain"
)

func TestClassifyNATSError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		retryable     bool
		recordFailure bool
	}{
		{"no servers", nats.ErrNoServers, true, true},
		{"timeout", nats.ErrTimeout, true, true},
		{"connection closed", nats.ErrConnectionClosed, true, true},
		{"context canceled", context.Canceled, false, false},
		{"deadline exceeded", context.DeadlineExceeded, false, false},
		{"unknown error", errors.New("bad payload"), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class := classifyNATSError(tt.err)
			if class.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", class.Retryable, tt.retryable)
			}
			if class.RecordFailure != tt.recordFailure {
				t.Errorf("RecordFailure = %v, want %v", class.RecordFailure, tt.recordFailure)
			}
		})
	}
}

func TestWrapTemporaryTagsConnectivityFailures(t *testing.T) {
	err := wrapTemporaryIfNeeded(nats.ErrConnectionClosed)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("wrapTemporaryIfNeeded() = %v, want temporary kind", err)
	}
}

func TestWrapTemporaryLeavesTerminalErrorsAlone(t *testing.T) {
	terminal := errors.New("envelope rejected")
	if got := wrapTemporaryIfNeeded(terminal); !errors.Is(got, terminal) || domain.IsKind(got, domain.ErrTemporary) {
		t.Fatalf("wrapTemporaryIfNeeded() = %v, want untouched terminal error", got)
	}
	if got := wrapTemporaryIfNeeded(nil); got != nil {
		t.Fatalf("wrapTemporaryIfNeeded(nil) = %v, want nil", got)
	}
}
