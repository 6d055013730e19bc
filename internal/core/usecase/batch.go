package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/crestline-am/docintake/internal/core/domain"
	"github.com/crestline-am/docintake/internal/core/ports"
)

// ProcessEmailUseCase fans the attachment pipeline out over one email. The
// scanner stage dominates latency and is independent per file, so
// attachments run concurrently; outcomes come back in input order.
type ProcessEmailUseCase struct {
	processor ports.AttachmentProcessor
	logger    *slog.Logger
}

func NewProcessEmailUseCase(processor ports.AttachmentProcessor, logger *slog.Logger) *ProcessEmailUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessEmailUseCase{processor: processor, logger: logger}
}

// ProcessEmail processes every attachment of one email with per-item
// isolation: a panic or failure in one attachment never affects its
// siblings' outcomes.
func (uc *ProcessEmailUseCase) ProcessEmail(
	ctx context.Context,
	atts []domain.Attachment,
	email domain.EmailContext,
	known domain.AssetCategory,
) []domain.ProcessingOutcome {
	outcomes := make([]domain.ProcessingOutcome, len(atts))

	var wg sync.WaitGroup
	for i := range atts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					uc.logger.Error("attachment processing panicked",
						"filename", atts[i].Filename, "panic", r)
					outcomes[i] = panicOutcome(atts[i], email, r)
				}
			}()
			outcomes[i] = uc.processor.ProcessAttachment(ctx, atts[i], email, known)
		}(i)
	}
	wg.Wait()

	return outcomes
}

func panicOutcome(att domain.Attachment, email domain.EmailContext, cause any) domain.ProcessingOutcome {
	outcome := newOutcome(att, email)
	outcome.Status = domain.StatusError
	outcome.Error = fmt.Sprintf("panic: %v", cause)
	return outcome
}
