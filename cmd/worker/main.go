package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crestline-am/docintake/internal/bootstrap"
	"github.com/crestline-am/docintake/internal/config"
	"github.com/crestline-am/docintake/internal/core/domain"
	"github.com/crestline-am/docintake/internal/core/ports"
	"github.com/crestline-am/docintake/internal/core/usecase"
	"github.com/crestline-am/docintake/internal/observability/logging"
	"github.com/crestline-am/docintake/internal/observability/metrics"
)

const serviceName = "intake-worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	m := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: m.Handler(),
	}
	go func() {
		logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	batchUC := usecase.NewProcessEmailUseCase(
		&instrumentedProcessor{inner: app.ProcessUC, metrics: m},
		logger,
	)
	consumer := &emailConsumer{
		storage: app.Storage,
		queue:   app.Queue,
		batch:   batchUC,
		metrics: m,
		logger:  logger,
	}

	logger.Info("worker subscribed", "subject", cfg.NATSEmailsSubject)
	if err := app.Queue.SubscribeEmailReceived(ctx, consumer.handle); err != nil {
		logger.Error("worker subscribe failed", "error", err)
		os.Exit(1)
	}
}

type emailConsumer struct {
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	batch   ports.BatchProcessor
	metrics *metrics.WorkerMetrics
	logger  *slog.Logger
}

func (c *emailConsumer) handle(ctx context.Context, envelope domain.EmailEnvelope) error {
	processCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if !envelope.Context.Date.IsZero() {
		c.metrics.ObserveQueueLag(serviceName, time.Since(envelope.Context.Date))
	}

	attachments, err := c.loadAttachments(processCtx, envelope)
	if err != nil {
		return err
	}

	outcomes := c.batch.ProcessEmail(processCtx, attachments, envelope.Context, envelope.Category)
	for _, outcome := range outcomes {
		if err := c.queue.PublishOutcome(processCtx, outcome); err != nil {
			c.logger.Warn("publish outcome failed", "outcome_id", outcome.ID, "error", err)
		}
	}

	// Staged bytes are only needed for one pass; outcomes carry the rest.
	for _, staged := range envelope.Attachments {
		if err := c.storage.Delete(processCtx, staged.StorageKey); err != nil {
			c.logger.Warn("delete staged attachment failed", "key", staged.StorageKey, "error", err)
		}
	}
	return nil
}

func (c *emailConsumer) loadAttachments(ctx context.Context, envelope domain.EmailEnvelope) ([]domain.Attachment, error) {
	attachments := make([]domain.Attachment, 0, len(envelope.Attachments))
	for _, staged := range envelope.Attachments {
		rc, err := c.storage.Open(ctx, staged.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("open staged attachment %s: %w", staged.StorageKey, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read staged attachment %s: %w", staged.StorageKey, err)
		}
		attachments = append(attachments, domain.Attachment{
			Filename: staged.Filename,
			Content:  content,
		})
	}
	return attachments, nil
}

// instrumentedProcessor wraps the pipeline with per-attachment metrics.
type instrumentedProcessor struct {
	inner   ports.AttachmentProcessor
	metrics *metrics.WorkerMetrics
}

func (p *instrumentedProcessor) ProcessAttachment(
	ctx context.Context,
	att domain.Attachment,
	email domain.EmailContext,
	known domain.AssetCategory,
) domain.ProcessingOutcome {
	p.metrics.StartAttachment()
	start := time.Now()
	outcome := p.inner.ProcessAttachment(ctx, att, email, known)
	p.metrics.FinishAttachment(serviceName, &outcome, time.Since(start))
	return outcome
}
