package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/crestline-am/docintake/internal/core/domain"
	"github.com/crestline-am/docintake/internal/infrastructure/resilience"
)

const workerQueueGroup = "intake-workers"

// Queue carries email envelopes from the intake API to workers and routed
// outcomes downstream. Envelopes hold staging keys, never attachment bytes.
type Queue struct {
	conn            *nats.Conn
	emailsSubject   string
	outcomesSubject string
	executor        *resilience.Executor
	logger          *slog.Logger
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url, emailsSubject, outcomesSubject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("docintake"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:            conn,
		emailsSubject:   emailsSubject,
		outcomesSubject: outcomesSubject,
		executor:        options.ResilienceExecutor,
		logger:          logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishEmailReceived(ctx context.Context, envelope domain.EmailEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "nats.publish_email", err)
	}
	return q.publish(ctx, "nats.publish_email", q.emailsSubject, payload)
}

func (q *Queue) PublishOutcome(ctx context.Context, outcome domain.ProcessingOutcome) error {
	if !outcome.Status.Terminal() {
		return domain.WrapError(domain.ErrInvalidInput, "nats.publish_outcome",
			fmt.Errorf("outcome %s has non-terminal status %s", outcome.ID, outcome.Status))
	}
	payload, err := json.Marshal(outcome)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "nats.publish_outcome", err)
	}
	return q.publish(ctx, "nats.publish_outcome", q.outcomesSubject, payload)
}

func (q *Queue) publish(ctx context.Context, operation, subject string, payload []byte) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish %s: %w", subject, err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, operation, call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(err)
}

// SubscribeEmailReceived consumes envelopes in the worker queue group until
// ctx is cancelled, then drains the subscription. Malformed envelopes are
// logged and dropped rather than redelivered forever.
func (q *Queue) SubscribeEmailReceived(ctx context.Context, handler func(context.Context, domain.EmailEnvelope) error) error {
	sub, err := q.conn.QueueSubscribe(q.emailsSubject, workerQueueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		var envelope domain.EmailEnvelope
		if err := json.Unmarshal(msg.Data, &envelope); err != nil {
			q.logger.Error("dropping malformed email envelope", "subject", msg.Subject, "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, envelope); err != nil {
			q.logger.Error("email handler failed", "email_id", envelope.EmailID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
