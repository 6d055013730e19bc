package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/crestline-am/docintake/internal/classify"
	"github.com/crestline-am/docintake/internal/config"
	"github.com/crestline-am/docintake/internal/core/ports"
	"github.com/crestline-am/docintake/internal/core/usecase"
	"github.com/crestline-am/docintake/internal/infrastructure/extractor/pdftext"
	"github.com/crestline-am/docintake/internal/infrastructure/queue/nats"
	"github.com/crestline-am/docintake/internal/infrastructure/registry/excel"
	"github.com/crestline-am/docintake/internal/infrastructure/repository/postgres"
	"github.com/crestline-am/docintake/internal/infrastructure/resilience"
	"github.com/crestline-am/docintake/internal/infrastructure/scanner/clamav"
	"github.com/crestline-am/docintake/internal/infrastructure/storage/localfs"
	"github.com/crestline-am/docintake/internal/resolve"
)

// App wires every adapter behind the core ports. Both binaries build the
// same graph; the api uses the intake side, the worker the pipeline side.
type App struct {
	Config config.Config

	Storage   ports.ObjectStorage
	Queue     *nats.Queue
	Outcomes  ports.DocumentStore
	Registry  ports.AssetRegistry
	Importer  ports.RegistryImporter
	ProcessUC ports.AttachmentProcessor
	BatchUC   ports.BatchProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	outcomes := postgres.NewOutcomeRepository(db)
	registry := postgres.NewAssetRepository(db)
	senders := postgres.NewSenderMappingRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)
	queue, err := nats.New(cfg.NATSURL, cfg.NATSEmailsSubject, cfg.NATSOutcomesSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	classifier, err := buildClassifier(cfg)
	if err != nil {
		queue.Close()
		db.Close()
		return nil, fmt.Errorf("init classifier: %w", err)
	}

	resolver := resolve.New(resolve.Options{MaxTextChars: cfg.ResolverMaxTextChars})
	scanner := clamav.New(cfg.ScannerBinary, cfg.ScannerTimeout, cfg.ScannerTmpDir, logger)
	extractor := pdftext.New()
	importer := excel.NewImporter(registry, logger)

	processUC := usecase.NewProcessAttachmentUseCase(
		outcomes, registry, senders, scanner, classifier, resolver, extractor,
		usecase.PipelineConfig{
			BlendWeights: usecase.BlendWeights{
				Document: cfg.BlendDocWeight,
				Asset:    cfg.BlendAssetWeight,
				Sender:   cfg.BlendSenderWeight,
			},
			Thresholds: usecase.TierThresholds{
				High:   cfg.TierHighThreshold,
				Medium: cfg.TierMediumThreshold,
				Low:    cfg.TierLowThreshold,
			},
			SenderFallbackDiscount: cfg.SenderFallbackDiscount,
			ScanFailOpen:           cfg.ScannerFailOpen,
			ReviewFolder:           cfg.ReviewFolder,
		},
		logger,
	)
	batchUC := usecase.NewProcessEmailUseCase(processUC, logger)

	return &App{
		Config: cfg,

		Storage:   storage,
		Queue:     queue,
		Outcomes:  outcomes,
		Registry:  registry,
		Importer:  importer,
		ProcessUC: processUC,
		BatchUC:   batchUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func buildClassifier(cfg config.Config) (*classify.Classifier, error) {
	weights := classify.Weights{
		Filename: cfg.ClassifyFilenameWeight,
		Subject:  cfg.ClassifySubjectWeight,
		Body:     cfg.ClassifyBodyWeight,
	}
	if cfg.ClassifierTablesPath == "" {
		return classify.New(weights), nil
	}
	tables, err := classify.LoadTables(cfg.ClassifierTablesPath)
	if err != nil {
		return nil, err
	}
	return classify.NewFromTables(weights, tables)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
