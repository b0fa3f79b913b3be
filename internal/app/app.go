package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"newspulse/internal/config"
	"newspulse/internal/domain"
	"newspulse/internal/fetch"
	"newspulse/internal/infrastructure/analysis"
	"newspulse/internal/infrastructure/embedding"
	"newspulse/internal/infrastructure/feed"
	"newspulse/internal/infrastructure/scheduler"
	"newspulse/internal/infrastructure/storage"
	"newspulse/internal/logging"
	"newspulse/internal/ports"
	"newspulse/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	db         *sql.DB
	repository ports.NewsRepository
	pipeline   *usecase.Pipeline
	scheduler  *usecase.Scheduler
}

// New builds a runnable application instance: database, fetcher registry,
// enrichment clients, pipeline, and scheduler.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	repository := storage.NewPostgresRepository(db)

	registry := fetch.NewRegistry()
	registry.Register(feed.NewRSSFetcher(nil))
	registry.Register(feed.NewHTMLFetcher(nil))

	limiter := analysis.NewLimiter(cfg.Analysis.MaxPerMinute)
	analyzer := analysis.NewClient(cfg.Analysis, limiter, baseLogger.With("component", "analysis"))
	embedder := embedding.NewLocalEmbedder(cfg.Embedding, baseLogger.With("component", "embedding"))

	pipeline, err := usecase.NewPipeline(usecase.PipelineDeps{
		Repository: repository,
		Fetchers:   registry,
		Analyzer:   analyzer,
		Embedder:   embedder,
		Logger:     baseLogger.With("component", "pipeline"),
		MaxEntries: cfg.Ingestion.MaxEntriesPerSource,
		Workers:    cfg.Ingestion.Workers,
		UserAgent:  cfg.Ingestion.UserAgent,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	driver := scheduler.NewIntervalScheduler(
		time.Duration(cfg.Scheduler.IntervalMinutes)*time.Minute,
		cfg.Scheduler.RunOnStart,
	)

	return &Application{
		cfg:        cfg,
		logger:     baseLogger,
		db:         db,
		repository: repository,
		pipeline:   pipeline,
		scheduler:  usecase.NewScheduler(driver, pipeline),
	}, nil
}

// Start launches the recurring ingestion schedule.
func (a *Application) Start(ctx context.Context) error {
	a.logger.Info("scheduler starting",
		"interval_minutes", a.cfg.Scheduler.IntervalMinutes,
		"run_on_start", a.cfg.Scheduler.RunOnStart)
	return a.scheduler.Start(ctx)
}

// Stop halts the schedule, letting an in-flight cycle finish.
func (a *Application) Stop(ctx context.Context) error {
	return a.scheduler.Stop(ctx)
}

// RunOnce executes a single ingestion cycle synchronously. Same contract as
// the scheduled path; used by the manual trigger.
func (a *Application) RunOnce(ctx context.Context) domain.CycleReport {
	return a.pipeline.RunCycle(ctx)
}

// SeedSources creates or updates every configured source.
func (a *Application) SeedSources(ctx context.Context) error {
	for _, src := range a.cfg.Sources {
		if _, err := a.repository.CreateOrUpdateSource(ctx, src.Name, src.URL, src.Type); err != nil {
			a.logger.Error("seed source failed", "source", src.Name, "error", err)
			continue
		}
		a.logger.Info("source seeded", "source", src.Name)
	}
	return nil
}

// Close releases the worker pool and the database connection.
func (a *Application) Close() error {
	a.pipeline.Release()
	return a.db.Close()
}
