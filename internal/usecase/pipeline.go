package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"newspulse/internal/domain"
	"newspulse/internal/fetch"
	"newspulse/internal/ports"
)

const (
	defaultMaxEntries = 10
	defaultWorkers    = 4
)

// PipelineDeps wires all driven adapters into the ingestion pipeline.
type PipelineDeps struct {
	Repository ports.NewsRepository
	Fetchers   *fetch.Registry
	Analyzer   ports.Analyzer
	Embedder   ports.Embedder
	Logger     *slog.Logger

	// MaxEntries bounds how many entries of one feed are considered per
	// cycle; Workers caps concurrent source passes. Zero means default.
	MaxEntries int
	Workers    int
	UserAgent  string
}

// Pipeline implements the feed ingestion and enrichment workflow: one cycle
// fans out over all active sources, each source pass processes its newest
// entries, and only fully enriched items are committed.
type Pipeline struct {
	repository ports.NewsRepository
	fetchers   *fetch.Registry
	analyzer   ports.Analyzer
	embedder   ports.Embedder
	pool       *ants.Pool
	logger     *slog.Logger
	maxEntries int
	userAgent  string

	now func() time.Time
}

// NewPipeline constructs the orchestration component and its worker pool.
func NewPipeline(deps PipelineDeps) (*Pipeline, error) {
	if deps.Repository == nil {
		return nil, fmt.Errorf("repository required")
	}
	if deps.Fetchers == nil {
		return nil, fmt.Errorf("fetcher registry required")
	}
	if deps.Analyzer == nil {
		return nil, fmt.Errorf("analyzer required")
	}
	if deps.Embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxEntries := deps.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}

	workers := deps.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Pipeline{
		repository: deps.Repository,
		fetchers:   deps.Fetchers,
		analyzer:   deps.Analyzer,
		embedder:   deps.Embedder,
		pool:       pool,
		logger:     logger,
		maxEntries: maxEntries,
		userAgent:  deps.UserAgent,
		now:        time.Now,
	}, nil
}

// Release tears down the worker pool. The pipeline must not be used after.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// RunCycle ingests every active source concurrently and reports per-source
// outcomes. One source's failure never aborts its siblings; the cycle always
// finishes.
func (p *Pipeline) RunCycle(ctx context.Context) domain.CycleReport {
	started := p.now()
	report := domain.CycleReport{StartedAt: started}

	sources, err := p.repository.ActiveSources(ctx)
	if err != nil {
		p.logger.Error("load active sources", "error", err)
		report.Err = fmt.Errorf("load active sources: %w", err)
		report.Duration = p.now().Sub(started)
		return report
	}

	if len(sources) == 0 {
		p.logger.Warn("no active sources, skipping cycle")
		report.Duration = p.now().Sub(started)
		return report
	}

	p.logger.Info("starting ingestion cycle", "sources", len(sources))

	reports := make([]domain.SourceReport, len(sources))
	var wg sync.WaitGroup
	for i, source := range sources {
		i, source := i, source
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("source pass panicked", "source", source.Name, "panic", r)
					reports[i] = domain.SourceReport{
						Source: source.Name,
						Err:    fmt.Errorf("panic: %v", r),
					}
				}
			}()
			reports[i] = p.ingestSource(ctx, source)
		})
		if submitErr != nil {
			wg.Done()
			reports[i] = domain.SourceReport{Source: source.Name, Err: submitErr}
		}
	}
	wg.Wait()

	report.Sources = reports
	report.Duration = p.now().Sub(started)
	p.logger.Info("ingestion cycle completed",
		"stored", report.TotalStored(),
		"failed_sources", report.FailedSources(),
		"duration", report.Duration)
	return report
}

// ingestSource runs one source's pass: fetch, bound, process entries in feed
// order, commit once, then update fetch stats. Fetch or commit failure
// abandons the pass with nothing persisted and stats untouched.
func (p *Pipeline) ingestSource(ctx context.Context, source domain.Source) domain.SourceReport {
	report := domain.SourceReport{Source: source.Name}
	logger := p.logger.With("source", source.Name)

	fetcher, err := p.fetchers.Resolve(source.Type)
	if err != nil {
		logger.Error("no fetcher for source type", "type", source.Type, "error", err)
		report.Err = err
		return report
	}

	entries, err := fetcher.Fetch(ctx, fetch.Request{
		SourceName: source.Name,
		URL:        source.URL,
		UserAgent:  p.userAgent,
	})
	if err != nil {
		logger.Error("fetch failed", "error", err)
		report.Err = fmt.Errorf("fetch %s: %w", source.Name, err)
		return report
	}

	if len(entries) == 0 {
		logger.Warn("no entries found")
		return report
	}

	if len(entries) > p.maxEntries {
		entries = entries[:p.maxEntries]
	}
	report.Fetched = len(entries)

	items := make([]domain.NewsItem, 0, len(entries))
	for _, entry := range entries {
		item, outcome := p.processEntry(ctx, source, entry, logger)
		switch outcome {
		case domain.EntryStored:
			items = append(items, *item)
		case domain.EntryDuplicate:
			report.Duplicates++
		case domain.EntryInvalid:
			report.Invalid++
		case domain.EntryDropped:
			report.Dropped++
		case domain.EntryFailed:
			report.Failed++
		}
	}

	stored, err := p.repository.CommitItems(ctx, source.ID, items)
	if err != nil {
		logger.Error("commit failed", "items", len(items), "error", err)
		report.Err = fmt.Errorf("commit %s: %w", source.Name, err)
		return report
	}
	report.Stored = stored

	if err := p.repository.UpdateSourceStats(ctx, source.ID); err != nil {
		logger.Error("update source stats", "error", err)
	}

	logger.Info("source ingested",
		"fetched", report.Fetched,
		"stored", report.Stored,
		"duplicates", report.Duplicates,
		"dropped", report.Dropped)
	return report
}

// processEntry runs the per-entry pipeline: validate, dedup, analyze, embed,
// materialize. Every failure is contained to this entry.
func (p *Pipeline) processEntry(ctx context.Context, source domain.Source, entry domain.Entry, logger *slog.Logger) (*domain.NewsItem, domain.EntryOutcome) {
	if entry.Title == "" || entry.Link == "" {
		return nil, domain.EntryInvalid
	}

	exists, err := p.repository.ItemExists(ctx, entry.Link)
	if err != nil {
		logger.Error("dedup check failed", "url", entry.Link, "error", err)
		return nil, domain.EntryFailed
	}
	if exists {
		return nil, domain.EntryDuplicate
	}

	rawText := entry.Title + ". " + entry.Summary

	analysis := p.analyzer.Analyze(ctx, entry.Title, rawText)

	vector, err := p.embedder.Embed(ctx, rawText)
	if err != nil {
		logger.Warn("no embedding generated, dropping entry", "title", entry.Title, "error", err)
		return nil, domain.EntryDropped
	}
	if len(vector) == 0 || isTrivialVector(vector) {
		logger.Warn("trivial embedding, dropping entry", "title", entry.Title)
		return nil, domain.EntryDropped
	}

	publishedAt := p.now().UTC()
	if entry.PublishedAt != nil {
		publishedAt = *entry.PublishedAt
	}

	return &domain.NewsItem{
		SourceID:    source.ID,
		Title:       entry.Title,
		URL:         entry.Link,
		PublishedAt: publishedAt,
		Summary:     analysis.Summary,
		ImpactScore: analysis.ImpactScore,
		Sentiment:   analysis.Sentiment,
		Category:    analysis.Category,
		Embedding:   vector,
	}, domain.EntryStored
}

func isTrivialVector(vector []float32) bool {
	for _, v := range vector {
		if v != 0 {
			return false
		}
	}
	return true
}
