package ports

import (
	"context"
	"time"

	"newspulse/internal/domain"
)

// Analyzer derives a summary, impact score, sentiment, and category from an
// entry's text. Implementations never fail outward; when the underlying
// capability is unavailable they fall back to local heuristics.
type Analyzer interface {
	Analyze(ctx context.Context, title, content string) domain.Analysis
}

// Embedder turns text into a fixed-dimension vector. An unavailable or
// misbehaving capability is reported as an error, never as a placeholder
// vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NewsRepository persists sources and enriched news items. CommitItems is the
// transactional boundary of one source's pass.
type NewsRepository interface {
	SourceExists(ctx context.Context, name string) (bool, error)
	CreateOrUpdateSource(ctx context.Context, name, url, sourceType string) (domain.Source, error)
	ActiveSources(ctx context.Context) ([]domain.Source, error)
	ItemExists(ctx context.Context, url string) (bool, error)
	CommitItems(ctx context.Context, sourceID int64, items []domain.NewsItem) (int, error)
	UpdateSourceStats(ctx context.Context, sourceID int64) error
}

// Scheduler controls when ingestion cycles execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
