package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newspulse/internal/domain"
	"newspulse/internal/fetch"
)

// fakeRepository is an in-memory ports.NewsRepository.
type fakeRepository struct {
	mu         sync.Mutex
	sources    []domain.Source
	sourcesErr error
	itemURLs   map[string]bool
	commitErr  map[int64]error
	committed  map[int64][]domain.NewsItem
	statsCalls map[int64]int
}

func newFakeRepository(sources ...domain.Source) *fakeRepository {
	return &fakeRepository{
		sources:    sources,
		itemURLs:   map[string]bool{},
		commitErr:  map[int64]error{},
		committed:  map[int64][]domain.NewsItem{},
		statsCalls: map[int64]int{},
	}
}

func (r *fakeRepository) SourceExists(context.Context, string) (bool, error) {
	return false, nil
}

func (r *fakeRepository) CreateOrUpdateSource(_ context.Context, name, url, sourceType string) (domain.Source, error) {
	return domain.Source{Name: name, URL: url, Type: sourceType, IsActive: true}, nil
}

func (r *fakeRepository) ActiveSources(context.Context) ([]domain.Source, error) {
	if r.sourcesErr != nil {
		return nil, r.sourcesErr
	}
	return r.sources, nil
}

func (r *fakeRepository) ItemExists(_ context.Context, url string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.itemURLs[url], nil
}

func (r *fakeRepository) CommitItems(_ context.Context, sourceID int64, items []domain.NewsItem) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.commitErr[sourceID]; err != nil {
		return 0, err
	}
	stored := 0
	for _, item := range items {
		if r.itemURLs[item.URL] {
			continue
		}
		r.itemURLs[item.URL] = true
		r.committed[sourceID] = append(r.committed[sourceID], item)
		stored++
	}
	return stored, nil
}

func (r *fakeRepository) UpdateSourceStats(_ context.Context, sourceID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statsCalls[sourceID]++
	return nil
}

// fakeFetcher serves canned entries keyed by source name.
type fakeFetcher struct {
	entries map[string][]domain.Entry
	errs    map[string]error
}

func (f *fakeFetcher) Type() string { return "rss" }

func (f *fakeFetcher) Fetch(_ context.Context, req fetch.Request) ([]domain.Entry, error) {
	if err := f.errs[req.SourceName]; err != nil {
		return nil, err
	}
	return f.entries[req.SourceName], nil
}

// fakeAnalyzer counts calls and returns a fixed analysis.
type fakeAnalyzer struct {
	mu    sync.Mutex
	calls int
}

func (a *fakeAnalyzer) Analyze(context.Context, string, string) domain.Analysis {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return domain.Analysis{
		Summary:     "summary",
		ImpactScore: 50,
		Sentiment:   domain.SentimentNeutral,
		Category:    domain.CategoryGeneral,
	}
}

func (a *fakeAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// fakeEmbedder returns a unit vector, or an error for configured texts.
type fakeEmbedder struct {
	failFor map[string]bool
	zeroFor map[string]bool
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.failFor[text] {
		return nil, errors.New("embedding capability unavailable")
	}
	if e.zeroFor[text] {
		return []float32{0, 0, 0, 0}, nil
	}
	return []float32{0.1, 0.2, 0.3, 0.4}, nil
}

func newTestPipeline(t *testing.T, repo *fakeRepository, fetcher *fakeFetcher, analyzer *fakeAnalyzer, embedder *fakeEmbedder) *Pipeline {
	t.Helper()

	registry := fetch.NewRegistry()
	registry.Register(fetcher)

	pipeline, err := NewPipeline(PipelineDeps{
		Repository: repo,
		Fetchers:   registry,
		Analyzer:   analyzer,
		Embedder:   embedder,
	})
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)
	return pipeline
}

func rssSource(id int64, name string) domain.Source {
	return domain.Source{ID: id, Name: name, URL: "https://example.org/" + name, Type: "rss", IsActive: true}
}

func entry(n int) domain.Entry {
	return domain.Entry{
		Title:   fmt.Sprintf("Entry %d", n),
		Link:    fmt.Sprintf("https://example.org/posts/%d", n),
		Summary: fmt.Sprintf("Body of entry %d", n),
	}
}

func TestRunCycleStoresEnrichedEntries(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository(rssSource(1, "alpha"))
	fetcher := &fakeFetcher{entries: map[string][]domain.Entry{
		"alpha": {entry(1), entry(2), entry(3)},
	}}
	analyzer := &fakeAnalyzer{}
	pipeline := newTestPipeline(t, repo, fetcher, analyzer, &fakeEmbedder{})

	report := pipeline.RunCycle(context.Background())

	require.Len(t, report.Sources, 1)
	assert.NoError(t, report.Sources[0].Err)
	assert.Equal(t, 3, report.Sources[0].Stored)
	assert.Equal(t, 3, analyzer.callCount())
	assert.Len(t, repo.committed[1], 3)
	assert.Equal(t, 1, repo.statsCalls[1])
}

func TestRunCycleDedupSkipsEnrichment(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository(rssSource(1, "alpha"))
	fetcher := &fakeFetcher{entries: map[string][]domain.Entry{
		"alpha": {entry(1), entry(2)},
	}}
	analyzer := &fakeAnalyzer{}
	pipeline := newTestPipeline(t, repo, fetcher, analyzer, &fakeEmbedder{})

	first := pipeline.RunCycle(context.Background())
	require.Equal(t, 2, first.TotalStored())
	require.Equal(t, 2, analyzer.callCount())

	// Same unchanged feed on the next cycle: nothing analyzed, nothing stored.
	second := pipeline.RunCycle(context.Background())
	assert.Equal(t, 0, second.TotalStored())
	assert.Equal(t, 2, analyzer.callCount())
	assert.Equal(t, 2, second.Sources[0].Duplicates)
	assert.Len(t, repo.committed[1], 2)
}

func TestRunCycleDropsEntriesWithoutEmbedding(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository(rssSource(1, "alpha"))
	entries := []domain.Entry{entry(1), entry(2), entry(3)}
	fetcher := &fakeFetcher{entries: map[string][]domain.Entry{"alpha": entries}}
	embedder := &fakeEmbedder{failFor: map[string]bool{
		entries[1].Title + ". " + entries[1].Summary: true,
	}}
	pipeline := newTestPipeline(t, repo, fetcher, &fakeAnalyzer{}, embedder)

	report := pipeline.RunCycle(context.Background())

	require.Len(t, report.Sources, 1)
	assert.Equal(t, 2, report.Sources[0].Stored)
	assert.Equal(t, 1, report.Sources[0].Dropped)
	assert.Len(t, repo.committed[1], 2)
	assert.False(t, repo.itemURLs[entries[1].Link])
}

func TestRunCycleDropsZeroVectorEmbeddings(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository(rssSource(1, "alpha"))
	entries := []domain.Entry{entry(1)}
	fetcher := &fakeFetcher{entries: map[string][]domain.Entry{"alpha": entries}}
	embedder := &fakeEmbedder{zeroFor: map[string]bool{
		entries[0].Title + ". " + entries[0].Summary: true,
	}}
	pipeline := newTestPipeline(t, repo, fetcher, &fakeAnalyzer{}, embedder)

	report := pipeline.RunCycle(context.Background())
	assert.Equal(t, 0, report.TotalStored())
	assert.Equal(t, 1, report.Sources[0].Dropped)
}

func TestRunCycleSkipsInvalidEntries(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository(rssSource(1, "alpha"))
	fetcher := &fakeFetcher{entries: map[string][]domain.Entry{
		"alpha": {
			{Title: "", Link: "https://example.org/posts/1"},
			{Title: "No link"},
			entry(3),
		},
	}}
	analyzer := &fakeAnalyzer{}
	pipeline := newTestPipeline(t, repo, fetcher, analyzer, &fakeEmbedder{})

	report := pipeline.RunCycle(context.Background())
	assert.Equal(t, 2, report.Sources[0].Invalid)
	assert.Equal(t, 1, report.Sources[0].Stored)
	assert.Equal(t, 1, analyzer.callCount())
}

func TestRunCycleIsolatesFailingSource(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository(rssSource(1, "broken"), rssSource(2, "healthy"))
	fetcher := &fakeFetcher{
		entries: map[string][]domain.Entry{"healthy": {entry(1), entry(2)}},
		errs:    map[string]error{"broken": errors.New("connection refused")},
	}
	pipeline := newTestPipeline(t, repo, fetcher, &fakeAnalyzer{}, &fakeEmbedder{})

	report := pipeline.RunCycle(context.Background())

	require.Len(t, report.Sources, 2)
	byName := map[string]domain.SourceReport{}
	for _, src := range report.Sources {
		byName[src.Source] = src
	}

	assert.Error(t, byName["broken"].Err)
	assert.Equal(t, 0, byName["broken"].Stored)
	assert.NoError(t, byName["healthy"].Err)
	assert.Equal(t, 2, byName["healthy"].Stored)

	// Failing source's stats stay untouched; the healthy one advances.
	assert.Zero(t, repo.statsCalls[1])
	assert.Equal(t, 1, repo.statsCalls[2])
}

func TestRunCycleCommitFailureLeavesStatsUntouched(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository(rssSource(1, "alpha"))
	repo.commitErr[1] = errors.New("deadlock detected")
	fetcher := &fakeFetcher{entries: map[string][]domain.Entry{"alpha": {entry(1)}}}
	pipeline := newTestPipeline(t, repo, fetcher, &fakeAnalyzer{}, &fakeEmbedder{})

	report := pipeline.RunCycle(context.Background())
	assert.Error(t, report.Sources[0].Err)
	assert.Zero(t, repo.statsCalls[1])
}

func TestRunCycleCapsEntriesPerSource(t *testing.T) {
	t.Parallel()

	entries := make([]domain.Entry, 15)
	for i := range entries {
		entries[i] = entry(i)
	}

	repo := newFakeRepository(rssSource(1, "alpha"))
	fetcher := &fakeFetcher{entries: map[string][]domain.Entry{"alpha": entries}}
	analyzer := &fakeAnalyzer{}
	pipeline := newTestPipeline(t, repo, fetcher, analyzer, &fakeEmbedder{})

	report := pipeline.RunCycle(context.Background())

	assert.Equal(t, 10, report.Sources[0].Fetched)
	assert.Equal(t, 10, report.Sources[0].Stored)
	assert.Equal(t, 10, analyzer.callCount())

	// The first ten in feed order survive, the tail does not.
	assert.True(t, repo.itemURLs[entries[9].Link])
	assert.False(t, repo.itemURLs[entries[10].Link])
}

func TestRunCycleNoActiveSources(t *testing.T) {
	t.Parallel()

	pipeline := newTestPipeline(t, newFakeRepository(), &fakeFetcher{}, &fakeAnalyzer{}, &fakeEmbedder{})

	report := pipeline.RunCycle(context.Background())
	assert.NoError(t, report.Err)
	assert.Empty(t, report.Sources)
}

func TestRunCycleReportsSourceLoadFailure(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	repo.sourcesErr = errors.New("database unavailable")
	pipeline := newTestPipeline(t, repo, &fakeFetcher{}, &fakeAnalyzer{}, &fakeEmbedder{})

	report := pipeline.RunCycle(context.Background())
	assert.Error(t, report.Err)
}

func TestRunCycleUnknownSourceType(t *testing.T) {
	t.Parallel()

	src := rssSource(1, "alpha")
	src.Type = "carrier-pigeon"
	repo := newFakeRepository(src)
	pipeline := newTestPipeline(t, repo, &fakeFetcher{}, &fakeAnalyzer{}, &fakeEmbedder{})

	report := pipeline.RunCycle(context.Background())
	require.Len(t, report.Sources, 1)
	assert.Error(t, report.Sources[0].Err)
}

func TestRunCycleManySources(t *testing.T) {
	t.Parallel()

	var sources []domain.Source
	entries := map[string][]domain.Entry{}
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("source-%d", i)
		sources = append(sources, rssSource(int64(i+1), name))
		entries[name] = []domain.Entry{{
			Title:   fmt.Sprintf("Item from %s", name),
			Link:    fmt.Sprintf("https://example.org/%s/item", name),
			Summary: "body",
		}}
	}

	repo := newFakeRepository(sources...)
	fetcher := &fakeFetcher{entries: entries}
	pipeline := newTestPipeline(t, repo, fetcher, &fakeAnalyzer{}, &fakeEmbedder{})

	report := pipeline.RunCycle(context.Background())
	require.Len(t, report.Sources, 20)
	assert.Equal(t, 20, report.TotalStored())
	assert.Zero(t, report.FailedSources())
}
