package domain

import "time"

// Source is a configured syndication feed tracked by the ingestion pipeline.
// Fetch stats are mutated only after a successful pass.
type Source struct {
	ID          int64
	Name        string
	URL         string
	Type        string
	IsActive    bool
	CreatedAt   time.Time
	LastFetched *time.Time
	FetchCount  int
}

// Entry is a single feed item as parsed from the wire. It lives only for the
// duration of one source pass and is never persisted directly.
type Entry struct {
	Title       string
	Link        string
	Summary     string
	PublishedAt *time.Time
}

// Sentiment classifies the tone of an entry.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)

// Category cluster labels produced by analysis; free-form, but the fallback
// heuristics only ever emit one of these.
const (
	CategoryResearch = "Research"
	CategoryProduct  = "Product"
	CategoryBusiness = "Business"
	CategoryPolicy   = "Policy"
	CategoryGeneral  = "General"
)

// Analysis is the derived enrichment for one entry.
type Analysis struct {
	Summary     string
	ImpactScore int
	Sentiment   Sentiment
	Category    string
}

// NewsItem is a fully enriched record ready for persistence. It is committed
// only when Embedding is present and non-trivial.
type NewsItem struct {
	SourceID    int64
	Title       string
	URL         string
	PublishedAt time.Time
	Summary     string
	ImpactScore int
	Sentiment   Sentiment
	Category    string
	Embedding   []float32
}

// EntryOutcome records what happened to one entry during a source pass.
type EntryOutcome int

const (
	// EntryStored means the entry was enriched and queued for commit.
	EntryStored EntryOutcome = iota
	// EntryDuplicate means the entry URL already exists in storage.
	EntryDuplicate
	// EntryInvalid means the entry was missing a title or link.
	EntryInvalid
	// EntryDropped means no embedding could be produced.
	EntryDropped
	// EntryFailed means an error interrupted processing of this entry.
	EntryFailed
)

// SourceReport summarizes one source's pass within a cycle.
type SourceReport struct {
	Source     string
	Fetched    int
	Stored     int
	Duplicates int
	Invalid    int
	Dropped    int
	Failed     int
	Err        error
}

// CycleReport aggregates the outcome of one ingestion cycle.
type CycleReport struct {
	StartedAt time.Time
	Duration  time.Duration
	Sources   []SourceReport
	Err       error
}

// TotalStored sums newly committed items across all sources.
func (r CycleReport) TotalStored() int {
	total := 0
	for _, src := range r.Sources {
		total += src.Stored
	}
	return total
}

// FailedSources counts sources whose pass was abandoned.
func (r CycleReport) FailedSources() int {
	failed := 0
	for _, src := range r.Sources {
		if src.Err != nil {
			failed++
		}
	}
	return failed
}
