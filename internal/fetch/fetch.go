package fetch

import (
	"context"
	"fmt"

	"newspulse/internal/domain"
)

// Request carries all parameters required to pull one source's entries.
type Request struct {
	SourceName string
	URL        string
	UserAgent  string
	Options    map[string]string
}

// Fetcher captures a single retrieval strategy keyed by source type
// ("rss", "html", ...).
type Fetcher interface {
	Type() string
	Fetch(ctx context.Context, req Request) ([]domain.Entry, error)
}

// Registry keeps a mapping from source types to their fetcher implementations.
type Registry struct {
	fetchers map[string]Fetcher
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: map[string]Fetcher{}}
}

// Register adds or replaces a fetcher implementation.
func (r *Registry) Register(fetcher Fetcher) {
	if r.fetchers == nil {
		r.fetchers = map[string]Fetcher{}
	}
	r.fetchers[fetcher.Type()] = fetcher
}

// Resolve returns a fetcher by source type or an error if it is absent.
func (r *Registry) Resolve(sourceType string) (Fetcher, error) {
	if fetcher, ok := r.fetchers[sourceType]; ok {
		return fetcher, nil
	}
	return nil, fmt.Errorf("fetcher %s is not registered", sourceType)
}
