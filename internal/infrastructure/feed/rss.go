package feed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"newspulse/internal/domain"
	"newspulse/internal/fetch"
)

const defaultUserAgent = "Mozilla/5.0 (newspulse; +https://localhost)"

// RSSFetcher pulls RSS/Atom documents over HTTP and parses them into entries.
type RSSFetcher struct {
	client *http.Client
}

var _ fetch.Fetcher = (*RSSFetcher)(nil)

// NewRSSFetcher wires an HTTP client; a nil client gets a 20s timeout default.
func NewRSSFetcher(client *http.Client) *RSSFetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &RSSFetcher{client: client}
}

// Type identifies the strategy inside the registry.
func (f *RSSFetcher) Type() string {
	return "rss"
}

// Fetch retrieves the feed document and maps its items to entries. Some feeds
// refuse requests without a browser-looking User-Agent, so the header is
// always set.
func (f *RSSFetcher) Fetch(ctx context.Context, req fetch.Request) ([]domain.Entry, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent(req))

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	// gofeed.Parser mutates itself during Parse, so one instance per call
	// keeps concurrent source passes independent.
	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	entries := make([]domain.Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		entries = append(entries, domain.Entry{
			Title:       strings.TrimSpace(item.Title),
			Link:        strings.TrimSpace(item.Link),
			Summary:     strings.TrimSpace(item.Description),
			PublishedAt: item.PublishedParsed,
		})
	}

	return entries, nil
}

func userAgent(req fetch.Request) string {
	if req.UserAgent != "" {
		return req.UserAgent
	}
	return defaultUserAgent
}
