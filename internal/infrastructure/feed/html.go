package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"newspulse/internal/domain"
	"newspulse/internal/fetch"
)

// Option keys understood by the HTML fetcher; all are optional.
const (
	optItemSelector    = "item_selector"
	optTitleSelector   = "title_selector"
	optSummarySelector = "summary_selector"
)

// HTMLFetcher scrapes article listings from plain HTML pages for sources that
// publish no feed. Each matched item needs at least a link and a title.
type HTMLFetcher struct {
	client *http.Client
}

var _ fetch.Fetcher = (*HTMLFetcher)(nil)

// NewHTMLFetcher wires an HTTP client; a nil client gets a 20s timeout default.
func NewHTMLFetcher(client *http.Client) *HTMLFetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTMLFetcher{client: client}
}

// Type identifies the strategy inside the registry.
func (f *HTMLFetcher) Type() string {
	return "html"
}

// Fetch downloads the listing page and extracts entries using the configured
// selectors, defaulting to <article> blocks.
func (f *HTMLFetcher) Fetch(ctx context.Context, req fetch.Request) ([]domain.Entry, error) {
	base, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid source url %s: %w", req.URL, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent(req))

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	itemSel := option(req, optItemSelector, "article")
	titleSel := option(req, optTitleSelector, "")
	summarySel := option(req, optSummarySelector, "p")

	var entries []domain.Entry
	doc.Find(itemSel).Each(func(i int, item *goquery.Selection) {
		entry, ok := parseListing(item, base, titleSel, summarySel)
		if !ok {
			return
		}
		entries = append(entries, entry)
	})

	return entries, nil
}

func parseListing(item *goquery.Selection, base *url.URL, titleSel, summarySel string) (domain.Entry, bool) {
	link := item.Find("a[href]").First()
	href, exists := link.Attr("href")
	if !exists {
		return domain.Entry{}, false
	}

	title := strings.TrimSpace(link.Text())
	if titleSel != "" {
		title = strings.TrimSpace(item.Find(titleSel).First().Text())
	}
	if title == "" {
		return domain.Entry{}, false
	}

	return domain.Entry{
		Title:       title,
		Link:        resolveLink(base, href),
		Summary:     strings.TrimSpace(item.Find(summarySel).First().Text()),
		PublishedAt: parseListingTime(item),
	}, true
}

// parseListingTime reads a <time datetime="..."> child when present. Listings
// without one fall through to the pipeline's fetch-time default.
func parseListingTime(item *goquery.Selection) *time.Time {
	raw, exists := item.Find("time").First().Attr("datetime")
	if !exists {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
			return &parsed
		}
	}
	return nil
}

func resolveLink(base *url.URL, href string) string {
	parsed, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(parsed).String()
}

func option(req fetch.Request, key, fallback string) string {
	if v, ok := req.Options[key]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}
