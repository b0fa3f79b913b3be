package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"newspulse/internal/config"
	"newspulse/internal/domain"
	"newspulse/internal/ports"
)

const (
	maxContentChars  = 1200
	maxResponseBytes = 64 << 10
	defaultTimeout   = 30 * time.Second
)

// Client calls the remote analysis capability and falls back to keyword
// heuristics whenever the remote side is unavailable or malformed. Analyze
// never fails outward.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	limiter    *Limiter
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.Analyzer = (*Client)(nil)

// NewClient builds an analysis client from configuration. An empty endpoint
// yields a permanently disabled client that serves fallback results only.
func NewClient(cfg config.AnalysisConfig, limiter *Limiter, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if limiter == nil {
		limiter = NewLimiter(cfg.MaxPerMinute)
	}

	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		limiter:    limiter,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Enabled reports whether a remote endpoint is configured.
func (c *Client) Enabled() bool {
	return c.endpoint != ""
}

type analyzeRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}

// Analyze derives enrichment for one entry. Remote calls are rate limited;
// a disabled client skips the limiter entirely since no network call is made.
func (c *Client) Analyze(ctx context.Context, title, content string) domain.Analysis {
	if !c.Enabled() {
		return Fallback(title, content)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		c.logger.Warn("analysis rate-limit wait interrupted", "error", err)
		return Fallback(title, content)
	}

	raw, err := c.post(ctx, title, content)
	if err != nil {
		c.logger.Warn("analysis call failed, using fallback", "error", err)
		return Fallback(title, content)
	}

	result, ok := parseAnalysis(raw, content)
	if !ok {
		c.logger.Warn("analysis response unparsable, using fallback")
		return Fallback(title, content)
	}

	return result
}

func (c *Client) post(ctx context.Context, title, content string) (string, error) {
	body, err := json.Marshal(analyzeRequest{
		Title:   title,
		Content: snippet(content, maxContentChars),
		Model:   c.model,
	})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	return string(raw), nil
}
