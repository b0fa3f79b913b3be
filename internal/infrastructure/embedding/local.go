package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"newspulse/internal/config"
	"newspulse/internal/ports"
)

// ErrUnavailable is returned for every Embed call when the local model could
// not be reached at startup. Unavailability is a normal, permanent-for-process
// condition, not a per-call surprise.
var ErrUnavailable = errors.New("embedding capability unavailable")

const probeTimeout = 15 * time.Second

// LocalEmbedder wraps a locally served OpenAI-compatible embedding model.
// Embeddings are deliberately not sourced from the remote analysis API: the
// local model guarantees deterministic dimensionality and avoids a second
// network dependency.
type LocalEmbedder struct {
	embedder  embeddings.Embedder
	dimension int
	available bool
	logger    *slog.Logger
}

var _ ports.Embedder = (*LocalEmbedder)(nil)

// NewLocalEmbedder connects to the configured embedding host and probes it
// once. A failed probe yields a permanently unavailable embedder rather than
// an error; the pipeline degrades by dropping entries.
func NewLocalEmbedder(cfg config.EmbeddingConfig, logger *slog.Logger) *LocalEmbedder {
	if logger == nil {
		logger = slog.Default()
	}

	le := &LocalEmbedder{dimension: cfg.Dimension, logger: logger}

	client, err := openai.New(
		openai.WithBaseURL(cfg.Host),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		logger.Warn("embedding client not constructed, embeddings disabled", "error", err)
		return le
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		logger.Warn("embedder not constructed, embeddings disabled", "error", err)
		return le
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	if _, err := embedder.EmbedQuery(ctx, "startup probe"); err != nil {
		logger.Warn("embedding model unreachable, embeddings disabled",
			"host", cfg.Host, "model", cfg.Model, "error", err)
		return le
	}

	le.embedder = embedder
	le.available = true
	logger.Info("local embedding model ready", "model", cfg.Model, "dimension", cfg.Dimension)
	return le
}

// Available reports the startup availability decision.
func (e *LocalEmbedder) Available() bool {
	return e.available
}

// Embed produces a fixed-dimension vector for the text. A wrong-sized or
// all-zero result is an error, never a placeholder.
func (e *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if !e.available {
		return nil, ErrUnavailable
	}

	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}

	if e.dimension > 0 && len(vector) != e.dimension {
		return nil, fmt.Errorf("embedding has dimension %d, want %d", len(vector), e.dimension)
	}
	if isZeroVector(vector) {
		return nil, errors.New("embedding is an all-zero vector")
	}

	return vector, nil
}

func isZeroVector(vector []float32) bool {
	for _, v := range vector {
		if v != 0 {
			return false
		}
	}
	return true
}
