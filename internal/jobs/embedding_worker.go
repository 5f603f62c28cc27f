// Package jobs runs the offline embedding work behind corpus builds.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cloo-solutions/vdoc/internal/domain"
)

const (
	// MaxRetries is the maximum number of attempts per chunk
	MaxRetries = 3

	// DefaultConcurrency bounds in-flight embedding calls
	DefaultConcurrency = 4
)

// Embedder produces one vector per text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingWorker embeds a chunk table with bounded concurrency. Output rows
// stay aligned with the input regardless of completion order.
type EmbeddingWorker struct {
	embedder    Embedder
	concurrency int
	backoff     time.Duration
}

// NewEmbeddingWorker creates a new EmbeddingWorker instance
func NewEmbeddingWorker(embedder Embedder, concurrency int) *EmbeddingWorker {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &EmbeddingWorker{
		embedder:    embedder,
		concurrency: concurrency,
		backoff:     500 * time.Millisecond,
	}
}

// EmbedAll returns vectors[i] for chunks[i]. The first chunk that still fails
// after MaxRetries attempts aborts the whole batch.
func (w *EmbeddingWorker) EmbedAll(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for i, text := range chunks {
		g.Go(func() error {
			v, err := w.embedOne(ctx, i, text)
			if err != nil {
				return err
			}
			vectors[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Printf("Embedded %d chunks", len(chunks))
	return vectors, nil
}

func (w *EmbeddingWorker) embedOne(ctx context.Context, row int, text string) ([]float32, error) {
	var lastErr error
	for attempt := 1; attempt <= MaxRetries; attempt++ {
		v, err := w.embedder.Embed(ctx, text)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if !retryable(err) || attempt == MaxRetries {
			break
		}
		log.Printf("Chunk %d failed, retrying (attempt %d/%d): %v", row, attempt+1, MaxRetries, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(w.backoff * time.Duration(attempt)):
		}
	}
	return nil, fmt.Errorf("chunk %d: %w", row, lastErr)
}

// retryable treats only transport-level embedding failures as transient.
// Empty text and dimension errors will fail the same way every time.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrCanceled) {
		return false
	}
	var de *domain.DomainError
	if !errors.As(err, &de) {
		return true
	}
	return errors.Is(err, domain.ErrEmbeddingFailure)
}
