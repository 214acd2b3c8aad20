package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultTopK is the number of snippets retrieved per query.
const DefaultTopK = 5

// RetryConfig bounds how transient embed/search failures are retried.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	// Zero disables retries.
	MaxRetries int

	// InitialInterval is the first backoff delay (default: 250ms).
	InitialInterval time.Duration

	// MaxInterval caps any single backoff delay (default: 2s).
	MaxInterval time.Duration
}

// DefaultRetry is the retry policy used by the CLI.
var DefaultRetry = RetryConfig{MaxRetries: 2, InitialInterval: 250 * time.Millisecond, MaxInterval: 2 * time.Second}

// DefaultRetriever implements Retriever by embedding the query and
// delegating similarity search to a VectorStore.
type DefaultRetriever struct {
	// embedder converts query text to a dense vector.
	embedder Embedder

	// store performs the vector similarity search.
	store VectorStore

	// defaultTopK is used when Retrieve is called with topK <= 0.
	defaultTopK int

	// retry is the backoff policy for each remote call.
	retry RetryConfig
}

// NewRetriever constructs a DefaultRetriever. defaultTopK <= 0 selects
// DefaultTopK.
func NewRetriever(embedder Embedder, store VectorStore, defaultTopK int, retry RetryConfig) (*DefaultRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	if retry.InitialInterval <= 0 {
		retry.InitialInterval = DefaultRetry.InitialInterval
	}
	if retry.MaxInterval <= 0 {
		retry.MaxInterval = DefaultRetry.MaxInterval
	}
	return &DefaultRetriever{
		embedder:    embedder,
		store:       store,
		defaultTopK: defaultTopK,
		retry:       retry,
	}, nil
}

// Retrieve embeds query and returns up to topK documents in the store's
// ranking order. Errors wrap ErrEmbedding or ErrSearch.
func (r *DefaultRetriever) Retrieve(ctx context.Context, query string, topK int) ([]Document, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}

	var vector []float32
	err := r.withRetry(ctx, func() error {
		embeddings, err := r.embedder.Embed(ctx, []string{query})
		if err != nil {
			return err
		}
		if len(embeddings) == 0 || len(embeddings[0]) == 0 {
			return backoff.Permanent(errors.New("embedder returned no vector for query"))
		}
		vector = embeddings[0]
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rag: %w: %w", ErrEmbedding, err)
	}

	var docs []Document
	err = r.withRetry(ctx, func() error {
		var err error
		docs, err = r.store.Search(ctx, vector, topK)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("rag: %w: %w", ErrSearch, err)
	}

	return docs, nil
}

// withRetry runs op under the configured exponential backoff. Context
// cancellation and rejected requests are never retried.
func (r *DefaultRetriever) withRetry(ctx context.Context, op func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.retry.InitialInterval
	eb.MaxInterval = r.retry.MaxInterval
	eb.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(max(r.retry.MaxRetries, 0))), ctx) //nolint:gosec // clamped above

	return backoff.Retry(func() error {
		err := op()
		if err != nil && (ctx.Err() != nil || rejected(err)) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

// rejected reports whether err is a refusal from the backend: an error tagged
// ErrRejected by an embedder, or a Qdrant gRPC status that names a client
// mistake.
func rejected(err error) bool {
	if errors.Is(err, ErrRejected) {
		return true
	}
	switch status.Code(err) {
	case codes.InvalidArgument, codes.NotFound, codes.PermissionDenied,
		codes.Unauthenticated, codes.FailedPrecondition:
		return true
	default:
		return false
	}
}
