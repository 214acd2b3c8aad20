// Package rag defines the retrieval side of docchat: the document model, the
// embedding and vector-store contracts, and the retriever that combines them.
// Concrete backends (Qdrant, OpenAI, Ollama) satisfy these interfaces so the
// assistant never depends on a specific provider.
package rag

import (
	"context"
	"errors"
)

// PayloadText is the payload key holding a snippet's text. The assistant
// builds its context exclusively from this field.
const PayloadText = "text"

// PayloadSource is the payload key holding a snippet's origin URI or path.
const PayloadSource = "source"

// Document is a unit of stored or retrieved knowledge.
type Document struct {
	// ID is the unique identifier for this chunk (a UUID string).
	ID string

	// Content is the snippet text, stored under PayloadText.
	Content string

	// Source is the origin URI or file path.
	Source string

	// Metadata holds any other payload fields as strings.
	Metadata map[string]string

	// Score is the provider's similarity score. Zero when not computed.
	Score float32
}

// VectorStore persists and searches document embeddings.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores or updates docs; embeddings[i] is the vector for docs[i].
	Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error

	// Search returns up to topK documents nearest to queryEmbedding, in the
	// provider's ranking order.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error)

	// PruneSource removes every document of source whose ID is not in keep.
	PruneSource(ctx context.Context, source string, keep []string) error

	// Close releases any resources held by the store.
	Close() error
}

// Embedder converts text into dense vectors.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed returns one embedding per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever fetches the documents most relevant to a query.
type Retriever interface {
	// Retrieve returns up to topK documents for query. topK <= 0 selects the
	// retriever's default.
	Retrieve(ctx context.Context, query string, topK int) ([]Document, error)
}

var (
	// ErrEmbedding tags failures of the embedding call.
	ErrEmbedding = errors.New("embedding failed")

	// ErrSearch tags failures of the vector search call.
	ErrSearch = errors.New("vector search failed")

	// ErrRejected tags backend responses that a retry cannot change, such as
	// a bad API key or an unknown model.
	ErrRejected = errors.New("request rejected")
)

// Stage names the remote call that produced err: "embed", "search", or
// "unknown".
func Stage(err error) string {
	switch {
	case errors.Is(err, ErrEmbedding):
		return "embed"
	case errors.Is(err, ErrSearch):
		return "search"
	default:
		return "unknown"
	}
}
