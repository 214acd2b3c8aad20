// Package embedder provides rag.Embedder implementations. OpenAI and Azure
// OpenAI go through the official openai-go SDK; Ollama goes through the
// eino-contrib/ollama API client.
package embedder

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"github.com/54b3r/docchat-go/internal/rag"
)

// OpenAIEmbedder implements rag.Embedder using the OpenAI (or Azure OpenAI)
// embeddings API. It is safe for concurrent use.
type OpenAIEmbedder struct {
	// client is the SDK client, preconfigured with auth and endpoint.
	client openai.Client
	// model is the embedding model or Azure deployment name.
	model string
	// dimensions is the requested vector length (0 = model default).
	dimensions int
}

// OpenAIConfig holds the settings for constructing an OpenAIEmbedder.
type OpenAIConfig struct {
	// BaseURL overrides the API base ("" = SDK default). Ignored for Azure.
	BaseURL string
	// APIKey is the authentication key.
	APIKey string
	// Model is the embedding model name (e.g. "text-embedding-ada-002").
	Model string
	// Dimensions is the desired vector length (0 = model default).
	// text-embedding-ada-002 rejects this parameter, so leave it 0 there.
	Dimensions int
	// Azure switches to Azure OpenAI auth and routing.
	Azure bool
	// Endpoint is the Azure resource endpoint. Azure only.
	Endpoint string
	// APIVersion is the Azure OpenAI API version. Azure only.
	APIVersion string
	// MaxRetries is passed to the SDK's own retry loop (default 2).
	MaxRetries int
}

// NewOpenAIEmbedder constructs an OpenAIEmbedder from cfg.
func NewOpenAIEmbedder(cfg *OpenAIConfig) *OpenAIEmbedder {
	opts := []option.RequestOption{}
	if cfg.Azure {
		opts = append(opts,
			azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion),
			azure.WithAPIKey(cfg.APIKey),
		)
	} else {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	return &OpenAIEmbedder{
		client:     openai.NewClient(opts...),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// Embed converts a batch of texts into embeddings, ordered like texts.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	}
	if e.dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			err = classifyStatus(apiErr.StatusCode, err)
		}
		return nil, fmt.Errorf("openai embedder: request failed: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embedder: expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	// The API may return data out of order; place by index.
	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) {
			return nil, fmt.Errorf("openai embedder: index %d out of range [0, %d)", d.Index, len(texts))
		}
		embeddings[d.Index] = toFloat32(d.Embedding)
	}

	return embeddings, nil
}

// toFloat32 narrows the SDK's float64 vector to the float32 Qdrant stores.
func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

// classifyStatus tags err with rag.ErrRejected when the HTTP status is a
// client error that a retry would repeat. 408 and 429 stay retryable.
func classifyStatus(code int, err error) error {
	if code >= 400 && code < 500 && code != 408 && code != 429 {
		return fmt.Errorf("%w: %w", rag.ErrRejected, err)
	}
	return err
}
