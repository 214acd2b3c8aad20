package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/docchat-go/internal/assistant"
	"github.com/54b3r/docchat-go/internal/embedder"
	"github.com/54b3r/docchat-go/internal/provider"
	"github.com/54b3r/docchat-go/internal/rag"
	"github.com/54b3r/docchat-go/internal/store"
)

// defaultCollection is the index queried when QDRANT_COLLECTION is unset.
const defaultCollection = "starburst"

// qdrantConfigFromEnv resolves the vector index connection from QDRANT_*.
// QDRANT_HOST selects the deployment.
func qdrantConfigFromEnv(collection string, createIfMissing bool) *rag.QdrantConfig {
	if collection == "" {
		collection = getEnvOrDefault("QDRANT_COLLECTION", defaultCollection)
	}
	return &rag.QdrantConfig{
		Host:            getEnvOrDefault("QDRANT_HOST", "localhost"),
		Port:            getEnvInt("QDRANT_PORT", 6334),
		Collection:      collection,
		VectorSize:      uint64(embedder.DefaultDimensions(embedder.Backend())), //nolint:gosec // dimensions are bounded
		APIKey:          os.Getenv("QDRANT_API_KEY"),
		UseTLS:          getEnvBool("QDRANT_TLS", false),
		CreateIfMissing: createIfMissing,
	}
}

// buildRetriever connects the embedder and the Qdrant index. The returned
// store is exposed for readiness probes; close releases the connection.
func buildRetriever(ctx context.Context, log *slog.Logger) (*rag.DefaultRetriever, *rag.QdrantStore, func(), error) {
	if err := embedder.Validate(log); err != nil {
		return nil, nil, nil, err
	}
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}

	qcfg := qdrantConfigFromEnv("", false)
	vs, err := rag.NewQdrantStore(ctx, qcfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", qcfg.Host, qcfg.Port, err)
	}
	log.Debug("qdrant store ready",
		slog.String("host", qcfg.Host),
		slog.String("collection", vs.Collection()),
	)

	retriever, err := rag.NewRetriever(emb, vs, getEnvInt("DOCCHAT_TOP_K", rag.DefaultTopK), rag.DefaultRetry)
	if err != nil {
		_ = vs.Close()
		return nil, nil, nil, err
	}
	return retriever, vs, func() { _ = vs.Close() }, nil
}

// openHistory opens the transcript store named by DOCCHAT_HISTORY_DB
// (default ~/.docchat/history.db). "disabled" turns persistence off. Failures
// are logged and leave persistence off; they never stop the chat.
func openHistory(log *slog.Logger) (store.TranscriptStore, func()) {
	dbPath := os.Getenv("DOCCHAT_HISTORY_DB")
	if dbPath == "disabled" {
		log.Debug("history: disabled via DOCCHAT_HISTORY_DB=disabled")
		return nil, func() {}
	}
	if dbPath == "" {
		var err error
		if dbPath, err = store.DefaultDBPath(); err != nil {
			log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil, func() {}
		}
	}
	hs, err := store.Open(dbPath)
	if err != nil {
		log.Warn("history: failed to open store, disabling", slog.Any("error", err))
		return nil, func() {}
	}
	log.Debug("history: store opened", slog.String("path", dbPath))
	return hs, func() { _ = hs.Close() }
}

// session bundles everything a command needs to answer questions.
type session struct {
	assistant   *assistant.Assistant
	chatModel   model.BaseChatModel
	providerCfg *provider.Config
	index       *rag.QdrantStore
	close       func()
}

// sessionOptions tune buildSession per command.
type sessionOptions struct {
	out       io.Writer
	debug     bool
	history   bool
	sessionID string
	metrics   prometheus.Registerer
}

// buildSession wires provider, retriever, history and assistant together.
func buildSession(ctx context.Context, log *slog.Logger, opts sessionOptions) (*session, error) {
	providerCfg := provider.ConfigFromEnv()
	chatModel, err := provider.New(ctx, providerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	log.Debug("provider initialised",
		slog.String("provider", string(providerCfg.Backend)),
		slog.String("model", providerCfg.ModelName()),
	)

	retriever, index, closeRetriever, err := buildRetriever(ctx, log)
	if err != nil {
		return nil, err
	}
	closers := []func(){closeRetriever}

	var history store.TranscriptStore
	if opts.history {
		var closeHistory func()
		history, closeHistory = openHistory(log)
		closers = append(closers, closeHistory)
	}

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	a, err := assistant.New(ctx, &assistant.Config{
		Retriever:       retriever,
		ChatModel:       chatModel,
		Out:             opts.out,
		Debug:           opts.debug || getEnvBool("DOCCHAT_DEBUG", false),
		TopK:            getEnvInt("DOCCHAT_TOP_K", rag.DefaultTopK),
		Temperature:     providerCfg.Tuning.Temperature,
		OmitTemperature: !providerCfg.SupportsTemperature(),
		TurnTimeout:     getEnvDuration("DOCCHAT_TURN_TIMEOUT", 0),
		History:         history,
		SessionID:       opts.sessionID,
		Metrics:         opts.metrics,
	})
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to initialise assistant: %w", err)
	}

	return &session{
		assistant:   a,
		chatModel:   chatModel,
		providerCfg: providerCfg,
		index:       index,
		close:       closeAll,
	}, nil
}

// getEnvOrDefault returns the value of the environment variable named by key,
// or fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvBool parses key with strconv.ParseBool, falling back on error.
func getEnvBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

// getEnvDuration parses key as a Go duration ("90s"), falling back on error.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return d
}
