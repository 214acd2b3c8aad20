// Package assistant answers questions about the product documentation with
// retrieval-augmented prompting. Each turn embeds the question, fetches the
// nearest snippets from the vector index, builds a prompt around them and
// streams the chat model's answer to the output as it arrives.
//
// Turns are stateless: nothing from a previous turn reaches the next prompt.
package assistant

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/docchat-go/internal/budget"
	"github.com/54b3r/docchat-go/internal/rag"
	"github.com/54b3r/docchat-go/internal/store"
)

// Config holds the dependencies and settings for an Assistant. Everything is
// fixed for the Assistant's lifetime.
type Config struct {
	// Retriever finds the snippets for a question. Required.
	Retriever rag.Retriever

	// ChatModel generates the answer. Required.
	ChatModel model.BaseChatModel

	// Out receives greetings, answers and debug output. Defaults to os.Stdout.
	Out io.Writer

	// Debug prints the retrieved context before each answer.
	Debug bool

	// TopK is the number of snippets requested per question. Defaults to 5.
	TopK int

	// MaxContextTokens bounds the retrieved context. Defaults to
	// budget.DefaultContextTokens. Negative disables the bound.
	MaxContextTokens int

	// Temperature is the sampling temperature sent with every request.
	Temperature float32

	// OmitTemperature leaves sampling to the model's defaults. Reasoning
	// deployments reject the parameter.
	OmitTemperature bool

	// TurnTimeout bounds a whole turn. Zero means no limit.
	TurnTimeout time.Duration

	// History, when set, receives each answered question and answer.
	History store.TranscriptStore

	// SessionID keys History entries. Defaults to a fresh random ID.
	SessionID string

	// Metrics is the registry for turn metrics. Defaults to a private registry.
	Metrics prometheus.Registerer
}

// Assistant runs question turns against a retriever and a chat model. It is
// safe for concurrent use once constructed.
type Assistant struct {
	retriever rag.Retriever
	chain     compose.Runnable[[]*schema.Message, *schema.Message]
	out       io.Writer

	debug            bool
	topK             int
	maxContextTokens int
	modelOpts        []model.Option
	turnTimeout      time.Duration

	history   store.TranscriptStore
	sessionID string

	metrics *turnMetrics
}

// New validates cfg and compiles the generation chain. The chat model runs
// inside a compiled eino chain so globally registered callbacks (tracing)
// observe every call.
func New(ctx context.Context, cfg *Config) (*Assistant, error) {
	if cfg == nil {
		return nil, fmt.Errorf("assistant: config must not be nil")
	}
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("assistant: Retriever must not be nil")
	}
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("assistant: ChatModel must not be nil")
	}

	chain := compose.NewChain[[]*schema.Message, *schema.Message]()
	chain.AppendChatModel(cfg.ChatModel)
	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("assistant: compile chain: %w", err)
	}

	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = rag.DefaultTopK
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx == 0 {
		maxCtx = budget.DefaultContextTokens
	}
	var opts []model.Option
	if !cfg.OmitTemperature {
		opts = append(opts, model.WithTemperature(cfg.Temperature))
	}
	session := cfg.SessionID
	if session == "" {
		session = store.NewSessionID()
	}
	reg := cfg.Metrics
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Assistant{
		retriever:        cfg.Retriever,
		chain:            runnable,
		out:              out,
		debug:            cfg.Debug,
		topK:             topK,
		maxContextTokens: maxCtx,
		modelOpts:        opts,
		turnTimeout:      cfg.TurnTimeout,
		history:          cfg.History,
		sessionID:        session,
		metrics:          newTurnMetrics(reg),
	}, nil
}

// SessionID returns the key under which this assistant records transcripts.
func (a *Assistant) SessionID() string {
	return a.sessionID
}
