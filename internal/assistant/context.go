package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/54b3r/docchat-go/internal/budget"
	"github.com/54b3r/docchat-go/internal/logging"
	"github.com/54b3r/docchat-go/internal/rag"
)

// RetrieveContext returns the snippets nearest to query joined into one
// context string, bounded by maxLen estimated tokens (maxLen <= 0: no bound).
// It returns NoMatchesAnswer when the index has nothing for the query and
// NoContextAnswer when the embed or search call fails.
func (a *Assistant) RetrieveContext(ctx context.Context, query string, maxLen int) string {
	text, _ := a.contextOrSentinel(ctx, query, maxLen)
	return text
}

// BuildPrompt returns the full user message for query, or NoMatchesAnswer
// unchanged when there is nothing to answer from. A failed retrieval still
// yields a prompt, carrying NoContextAnswer in place of the context.
func (a *Assistant) BuildPrompt(ctx context.Context, query string) string {
	prompt, _ := a.buildPrompt(ctx, query)
	return prompt
}

// buildPrompt is BuildPrompt with the retrieval error exposed.
func (a *Assistant) buildPrompt(ctx context.Context, query string) (string, error) {
	text, err := a.contextOrSentinel(ctx, query, a.maxContextTokens)
	if errors.Is(err, ErrNoMatches) {
		return NoMatchesAnswer, err
	}

	if a.debug {
		fmt.Fprintf(a.out, "Context:\n%s\n\n\n\n", text)
	}

	return composePrompt(text, query), err
}

// contextOrSentinel maps retrieval results onto the observable strings,
// logging failures with the stage that produced them.
func (a *Assistant) contextOrSentinel(ctx context.Context, query string, maxLen int) (string, error) {
	text, err := a.retrieveContext(ctx, query, maxLen)
	switch {
	case err == nil:
		return text, nil
	case errors.Is(err, ErrNoMatches):
		return NoMatchesAnswer, err
	default:
		logging.FromContext(ctx).Error("context retrieval failed",
			slog.String("stage", rag.Stage(err)),
			slog.Any("error", err),
		)
		return NoContextAnswer, err
	}
}

// retrieveContext fetches the top-k snippets and joins them. Errors are
// ErrNoMatches or the retriever's tagged rag.ErrEmbedding / rag.ErrSearch.
func (a *Assistant) retrieveContext(ctx context.Context, query string, maxLen int) (string, error) {
	docs, err := a.retriever.Retrieve(ctx, query, a.topK)
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "", ErrNoMatches
	}

	logging.FromContext(ctx).Debug("retrieved context",
		slog.Int("matches", len(docs)),
		slog.Int("max_tokens", maxLen),
	)
	return joinSnippets(docs, maxLen), nil
}

// joinSnippets appends each snippet followed by one space, in the order the
// index ranked them, while the estimated size stays within maxLen tokens.
// The first snippet is always kept, cut down if it alone is too long.
func joinSnippets(docs []rag.Document, maxLen int) string {
	var b strings.Builder
	for i, d := range docs {
		piece := d.Content + " "
		if maxLen > 0 && budget.Estimate(b.String()+piece) > maxLen {
			if i == 0 {
				b.WriteString(budget.Truncate(piece, maxLen))
			}
			break
		}
		b.WriteString(piece)
	}
	return b.String()
}
