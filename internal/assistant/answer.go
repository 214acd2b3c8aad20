package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docchat-go/internal/logging"
	"github.com/54b3r/docchat-go/internal/store"
)

// AnswerQuestion answers question on the configured output and returns the
// full answer text. It returns NoMatchesAnswer, without calling the model,
// when the index has nothing for the question, and "" when generation fails.
// Text already printed before a failure stays printed.
func (a *Assistant) AnswerQuestion(ctx context.Context, question string) string {
	answer, err := a.Answer(ctx, question, a.out)
	switch {
	case errors.Is(err, ErrNoMatches):
		return NoMatchesAnswer
	case err != nil:
		return ""
	}
	return answer
}

// Answer runs one turn, streaming AnswerPrefix and then every fragment to w
// as it arrives. The debug context dump always goes to the configured output,
// never to w. On no matches it writes nothing and returns NoMatchesAnswer
// with ErrNoMatches. Generation failures wrap ErrGeneration. A failed
// retrieval is not an error: the model is asked with NoContextAnswer as the
// context.
func (a *Assistant) Answer(ctx context.Context, question string, w io.Writer, opts ...AnswerOption) (string, error) {
	start := time.Now()
	o := a.resolveOptions(opts)
	if a.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.turnTimeout)
		defer cancel()
	}
	log := logging.FromContext(ctx)

	prompt, retrieveErr := a.buildPrompt(ctx, question)
	if errors.Is(retrieveErr, ErrNoMatches) {
		log.Info("no matching documents", slog.Int("top_k", a.topK))
		a.metrics.observe(outcomeNoMatches, start)
		return NoMatchesAnswer, ErrNoMatches
	}

	answer, err := a.generate(ctx, prompt, o.prefix, w)
	if err != nil {
		log.Error("answer generation failed",
			slog.String("stage", "generate"),
			slog.Any("error", err),
		)
		a.metrics.observe(outcomeGenerationError, start)
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	outcome := outcomeAnswered
	if retrieveErr != nil {
		outcome = outcomeNoContext
	}
	a.metrics.observe(outcome, start)
	log.Debug("turn complete",
		slog.String("outcome", outcome),
		slog.Duration("duration", time.Since(start)),
		slog.Int("answer_chars", len(answer)),
	)

	a.record(ctx, o.sessionID, question, answer)
	return answer, nil
}

// generate streams the model's answer to w. prefix is written once the
// stream has opened, before the first fragment.
func (a *Assistant) generate(ctx context.Context, prompt, prefix string, w io.Writer) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(SystemMessage),
		schema.UserMessage(prompt),
	}

	sr, err := a.chain.Stream(ctx, messages, compose.WithChatModelOption(a.modelOpts...))
	if err != nil {
		return "", fmt.Errorf("open stream: %w", err)
	}
	defer sr.Close()

	if prefix != "" {
		if _, err := io.WriteString(w, prefix); err != nil {
			return "", fmt.Errorf("write: %w", err)
		}
	}

	var answer strings.Builder
	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return answer.String(), fmt.Errorf("receive: %w", err)
		}
		if msg == nil || msg.Content == "" {
			continue
		}
		if _, err := io.WriteString(w, msg.Content); err != nil {
			return answer.String(), fmt.Errorf("write: %w", err)
		}
		if f, ok := w.(interface{ Flush() }); ok {
			f.Flush()
		}
		answer.WriteString(msg.Content)
	}

	return answer.String(), nil
}

// record appends the turn to the transcript store. Failures are logged and
// otherwise ignored.
func (a *Assistant) record(ctx context.Context, sessionID, question, answer string) {
	if a.history == nil {
		return
	}
	log := logging.FromContext(ctx)
	if err := a.history.Append(ctx, sessionID, store.RoleUser, question); err != nil {
		log.Warn("history: failed to persist question", slog.Any("error", err))
		return
	}
	if err := a.history.Append(ctx, sessionID, store.RoleAssistant, answer); err != nil {
		log.Warn("history: failed to persist answer", slog.Any("error", err))
	}
}
