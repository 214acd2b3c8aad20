package assistant

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxLineBytes caps a single input line.
const maxLineBytes = 1 << 20

// Start runs the interactive loop: it prints the greeting, then answers each
// line read from in until the line is exactly ExitCommand, in is exhausted,
// or ctx is cancelled. Blank lines re-prompt without any remote call.
func (a *Assistant) Start(ctx context.Context, in io.Reader) error {
	if _, err := io.WriteString(a.out, Greeting+NextPrompt); err != nil {
		return fmt.Errorf("assistant: write greeting: %w", err)
	}

	lines, readErr := scanLines(ctx, in)
	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return fmt.Errorf("assistant: read input: %w", err)
				}
				return nil
			}
			line = l
		}

		if line == ExitCommand {
			return nil
		}
		if strings.TrimSpace(line) == "" {
			if _, err := io.WriteString(a.out, NextPrompt); err != nil {
				return fmt.Errorf("assistant: write prompt: %w", err)
			}
			continue
		}

		if _, err := io.WriteString(a.out, "\n"); err != nil {
			return fmt.Errorf("assistant: write: %w", err)
		}
		if _, err := a.Answer(ctx, line, a.out); errors.Is(err, ErrNoMatches) {
			if _, err := io.WriteString(a.out, AnswerPrefix+NoMatchesAnswer); err != nil {
				return fmt.Errorf("assistant: write: %w", err)
			}
		}
		if _, err := io.WriteString(a.out, NextPrompt); err != nil {
			return fmt.Errorf("assistant: write prompt: %w", err)
		}
	}
}

// scanLines reads in on its own goroutine so Start can stop on ctx
// cancellation while a read is blocked. The lines channel closes at end of
// input; readErr then yields the read error, if any.
func scanLines(ctx context.Context, in io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for sc.Scan() {
			select {
			case lines <- strings.TrimSuffix(sc.Text(), "\r"):
			case <-ctx.Done():
				readErr <- nil
				return
			}
		}
		readErr <- sc.Err()
	}()

	return lines, readErr
}
