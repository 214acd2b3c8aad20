package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/docchat-go/internal/logging"
	"github.com/54b3r/docchat-go/internal/tracing"
)

// NewChatCmd constructs the `docchat chat` command, the interactive loop.
func NewChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat (default when no command is given)",
		Long: `Start an interactive chat session.

Each line is answered from the documentation index. An empty line re-prompts,
"exit" or end of input quits. Answered turns are saved to the transcript
store unless DOCCHAT_HISTORY_DB=disabled.

Examples:
  docchat
  docchat chat --debug
  MODEL_PROVIDER=ollama docchat chat`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd)
		},
	}
}

// runChat runs the interactive loop on the command's stdin and stdout.
func runChat(cmd *cobra.Command) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	flush := tracing.Setup(log)
	defer flush()

	s, err := buildSession(ctx, log, sessionOptions{
		out:     cmd.OutOrStdout(),
		debug:   debug,
		history: true,
	})
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	defer s.close()

	log.Info("chat session started", slog.String("session", s.assistant.SessionID()))
	return s.assistant.Start(ctx, cmd.InOrStdin()) //nolint:wrapcheck // CLI entry point; error goes directly to cobra
}
