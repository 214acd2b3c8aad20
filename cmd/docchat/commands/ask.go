package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/docchat-go/internal/assistant"
	"github.com/54b3r/docchat-go/internal/logging"
	"github.com/54b3r/docchat-go/internal/tracing"
)

// NewAskCmd constructs the `docchat ask` command, which answers a single
// question and exits.
func NewAskCmd() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question and print the answer",
		Long: `Answer one question from the documentation index and exit.

All arguments are joined with spaces to form the question.

Examples:
  docchat ask "how do I configure a Hive catalog?"
  docchat ask --debug what connectors are supported`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			flush := tracing.Setup(log)
			defer flush()

			s, err := buildSession(ctx, log, sessionOptions{
				out:     cmd.OutOrStdout(),
				debug:   debug,
				history: save,
			})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer s.close()

			out := cmd.OutOrStdout()
			_, err = s.assistant.Answer(ctx, strings.Join(args, " "), out)
			switch {
			case errors.Is(err, assistant.ErrNoMatches):
				fmt.Fprint(out, assistant.AnswerPrefix+assistant.NoMatchesAnswer)
			case err != nil:
				fmt.Fprintln(out)
				return fmt.Errorf("ask: %w", err)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Save the question and answer to the transcript store")

	return cmd
}
