package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/docchat-go/internal/logging"
)

// NewHistoryCmd constructs the `docchat history` command, which prints
// stored transcripts. Without --session it lists recent sessions.
func NewHistoryCmd() *cobra.Command {
	var sessionID string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show saved chat transcripts",
		Long: `List recent chat sessions, or print the turns of one session.

Transcripts are read from DOCCHAT_HISTORY_DB (default ~/.docchat/history.db).

Examples:
  docchat history
  docchat history --session 3f2b... -n 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			hs, closeHistory := openHistory(logging.FromContext(ctx))
			defer closeHistory()
			if hs == nil {
				return fmt.Errorf("history: transcript store is disabled or unavailable")
			}

			if sessionID == "" {
				sessions, err := hs.Sessions(ctx, limit)
				if err != nil {
					return fmt.Errorf("history: %w", err)
				}
				if len(sessions) == 0 {
					fmt.Fprintln(out, "no saved sessions")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SESSION\tTURNS\tLAST SEEN")
				for _, s := range sessions {
					fmt.Fprintf(tw, "%s\t%d\t%s\n", s.ID, s.Turns, s.LastSeen.Local().Format(time.DateTime))
				}
				return tw.Flush()
			}

			msgs, err := hs.Recent(ctx, sessionID, limit)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			if len(msgs) == 0 {
				fmt.Fprintf(out, "no messages for session %s\n", sessionID)
				return nil
			}
			for _, m := range msgs {
				fmt.Fprintf(out, "[%s] %s: %s\n\n", m.CreatedAt.Local().Format(time.DateTime), m.Role, m.Content)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session ID to print (default: list sessions)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum sessions or messages to show")

	return cmd
}
