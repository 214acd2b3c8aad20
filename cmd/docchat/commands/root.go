// Package commands defines all Cobra CLI commands for the docchat binary.
package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/docchat-go/internal/audit"
	"github.com/54b3r/docchat-go/internal/config"
	"github.com/54b3r/docchat-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// debug holds the --debug flag: print the retrieved context before answers.
var debug bool

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
// Running it without a subcommand starts an interactive chat.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docchat",
		Short: "Chat with your documentation",
		Long: `docchat answers questions about a documentation set. Each question is
embedded, the closest snippets are fetched from a Qdrant index, and a chat
model answers from those snippets. Answers stream as they are generated.

Type a question at the "> " prompt, or "exit" to quit.

Model provider is selected via the MODEL_PROVIDER environment variable,
a .env file, or a YAML config file (~/.docchat/config.yaml).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New(defaultLogLevel(cmd))

			// .env and YAML are applied to the environment; set variables win.
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}

			// LOG_LEVEL may have come from the config file.
			log = logging.New(defaultLogLevel(cmd))
			slog.SetDefault(log)
			cmd.SetContext(logging.WithLogger(cmd.Context(), log))

			audit.LogCommandStart(log, cmd.Name(), path)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.docchat/config.yaml)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Print the retrieved context before each answer")

	root.AddCommand(
		NewChatCmd(),
		NewAskCmd(),
		NewIngestCmd(),
		NewHistoryCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}

// defaultLogLevel keeps interactive commands quiet so logs do not interleave
// with answers; long-running and batch commands log at info.
func defaultLogLevel(cmd *cobra.Command) slog.Level {
	switch cmd.Name() {
	case "serve", "ingest":
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}
