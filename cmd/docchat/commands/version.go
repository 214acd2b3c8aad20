package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/54b3r/docchat-go/internal/version"
)

// NewVersionCmd constructs the `docchat version` subcommand.
// Version, commit and build date are injected at build time via -ldflags.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the docchat version, git commit, and build date",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "docchat %s (commit: %s, built: %s, %s)\n",
				version.Version, version.Commit, version.BuildDate, runtime.Version())
		},
	}
}
