package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/withObsrvr/rxnspace/internal/runner"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rxnspace %s (%s)\n", runner.Version, runner.GitSHA)
	},
}
