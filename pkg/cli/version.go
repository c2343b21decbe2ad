package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/stepbom/pkg/extract"
)

var (
	// Version information - typically set via ldflags at build time
	Version   = "dev"
	GitCommit = "none"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of stepbom",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "stepbom %s (%s)\n", Version, GitCommit)
		fmt.Fprintf(cmd.OutOrStdout(), "Extractor: %s\n", extract.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
