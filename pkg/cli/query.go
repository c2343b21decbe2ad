package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/stepbom/pkg/output"
)

var queryCmd = &cobra.Command{
	Use:   "query <file.json> <jsonpath>",
	Short: "Query a written result file with JSONPath",
	Long: `Query evaluates a JSONPath expression against an extraction result and
prints each match.

Examples:
  # Names of all leaf parts
  stepbom query extracted_data/frame/extraction_data.json \
    "$.part_data.parts_list[?(@.node_type == 'part')].name"

  # Top-level assembly names
  stepbom query extracted_data/frame/assembly_tree.json "$.root_assemblies[*].name"
`,
	Args: cobra.ExactArgs(2),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	results, err := output.Query(args[0], args[1])
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintln(cmd.OutOrStdout(), output.Format(r))
	}
	return nil
}
