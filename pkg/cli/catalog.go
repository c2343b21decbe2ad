package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chazu/stepbom/pkg/catalog"
)

var catalogPath string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect recorded extraction runs",
}

var catalogRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runCatalogRuns,
}

var catalogPartsCmd = &cobra.Command{
	Use:   "parts <run-id>",
	Short: "List the parts recorded for a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogParts,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogRunsCmd, catalogPartsCmd)
	catalogCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "SQLite catalog (overrides catalog.path)")
}

func openCatalog() (*catalog.Store, error) {
	path := catalogPath
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.Catalog.Path
	}
	if path == "" {
		return nil, fmt.Errorf("no catalog configured; set catalog.path or pass --catalog")
	}
	return catalog.Open(path)
}

func runCatalogRuns(cmd *cobra.Command, args []string) error {
	store, err := openCatalog()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(cmd.Context())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tEXTRACTED\tKERNEL\tPARTS\tDEPTH\tSOURCE\tERROR")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID, r.ExtractedAt.Format("2006-01-02 15:04:05"), r.Kernel,
			r.TotalParts, r.HierarchyDepth, r.SourceFile, r.Error)
	}
	return w.Flush()
}

func runCatalogParts(cmd *cobra.Command, args []string) error {
	store, err := openCatalog()
	if err != nil {
		return err
	}
	defer store.Close()

	parts, err := store.Parts(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PART\tNAME\tTYPE\tVOLUME\tAREA\tCOLOR")
	for _, p := range parts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.PartID, p.Name, p.NodeType, formatFloat(p.Volume), formatFloat(p.SurfaceArea), p.Hex)
	}
	return w.Flush()
}

func formatFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *v)
}
