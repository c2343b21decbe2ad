package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/stepbom/pkg/engine"
	"github.com/chazu/stepbom/pkg/kernel"
	"github.com/chazu/stepbom/pkg/xcaf"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file.lignin>...",
	Short: "Evaluate assembly descriptions and check their structure",
	Long: `Validate evaluates each .lignin file and reports structural problems
in the resulting document: cyclic or dangling component references,
empty assemblies and unnamed labels. Errors fail the command; warnings
are printed only.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	k := engine.NewScriptKernel(
		engine.WithAnalysisCells(cfg.Kernel.AnalysisCells),
		engine.WithMeshCells(cfg.Kernel.MeshCells),
		engine.WithEvalTimeout(cfg.Kernel.EvalTimeout),
	)

	invalid := 0
	for _, path := range args {
		findings, err := validateFile(cmd.Context(), k, path)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "✗ %s: %v\n", path, err)
			invalid++
			continue
		}
		if xcaf.HasErrors(findings) {
			invalid++
			fmt.Fprintf(cmd.OutOrStdout(), "✗ %s\n", path)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", path)
		}
		for _, f := range findings {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", f)
		}
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d files invalid", invalid, len(args))
	}
	return nil
}

func validateFile(ctx context.Context, k kernel.Kernel, path string) ([]xcaf.ValidationError, error) {
	var findings []xcaf.ValidationError
	err := kernel.Use(ctx, k, path, func(doc kernel.Document) error {
		xd, ok := doc.(*xcaf.Document)
		if !ok {
			return fmt.Errorf("kernel %s does not produce assembly documents", k.Name())
		}
		findings = xcaf.Validate(xd)
		return nil
	})
	return findings, err
}
