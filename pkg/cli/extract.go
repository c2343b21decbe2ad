package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chazu/stepbom/pkg/catalog"
	"github.com/chazu/stepbom/pkg/config"
	"github.com/chazu/stepbom/pkg/extract"
	"github.com/chazu/stepbom/pkg/output"
)

var (
	extractQuiet    bool
	extractWeb      bool
	extractOutput   string
	extractCatalog  string
	extractMaxDepth int
)

var extractCmd = &cobra.Command{
	Use:   "extract [files...]",
	Short: "Extract the bill of materials of one or more assembly files",
	Long: `Extract opens each file with the kernel registered for its extension
and writes, under <output>/<stem>/:

  extraction_data.json  the complete extraction document
  parts_data.json       the flat parts list
  assembly_tree.json    the nested assembly tree
  meshes.json           viewer meshes (with --web)

With no arguments, files matching input.patterns under input.dir are
processed. A file that fails is reported and the batch continues.

Examples:
  # Extract every model under ./model
  stepbom extract

  # Extract one assembly with viewer meshes
  stepbom extract --web frame.lignin

  # Record runs in a catalog
  stepbom extract --catalog bom.db model/*.step
`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().BoolVarP(&extractQuiet, "quiet", "q", false, "Disable progress bars and non-error output")
	extractCmd.Flags().BoolVar(&extractWeb, "web", false, "Also export triangle meshes for the web viewer")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "Output directory (overrides output.dir)")
	extractCmd.Flags().StringVar(&extractCatalog, "catalog", "", "SQLite catalog to record runs in (overrides catalog.path)")
	extractCmd.Flags().IntVar(&extractMaxDepth, "max-depth", 0, "Maximum assembly depth (overrides traversal.max_depth)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nInterrupted! Finishing current file...")
			cancel()
		case <-ctx.Done():
		}
	}()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyExtractFlags(cfg)

	files := args
	if len(files) == 0 {
		files, err = discover(cfg.Input.Dir, cfg.Input.Patterns, cfg.Input.Ignore)
		if err != nil {
			return err
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no input files found in %s", cfg.Input.Dir)
	}

	var store *catalog.Store
	if cfg.Catalog.Path != "" {
		store, err = catalog.Open(cfg.Catalog.Path)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	ex := extract.New(extract.DefaultRegistry(cfg.Kernel),
		extract.WithMaxDepth(cfg.Traversal.MaxDepth),
		extract.WithWebAssets(cfg.Output.WebAssets),
		extract.WithVerbose(verbose),
	)

	start := time.Now()
	progress := newBatchProgress(cmd.OutOrStdout(), len(files), extractQuiet)
	processed, failed := 0, 0
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		progress.start(filepath.Base(file))
		if err := extractOne(ctx, ex, store, cfg, file); err != nil {
			log.Printf("extract: %s: %v", file, err)
			failed++
		}
		processed++
		progress.done()
	}
	progress.finish(processed, failed, time.Since(start))

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, processed)
	}
	return ctx.Err()
}

func applyExtractFlags(cfg *config.Config) {
	if extractOutput != "" {
		cfg.Output.Dir = extractOutput
	}
	if extractCatalog != "" {
		cfg.Catalog.Path = extractCatalog
	}
	if extractWeb {
		cfg.Output.WebAssets = true
	}
	if extractMaxDepth > 0 {
		cfg.Traversal.MaxDepth = extractMaxDepth
	}
}

func extractOne(ctx context.Context, ex *extract.Extractor, store *catalog.Store, cfg *config.Config, file string) error {
	res, err := ex.Extract(ctx, file)
	if err != nil {
		return err
	}
	layout := output.NewLayout(cfg.Output.Dir, cfg.Output.LegacyDir, file)
	if err := extract.Save(res, layout); err != nil {
		return err
	}
	if store == nil {
		return nil
	}

	doc := res.Document
	meta := doc.ExtractionInfo.ExtractionMetadata
	at, err := time.Parse(time.RFC3339, meta.ExtractionTimestamp)
	if err != nil {
		at = time.Now()
	}
	run := catalog.Run{
		ID:             meta.RunID,
		SourceFile:     doc.ExtractionInfo.SourceFile.FullPath,
		ExtractedAt:    at,
		Kernel:         meta.Kernel,
		TotalParts:     doc.PartData.TotalParts,
		HierarchyDepth: doc.AssemblyStructure.HierarchyDepth,
		Error:          doc.KernelError,
	}
	return store.Record(ctx, run, doc.PartData.PartsList)
}
