// Package extract coordinates one extraction: it selects a kernel, scopes
// the kernel session, runs the BOM traversals and assembles the document
// that is written to disk.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/stepbom/pkg/bom"
	"github.com/chazu/stepbom/pkg/kernel"
	"github.com/chazu/stepbom/pkg/stepfile"
	"github.com/chazu/stepbom/pkg/tessellate"
	"github.com/chazu/stepbom/pkg/xcaf"
)

// Version is reported in the extraction metadata.
const Version = "stepbom 1.0"

// SourceFile describes the input file.
type SourceFile struct {
	Filename      string  `json:"filename"`
	FullPath      string  `json:"full_path"`
	FileSizeBytes int64   `json:"file_size_bytes"`
	FileSizeMB    float64 `json:"file_size_mb"`
	LastModified  string  `json:"last_modified"`
	FileExtension string  `json:"file_extension"`
}

// Metadata describes the extraction run.
type Metadata struct {
	RunID               string `json:"run_id"`
	ExtractionTimestamp string `json:"extraction_timestamp"`
	ExtractorVersion    string `json:"extractor_version"`
	Kernel              string `json:"kernel"`
	KernelAvailable     bool   `json:"kernel_available"`
	WebExportAvailable  bool   `json:"web_export_available"`
	ExtractionMode      string `json:"extraction_mode"`
}

// Info is the extraction_info section.
type Info struct {
	SourceFile         SourceFile `json:"source_file"`
	ExtractionMetadata Metadata   `json:"extraction_metadata"`
	ExtractionError    string     `json:"extraction_error,omitempty"`
}

// Statistics is the extraction_statistics section.
type Statistics struct {
	TotalEntitiesProcessed int      `json:"total_entities_processed"`
	ErrorsEncountered      int      `json:"errors_encountered"`
	ErrorList              []string `json:"error_list"`
	DataTypesDiscovered    []string `json:"data_types_discovered"`
	ExtractionSuccess      bool     `json:"extraction_success"`
}

// WebAssets reports the mesh export for the viewer.
type WebAssets struct {
	Format                string `json:"format,omitempty"`
	File                  string `json:"file,omitempty"`
	FileSize              int64  `json:"file_size,omitempty"`
	ThreeJSCompatible     bool   `json:"three_js_compatible,omitempty"`
	MeshCount             int    `json:"mesh_count,omitempty"`
	ConversionError       string `json:"conversion_error,omitempty"`
	ConversionUnavailable string `json:"conversion_unavailable,omitempty"`
}

// Document is the complete extraction result for one file.
type Document struct {
	ExtractionInfo       Info                `json:"extraction_info"`
	FileAnalysis         *stepfile.Stats     `json:"file_analysis,omitempty"`
	StepHeader           *stepfile.Header    `json:"step_header,omitempty"`
	AssemblyStructure    bom.AssemblyTree    `json:"assembly_structure"`
	PartData             bom.PartsList       `json:"part_data"`
	Colors               bom.ColorSummary    `json:"colors"`
	GeometryAnalysis     bom.GeometrySummary `json:"geometry_analysis"`
	WebAssets            *WebAssets          `json:"web_assets,omitempty"`
	KernelError          string              `json:"kernel_error,omitempty"`
	ExtractionStatistics Statistics          `json:"extraction_statistics"`
}

// Result is a Document plus the meshes produced alongside it.
type Result struct {
	Source   string
	Document *Document
	Scene    *tessellate.Scene
}

// Extractor runs extractions. It holds no per-file state and can be reused
// across files.
type Extractor struct {
	registry  *Registry
	maxDepth  int
	webAssets bool
	verbose   bool
	now       func() time.Time
	newID     func() string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxDepth bounds the assembly walk.
func WithMaxDepth(n int) Option {
	return func(e *Extractor) { e.maxDepth = n }
}

// WithWebAssets enables mesh export.
func WithWebAssets(on bool) Option {
	return func(e *Extractor) { e.webAssets = on }
}

// WithVerbose logs per-node processing errors.
func WithVerbose(on bool) Option {
	return func(e *Extractor) { e.verbose = on }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// WithRunIDs replaces the run id generator.
func WithRunIDs(newID func() string) Option {
	return func(e *Extractor) { e.newID = newID }
}

// New returns an Extractor selecting kernels from r.
func New(r *Registry, opts ...Option) *Extractor {
	e := &Extractor{
		registry: r,
		maxDepth: bom.DefaultMaxDepth,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract processes one file. Only a file that cannot be inspected at all
// is returned as an error; kernel and traversal failures are recorded in
// the document.
func (e *Extractor) Extract(ctx context.Context, path string) (*Result, error) {
	src, err := sourceFile(path)
	if err != nil {
		return nil, err
	}
	k, err := e.registry.For(path)
	if err != nil {
		return nil, err
	}

	stats := &bom.Stats{}
	doc := &Document{
		ExtractionInfo: Info{
			SourceFile: src,
			ExtractionMetadata: Metadata{
				RunID:               e.newID(),
				ExtractionTimestamp: e.now().Format(time.RFC3339),
				ExtractorVersion:    Version,
				Kernel:              k.Name(),
				KernelAvailable:     k.Available() == nil,
				WebExportAvailable:  e.webAssets,
				ExtractionMode:      "comprehensive",
			},
		},
		AssemblyStructure: bom.AssemblyTree{RootAssemblies: []bom.AssemblyNode{}},
		PartData:          bom.PartsList{PartsList: []bom.PartRecord{}},
		Colors:            bom.ColorSummary{ColorDefinitions: []bom.ColorRecord{}, ColorAssignments: map[string]bom.ColorRecord{}},
		GeometryAnalysis:  bom.GeometrySummary{GeometricFeatures: []string{}},
	}
	res := &Result{Source: path, Document: doc}

	if isStep(path) {
		fa := stepfile.AnalyzeFile(path)
		hdr := stepfile.HeaderFile(path)
		doc.FileAnalysis = &fa
		doc.StepHeader = &hdr
	}

	opts := []bom.Option{bom.WithStats(stats), bom.WithMaxDepth(e.maxDepth), bom.WithVerbose(e.verbose)}
	err = kernel.Use(ctx, k, path, func(kd kernel.Document) error {
		doc.AssemblyStructure = bom.NewWalker(kd, opts...).Tree()
		doc.PartData = bom.NewLister(kd, opts...).List()
		doc.Colors = bom.SummarizeColors(kd, bom.WithStats(stats))
		doc.GeometryAnalysis = bom.SummarizeGeometry(kd)
		if e.webAssets {
			res.Scene, doc.WebAssets = e.meshes(path, kd)
		}
		return nil
	})
	if err != nil {
		e.recordKernelError(doc, stats, k, err)
	}

	doc.ExtractionStatistics = statistics(doc, stats)
	return res, nil
}

// recordKernelError short-circuits every kernel-dependent section.
func (e *Extractor) recordKernelError(doc *Document, stats *bom.Stats, k kernel.Kernel, err error) {
	msg := err.Error()
	log.Printf("extract: %s kernel: %v", k.Name(), err)
	doc.KernelError = msg
	doc.AssemblyStructure.ExtractionError = msg
	doc.PartData.ExtractionError = msg
	doc.Colors.ExtractionError = msg
	doc.GeometryAnalysis.ExtractionError = msg
	if errors.Is(err, kernel.ErrUnavailable) {
		doc.ExtractionInfo.ExtractionMetadata.KernelAvailable = false
	} else {
		doc.ExtractionInfo.ExtractionError = msg
	}
	if e.webAssets {
		doc.WebAssets = &WebAssets{ConversionUnavailable: msg}
	}
	stats.Error("%s: %s", k.Name(), msg)
}

// meshes tessellates documents that can produce geometry.
func (e *Extractor) meshes(path string, kd kernel.Document) (*tessellate.Scene, *WebAssets) {
	xd, ok := kd.(*xcaf.Document)
	if !ok {
		return nil, &WebAssets{ConversionUnavailable: "kernel does not produce meshes"}
	}
	meshes, err := tessellate.Tessellate(xd)
	if err != nil {
		log.Printf("extract: %s: %v", path, err)
		return nil, &WebAssets{ConversionError: err.Error()}
	}
	scene := &tessellate.Scene{Source: filepath.Base(path), Meshes: meshes}
	return scene, &WebAssets{
		Format:            "three.js-mesh",
		ThreeJSCompatible: true,
		MeshCount:         len(meshes),
	}
}

func sourceFile(path string) (SourceFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return SourceFile{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return SourceFile{}, fmt.Errorf("%s is a directory", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	size := info.Size()
	return SourceFile{
		Filename:      filepath.Base(path),
		FullPath:      abs,
		FileSizeBytes: size,
		FileSizeMB:    math.Round(float64(size)/1024/1024*100) / 100,
		LastModified:  info.ModTime().Format(time.RFC3339),
		FileExtension: strings.ToLower(filepath.Ext(path)),
	}, nil
}

func statistics(doc *Document, stats *bom.Stats) Statistics {
	var types []string
	add := func(name string, present bool) {
		if present {
			types = append(types, name)
		}
	}
	add("file_analysis", doc.FileAnalysis != nil && doc.FileAnalysis.AnalysisError == "")
	add("step_header", doc.StepHeader != nil && len(doc.StepHeader.ParsedEntities) > 0)
	add("assembly_structure", len(doc.AssemblyStructure.RootAssemblies) > 0)
	add("part_data", doc.PartData.TotalParts > 0)
	add("colors", doc.Colors.TotalColors > 0)
	add("geometry_analysis", doc.GeometryAnalysis.OverallStatistics.TotalShapes > 0)
	add("web_assets", doc.WebAssets != nil && doc.WebAssets.MeshCount > 0)

	errs := append([]string{}, stats.Errors...)
	if types == nil {
		types = []string{}
	}
	return Statistics{
		TotalEntitiesProcessed: stats.Entities,
		ErrorsEncountered:      len(errs),
		ErrorList:              errs,
		DataTypesDiscovered:    types,
		ExtractionSuccess:      len(errs) == 0,
	}
}
