package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/stepbom/pkg/bom"
	"github.com/chazu/stepbom/pkg/config"
	"github.com/chazu/stepbom/pkg/kernel"
	"github.com/chazu/stepbom/pkg/kernel/kerneltest"
	"github.com/chazu/stepbom/pkg/output"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func touch(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestExtractor(r *Registry, opts ...Option) *Extractor {
	base := []Option{
		WithClock(func() time.Time { return fixedTime }),
		WithRunIDs(func() string { return "run-1" }),
	}
	return New(r, append(base, opts...)...)
}

func bracketDoc() *kerneltest.Document {
	doc := kerneltest.NewDocument()
	doc.AddRoot(&kerneltest.Node{Entry: "0:1:1:1", Assembly: true, Name: "frame", Shape: kerneltest.Solid(2, 3, 4), Children: []string{"0:1:1:1:1"}})
	doc.Add(&kerneltest.Node{
		Entry:  "0:1:1:1:1",
		Name:   "bracket",
		Shape:  kerneltest.Solid(2, 3, 4),
		Colors: map[kernel.ColorRole]kernel.RGB{kernel.ColorGeneral: {R: 1}},
	})
	return doc
}

func TestRegistryFor(t *testing.T) {
	r := DefaultRegistry(config.Default().Kernel)
	assert.Equal(t, []string{".lignin", ".step", ".stp"}, r.Extensions())

	k, err := r.For("MODEL.STEP")
	require.NoError(t, err)
	assert.Equal(t, "opencascade", k.Name())
	assert.ErrorIs(t, k.Available(), kernel.ErrUnavailable)

	k, err = r.For("frame.lignin")
	require.NoError(t, err)
	assert.Equal(t, "sdfx", k.Name())

	_, err = r.For("drawing.dxf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractDocument(t *testing.T) {
	path := touch(t, "frame.fake", "fake")
	r := NewRegistry()
	r.Register(".fake", kerneltest.NewKernel(map[string]*kerneltest.Document{path: bracketDoc()}))

	res, err := newTestExtractor(r).Extract(context.Background(), path)
	require.NoError(t, err)
	doc := res.Document

	src := doc.ExtractionInfo.SourceFile
	assert.Equal(t, "frame.fake", src.Filename)
	assert.Equal(t, int64(4), src.FileSizeBytes)
	assert.Equal(t, ".fake", src.FileExtension)

	meta := doc.ExtractionInfo.ExtractionMetadata
	assert.Equal(t, "run-1", meta.RunID)
	assert.Equal(t, "2026-03-01T12:00:00Z", meta.ExtractionTimestamp)
	assert.Equal(t, "fake", meta.Kernel)
	assert.True(t, meta.KernelAvailable)

	assert.Nil(t, doc.FileAnalysis)
	assert.Nil(t, doc.StepHeader)
	assert.Empty(t, doc.KernelError)

	require.Len(t, doc.AssemblyStructure.RootAssemblies, 1)
	assert.Equal(t, 1, doc.AssemblyStructure.HierarchyDepth)
	assert.Equal(t, 1, doc.PartData.TotalParts)
	assert.Equal(t, "frame", doc.PartData.PartsList[0].Name)
	assert.Equal(t, bom.NodeAssembly, doc.PartData.PartsList[0].NodeType)
	assert.Equal(t, 1, doc.Colors.TotalColors)
	assert.InDelta(t, 24.0, doc.GeometryAnalysis.OverallStatistics.TotalVolume, 1e-9)

	stats := doc.ExtractionStatistics
	assert.True(t, stats.ExtractionSuccess)
	assert.Zero(t, stats.ErrorsEncountered)
	assert.Equal(t, 2, stats.TotalEntitiesProcessed, "each label counted once")
	assert.Contains(t, stats.DataTypesDiscovered, "assembly_structure")
	assert.Contains(t, stats.DataTypesDiscovered, "part_data")
	assert.Nil(t, doc.WebAssets)
}

func TestExtractRecordsNodeErrors(t *testing.T) {
	path := touch(t, "broken.fake", "fake")
	doc := kerneltest.NewDocument()
	doc.AddRoot(&kerneltest.Node{Entry: "0:1:1:1", Shape: kerneltest.Solid(1, 1, 1), ColorErr: errors.New("color table corrupt")})
	r := NewRegistry()
	r.Register(".fake", kerneltest.NewKernel(map[string]*kerneltest.Document{path: doc}))

	res, err := newTestExtractor(r).Extract(context.Background(), path)
	require.NoError(t, err)

	stats := res.Document.ExtractionStatistics
	assert.False(t, stats.ExtractionSuccess)
	assert.Equal(t, len(stats.ErrorList), stats.ErrorsEncountered)
	assert.Equal(t, 1, res.Document.PartData.SkippedParts)
	require.Len(t, res.Document.AssemblyStructure.RootAssemblies, 1)
}

func TestExtractUnavailableKernel(t *testing.T) {
	path := touch(t, "bracket.step", sampleStep)
	r := DefaultRegistry(config.Default().Kernel)

	res, err := newTestExtractor(r, WithWebAssets(true)).Extract(context.Background(), path)
	require.NoError(t, err)
	doc := res.Document

	assert.Contains(t, doc.KernelError, "OpenCASCADE not available")
	assert.Equal(t, doc.KernelError, doc.AssemblyStructure.ExtractionError)
	assert.Equal(t, doc.KernelError, doc.PartData.ExtractionError)
	assert.Empty(t, doc.PartData.PartsList)
	assert.False(t, doc.ExtractionInfo.ExtractionMetadata.KernelAvailable)
	assert.Empty(t, doc.ExtractionInfo.ExtractionError)
	require.NotNil(t, doc.WebAssets)
	assert.NotEmpty(t, doc.WebAssets.ConversionUnavailable)

	require.NotNil(t, doc.FileAnalysis)
	assert.True(t, doc.FileAnalysis.ContainsColors)
	require.NotNil(t, doc.StepHeader)
	assert.Equal(t, "bracket.step", doc.StepHeader.FileName())

	stats := doc.ExtractionStatistics
	assert.False(t, stats.ExtractionSuccess)
	assert.Contains(t, stats.DataTypesDiscovered, "step_header")
	assert.Nil(t, res.Scene)
}

func TestExtractOpenFailure(t *testing.T) {
	path := touch(t, "gone.fake", "fake")
	k := kerneltest.NewKernel(nil)
	k.OpenErr = errors.New("transfer failed")
	r := NewRegistry()
	r.Register(".fake", k)

	res, err := newTestExtractor(r).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, res.Document.KernelError, "transfer failed")
	assert.Equal(t, res.Document.KernelError, res.Document.ExtractionInfo.ExtractionError)
	assert.True(t, res.Document.ExtractionInfo.ExtractionMetadata.KernelAvailable)
}

func TestExtractMissingFile(t *testing.T) {
	r := DefaultRegistry(config.Default().Kernel)
	_, err := newTestExtractor(r).Extract(context.Background(), filepath.Join(t.TempDir(), "none.lignin"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtractUnsupportedFile(t *testing.T) {
	path := touch(t, "notes.txt", "hello")
	_, err := newTestExtractor(NewRegistry()).Extract(context.Background(), path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractScriptWithMeshes(t *testing.T) {
	if testing.Short() {
		t.Skip("tessellates with sdfx")
	}
	path := touch(t, "frame.lignin", `
(defpart "bracket" (box 40 20 5) :surface-color (rgb 1 0 0))
(assembly "frame" (part "bracket") (place (part "bracket") :at (vec3 0 0 50)))
`)
	cfg := config.Default().Kernel
	cfg.AnalysisCells = 16
	cfg.MeshCells = 16
	r := DefaultRegistry(cfg)

	res, err := newTestExtractor(r, WithWebAssets(true)).Extract(context.Background(), path)
	require.NoError(t, err)
	doc := res.Document
	require.Empty(t, doc.KernelError)

	require.Len(t, doc.AssemblyStructure.RootAssemblies, 1)
	root := doc.AssemblyStructure.RootAssemblies[0]
	assert.Equal(t, bom.NodeAssembly, root.NodeType)
	assert.Equal(t, "frame", root.Name)
	assert.Len(t, root.Children, 2)

	require.NotNil(t, doc.WebAssets)
	assert.Equal(t, 2, doc.WebAssets.MeshCount)
	require.NotNil(t, res.Scene)
	assert.Len(t, res.Scene.Meshes, 2)

	l := output.NewLayout(t.TempDir(), "", path)
	require.NoError(t, Save(res, l))
	assert.Equal(t, output.MeshesFile, doc.WebAssets.File)
	assert.Positive(t, doc.WebAssets.FileSize)
}

func TestSaveWritesLayout(t *testing.T) {
	path := touch(t, "frame.fake", "fake")
	r := NewRegistry()
	r.Register(".fake", kerneltest.NewKernel(map[string]*kerneltest.Document{path: bracketDoc()}))
	res, err := newTestExtractor(r).Extract(context.Background(), path)
	require.NoError(t, err)

	out := t.TempDir()
	l := output.NewLayout(filepath.Join(out, "extracted_data"), filepath.Join(out, "models"), path)
	require.NoError(t, Save(res, l))

	for _, p := range []string{l.Extraction, l.Parts, l.Tree, l.Legacy} {
		assert.FileExists(t, p)
	}
	assert.NoFileExists(t, l.Meshes)

	var parts bom.PartsList
	require.NoError(t, output.ReadJSON(l.Legacy, &parts))
	assert.Equal(t, 1, parts.TotalParts)

	var tree bom.AssemblyTree
	require.NoError(t, output.ReadJSON(l.Tree, &tree))
	assert.Equal(t, 1, tree.HierarchyDepth)

	got, err := output.Query(l.Extraction, "$.extraction_info.extraction_metadata.run_id")
	require.NoError(t, err)
	assert.Equal(t, []any{"run-1"}, got)
}

const sampleStep = `ISO-10303-21;
HEADER;
FILE_DESCRIPTION(('bracket'),'2;1');
FILE_NAME('bracket.step','2026-03-01T12:00:00',('author'),('org'),'pre','sys','');
FILE_SCHEMA(('AP214'));
ENDSEC;
DATA;
#1=COLOUR_RGB('',1.0,0.0,0.0);
#2=PRODUCT('bracket','bracket','',(#3));
ENDSEC;
END-ISO-10303-21;
`

func TestExtractExampleTable(t *testing.T) {
	if testing.Short() {
		t.Skip("evaluates the example model with sdfx")
	}
	cfg := config.Default().Kernel
	cfg.AnalysisCells = 16
	res, err := newTestExtractor(DefaultRegistry(cfg)).Extract(context.Background(), "../../examples/simple_table.lignin")
	require.NoError(t, err)
	doc := res.Document
	require.Empty(t, doc.KernelError)

	require.Len(t, doc.AssemblyStructure.RootAssemblies, 1)
	table := doc.AssemblyStructure.RootAssemblies[0]
	assert.Equal(t, "table", table.Name)
	assert.Equal(t, 2, doc.AssemblyStructure.HierarchyDepth)
	require.Len(t, table.Children, 2)
	assert.Len(t, table.Children[0].Children, 6)

	require.Len(t, doc.PartData.PartsList, 1)
	assert.Equal(t, bom.NodeAssembly, doc.PartData.PartsList[0].NodeType)
	topo := doc.PartData.PartsList[0].ShapeAnalysis.Topology
	require.NotNil(t, topo)
	assert.Equal(t, 7, topo.Solids, "legs, aprons and top stay separate bodies")
	assert.Equal(t, 2, topo.Compounds)
	assert.True(t, doc.ExtractionStatistics.ExtractionSuccess, doc.ExtractionStatistics.ErrorList)
}
