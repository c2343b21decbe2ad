package catalog

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/stepbom/pkg/bom"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func samplePart(id, name string, volume float64, hex string) bom.PartRecord {
	area := 6.0
	rec := bom.PartRecord{
		PartID:   id,
		LabelID:  "label_1",
		Name:     name,
		NodeType: bom.NodePart,
		ShapeAnalysis: bom.ShapeAnalysis{
			IsValid: true,
			GeometryProperties: &bom.GeometryProperties{
				Volume:      &volume,
				SurfaceArea: &area,
			},
		},
	}
	if hex != "" {
		rec.ColorData = bom.ColorRecord{HasColor: true, Hex: hex, Role: "general"}
	}
	return rec
}

func TestRecordAndList(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	run := Run{ID: "run-1", SourceFile: "model/frame.lignin", ExtractedAt: at, Kernel: "sdfx", TotalParts: 2, HierarchyDepth: 1}
	parts := []bom.PartRecord{
		samplePart("part_0002", "bolt", 10, ""),
		samplePart("part_0001", "bracket", 4000, "#ff0000"),
	}
	require.NoError(t, s.Record(ctx, run, parts))

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run, runs[0])

	got, err := s.Parts(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "part_0001", got[0].PartID, "ordered by part id")
	assert.Equal(t, "bracket", got[0].Name)
	assert.Equal(t, "#ff0000", got[0].Hex)
	require.NotNil(t, got[0].Volume)
	assert.InDelta(t, 4000, *got[0].Volume, 1e-9)
	assert.Empty(t, got[1].Hex)

	var back bom.PartRecord
	require.NoError(t, json.Unmarshal(got[0].Record, &back))
	assert.Equal(t, "bracket", back.Name)
	assert.Equal(t, "#ff0000", back.ColorData.Hex)
}

func TestPartsOrderPastFourDigits(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	run := Run{ID: "big", SourceFile: "plant.step", ExtractedAt: time.Now().UTC(), Kernel: "opencascade", TotalParts: 3}
	parts := []bom.PartRecord{
		samplePart("part_10000", "last", 1, ""),
		samplePart("part_2000", "middle", 1, ""),
		samplePart("part_0001", "first", 1, ""),
	}
	require.NoError(t, s.Record(ctx, run, parts))

	got, err := s.Parts(ctx, "big")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "part_0001", got[0].PartID)
	assert.Equal(t, "part_2000", got[1].PartID)
	assert.Equal(t, "part_10000", got[2].PartID)
}

func TestRunsNewestFirst(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, Run{ID: "old", SourceFile: "a", ExtractedAt: base, Kernel: "sdfx"}, nil))
	require.NoError(t, s.Record(ctx, Run{ID: "new", SourceFile: "b", ExtractedAt: base.Add(time.Hour), Kernel: "opencascade", Error: "kernel not available"}, nil))

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "kernel not available", runs[0].Error)
	assert.Equal(t, "old", runs[1].ID)
}

func TestRecordReplacesRun(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	run := Run{ID: "r", SourceFile: "a", ExtractedAt: time.Now().UTC(), Kernel: "sdfx", TotalParts: 2}

	require.NoError(t, s.Record(ctx, run, []bom.PartRecord{samplePart("part_0001", "a", 1, ""), samplePart("part_0002", "b", 1, "")}))
	run.TotalParts = 1
	require.NoError(t, s.Record(ctx, run, []bom.PartRecord{samplePart("part_0001", "a", 1, "")}))

	parts, err := s.Parts(ctx, "r")
	require.NoError(t, err)
	assert.Len(t, parts, 1)
}

func TestUnknownRun(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.Run(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = s.Parts(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
