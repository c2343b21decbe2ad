package bom

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/stepbom/pkg/kernel"
	"github.com/chazu/stepbom/pkg/kernel/kerneltest"
	"github.com/chazu/stepbom/pkg/kernel/sdfx"
)

// fakeGeometry returns the fake kernel's geometry capability.
func fakeGeometry() kernel.Geometry {
	return kerneltest.NewDocument().Geometry()
}

func TestAnalyzeNullShape(t *testing.T) {
	for name, s := range map[string]kernel.Shape{
		"nil":        nil,
		"null shape": kernel.NullShape,
		"null fake":  &kerneltest.Shape{Null: true},
	} {
		t.Run(name, func(t *testing.T) {
			a := Analyze(fakeGeometry(), s)
			assert.False(t, a.IsValid)
			assert.Equal(t, "Shape is null/invalid", a.AnalysisError)
			assert.Nil(t, a.Topology)
			assert.Nil(t, a.GeometryProperties)
			assert.Nil(t, a.BoundingInfo)

			data, err := json.Marshal(a)
			require.NoError(t, err)
			assert.JSONEq(t, `{"is_valid":false,"analysis_error":"Shape is null/invalid"}`, string(data))
		})
	}
}

func TestAnalyzeSolid(t *testing.T) {
	s := kerneltest.Solid(10, 20, 30)
	s.Min = kernel.Vec3{-5, 0, 0}
	s.Max = kernel.Vec3{5, 20, 30}

	a := Analyze(fakeGeometry(), s)
	require.True(t, a.IsValid)
	assert.Empty(t, a.AnalysisError)
	assert.Equal(t, "2", a.ShapeType)
	assert.Equal(t, "solid", a.ShapeTypeName)

	require.NotNil(t, a.Topology)
	assert.Equal(t, 8, a.Topology.Vertices)
	assert.Equal(t, 12, a.Topology.Edges)
	assert.Equal(t, 6, a.Topology.Faces)
	assert.Equal(t, 1, a.Topology.Solids)
	assert.Equal(t, 0, a.Topology.Compounds)
	assert.Nil(t, a.Topology.CalculationFailed)

	gp := a.GeometryProperties
	require.NotNil(t, gp)
	require.NotNil(t, gp.Volume)
	assert.InDelta(t, 6000, *gp.Volume, 1e-9)
	assert.InDelta(t, 2200, *gp.SurfaceArea, 1e-9)
	assert.Equal(t, kernel.Vec3{5, 10, 15}, *gp.CenterOfMass)
	assert.True(t, gp.HasInertiaData)
	assert.Empty(t, gp.CalculationFailed)

	bi := a.BoundingInfo
	require.NotNil(t, bi)
	assert.Equal(t, kernel.Vec3{10, 20, 30}, *bi.Dimensions)
	assert.Equal(t, kernel.Vec3{0, 10, 15}, *bi.Center)
	assert.False(t, bi.VoidBoundingBox)
}

func TestAnalyzeIsolatesMetricFailures(t *testing.T) {
	s := kerneltest.Solid(1, 1, 1)
	s.VolumeErr = errors.New("volume integration failed")
	s.CountErr = map[kernel.TopoKind]error{kernel.TopoEdge: errors.New("edge explorer failed")}
	s.BoxErr = errors.New("bnd failed")

	a := Analyze(fakeGeometry(), s)
	require.True(t, a.IsValid)

	assert.Equal(t, 0, a.Topology.Edges)
	assert.Equal(t, 6, a.Topology.Faces, "other kinds are still counted")
	assert.Contains(t, a.Topology.CalculationFailed["edges"], "edge explorer failed")
	assert.Len(t, a.Topology.CalculationFailed, 1)

	gp := a.GeometryProperties
	assert.Nil(t, gp.Volume)
	assert.Nil(t, gp.CenterOfMass)
	require.NotNil(t, gp.SurfaceArea, "area is attempted after volume fails")
	assert.InDelta(t, 6, *gp.SurfaceArea, 1e-9)
	assert.Contains(t, gp.CalculationFailed, "volume integration failed")

	assert.Contains(t, a.BoundingInfo.CalculationFailed, "bnd failed")
	assert.Nil(t, a.BoundingInfo.MinPoint)
}

func TestAnalyzeVoidBox(t *testing.T) {
	s := kerneltest.Solid(1, 1, 1)
	s.Void = true

	a := Analyze(fakeGeometry(), s)
	data, err := json.Marshal(a.BoundingInfo)
	require.NoError(t, err)
	assert.JSONEq(t, `{"void_bounding_box":true}`, string(data))
}

func TestAnalyzeKernelPanic(t *testing.T) {
	s := kerneltest.Solid(1, 1, 1)
	s.Panic = "Standard_ConstructionError"

	a := Analyze(fakeGeometry(), s)
	assert.True(t, a.IsValid)
	assert.Len(t, a.Topology.CalculationFailed, len(kernel.TopoKinds))
	assert.Contains(t, a.GeometryProperties.CalculationFailed, "Standard_ConstructionError")
	assert.Contains(t, a.BoundingInfo.CalculationFailed, "kernel panic")
}

func TestAnalyzeWithoutGeometry(t *testing.T) {
	a := Analyze(nil, kerneltest.Solid(1, 1, 1))
	assert.True(t, a.IsValid)
	assert.NotEmpty(t, a.AnalysisError)
	assert.Nil(t, a.Topology)
}

func TestAnalyzeSdfxBox(t *testing.T) {
	k := sdfx.New(sdfx.WithAnalysisCells(32))
	a := Analyze(k.Geometry(), k.Box(10, 10, 10))

	require.True(t, a.IsValid)
	assert.Equal(t, "solid", a.ShapeTypeName)
	assert.InEpsilon(t, 1000, *a.GeometryProperties.Volume, 0.05)
	assert.InEpsilon(t, 600, *a.GeometryProperties.SurfaceArea, 0.05)
	assert.Equal(t, 1, a.Topology.Solids)
	assert.InDelta(t, 10, a.BoundingInfo.Dimensions[0], 0.5)
}
