package bom

import (
	"errors"
	"strconv"

	"github.com/chazu/stepbom/pkg/kernel"
)

// nullShapeError is the analysis_error reported for a null shape.
const nullShapeError = "Shape is null/invalid"

// Analyze measures s with g. It never fails: a null shape yields an invalid
// record, and each metric that fails is tagged with its error while the
// remaining metrics are still attempted.
func Analyze(g kernel.Geometry, s kernel.Shape) ShapeAnalysis {
	if kernel.IsNull(s) {
		return ShapeAnalysis{IsValid: false, AnalysisError: nullShapeError}
	}

	a := ShapeAnalysis{IsValid: true}
	kind := s.Type()
	a.ShapeType = strconv.Itoa(int(kind))
	a.ShapeTypeName = kind.String()

	if g == nil {
		a.AnalysisError = "no geometry capability"
		return a
	}

	a.Topology = countTopology(g, s)
	a.GeometryProperties = geometryProperties(g, s)
	a.BoundingInfo = boundingInfo(g, s)
	return a
}

// countTopology enumerates each kind separately so one failing kind leaves
// the others intact.
func countTopology(g kernel.Geometry, s kernel.Shape) *TopologyCounts {
	t := &TopologyCounts{}
	for _, kind := range kernel.TopoKinds {
		var n int
		err := kernel.Guard("count "+kind.String(), func() error {
			var err error
			n, err = g.Count(s, kind)
			return err
		})
		if err != nil {
			if t.CalculationFailed == nil {
				t.CalculationFailed = make(map[string]string)
			}
			t.CalculationFailed[kind.String()] = err.Error()
			continue
		}
		*t.field(kind) = n
	}
	return t
}

func geometryProperties(g kernel.Geometry, s kernel.Shape) *GeometryProperties {
	p := &GeometryProperties{}
	var errs []error

	var props kernel.VolumeProps
	err := kernel.Guard("volume", func() error {
		var err error
		props, err = g.VolumeProperties(s)
		return err
	})
	if err != nil {
		errs = append(errs, err)
	} else {
		vol, com := props.Volume, props.CenterOfMass
		p.Volume = &vol
		p.CenterOfMass = &com
		p.HasInertiaData = true
	}

	var area float64
	err = kernel.Guard("surface area", func() error {
		var err error
		area, err = g.SurfaceArea(s)
		return err
	})
	if err != nil {
		errs = append(errs, err)
	} else {
		p.SurfaceArea = &area
	}

	if err := errors.Join(errs...); err != nil {
		p.CalculationFailed = err.Error()
	}
	return p
}

func boundingInfo(g kernel.Geometry, s kernel.Shape) *BoundingInfo {
	var box kernel.Box
	err := kernel.Guard("bounding box", func() error {
		var err error
		box, err = g.BoundingBox(s)
		return err
	})
	if err != nil {
		return &BoundingInfo{CalculationFailed: err.Error()}
	}
	if box.Void {
		return &BoundingInfo{VoidBoundingBox: true}
	}
	dims := box.Max.Sub(box.Min)
	center := box.Min.Mid(box.Max)
	return &BoundingInfo{
		MinPoint:   &box.Min,
		MaxPoint:   &box.Max,
		Dimensions: &dims,
		Center:     &center,
	}
}
