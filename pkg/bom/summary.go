package bom

import (
	"github.com/chazu/stepbom/pkg/kernel"
)

// ColorSummary lists every color assignment in a document.
type ColorSummary struct {
	TotalColors      int                    `json:"total_colors"`
	ColorDefinitions []ColorRecord          `json:"color_definitions"`
	ColorAssignments map[string]ColorRecord `json:"color_assignments"`
	FailedLabels     int                    `json:"failed_labels,omitempty"`
	ExtractionError  string                 `json:"extraction_error,omitempty"`
}

// SummarizeColors resolves every label the color tool reports as colored,
// then adds free shapes carrying a general color that were not reported.
// A label whose lookup fails is left out, counted in FailedLabels and
// recorded in the shared Stats.
func SummarizeColors(doc kernel.Document, opts ...Option) ColorSummary {
	o := newOptions(opts)
	sum := ColorSummary{
		ColorDefinitions: []ColorRecord{},
		ColorAssignments: map[string]ColorRecord{},
	}
	ct := doc.Colors()
	if ct == nil {
		sum.ExtractionError = "no color capability"
		return sum
	}

	add := func(l kernel.Label, rec ColorRecord) {
		if _, seen := sum.ColorAssignments[l.Entry()]; seen || !rec.HasColor {
			return
		}
		sum.ColorDefinitions = append(sum.ColorDefinitions, rec)
		sum.ColorAssignments[l.Entry()] = rec
	}

	var colored []kernel.Label
	err := kernel.Guard("colored labels", func() error {
		var err error
		colored, err = ct.ColoredLabels()
		return err
	})
	if err != nil {
		sum.ExtractionError = err.Error()
		return sum
	}
	for _, l := range colored {
		rec, err := lookupColor(ct, l)
		if err != nil {
			sum.FailedLabels++
			o.stats.Error("color %s: %v", l.Entry(), err)
			continue
		}
		add(l, rec)
	}

	roots, err := freeShapes(doc.Shapes())
	if err != nil {
		sum.ExtractionError = err.Error()
	}
	for _, l := range roots {
		var (
			c  kernel.RGB
			ok bool
		)
		err := kernel.Guard("color", func() error {
			var err error
			c, ok, err = ct.Color(l, kernel.ColorGeneral)
			return err
		})
		if err != nil || !ok {
			continue
		}
		add(l, newColorRecord(c, kernel.ColorGeneral, l))
	}

	sum.TotalColors = len(sum.ColorDefinitions)
	return sum
}

// OverallStatistics totals the integrated properties of the free shapes.
type OverallStatistics struct {
	TotalVolume      float64 `json:"total_volume"`
	TotalSurfaceArea float64 `json:"total_surface_area"`
	TotalShapes      int     `json:"total_shapes"`
}

// SurfaceDistribution counts faces by surface type.
type SurfaceDistribution struct {
	Planes          int `json:"planes"`
	Cylinders       int `json:"cylinders"`
	Spheres         int `json:"spheres"`
	ComplexSurfaces int `json:"complex_surfaces"`
}

// ComplexityMetrics summarizes face types; the score is the face total.
type ComplexityMetrics struct {
	SurfaceTypeDistribution  SurfaceDistribution `json:"surface_type_distribution"`
	GeometricComplexityScore int                 `json:"geometric_complexity_score"`
}

// GeometricFeatures names the surface types the distribution reports.
var GeometricFeatures = []string{"planes", "cylinders", "spheres", "complex_surfaces"}

// GeometrySummary aggregates geometry over the free shapes of a document.
type GeometrySummary struct {
	OverallStatistics OverallStatistics `json:"overall_statistics"`
	TopologyTotals    TopologyCounts    `json:"topology_totals"`
	ComplexityMetrics ComplexityMetrics `json:"complexity_metrics"`
	GeometricFeatures []string          `json:"geometric_features"`
	FailedShapes      int               `json:"failed_shapes"`
	ExtractionError   string            `json:"extraction_error,omitempty"`
}

func (s *GeometrySummary) addSurfaces(c kernel.SurfaceCounts) {
	d := &s.ComplexityMetrics.SurfaceTypeDistribution
	d.Planes += c.Planes
	d.Cylinders += c.Cylinders
	d.Spheres += c.Spheres
	d.ComplexSurfaces += c.Complex
	s.ComplexityMetrics.GeometricComplexityScore += c.Total()
}

// SummarizeGeometry sums volume, surface area, topology and surface types
// over the free shapes. A shape that is null or has any failing metric
// contributes 0 for that metric and is counted once in FailedShapes.
func SummarizeGeometry(doc kernel.Document) GeometrySummary {
	sum := GeometrySummary{GeometricFeatures: append([]string(nil), GeometricFeatures...)}
	roots, err := freeShapes(doc.Shapes())
	if err != nil {
		sum.ExtractionError = err.Error()
		return sum
	}
	sum.OverallStatistics.TotalShapes = len(roots)

	for _, l := range roots {
		shape, err := shapeOf(doc.Shapes(), l)
		if err != nil || kernel.IsNull(shape) {
			sum.FailedShapes++
			continue
		}
		a := Analyze(doc.Geometry(), shape)
		failed := a.AnalysisError != ""
		if gp := a.GeometryProperties; gp != nil {
			if gp.Volume != nil {
				sum.OverallStatistics.TotalVolume += *gp.Volume
			}
			if gp.SurfaceArea != nil {
				sum.OverallStatistics.TotalSurfaceArea += *gp.SurfaceArea
			}
			failed = failed || gp.CalculationFailed != ""
		}
		if t := a.Topology; t != nil {
			for _, kind := range kernel.TopoKinds {
				*sum.TopologyTotals.field(kind) += t.Get(kind)
			}
			failed = failed || len(t.CalculationFailed) > 0
		}
		var surfaces kernel.SurfaceCounts
		err = kernel.Guard("surface types", func() error {
			var err error
			surfaces, err = doc.Geometry().SurfaceTypes(shape)
			return err
		})
		if err != nil {
			failed = true
		} else {
			sum.addSurfaces(surfaces)
		}
		if failed {
			sum.FailedShapes++
		}
	}
	return sum
}
