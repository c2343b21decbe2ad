package bom

import (
	"encoding/json"

	"github.com/chazu/stepbom/pkg/kernel"
)

// Node classifications on the wire.
const (
	NodeAssembly = "assembly"
	NodePart     = "part"
)

// TopologyCounts holds the number of sub-elements of each topology kind.
// A kind whose enumeration failed reports 0 and is listed in
// CalculationFailed.
type TopologyCounts struct {
	Vertices          int               `json:"vertices"`
	Edges             int               `json:"edges"`
	Faces             int               `json:"faces"`
	Solids            int               `json:"solids"`
	Shells            int               `json:"shells"`
	Wires             int               `json:"wires"`
	Compounds         int               `json:"compounds"`
	CalculationFailed map[string]string `json:"calculation_failed,omitempty"`
}

// field returns a pointer to the count for kind.
func (t *TopologyCounts) field(kind kernel.TopoKind) *int {
	switch kind {
	case kernel.TopoVertex:
		return &t.Vertices
	case kernel.TopoEdge:
		return &t.Edges
	case kernel.TopoFace:
		return &t.Faces
	case kernel.TopoSolid:
		return &t.Solids
	case kernel.TopoShell:
		return &t.Shells
	case kernel.TopoWire:
		return &t.Wires
	case kernel.TopoCompound:
		return &t.Compounds
	}
	return nil
}

// Get returns the count for kind.
func (t TopologyCounts) Get(kind kernel.TopoKind) int {
	if p := t.field(kind); p != nil {
		return *p
	}
	return 0
}

// GeometryProperties carries the integrated properties of a shape. A nil
// value means the metric was not computed; CalculationFailed says why.
type GeometryProperties struct {
	Volume            *float64     `json:"volume,omitempty"`
	CenterOfMass      *kernel.Vec3 `json:"center_of_mass,omitempty"`
	HasInertiaData    bool         `json:"has_inertia_data,omitempty"`
	SurfaceArea       *float64     `json:"surface_area,omitempty"`
	CalculationFailed string       `json:"calculation_failed,omitempty"`
}

// BoundingInfo is the axis-aligned bounding box of a shape, or a marker
// that the box is void, or the error that prevented computing it.
type BoundingInfo struct {
	MinPoint          *kernel.Vec3 `json:"min_point,omitempty"`
	MaxPoint          *kernel.Vec3 `json:"max_point,omitempty"`
	Dimensions        *kernel.Vec3 `json:"dimensions,omitempty"`
	Center            *kernel.Vec3 `json:"center,omitempty"`
	VoidBoundingBox   bool         `json:"void_bounding_box,omitempty"`
	CalculationFailed string       `json:"calculation_failed,omitempty"`
}

// ShapeAnalysis is the complete per-shape record. An invalid shape carries
// only IsValid and AnalysisError.
type ShapeAnalysis struct {
	IsValid            bool                `json:"is_valid"`
	AnalysisError      string              `json:"analysis_error,omitempty"`
	ShapeType          string              `json:"shape_type,omitempty"`
	ShapeTypeName      string              `json:"shape_type_name,omitempty"`
	Topology           *TopologyCounts     `json:"topology,omitempty"`
	GeometryProperties *GeometryProperties `json:"geometry_properties,omitempty"`
	BoundingInfo       *BoundingInfo       `json:"bounding_info,omitempty"`
}

// ColorRecord is a resolved color. The zero value means no color.
type ColorRecord struct {
	HasColor    bool
	RGB         kernel.Vec3
	Hex         string
	Role        string
	SourceLabel string

	// ExtractionError marks a lookup that failed inside the kernel, as
	// opposed to a label that simply has no color.
	ExtractionError bool
}

type colorRecordJSON struct {
	HasColor    bool        `json:"has_color"`
	RGB         kernel.Vec3 `json:"rgb"`
	Hex         string      `json:"hex"`
	Role        string      `json:"role"`
	SourceLabel string      `json:"source_label"`
}

// MarshalJSON emits {"has_color": false} for no color and
// {"color_extraction_error": true} for a failed lookup.
func (c ColorRecord) MarshalJSON() ([]byte, error) {
	switch {
	case c.ExtractionError:
		return json.Marshal(map[string]bool{"color_extraction_error": true})
	case !c.HasColor:
		return json.Marshal(map[string]bool{"has_color": false})
	}
	return json.Marshal(colorRecordJSON{
		HasColor:    true,
		RGB:         c.RGB,
		Hex:         c.Hex,
		Role:        c.Role,
		SourceLabel: c.SourceLabel,
	})
}

// UnmarshalJSON reverses MarshalJSON.
func (c *ColorRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		colorRecordJSON
		ColorExtractionError bool `json:"color_extraction_error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = ColorRecord{
		HasColor:        raw.HasColor,
		RGB:             raw.RGB,
		Hex:             raw.Hex,
		Role:            raw.Role,
		SourceLabel:     raw.SourceLabel,
		ExtractionError: raw.ColorExtractionError,
	}
	return nil
}

// AttributeSet maps annotation names such as "comment" to their values.
type AttributeSet struct {
	Values map[string]string

	// ExtractionError replaces the whole set when reading failed.
	ExtractionError bool
}

// MarshalJSON emits the values as an object, or
// {"attribute_extraction_error": true}.
func (a AttributeSet) MarshalJSON() ([]byte, error) {
	if a.ExtractionError {
		return json.Marshal(map[string]bool{"attribute_extraction_error": true})
	}
	if a.Values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(a.Values)
}

// UnmarshalJSON reverses MarshalJSON.
func (a *AttributeSet) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = AttributeSet{}
	if v, ok := raw["attribute_extraction_error"].(bool); ok && v {
		a.ExtractionError = true
		return nil
	}
	for k, v := range raw {
		if s, ok := v.(string); ok {
			if a.Values == nil {
				a.Values = make(map[string]string)
			}
			a.Values[k] = s
		}
	}
	return nil
}

// AssemblyNode is one node of the nested tree. Nodes are built once during
// traversal and owned by their parent.
type AssemblyNode struct {
	LabelID         string         `json:"label_id"`
	Level           int            `json:"level"`
	Name            string         `json:"name"`
	NodeType        string         `json:"node_type"`
	ShapeInfo       *ShapeAnalysis `json:"shape_info"`
	ColorInfo       ColorRecord    `json:"color_info"`
	Attributes      AttributeSet   `json:"attributes"`
	Children        []AssemblyNode `json:"children"`
	ProcessingError string         `json:"processing_error,omitempty"`
}

// MarshalJSON emits an empty object for a node without a shape and an
// empty array for a node without children.
func (n AssemblyNode) MarshalJSON() ([]byte, error) {
	type plain AssemblyNode
	type wire struct {
		plain
		ShapeInfo any            `json:"shape_info"`
		Children  []AssemblyNode `json:"children"`
	}
	w := wire{plain: plain(n), ShapeInfo: n.ShapeInfo, Children: n.Children}
	if n.ShapeInfo == nil {
		w.ShapeInfo = struct{}{}
	}
	if w.Children == nil {
		w.Children = []AssemblyNode{}
	}
	return json.Marshal(w)
}

// AssemblyTree is the result of one traversal over all free shapes.
type AssemblyTree struct {
	RootAssemblies  []AssemblyNode `json:"root_assemblies"`
	TotalFreeShapes int            `json:"total_free_shapes"`
	HierarchyDepth  int            `json:"hierarchy_depth"`
	ExtractionError string         `json:"extraction_error,omitempty"`
}

// PartRecord is the flat projection of one root label.
type PartRecord struct {
	PartID           string        `json:"part_id"`
	LabelID          string        `json:"label_id"`
	Name             string        `json:"name"`
	NodeType         string        `json:"node_type"`
	ShapeAnalysis    ShapeAnalysis `json:"shape_analysis"`
	ColorData        ColorRecord   `json:"color_data"`
	CustomProperties AttributeSet  `json:"custom_properties"`
}

// PartsList is the flat BOM.
type PartsList struct {
	TotalParts      int          `json:"total_parts"`
	PartsList       []PartRecord `json:"parts_list"`
	SkippedParts    int          `json:"skipped_parts,omitempty"`
	ExtractionError string       `json:"extraction_error,omitempty"`
}
