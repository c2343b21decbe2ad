package kernel

import "fmt"

// Vec3 is a 3-component vector. It serializes as a JSON array.
type Vec3 [3]float64

// Sub returns v - o componentwise.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Mid returns the midpoint of v and o.
func (v Vec3) Mid(o Vec3) Vec3 {
	return Vec3{(v[0] + o[0]) / 2, (v[1] + o[1]) / 2, (v[2] + o[2]) / 2}
}

// RGB is a color with components in [0,1].
type RGB struct {
	R, G, B float64
}

// Box is an axis-aligned bounding box. A void box carries no coordinates.
type Box struct {
	Min, Max Vec3
	Void     bool
}

// VolumeProps is the result of volume integration.
type VolumeProps struct {
	Volume       float64
	CenterOfMass Vec3
}

// SurfaceCounts tallies faces by underlying surface type. Faces that are
// not planar, cylindrical or spherical count as complex.
type SurfaceCounts struct {
	Planes    int
	Cylinders int
	Spheres   int
	Complex   int
}

// Add returns the componentwise sum of c and o.
func (c SurfaceCounts) Add(o SurfaceCounts) SurfaceCounts {
	return SurfaceCounts{
		Planes:    c.Planes + o.Planes,
		Cylinders: c.Cylinders + o.Cylinders,
		Spheres:   c.Spheres + o.Spheres,
		Complex:   c.Complex + o.Complex,
	}
}

// Total returns the number of faces counted.
func (c SurfaceCounts) Total() int {
	return c.Planes + c.Cylinders + c.Spheres + c.Complex
}

// ShapeType enumerates kernel shape categories. The numeric values follow
// the usual B-rep ordering (compound first, vertex last) and are what the
// wire format reports as shape_type.
type ShapeType int

const (
	ShapeCompound ShapeType = iota
	ShapeCompSolid
	ShapeSolid
	ShapeShell
	ShapeFace
	ShapeWire
	ShapeEdge
	ShapeVertex
	ShapeUnknown
)

func (t ShapeType) String() string {
	switch t {
	case ShapeCompound:
		return "compound"
	case ShapeCompSolid:
		return "compsolid"
	case ShapeSolid:
		return "solid"
	case ShapeShell:
		return "shell"
	case ShapeFace:
		return "face"
	case ShapeWire:
		return "wire"
	case ShapeEdge:
		return "edge"
	case ShapeVertex:
		return "vertex"
	default:
		return "shape"
	}
}

// TopoKind is one of the seven counted topology kinds.
type TopoKind int

const (
	TopoVertex TopoKind = iota
	TopoEdge
	TopoFace
	TopoSolid
	TopoShell
	TopoWire
	TopoCompound
)

// TopoKinds lists the counted kinds in reporting order.
var TopoKinds = []TopoKind{
	TopoVertex, TopoEdge, TopoFace, TopoSolid, TopoShell, TopoWire, TopoCompound,
}

func (k TopoKind) String() string {
	switch k {
	case TopoVertex:
		return "vertices"
	case TopoEdge:
		return "edges"
	case TopoFace:
		return "faces"
	case TopoSolid:
		return "solids"
	case TopoShell:
		return "shells"
	case TopoWire:
		return "wires"
	case TopoCompound:
		return "compounds"
	default:
		return fmt.Sprintf("TopoKind(%d)", int(k))
	}
}

// ColorRole is the role a color is assigned under.
type ColorRole int

const (
	ColorGeneral ColorRole = iota
	ColorSurface
	ColorCurve
)

// ColorRoles lists roles in resolution priority order.
var ColorRoles = []ColorRole{ColorGeneral, ColorSurface, ColorCurve}

func (r ColorRole) String() string {
	switch r {
	case ColorGeneral:
		return "general"
	case ColorSurface:
		return "surface"
	case ColorCurve:
		return "curve"
	default:
		return fmt.Sprintf("ColorRole(%d)", int(r))
	}
}

// AttributeKind selects a label attribute.
type AttributeKind int

const (
	AttrName AttributeKind = iota
	AttrComment
)

func (k AttributeKind) String() string {
	switch k {
	case AttrName:
		return "name"
	case AttrComment:
		return "comment"
	default:
		return fmt.Sprintf("AttributeKind(%d)", int(k))
	}
}

// nullShape is the shared null handle.
type nullShape struct{}

func (nullShape) IsNull() bool    { return true }
func (nullShape) Type() ShapeType { return ShapeUnknown }

// NullShape is returned for labels that carry no geometry.
var NullShape Shape = nullShape{}

// IsNull reports whether s is nil or a null handle.
func IsNull(s Shape) bool {
	return s == nil || s.IsNull()
}
