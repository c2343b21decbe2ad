// Package kernel defines the abstract CAD kernel capabilities consumed by
// the BOM extractor. A kernel opens a document (a labelled assembly store)
// and exposes shape, color, attribute and geometry capabilities over it.
// Implementations (the sdfx-backed script kernel, the unavailable kernel,
// test fakes) sit behind these interfaces so the traversal code never
// depends on a concrete backend.
package kernel

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable is returned by every operation of a kernel whose
	// binding could not be loaded.
	ErrUnavailable = errors.New("kernel not available")

	// ErrNullShape is returned by geometry calls given a null shape.
	ErrNullShape = errors.New("null shape")
)

// Label is an opaque handle into a document's hierarchical store.
// Labels are owned by their document and never mutated by consumers.
type Label interface {
	// Entry returns the label's identity within its document, e.g. "0:1:1:3".
	Entry() string
}

// Shape is an opaque geometric handle reachable from a Label.
// A shape may be null; every consumer must check IsNull before use.
type Shape interface {
	IsNull() bool
	Type() ShapeType
}

// ShapeTool enumerates and classifies the labels of a document.
type ShapeTool interface {
	// FreeShapes returns the root labels in document order.
	FreeShapes() ([]Label, error)
	// IsAssembly reports whether the label is a composite with components.
	IsAssembly(l Label) (bool, error)
	// IsSimpleShape reports whether the label is a leaf owning a shape.
	IsSimpleShape(l Label) (bool, error)
	// Shape returns the shape stored on the label, possibly null.
	Shape(l Label) (Shape, error)
	// Components returns the child labels of a composite, in kernel order.
	Components(l Label) ([]Label, error)
}

// ColorTool queries color assignments.
type ColorTool interface {
	// Color returns the color assigned to l under role. ok is false when
	// no color of that role is set.
	Color(l Label, role ColorRole) (c RGB, ok bool, err error)
	// ColoredLabels returns every label carrying any color assignment.
	ColoredLabels() ([]Label, error)
}

// AttributeTool reads free-text attributes attached to labels.
type AttributeTool interface {
	// Attribute returns the attribute of the given kind. ok is false when
	// the label has no such attribute.
	Attribute(l Label, kind AttributeKind) (value string, ok bool, err error)
}

// Geometry integrates and measures shapes.
type Geometry interface {
	// VolumeProperties integrates volume and center of mass.
	VolumeProperties(s Shape) (VolumeProps, error)
	// SurfaceArea integrates the total surface area.
	SurfaceArea(s Shape) (float64, error)
	// BoundingBox computes the axis-aligned bounding box.
	BoundingBox(s Shape) (Box, error)
	// Count enumerates the sub-elements of one topology kind.
	Count(s Shape, kind TopoKind) (int, error)
	// SurfaceTypes classifies the faces of s by surface type.
	SurfaceTypes(s Shape) (SurfaceCounts, error)
}

// Modeler builds shapes. It is the construction half of a kernel, used by
// document loaders; the BOM core never builds geometry.
type Modeler interface {
	// Primitives
	Box(x, y, z float64) Shape
	Cylinder(height, radius float64) Shape
	Sphere(radius float64) Shape

	// Boolean operations
	Union(a, b Shape) Shape
	Difference(a, b Shape) Shape
	Intersection(a, b Shape) Shape

	// Transforms
	Translate(s Shape, x, y, z float64) Shape
	Rotate(s Shape, x, y, z float64) Shape // Euler angles in degrees

	// Compound groups shapes without fusing them (assembly geometry).
	Compound(shapes ...Shape) Shape

	// Mesh output
	ToMesh(s Shape) (*Mesh, error)
}

// Document is an open kernel session over one input file.
type Document interface {
	Shapes() ShapeTool
	Colors() ColorTool
	Attributes() AttributeTool
	Geometry() Geometry
	// Close releases the session. It is safe to call more than once.
	Close() error
}

// Kernel opens documents. Open reads the file and transfers it into a new
// session; a failure here is a whole-traversal failure.
type Kernel interface {
	Name() string
	// Available returns nil when the kernel binding is usable.
	Available() error
	Open(ctx context.Context, path string) (Document, error)
}
