// Package kerneltest provides a scriptable in-memory kernel for tests.
// Every capability call can be made to fail per label or per shape, which is
// how the traversal code's failure isolation is exercised without a real
// CAD backend.
package kerneltest

import (
	"context"
	"fmt"
	"os"

	"github.com/chazu/stepbom/pkg/kernel"
)

// Compile-time interface checks.
var (
	_ kernel.Label         = Label("")
	_ kernel.Shape         = (*Shape)(nil)
	_ kernel.Document      = (*Document)(nil)
	_ kernel.ShapeTool     = (*Document)(nil)
	_ kernel.ColorTool     = (*Document)(nil)
	_ kernel.AttributeTool = (*Document)(nil)
	_ kernel.Geometry      = geometry{}
	_ kernel.Kernel        = (*Kernel)(nil)
)

// Label is a fake label identified by its entry string.
type Label string

func (l Label) Entry() string { return string(l) }

// Shape is a fake shape whose measurements are preset. Any *Err field makes
// the corresponding geometry call fail; Panic makes every call panic.
type Shape struct {
	Kind   kernel.ShapeType
	Null   bool
	Volume float64
	Center kernel.Vec3
	Area   float64
	Min    kernel.Vec3
	Max    kernel.Vec3
	Void   bool
	Counts   map[kernel.TopoKind]int
	Surfaces kernel.SurfaceCounts

	VolumeErr  error
	AreaErr    error
	BoxErr     error
	CountErr   map[kernel.TopoKind]error
	SurfaceErr error
	Panic      string
}

func (s *Shape) IsNull() bool           { return s == nil || s.Null }
func (s *Shape) Type() kernel.ShapeType { return s.Kind }

// Solid returns a valid solid shape with the given box extents and a
// single-solid topology.
func Solid(x, y, z float64) *Shape {
	return &Shape{
		Kind:   kernel.ShapeSolid,
		Volume: x * y * z,
		Area:   2 * (x*y + x*z + y*z),
		Center: kernel.Vec3{x / 2, y / 2, z / 2},
		Max:    kernel.Vec3{x, y, z},
		Counts: map[kernel.TopoKind]int{
			kernel.TopoVertex: 8,
			kernel.TopoEdge:   12,
			kernel.TopoFace:   6,
			kernel.TopoSolid:  1,
			kernel.TopoShell:  1,
			kernel.TopoWire:   6,
		},
		Surfaces: kernel.SurfaceCounts{Planes: 6},
	}
}

// Node is a fake label with its attributes and children. Error fields make
// the corresponding capability call fail for this label only.
type Node struct {
	Entry    string
	Name     string
	Comment  string
	Assembly bool
	Shape    *Shape
	Colors   map[kernel.ColorRole]kernel.RGB
	Children []string

	ClassifyErr   error
	ShapeErr      error
	ComponentsErr error
	ColorErr      error
	NameErr       error
	AttrErr       error
}

// Document is a fake kernel document. Roots lists the free shapes in order.
type Document struct {
	Roots []string
	Nodes map[string]*Node

	FreeShapesErr error
	ColoredErr    error

	// Closed counts Close calls.
	Closed int
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{Nodes: make(map[string]*Node)}
}

// Add registers n and returns it.
func (d *Document) Add(n *Node) *Node {
	d.Nodes[n.Entry] = n
	return n
}

// AddRoot registers n as a free shape.
func (d *Document) AddRoot(n *Node) *Node {
	d.Add(n)
	d.Roots = append(d.Roots, n.Entry)
	return n
}

func (d *Document) Shapes() kernel.ShapeTool         { return d }
func (d *Document) Colors() kernel.ColorTool         { return d }
func (d *Document) Attributes() kernel.AttributeTool { return d }
func (d *Document) Geometry() kernel.Geometry        { return geometry{} }

func (d *Document) Close() error {
	d.Closed++
	return nil
}

func (d *Document) node(l kernel.Label) (*Node, error) {
	n, ok := d.Nodes[l.Entry()]
	if !ok {
		return nil, fmt.Errorf("kerneltest: unknown label %s", l.Entry())
	}
	return n, nil
}

// --- ShapeTool ---

func (d *Document) FreeShapes() ([]kernel.Label, error) {
	if d.FreeShapesErr != nil {
		return nil, d.FreeShapesErr
	}
	labels := make([]kernel.Label, len(d.Roots))
	for i, e := range d.Roots {
		labels[i] = Label(e)
	}
	return labels, nil
}

func (d *Document) IsAssembly(l kernel.Label) (bool, error) {
	n, err := d.node(l)
	if err != nil {
		return false, err
	}
	if n.ClassifyErr != nil {
		return false, n.ClassifyErr
	}
	return n.Assembly, nil
}

func (d *Document) IsSimpleShape(l kernel.Label) (bool, error) {
	n, err := d.node(l)
	if err != nil {
		return false, err
	}
	if n.ClassifyErr != nil {
		return false, n.ClassifyErr
	}
	return !n.Assembly && n.Shape != nil, nil
}

func (d *Document) Shape(l kernel.Label) (kernel.Shape, error) {
	n, err := d.node(l)
	if err != nil {
		return nil, err
	}
	if n.ShapeErr != nil {
		return nil, n.ShapeErr
	}
	if n.Shape == nil {
		return kernel.NullShape, nil
	}
	return n.Shape, nil
}

func (d *Document) Components(l kernel.Label) ([]kernel.Label, error) {
	n, err := d.node(l)
	if err != nil {
		return nil, err
	}
	if n.ComponentsErr != nil {
		return nil, n.ComponentsErr
	}
	labels := make([]kernel.Label, len(n.Children))
	for i, e := range n.Children {
		labels[i] = Label(e)
	}
	return labels, nil
}

// --- ColorTool ---

func (d *Document) Color(l kernel.Label, role kernel.ColorRole) (kernel.RGB, bool, error) {
	n, err := d.node(l)
	if err != nil {
		return kernel.RGB{}, false, err
	}
	if n.ColorErr != nil {
		return kernel.RGB{}, false, n.ColorErr
	}
	c, ok := n.Colors[role]
	return c, ok, nil
}

// ColoredLabels returns the colored labels reachable from Roots, depth
// first.
func (d *Document) ColoredLabels() ([]kernel.Label, error) {
	if d.ColoredErr != nil {
		return nil, d.ColoredErr
	}
	var labels []kernel.Label
	seen := make(map[string]bool)
	var visit func(e string)
	visit = func(e string) {
		if seen[e] {
			return
		}
		seen[e] = true
		n := d.Nodes[e]
		if n == nil {
			return
		}
		if len(n.Colors) > 0 {
			labels = append(labels, Label(e))
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	for _, r := range d.Roots {
		visit(r)
	}
	return labels, nil
}

// --- AttributeTool ---

func (d *Document) Attribute(l kernel.Label, kind kernel.AttributeKind) (string, bool, error) {
	n, err := d.node(l)
	if err != nil {
		return "", false, err
	}
	switch kind {
	case kernel.AttrName:
		if n.NameErr != nil {
			return "", false, n.NameErr
		}
		return n.Name, n.Name != "", nil
	case kernel.AttrComment:
		if n.AttrErr != nil {
			return "", false, n.AttrErr
		}
		return n.Comment, n.Comment != "", nil
	default:
		return "", false, nil
	}
}

// --- Geometry ---

type geometry struct{}

func fake(s kernel.Shape) (*Shape, error) {
	if kernel.IsNull(s) {
		return nil, kernel.ErrNullShape
	}
	fs, ok := s.(*Shape)
	if !ok {
		return nil, fmt.Errorf("kerneltest: foreign shape %T", s)
	}
	if fs.Panic != "" {
		panic(fs.Panic)
	}
	return fs, nil
}

func (geometry) VolumeProperties(s kernel.Shape) (kernel.VolumeProps, error) {
	fs, err := fake(s)
	if err != nil {
		return kernel.VolumeProps{}, err
	}
	if fs.VolumeErr != nil {
		return kernel.VolumeProps{}, fs.VolumeErr
	}
	return kernel.VolumeProps{Volume: fs.Volume, CenterOfMass: fs.Center}, nil
}

func (geometry) SurfaceArea(s kernel.Shape) (float64, error) {
	fs, err := fake(s)
	if err != nil {
		return 0, err
	}
	if fs.AreaErr != nil {
		return 0, fs.AreaErr
	}
	return fs.Area, nil
}

func (geometry) BoundingBox(s kernel.Shape) (kernel.Box, error) {
	fs, err := fake(s)
	if err != nil {
		return kernel.Box{}, err
	}
	if fs.BoxErr != nil {
		return kernel.Box{}, fs.BoxErr
	}
	if fs.Void {
		return kernel.Box{Void: true}, nil
	}
	return kernel.Box{Min: fs.Min, Max: fs.Max}, nil
}

func (geometry) Count(s kernel.Shape, kind kernel.TopoKind) (int, error) {
	fs, err := fake(s)
	if err != nil {
		return 0, err
	}
	if err := fs.CountErr[kind]; err != nil {
		return 0, err
	}
	return fs.Counts[kind], nil
}

func (geometry) SurfaceTypes(s kernel.Shape) (kernel.SurfaceCounts, error) {
	fs, err := fake(s)
	if err != nil {
		return kernel.SurfaceCounts{}, err
	}
	if fs.SurfaceErr != nil {
		return kernel.SurfaceCounts{}, fs.SurfaceErr
	}
	return fs.Surfaces, nil
}

// --- Kernel ---

// Kernel opens preset documents by path.
type Kernel struct {
	Docs    map[string]*Document
	OpenErr error
}

// NewKernel returns a kernel serving the given documents.
func NewKernel(docs map[string]*Document) *Kernel {
	return &Kernel{Docs: docs}
}

func (k *Kernel) Name() string     { return "fake" }
func (k *Kernel) Available() error { return nil }

func (k *Kernel) Open(_ context.Context, path string) (kernel.Document, error) {
	if k.OpenErr != nil {
		return nil, k.OpenErr
	}
	doc, ok := k.Docs[path]
	if !ok {
		return nil, fmt.Errorf("kerneltest: %s: %w", path, os.ErrNotExist)
	}
	return doc, nil
}
