// Package tessellate walks the free shapes of an assembly document and
// produces triangle meshes for the web viewer. One mesh is produced per leaf
// part occurrence, positioned in the root frame.
package tessellate

import (
	"fmt"

	"github.com/chazu/stepbom/pkg/bom"
	"github.com/chazu/stepbom/pkg/kernel"
	"github.com/chazu/stepbom/pkg/xcaf"
)

// Palette assigns distinct colors to parts that carry no color of their own.
var Palette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// Scene is the mesh payload loaded by the three.js viewer.
type Scene struct {
	Source string         `json:"source"`
	Meshes []*kernel.Mesh `json:"meshes"`
}

// TriangleCount sums the triangles of every mesh.
func (s *Scene) TriangleCount() int {
	n := 0
	for _, m := range s.Meshes {
		n += m.TriangleCount()
	}
	return n
}

// locationStack accumulates component placements during traversal. The
// innermost placement is applied first.
type locationStack struct {
	locs []xcaf.Location
}

func (ls *locationStack) push(l xcaf.Location) {
	ls.locs = append(ls.locs, l)
}

func (ls *locationStack) pop() {
	if len(ls.locs) > 0 {
		ls.locs = ls.locs[:len(ls.locs)-1]
	}
}

// apply moves s from the innermost frame out to the root frame.
func (ls *locationStack) apply(m kernel.Modeler, s kernel.Shape) kernel.Shape {
	for i := len(ls.locs) - 1; i >= 0; i-- {
		loc := ls.locs[i]
		if r := loc.Rotate; r != (kernel.Vec3{}) {
			s = m.Rotate(s, r[0], r[1], r[2])
		}
		if t := loc.Translate; t != (kernel.Vec3{}) {
			s = m.Translate(s, t[0], t[1], t[2])
		}
	}
	return s
}

type walker struct {
	doc     *xcaf.Document
	modeler kernel.Modeler
	stack   locationStack
	path    map[*xcaf.Label]bool
	meshes  []*kernel.Mesh
}

// Tessellate meshes every leaf part reachable from the document's free
// shapes. The document is only read. Leaves that are not simple shapes
// (null shapes included) are skipped.
func Tessellate(d *xcaf.Document) ([]*kernel.Mesh, error) {
	if d == nil {
		return nil, nil
	}
	m := d.Modeler()
	if m == nil {
		return nil, fmt.Errorf("tessellate: document has no modeler")
	}

	roots, err := d.FreeShapes()
	if err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}

	w := &walker{doc: d, modeler: m, path: make(map[*xcaf.Label]bool)}
	for _, root := range roots {
		if err := w.walkLabel(root.(*xcaf.Label), ""); err != nil {
			return nil, fmt.Errorf("tessellate: error walking root %s: %w", root.Entry(), err)
		}
	}
	return w.meshes, nil
}

// walkLabel recurses into assemblies and meshes leaves. inherited is the
// color of the nearest colored ancestor.
func (w *walker) walkLabel(l *xcaf.Label, inherited string) error {
	if w.path[l] {
		return fmt.Errorf("label %s contains itself", l.Entry())
	}

	color := inherited
	if rec := bom.ResolveColor(w.doc.Colors(), l); rec.HasColor {
		color = rec.Hex
	}

	asm, err := w.doc.IsAssembly(l)
	if err != nil {
		return err
	}
	if !asm {
		return w.handleLeaf(l, color)
	}

	children, err := w.doc.Components(l)
	if err != nil {
		return err
	}
	w.path[l] = true
	defer delete(w.path, l)
	if l.Kind() == xcaf.KindComponent {
		w.stack.push(l.Location())
		defer w.stack.pop()
	}
	for _, child := range children {
		if err := w.walkLabel(child.(*xcaf.Label), color); err != nil {
			return err
		}
	}
	return nil
}

// handleLeaf meshes a part in the root frame.
func (w *walker) handleLeaf(l *xcaf.Label, color string) error {
	simple, err := w.doc.IsSimpleShape(l)
	if err != nil || !simple {
		return err
	}
	shape, err := w.doc.Shape(l)
	if err != nil {
		return err
	}

	var mesh *kernel.Mesh
	err = kernel.Guard("mesh", func() error {
		var err error
		mesh, err = w.modeler.ToMesh(w.stack.apply(w.modeler, shape))
		return err
	})
	if err != nil {
		return fmt.Errorf("ToMesh failed for label %s: %w", l.Entry(), err)
	}

	name, _, _ := w.doc.Attribute(l, kernel.AttrName)
	if name == "" {
		name = bom.FallbackName(l)
	}
	if color == "" {
		color = Palette[len(w.meshes)%len(Palette)]
	}
	mesh.PartName = name
	mesh.Label = l.Entry()
	mesh.Color = color
	w.meshes = append(w.meshes, mesh)
	return nil
}
