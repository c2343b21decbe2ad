package xcaf

import (
	"errors"
	"fmt"

	"github.com/chazu/stepbom/pkg/kernel"
)

var (
	// ErrUnknownLabel is returned when a label does not belong to the document.
	ErrUnknownLabel = errors.New("unknown label")

	// ErrClosed is returned by every tool call after Close.
	ErrClosed = errors.New("document closed")
)

// Compile-time interface checks.
var (
	_ kernel.Label         = (*Label)(nil)
	_ kernel.Document      = (*Document)(nil)
	_ kernel.ShapeTool     = (*Document)(nil)
	_ kernel.ColorTool     = (*Document)(nil)
	_ kernel.AttributeTool = (*Document)(nil)
)

// Document is the label store. It is built once by a loader and then only
// read; it is not safe for concurrent use.
type Document struct {
	modeler  kernel.Modeler
	geometry kernel.Geometry

	top     []*Label // top-level labels in creation order
	all     []*Label // every label in creation order
	byEntry map[string]*Label

	// compounds caches the geometry of assembly labels.
	compounds map[*Label]kernel.Shape

	closed bool
}

// New returns an empty document. The modeler builds assembly compounds and
// placed component shapes; the geometry measures shapes for the traversal.
func New(m kernel.Modeler, g kernel.Geometry) *Document {
	return &Document{
		modeler:   m,
		geometry:  g,
		byEntry:   make(map[string]*Label),
		compounds: make(map[*Label]kernel.Shape),
	}
}

func (d *Document) register(l *Label) *Label {
	d.all = append(d.all, l)
	d.byEntry[l.entry] = l
	return l
}

func (d *Document) nextTopEntry() string {
	return fmt.Sprintf("0:1:1:%d", len(d.top)+1)
}

// NewShape adds a top-level leaf label owning s.
func (d *Document) NewShape(s kernel.Shape) *Label {
	l := &Label{entry: d.nextTopEntry(), kind: KindShape, shape: s}
	d.top = append(d.top, l)
	return d.register(l)
}

// NewAssembly adds an empty top-level assembly label.
func (d *Document) NewAssembly() *Label {
	l := &Label{entry: d.nextTopEntry(), kind: KindAssembly}
	d.top = append(d.top, l)
	return d.register(l)
}

// AddComponent places proto inside assembly at loc and returns the new
// component label. Components do not copy the prototype's attributes; name,
// comment and color lookups fall back to the prototype when the component
// carries none of its own.
func (d *Document) AddComponent(assembly, proto *Label, loc Location) (*Label, error) {
	if assembly == nil || d.byEntry[assembly.entry] != assembly {
		return nil, fmt.Errorf("add component: assembly: %w", ErrUnknownLabel)
	}
	if assembly.kind != KindAssembly {
		return nil, fmt.Errorf("add component: label %s is a %s, not an assembly", assembly.entry, assembly.kind)
	}
	if proto == nil || d.byEntry[proto.entry] != proto {
		return nil, fmt.Errorf("add component: prototype: %w", ErrUnknownLabel)
	}
	c := &Label{
		entry:    fmt.Sprintf("%s:%d", assembly.entry, len(assembly.components)+1),
		kind:     KindComponent,
		proto:    proto,
		location: loc,
		parent:   assembly,
	}
	assembly.components = append(assembly.components, c)
	delete(d.compounds, assembly)
	return d.register(c), nil
}

// Label returns the label with the given entry.
func (d *Document) Label(entry string) (*Label, bool) {
	l, ok := d.byEntry[entry]
	return l, ok
}

// Labels returns every label in creation order.
func (d *Document) Labels() []*Label {
	return d.all
}

func (d *Document) resolve(l kernel.Label) (*Label, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if l == nil {
		return nil, ErrUnknownLabel
	}
	own, ok := d.byEntry[l.Entry()]
	if !ok {
		return nil, fmt.Errorf("%s: %w", l.Entry(), ErrUnknownLabel)
	}
	return own, nil
}

// --- kernel.Document ---

func (d *Document) Shapes() kernel.ShapeTool         { return d }
func (d *Document) Colors() kernel.ColorTool         { return d }
func (d *Document) Attributes() kernel.AttributeTool { return d }
func (d *Document) Geometry() kernel.Geometry        { return d.geometry }

// Modeler returns the modeler the document's shapes were built with.
func (d *Document) Modeler() kernel.Modeler { return d.modeler }

// Close releases the document. Later tool calls fail with ErrClosed.
func (d *Document) Close() error {
	d.closed = true
	d.compounds = nil
	return nil
}

// --- kernel.ShapeTool ---

// FreeShapes returns the top-level labels that no component refers to.
func (d *Document) FreeShapes() ([]kernel.Label, error) {
	if d.closed {
		return nil, ErrClosed
	}
	referenced := make(map[*Label]bool)
	for _, l := range d.all {
		if l.kind == KindComponent && l.proto != nil {
			referenced[l.proto] = true
		}
	}
	var free []kernel.Label
	for _, l := range d.top {
		if !referenced[l] {
			free = append(free, l)
		}
	}
	return free, nil
}

// IsAssembly reports whether l, or the label a component refers to, is an
// assembly.
func (d *Document) IsAssembly(l kernel.Label) (bool, error) {
	own, err := d.resolve(l)
	if err != nil {
		return false, err
	}
	ref, err := own.referred(len(d.all))
	if err != nil {
		return false, err
	}
	return ref.kind == KindAssembly, nil
}

// IsSimpleShape reports whether l resolves to a leaf label with a shape.
func (d *Document) IsSimpleShape(l kernel.Label) (bool, error) {
	own, err := d.resolve(l)
	if err != nil {
		return false, err
	}
	ref, err := own.referred(len(d.all))
	if err != nil {
		return false, err
	}
	return ref.kind == KindShape && !kernel.IsNull(ref.shape), nil
}

// Shape returns the shape of l. Assemblies report the compound of their
// component shapes; components report the prototype's shape moved to the
// component's location.
func (d *Document) Shape(l kernel.Label) (kernel.Shape, error) {
	own, err := d.resolve(l)
	if err != nil {
		return nil, err
	}
	return d.shapeOf(own, make(map[*Label]bool))
}

func (d *Document) shapeOf(l *Label, visiting map[*Label]bool) (kernel.Shape, error) {
	if visiting[l] {
		return nil, fmt.Errorf("label %s: component cycle", l.entry)
	}
	visiting[l] = true
	defer delete(visiting, l)

	switch l.kind {
	case KindShape:
		if l.shape == nil {
			return kernel.NullShape, nil
		}
		return l.shape, nil

	case KindAssembly:
		if s, ok := d.compounds[l]; ok {
			return s, nil
		}
		if d.modeler == nil {
			return kernel.NullShape, nil
		}
		members := make([]kernel.Shape, 0, len(l.components))
		for _, c := range l.components {
			s, err := d.shapeOf(c, visiting)
			if err != nil {
				return nil, err
			}
			members = append(members, s)
		}
		var s kernel.Shape
		err := kernel.Guard("compound", func() error {
			s = d.modeler.Compound(members...)
			return nil
		})
		if err != nil {
			return nil, err
		}
		d.compounds[l] = s
		return s, nil

	case KindComponent:
		if l.proto == nil {
			return nil, fmt.Errorf("label %s: %w", l.entry, ErrUnknownLabel)
		}
		s, err := d.shapeOf(l.proto, visiting)
		if err != nil {
			return nil, err
		}
		if kernel.IsNull(s) || l.location.IsIdentity() || d.modeler == nil {
			return s, nil
		}
		err = kernel.Guard("locate", func() error {
			r := l.location.Rotate
			if r != (kernel.Vec3{}) {
				s = d.modeler.Rotate(s, r[0], r[1], r[2])
			}
			t := l.location.Translate
			if t != (kernel.Vec3{}) {
				s = d.modeler.Translate(s, t[0], t[1], t[2])
			}
			return nil
		})
		return s, err
	}
	return kernel.NullShape, nil
}

// Components returns the components of the assembly l resolves to. Children
// of a placed sub-assembly are the sub-assembly's own components, expressed
// in its frame.
func (d *Document) Components(l kernel.Label) ([]kernel.Label, error) {
	own, err := d.resolve(l)
	if err != nil {
		return nil, err
	}
	ref, err := own.referred(len(d.all))
	if err != nil {
		return nil, err
	}
	if ref.kind != KindAssembly {
		return nil, nil
	}
	out := make([]kernel.Label, len(ref.components))
	for i, c := range ref.components {
		out[i] = c
	}
	return out, nil
}

// --- kernel.ColorTool ---

// Color returns the color of the given role set on l, falling back along
// the component reference chain.
func (d *Document) Color(l kernel.Label, role kernel.ColorRole) (kernel.RGB, bool, error) {
	own, err := d.resolve(l)
	if err != nil {
		return kernel.RGB{}, false, err
	}
	for cur, hops := own, 0; cur != nil && hops <= len(d.all); cur, hops = cur.proto, hops+1 {
		if c, ok := cur.colors[role]; ok {
			return c, true, nil
		}
	}
	return kernel.RGB{}, false, nil
}

// ColoredLabels returns every label carrying its own color, in creation
// order.
func (d *Document) ColoredLabels() ([]kernel.Label, error) {
	if d.closed {
		return nil, ErrClosed
	}
	var out []kernel.Label
	for _, l := range d.all {
		if l.HasColor() {
			out = append(out, l)
		}
	}
	return out, nil
}

// --- kernel.AttributeTool ---

// Attribute returns the name or comment of l, falling back along the
// component reference chain.
func (d *Document) Attribute(l kernel.Label, kind kernel.AttributeKind) (string, bool, error) {
	own, err := d.resolve(l)
	if err != nil {
		return "", false, err
	}
	for cur, hops := own, 0; cur != nil && hops <= len(d.all); cur, hops = cur.proto, hops+1 {
		var v string
		switch kind {
		case kernel.AttrName:
			v = cur.name
		case kernel.AttrComment:
			v = cur.comment
		default:
			return "", false, fmt.Errorf("unsupported attribute %s", kind)
		}
		if v != "" {
			return v, true, nil
		}
	}
	return "", false, nil
}
