package xcaf

import (
	"fmt"

	"github.com/chazu/stepbom/pkg/kernel"
)

// LabelKind distinguishes the roles a label plays in the document.
type LabelKind int

const (
	KindShape     LabelKind = iota // leaf owning a shape
	KindAssembly                   // composite owning components
	KindComponent                  // placed instance of another label
)

func (k LabelKind) String() string {
	switch k {
	case KindShape:
		return "shape"
	case KindAssembly:
		return "assembly"
	case KindComponent:
		return "component"
	default:
		return fmt.Sprintf("LabelKind(%d)", int(k))
	}
}

// Location places a component relative to its assembly. Rotation is applied
// first, as Euler angles in degrees, then translation.
type Location struct {
	Translate kernel.Vec3
	Rotate    kernel.Vec3
}

// IsIdentity reports whether the location leaves shapes where they are.
func (l Location) IsIdentity() bool {
	return l.Translate == (kernel.Vec3{}) && l.Rotate == (kernel.Vec3{})
}

// Label is one node of the document store. Labels are created through the
// Document and identified by their entry, e.g. "0:1:1:3" for the third
// top-level label or "0:1:1:3:2" for its second component.
type Label struct {
	entry   string
	kind    LabelKind
	name    string
	comment string
	colors  map[kernel.ColorRole]kernel.RGB

	// Shape labels.
	shape kernel.Shape

	// Assembly labels.
	components []*Label

	// Component labels.
	proto    *Label
	location Location
	parent   *Label
}

// Entry implements kernel.Label.
func (l *Label) Entry() string { return l.entry }

// Kind returns the label's role.
func (l *Label) Kind() LabelKind { return l.kind }

// Name returns the name set on the label itself, which may be empty.
func (l *Label) Name() string { return l.name }

// Comment returns the comment set on the label itself.
func (l *Label) Comment() string { return l.comment }

// Proto returns the label a component refers to, or nil.
func (l *Label) Proto() *Label { return l.proto }

// Location returns a component's placement.
func (l *Label) Location() Location { return l.location }

// Components returns an assembly's component labels in insertion order.
func (l *Label) Components() []*Label { return l.components }

// SetName sets the label's name attribute.
func (l *Label) SetName(name string) { l.name = name }

// SetComment sets the label's free-text comment.
func (l *Label) SetComment(comment string) { l.comment = comment }

// SetColor assigns a color under the given role, replacing any previous
// color of that role.
func (l *Label) SetColor(role kernel.ColorRole, c kernel.RGB) {
	if l.colors == nil {
		l.colors = make(map[kernel.ColorRole]kernel.RGB)
	}
	l.colors[role] = c
}

// HasColor reports whether any color is assigned on the label itself.
func (l *Label) HasColor() bool { return len(l.colors) > 0 }

// referred follows component references to the prototype label. A
// component chain longer than the store is a cycle.
func (l *Label) referred(limit int) (*Label, error) {
	cur := l
	for i := 0; cur.kind == KindComponent; i++ {
		if i > limit || cur.proto == nil {
			return nil, fmt.Errorf("label %s: broken component reference", l.entry)
		}
		cur = cur.proto
	}
	return cur, nil
}
