package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/stepbom/pkg/kernel"
	"github.com/chazu/stepbom/pkg/xcaf"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a kernel.Vec3.
type sexpVec3 struct {
	vec kernel.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpColor wraps a kernel.RGB.
type sexpColor struct {
	rgb kernel.RGB
}

func (c *sexpColor) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(rgb %g %g %g)", c.rgb.R, c.rgb.G, c.rgb.B)
}
func (c *sexpColor) Type() *zygo.RegisteredType { return nil }

// sexpShape wraps a kernel.Shape returned from primitives, booleans and
// transforms, and consumed by defpart.
type sexpShape struct {
	shape kernel.Shape
	desc  string
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string {
	return "(" + s.desc + ")"
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

// sexpLabel wraps a document label returned by defpart, part and assembly.
type sexpLabel struct {
	label *xcaf.Label
}

func (l *sexpLabel) SexpString(ps *zygo.PrintState) string {
	if n := l.label.Name(); n != "" {
		return fmt.Sprintf("(label %q)", n)
	}
	return fmt.Sprintf("(label %s)", l.label.Entry())
}
func (l *sexpLabel) Type() *zygo.RegisteredType { return nil }

// sexpPlacement is a pending component: a prototype label and where to put
// it. It becomes a component label when passed to assembly.
type sexpPlacement struct {
	proto *xcaf.Label
	loc   xcaf.Location
	attrs labelAttrs
}

func (p *sexpPlacement) SexpString(ps *zygo.PrintState) string {
	t := p.loc.Translate
	return fmt.Sprintf("(place %s :at (vec3 %g %g %g))", p.proto.Entry(), t[0], t[1], t[2])
}
func (p *sexpPlacement) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value; treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// isNil reports whether s is the nil sentinel.
func isNil(s zygo.Sexp) bool {
	return s == nil || s == zygo.SexpNull
}

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toPositive extracts a strictly positive float64.
func toPositive(s zygo.Sexp) (float64, error) {
	f, err := toFloat64(s)
	if err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, fmt.Errorf("expected positive number, got %g", f)
	}
	return f, nil
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (kernel.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return kernel.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toColor extracts an RGB from a sexpColor.
func toColor(s zygo.Sexp) (kernel.RGB, error) {
	if c, ok := s.(*sexpColor); ok {
		return c.rgb, nil
	}
	return kernel.RGB{}, fmt.Errorf("expected rgb color, got %T (%s)", s, s.SexpString(nil))
}

// toShape extracts a shape from a sexpShape.
func toShape(s zygo.Sexp) (kernel.Shape, error) {
	if sh, ok := s.(*sexpShape); ok {
		return sh.shape, nil
	}
	return nil, fmt.Errorf("expected shape, got %T (%s)", s, s.SexpString(nil))
}

// toLabel extracts a label from a sexpLabel.
func toLabel(s zygo.Sexp) (*xcaf.Label, error) {
	if l, ok := s.(*sexpLabel); ok {
		return l.label, nil
	}
	return nil, fmt.Errorf("expected part or assembly, got %T (%s)", s, s.SexpString(nil))
}

// toOptionalName extracts a label name, where nil means unnamed.
func toOptionalName(s zygo.Sexp) (string, error) {
	if isNil(s) {
		return "", nil
	}
	return toString(s)
}

// ---------------------------------------------------------------------------
// Label attributes
// ---------------------------------------------------------------------------

// colorKeywords maps color keywords to the role they assign.
var colorKeywords = []struct {
	kw   string
	role kernel.ColorRole
}{
	{"color", kernel.ColorGeneral},
	{"surface-color", kernel.ColorSurface},
	{"curve-color", kernel.ColorCurve},
}

// labelAttrs are the keyword attributes defpart, place and assembly accept.
type labelAttrs struct {
	name    string
	comment string
	colors  map[kernel.ColorRole]kernel.RGB
}

// parseAttrs reads :color, :surface-color, :curve-color, :comment and,
// when withName is set, :name.
func parseAttrs(op string, pa kwArgs, withName bool) (labelAttrs, error) {
	var a labelAttrs
	for _, ck := range colorKeywords {
		v, ok := pa.kw[ck.kw]
		if !ok {
			continue
		}
		c, err := toColor(v)
		if err != nil {
			return a, fmt.Errorf("%s: %s: %w", op, ck.kw, err)
		}
		if a.colors == nil {
			a.colors = make(map[kernel.ColorRole]kernel.RGB)
		}
		a.colors[ck.role] = c
	}
	if v, ok := pa.kw["comment"]; ok {
		s, err := toString(v)
		if err != nil {
			return a, fmt.Errorf("%s: comment: %w", op, err)
		}
		a.comment = s
	}
	if withName {
		if v, ok := pa.kw["name"]; ok {
			s, err := toString(v)
			if err != nil {
				return a, fmt.Errorf("%s: name: %w", op, err)
			}
			a.name = s
		}
	}
	return a, nil
}

func (a labelAttrs) apply(l *xcaf.Label) {
	if a.name != "" {
		l.SetName(a.name)
	}
	if a.comment != "" {
		l.SetComment(a.comment)
	}
	for _, role := range kernel.ColorRoles {
		if c, ok := a.colors[role]; ok {
			l.SetColor(role, c)
		}
	}
}

// ---------------------------------------------------------------------------
// Document builder
// ---------------------------------------------------------------------------

// builder carries the document being populated by one evaluation.
type builder struct {
	doc     *xcaf.Document
	modeler kernel.Modeler
	names   map[string]*xcaf.Label
}

func newBuilder(doc *xcaf.Document, m kernel.Modeler) *builder {
	return &builder{doc: doc, modeler: m, names: make(map[string]*xcaf.Label)}
}

// shape runs a modeler call, converting a kernel panic into an eval error.
func (b *builder) shape(desc string, fn func(kernel.Modeler) kernel.Shape) (zygo.Sexp, error) {
	if b.modeler == nil {
		return zygo.SexpNull, fmt.Errorf("%s: no modeler available", desc)
	}
	var s kernel.Shape
	err := kernel.Guard(desc, func() error {
		s = fn(b.modeler)
		return nil
	})
	if err != nil {
		return zygo.SexpNull, err
	}
	return &sexpShape{shape: s, desc: desc}, nil
}

// register records a named label for later (part "name") lookups.
func (b *builder) register(op, name string, l *xcaf.Label) error {
	if name == "" {
		return nil
	}
	if _, dup := b.names[name]; dup {
		return fmt.Errorf("%s: duplicate name %q", op, name)
	}
	b.names[name] = l
	l.SetName(name)
	return nil
}

// shapeArgs extracts at least min shape arguments for a boolean operation.
func shapeArgs(op string, args []zygo.Sexp, min int) ([]kernel.Shape, error) {
	if len(args) < min {
		return nil, fmt.Errorf("%s requires at least %d shapes, got %d", op, min, len(args))
	}
	shapes := make([]kernel.Shape, len(args))
	for i, a := range args {
		s, err := toShape(a)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", op, i+1, err)
		}
		shapes[i] = s
	}
	return shapes, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the DSL builtins into a zygomys environment.
// The builtins populate b.doc during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var v kernel.Vec3
		for i := range v {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			v[i] = f
		}
		return &sexpVec3{vec: v}, nil
	})

	// (rgb 1 0 0), components in [0,1]
	env.AddFunction("rgb", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("rgb requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i := range c {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("rgb: %c: %w", "rgb"[i], err)
			}
			if f < 0 || f > 1 {
				return zygo.SexpNull, fmt.Errorf("rgb: %c: %g is outside [0,1]", "rgb"[i], f)
			}
			c[i] = f
		}
		return &sexpColor{rgb: kernel.RGB{R: c[0], G: c[1], B: c[2]}}, nil
	})

	// (box 40 20 5), min corner at the origin
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("box requires exactly 3 dimensions, got %d", len(args))
		}
		var d [3]float64
		for i := range d {
			f, err := toPositive(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: %c: %w", "xyz"[i], err)
			}
			d[i] = f
		}
		return b.shape(fmt.Sprintf("box %g %g %g", d[0], d[1], d[2]), func(m kernel.Modeler) kernel.Shape {
			return m.Box(d[0], d[1], d[2])
		})
	})

	// (cylinder height radius), axis along Z
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("cylinder requires a height and a radius, got %d arguments", len(args))
		}
		h, err := toPositive(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: height: %w", err)
		}
		r, err := toPositive(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: radius: %w", err)
		}
		return b.shape(fmt.Sprintf("cylinder %g %g", h, r), func(m kernel.Modeler) kernel.Shape {
			return m.Cylinder(h, r)
		})
	})

	// (sphere radius)
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("sphere requires a radius, got %d arguments", len(args))
		}
		r, err := toPositive(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: radius: %w", err)
		}
		return b.shape(fmt.Sprintf("sphere %g", r), func(m kernel.Modeler) kernel.Shape {
			return m.Sphere(r)
		})
	})

	// (union a b ...), (difference a b ...), (intersection a b ...)
	booleans := []struct {
		name string
		op   func(kernel.Modeler, kernel.Shape, kernel.Shape) kernel.Shape
	}{
		{"union", kernel.Modeler.Union},
		{"difference", kernel.Modeler.Difference},
		{"intersection", kernel.Modeler.Intersection},
	}
	for _, bo := range booleans {
		bo := bo
		env.AddFunction(bo.name, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			shapes, err := shapeArgs(bo.name, args, 2)
			if err != nil {
				return zygo.SexpNull, err
			}
			return b.shape(bo.name, func(m kernel.Modeler) kernel.Shape {
				acc := shapes[0]
				for _, s := range shapes[1:] {
					acc = bo.op(m, acc, s)
				}
				return acc
			})
		})
	}

	// (translate shape (vec3 x y z)), (rotate shape (vec3 rx ry rz))
	transforms := []struct {
		name string
		op   func(kernel.Modeler, kernel.Shape, float64, float64, float64) kernel.Shape
	}{
		{"translate", kernel.Modeler.Translate},
		{"rotate", kernel.Modeler.Rotate},
	}
	for _, tr := range transforms {
		tr := tr
		env.AddFunction(tr.name, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires a shape and a vec3", tr.name)
			}
			s, err := toShape(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", tr.name, err)
			}
			v, err := toVec3(args[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", tr.name, err)
			}
			return b.shape(tr.name, func(m kernel.Modeler) kernel.Shape {
				return tr.op(m, s, v[0], v[1], v[2])
			})
		})
	}

	// (defpart "name" shape :surface-color (rgb 1 0 0) :comment "...")
	// The name may be nil or omitted for an unnamed part.
	env.AddFunction("defpart", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		pos := pa.positional

		var partName string
		switch len(pos) {
		case 1:
		case 2:
			n, err := toOptionalName(pos[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("defpart: name: %w", err)
			}
			partName = n
			pos = pos[1:]
		default:
			return zygo.SexpNull, fmt.Errorf("defpart requires an optional name and a shape expression")
		}

		s, err := toShape(pos[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defpart: body: %w", err)
		}
		attrs, err := parseAttrs("defpart", pa, false)
		if err != nil {
			return zygo.SexpNull, err
		}

		l := b.doc.NewShape(s)
		if err := b.register("defpart", partName, l); err != nil {
			return zygo.SexpNull, err
		}
		attrs.apply(l)
		return &sexpLabel{label: l}, nil
	})

	// (part "name")
	env.AddFunction("part", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("part requires a name argument")
		}
		partName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("part: name: %w", err)
		}
		l, ok := b.names[partName]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("part: no part named %q", partName)
		}
		return &sexpLabel{label: l}, nil
	})

	// (place (part "bracket") :at (vec3 0 0 50) :rotate (vec3 0 0 90) :name "left")
	env.AddFunction("place", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("place requires a part reference as first argument")
		}
		proto, err := toLabel(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		}

		p := &sexpPlacement{proto: proto}
		if v, ok := pa.kw["at"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: at: %w", err)
			}
			p.loc.Translate = vec
		}
		if v, ok := pa.kw["rotate"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: rotate: %w", err)
			}
			p.loc.Rotate = vec
		}
		p.attrs, err = parseAttrs("place", pa, true)
		if err != nil {
			return zygo.SexpNull, err
		}
		return p, nil
	})

	// (assembly "name" (part "a") (place (part "b") :at ...) ... :color (rgb ...))
	env.AddFunction("assembly", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("assembly requires a name argument")
		}
		asmName, err := toOptionalName(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("assembly: name: %w", err)
		}
		attrs, err := parseAttrs("assembly", pa, false)
		if err != nil {
			return zygo.SexpNull, err
		}

		asm := b.doc.NewAssembly()
		if err := b.register("assembly", asmName, asm); err != nil {
			return zygo.SexpNull, err
		}
		attrs.apply(asm)

		for i, arg := range pa.positional[1:] {
			switch child := arg.(type) {
			case *sexpLabel:
				if _, err := b.doc.AddComponent(asm, child.label, xcaf.Location{}); err != nil {
					return zygo.SexpNull, fmt.Errorf("assembly: child %d: %w", i+1, err)
				}
			case *sexpPlacement:
				c, err := b.doc.AddComponent(asm, child.proto, child.loc)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("assembly: child %d: %w", i+1, err)
				}
				child.attrs.apply(c)
			default:
				return zygo.SexpNull, fmt.Errorf("assembly: child %d: expected part, assembly or placement, got %T (%s)",
					i+1, arg, arg.SexpString(nil))
			}
		}
		return &sexpLabel{label: asm}, nil
	})
}
