package engine

import (
	"strings"
	"testing"

	"github.com/chazu/stepbom/pkg/kernel"
	"github.com/chazu/stepbom/pkg/xcaf"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(defpart "a" s :comment "oak")`,
			expect: `(defpart "a" s "__kw_comment" "oak")`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(my-part :surface-color c)`,
			expect: `(my_part "__kw_surface-color" c)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// DSL tests
// ---------------------------------------------------------------------------

// mustEval evaluates src and fails the test on any error.
func mustEval(t *testing.T, src string) *xcaf.Document {
	t.Helper()
	doc, evalErrs, err := newTestEngine().Evaluate(src)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	return doc
}

// evalErr evaluates src and returns the first eval error message.
func evalErr(t *testing.T, src string) string {
	t.Helper()
	doc, evalErrs, err := newTestEngine().Evaluate(src)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if doc != nil || len(evalErrs) == 0 {
		t.Fatalf("expected eval error for %q", src)
	}
	return evalErrs[0].Message
}

func TestDefpart(t *testing.T) {
	doc := mustEval(t, `
; a bracket with a hole
(defpart "bracket"
  (difference (box 40 20 5) (translate (cylinder 10 3) (vec3 20 10 0)))
  :surface-color (rgb 1 0 0)
  :comment "laser cut")
`)
	l, ok := doc.Label("0:1:1:1")
	if !ok {
		t.Fatal("label 0:1:1:1 missing")
	}
	if l.Name() != "bracket" || l.Comment() != "laser cut" {
		t.Errorf("name/comment = %q/%q", l.Name(), l.Comment())
	}
	if l.Kind() != xcaf.KindShape {
		t.Errorf("kind = %s", l.Kind())
	}
	c, ok, err := doc.Color(l, kernel.ColorSurface)
	if err != nil || !ok || c != (kernel.RGB{R: 1}) {
		t.Errorf("surface color = %+v %v %v", c, ok, err)
	}
	if _, ok, _ := doc.Color(l, kernel.ColorGeneral); ok {
		t.Error("unexpected general color")
	}
	s, err := doc.Shape(l)
	if err != nil || kernel.IsNull(s) {
		t.Fatalf("shape = %v, %v", s, err)
	}
	if s.Type() != kernel.ShapeSolid {
		t.Errorf("shape type = %s", s.Type())
	}
}

func TestDefpartUnnamed(t *testing.T) {
	doc := mustEval(t, `(defpart nil (sphere 2)) (defpart (box 1 1 1) :color (rgb 0 0 1))`)
	labels := doc.Labels()
	if len(labels) != 2 {
		t.Fatalf("got %d labels, want 2", len(labels))
	}
	for _, l := range labels {
		if l.Name() != "" {
			t.Errorf("label %s has name %q", l.Entry(), l.Name())
		}
	}
	if _, ok, _ := doc.Color(labels[1], kernel.ColorGeneral); !ok {
		t.Error("missing general color on unnamed part")
	}
}

func TestAssembly(t *testing.T) {
	doc := mustEval(t, `
(defpart "bracket" (box 40 20 5) :surface-color (rgb 1 0 0))
(defpart "rail" (box 200 10 10))
(defpart "spare" (sphere 3))
(assembly "frame"
  (part "bracket")
  (place (part "bracket") :at (vec3 0 0 50) :name "upper bracket")
  (place (part "rail") :rotate (vec3 0 0 90) :curve-color (rgb 0 1 0))
  :comment "welded")
`)
	free, err := doc.FreeShapes()
	if err != nil {
		t.Fatal(err)
	}
	if len(free) != 2 || free[0].Entry() != "0:1:1:3" || free[1].Entry() != "0:1:1:4" {
		t.Fatalf("free shapes = %v", free)
	}

	frame := free[1]
	isAsm, _ := doc.IsAssembly(frame)
	if !isAsm {
		t.Fatal("frame is not an assembly")
	}
	comps, err := doc.Components(frame)
	if err != nil || len(comps) != 3 {
		t.Fatalf("components = %v, %v", comps, err)
	}

	names := make([]string, len(comps))
	for i, c := range comps {
		names[i], _, _ = doc.Attribute(c, kernel.AttrName)
	}
	want := []string{"bracket", "upper bracket", "rail"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("component %d name = %q, want %q", i, names[i], want[i])
		}
	}

	if _, ok, _ := doc.Color(comps[2], kernel.ColorCurve); !ok {
		t.Error("placement color not applied")
	}
	comment, _, _ := doc.Attribute(frame, kernel.AttrComment)
	if comment != "welded" {
		t.Errorf("assembly comment = %q", comment)
	}
	if errs := xcaf.Validate(doc); len(errs) != 0 {
		t.Errorf("validation findings: %v", errs)
	}
}

func TestNestedAssembly(t *testing.T) {
	doc := mustEval(t, `
(defpart "leg" (box 5 5 70))
(assembly "legs" (part "leg") (place (part "leg") :at (vec3 100 0 0)))
(assembly "table" (place (part "legs") :at (vec3 0 0 0)) (defpart "top" (box 120 60 3)))
`)
	free, _ := doc.FreeShapes()
	if len(free) != 1 {
		t.Fatalf("free shapes = %d, want 1", len(free))
	}
	comps, _ := doc.Components(free[0])
	if len(comps) != 2 {
		t.Fatalf("table components = %d, want 2", len(comps))
	}
	isAsm, _ := doc.IsAssembly(comps[0])
	if !isAsm {
		t.Error("placed sub-assembly should classify as an assembly")
	}
	grand, _ := doc.Components(comps[0])
	if len(grand) != 2 {
		t.Errorf("sub-assembly components = %d, want 2", len(grand))
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown part", `(part "ghost")`, `no part named "ghost"`},
		{"duplicate name", `(defpart "a" (sphere 1)) (defpart "a" (sphere 2))`, "duplicate name"},
		{"color out of range", `(rgb 2 0 0)`, "outside [0,1]"},
		{"non-positive box", `(box 0 1 1)`, "positive"},
		{"vec3 arity", `(vec3 1 2)`, "exactly 3"},
		{"union arity", `(union (sphere 1))`, "at least 2"},
		{"defpart without shape", `(defpart "a" 5)`, "expected shape"},
		{"bad color keyword value", `(defpart "a" (sphere 1) :color 3)`, "expected rgb color"},
		{"assembly child", `(assembly "x" 42)`, "expected part, assembly or placement"},
		{"place target", `(place (sphere 1))`, "expected part or assembly"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := evalErr(t, tt.src)
			if !strings.Contains(msg, tt.want) {
				t.Errorf("error = %q, want containing %q", msg, tt.want)
			}
		})
	}
}

func TestBooleansAndTransforms(t *testing.T) {
	doc := mustEval(t, `
(defpart "u" (union (box 1 1 1) (translate (box 1 1 1) (vec3 2 0 0)) (sphere 1)))
(defpart "i" (intersection (box 4 4 4) (sphere 3)))
(defpart "r" (rotate (cylinder 10 1) (vec3 90 0 0)))
`)
	for _, l := range doc.Labels() {
		s, err := doc.Shape(l)
		if err != nil || kernel.IsNull(s) {
			t.Errorf("%s: shape = %v, %v", l.Name(), s, err)
		}
	}
}
