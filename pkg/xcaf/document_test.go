package xcaf

import (
	"errors"
	"testing"

	"github.com/chazu/stepbom/pkg/kernel"
	"github.com/chazu/stepbom/pkg/kernel/kerneltest"
	"github.com/chazu/stepbom/pkg/kernel/sdfx"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// buildFrame creates a document with one assembly "frame" holding two
// placed instances of "bracket" and one "rail", plus a free "spare" part.
func buildFrame(t *testing.T) (*Document, map[string]*Label) {
	t.Helper()
	k := sdfx.New(sdfx.WithAnalysisCells(16))
	d := New(k, k.Geometry())

	bracket := d.NewShape(k.Box(40, 20, 5))
	bracket.SetName("bracket")
	bracket.SetColor(kernel.ColorSurface, kernel.RGB{R: 1})
	bracket.SetComment("laser cut")

	rail := d.NewShape(k.Box(200, 10, 10))
	rail.SetName("rail")

	frame := d.NewAssembly()
	frame.SetName("frame")

	spare := d.NewShape(k.Sphere(5))
	spare.SetName("spare")

	c1, err := d.AddComponent(frame, bracket, Location{})
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	c2, err := d.AddComponent(frame, bracket, Location{Translate: kernel.Vec3{0, 0, 50}})
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	c3, err := d.AddComponent(frame, rail, Location{Rotate: kernel.Vec3{0, 0, 90}})
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	return d, map[string]*Label{
		"bracket": bracket, "rail": rail, "frame": frame, "spare": spare,
		"c1": c1, "c2": c2, "c3": c3,
	}
}

func entries(labels []kernel.Label) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = l.Entry()
	}
	return out
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestEntries(t *testing.T) {
	_, ls := buildFrame(t)
	tests := []struct {
		label string
		want  string
	}{
		{"bracket", "0:1:1:1"},
		{"rail", "0:1:1:2"},
		{"frame", "0:1:1:3"},
		{"spare", "0:1:1:4"},
		{"c1", "0:1:1:3:1"},
		{"c3", "0:1:1:3:3"},
	}
	for _, tt := range tests {
		if got := ls[tt.label].Entry(); got != tt.want {
			t.Errorf("%s entry = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestFreeShapes(t *testing.T) {
	d, _ := buildFrame(t)
	free, err := d.FreeShapes()
	if err != nil {
		t.Fatalf("FreeShapes: %v", err)
	}
	got := entries(free)
	want := []string{"0:1:1:3", "0:1:1:4"}
	if len(got) != len(want) {
		t.Fatalf("FreeShapes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FreeShapes[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestClassification(t *testing.T) {
	d, ls := buildFrame(t)
	tests := []struct {
		label    string
		assembly bool
		simple   bool
	}{
		{"frame", true, false},
		{"bracket", false, true},
		{"c1", false, true},
		{"spare", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			isAsm, err := d.IsAssembly(ls[tt.label])
			if err != nil {
				t.Fatal(err)
			}
			if isAsm != tt.assembly {
				t.Errorf("IsAssembly = %v, want %v", isAsm, tt.assembly)
			}
			simple, err := d.IsSimpleShape(ls[tt.label])
			if err != nil {
				t.Fatal(err)
			}
			if simple != tt.simple {
				t.Errorf("IsSimpleShape = %v, want %v", simple, tt.simple)
			}
		})
	}
}

func TestComponentsPreserveOrder(t *testing.T) {
	d, ls := buildFrame(t)
	comps, err := d.Components(ls["frame"])
	if err != nil {
		t.Fatalf("Components: %v", err)
	}
	got := entries(comps)
	want := []string{"0:1:1:3:1", "0:1:1:3:2", "0:1:1:3:3"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Components[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	leaf, err := d.Components(ls["bracket"])
	if err != nil || len(leaf) != 0 {
		t.Errorf("Components(leaf) = %v, %v; want none", leaf, err)
	}
}

func TestAssemblyShapeIsCompound(t *testing.T) {
	d, ls := buildFrame(t)
	s, err := d.Shape(ls["frame"])
	if err != nil {
		t.Fatalf("Shape: %v", err)
	}
	if kernel.IsNull(s) {
		t.Fatal("assembly shape is null")
	}
	if s.Type() != kernel.ShapeCompound {
		t.Errorf("Type = %s, want compound", s.Type())
	}
	again, _ := d.Shape(ls["frame"])
	if again != s {
		t.Error("assembly compound was rebuilt")
	}
}

func TestComponentShapeIsPlaced(t *testing.T) {
	d, ls := buildFrame(t)
	proto, _ := d.Shape(ls["bracket"])
	same, _ := d.Shape(ls["c1"])
	if same != proto {
		t.Error("identity placement should reuse the prototype shape")
	}
	moved, err := d.Shape(ls["c2"])
	if err != nil {
		t.Fatal(err)
	}
	bb, err := d.Geometry().BoundingBox(moved)
	if err != nil {
		t.Fatal(err)
	}
	if bb.Min[2] < 49 || bb.Max[2] > 56 {
		t.Errorf("placed bbox z = [%f, %f], want ~[50, 55]", bb.Min[2], bb.Max[2])
	}
}

func TestEmptyAssemblyShapeIsNull(t *testing.T) {
	k := sdfx.New()
	d := New(k, k.Geometry())
	a := d.NewAssembly()
	s, err := d.Shape(a)
	if err != nil {
		t.Fatal(err)
	}
	if !kernel.IsNull(s) {
		t.Error("empty assembly should have a null shape")
	}
}

func TestColorFallsBackToPrototype(t *testing.T) {
	d, ls := buildFrame(t)

	c, ok, err := d.Color(ls["c2"], kernel.ColorSurface)
	if err != nil || !ok {
		t.Fatalf("Color = %v, %v", ok, err)
	}
	if c != (kernel.RGB{R: 1}) {
		t.Errorf("Color = %+v, want red", c)
	}

	ls["c2"].SetColor(kernel.ColorSurface, kernel.RGB{B: 1})
	c, _, _ = d.Color(ls["c2"], kernel.ColorSurface)
	if c != (kernel.RGB{B: 1}) {
		t.Errorf("component override = %+v, want blue", c)
	}

	if _, ok, _ := d.Color(ls["c3"], kernel.ColorGeneral); ok {
		t.Error("rail should have no color")
	}

	colored, err := d.ColoredLabels()
	if err != nil {
		t.Fatal(err)
	}
	got := entries(colored)
	if len(got) != 2 || got[0] != "0:1:1:1" || got[1] != "0:1:1:3:2" {
		t.Errorf("ColoredLabels = %v", got)
	}
}

func TestAttributesFallBackToPrototype(t *testing.T) {
	d, ls := buildFrame(t)
	name, ok, err := d.Attribute(ls["c1"], kernel.AttrName)
	if err != nil || !ok || name != "bracket" {
		t.Errorf("name = %q, %v, %v", name, ok, err)
	}
	comment, ok, _ := d.Attribute(ls["c1"], kernel.AttrComment)
	if !ok || comment != "laser cut" {
		t.Errorf("comment = %q, %v", comment, ok)
	}
	ls["c1"].SetName("left bracket")
	name, _, _ = d.Attribute(ls["c1"], kernel.AttrName)
	if name != "left bracket" {
		t.Errorf("instance name = %q", name)
	}
	if _, ok, _ := d.Attribute(ls["rail"], kernel.AttrComment); ok {
		t.Error("rail should have no comment")
	}
}

func TestUnknownLabel(t *testing.T) {
	d, _ := buildFrame(t)
	stranger := kerneltest.Label("0:9:9")
	if _, err := d.IsAssembly(stranger); !errors.Is(err, ErrUnknownLabel) {
		t.Errorf("IsAssembly error = %v", err)
	}
	if _, _, err := d.Color(stranger, kernel.ColorGeneral); !errors.Is(err, ErrUnknownLabel) {
		t.Errorf("Color error = %v", err)
	}

	other := New(nil, nil)
	foreign := other.NewShape(nil)
	frame, _ := d.Label("0:1:1:3")
	if _, err := d.AddComponent(frame, foreign, Location{}); !errors.Is(err, ErrUnknownLabel) {
		t.Errorf("AddComponent(foreign) error = %v", err)
	}
}

func TestAddComponentToLeaf(t *testing.T) {
	d, ls := buildFrame(t)
	if _, err := d.AddComponent(ls["rail"], ls["bracket"], Location{}); err == nil {
		t.Error("expected error adding a component to a leaf")
	}
}

func TestClose(t *testing.T) {
	d, ls := buildFrame(t)
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if _, err := d.FreeShapes(); !errors.Is(err, ErrClosed) {
		t.Errorf("FreeShapes after Close = %v", err)
	}
	if _, err := d.Shape(ls["frame"]); !errors.Is(err, ErrClosed) {
		t.Errorf("Shape after Close = %v", err)
	}
}

func TestShapeCycle(t *testing.T) {
	k := sdfx.New()
	d := New(k, k.Geometry())
	a := d.NewAssembly()
	b := d.NewAssembly()
	if _, err := d.AddComponent(a, b, Location{}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.AddComponent(b, a, Location{}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Shape(a); err == nil {
		t.Error("expected cycle error")
	}
}
