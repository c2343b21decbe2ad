package bom

import (
	"fmt"
	"hash/fnv"

	"github.com/chazu/stepbom/pkg/kernel"
)

// resolveName returns the label's name attribute, or a placeholder derived
// from its entry when it has none. The error reports a kernel failure; the
// placeholder is still returned alongside it.
func resolveName(at kernel.AttributeTool, l kernel.Label) (string, error) {
	if at == nil {
		return FallbackName(l), nil
	}
	var (
		name string
		ok   bool
	)
	err := kernel.Guard("name", func() error {
		var err error
		name, ok, err = at.Attribute(l, kernel.AttrName)
		return err
	})
	if err != nil {
		return FallbackName(l), fmt.Errorf("name of %s: %w", l.Entry(), err)
	}
	if !ok || name == "" {
		return FallbackName(l), nil
	}
	return name, nil
}

// FallbackName synthesizes a name for an unnamed label.
func FallbackName(l kernel.Label) string {
	h := fnv.New32a()
	h.Write([]byte(l.Entry()))
	return fmt.Sprintf("Part_%d", h.Sum32()%10000)
}

// classify reports the wire node type of l.
func classify(st kernel.ShapeTool, l kernel.Label) (string, error) {
	var asm bool
	err := kernel.Guard("classify", func() error {
		var err error
		asm, err = st.IsAssembly(l)
		return err
	})
	if err != nil {
		return NodePart, fmt.Errorf("classify %s: %w", l.Entry(), err)
	}
	if asm {
		return NodeAssembly, nil
	}
	return NodePart, nil
}

// shapeOf fetches the shape stored on l.
func shapeOf(st kernel.ShapeTool, l kernel.Label) (kernel.Shape, error) {
	var s kernel.Shape
	err := kernel.Guard("shape", func() error {
		var err error
		s, err = st.Shape(l)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("shape of %s: %w", l.Entry(), err)
	}
	return s, nil
}

// componentsOf lists the children of a composite label.
func componentsOf(st kernel.ShapeTool, l kernel.Label) ([]kernel.Label, error) {
	var children []kernel.Label
	err := kernel.Guard("components", func() error {
		var err error
		children, err = st.Components(l)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("components of %s: %w", l.Entry(), err)
	}
	return children, nil
}

// freeShapes lists the root labels of doc.
func freeShapes(st kernel.ShapeTool) ([]kernel.Label, error) {
	var roots []kernel.Label
	err := kernel.Guard("free shapes", func() error {
		var err error
		roots, err = st.FreeShapes()
		return err
	})
	return roots, err
}
