package bom

import (
	"fmt"
	"log"
	"strings"

	"github.com/chazu/stepbom/pkg/kernel"
)

// Walker builds the nested assembly tree of a document. Every node is
// emitted, including nodes whose processing failed; the failure is recorded
// on the node and never reaches siblings or parents.
type Walker struct {
	doc  kernel.Document
	opts options
}

// NewWalker returns a Walker over doc.
func NewWalker(doc kernel.Document, opts ...Option) *Walker {
	return &Walker{doc: doc, opts: newOptions(opts)}
}

// Tree walks every free shape from level 0. A failure to enumerate the free
// shapes is reported as the tree's extraction error.
func (w *Walker) Tree() AssemblyTree {
	tree := AssemblyTree{RootAssemblies: []AssemblyNode{}}
	roots, err := freeShapes(w.doc.Shapes())
	if err != nil {
		tree.ExtractionError = err.Error()
		w.opts.stats.Error("assembly tree: %v", err)
		return tree
	}

	tree.TotalFreeShapes = len(roots)
	for _, root := range roots {
		node := w.Walk(root, 0)
		tree.RootAssemblies = append(tree.RootAssemblies, node)
		tree.HierarchyDepth = max(tree.HierarchyDepth, Depth(node))
	}
	return tree
}

// Walk builds the node for l at the given level, recursing into components
// when l is an assembly.
func (w *Walker) Walk(l kernel.Label, level int) AssemblyNode {
	return w.walk(l, level, make(map[string]bool))
}

func (w *Walker) walk(l kernel.Label, level int, path map[string]bool) AssemblyNode {
	w.opts.stats.Entity()
	node := AssemblyNode{
		LabelID:  l.Entry(),
		Level:    level,
		NodeType: NodePart,
	}
	var errs []error

	nodeType, err := classify(w.doc.Shapes(), l)
	node.NodeType = nodeType
	if err != nil {
		errs = append(errs, err)
	}

	node.Name, err = resolveName(w.doc.Attributes(), l)
	if err != nil {
		errs = append(errs, err)
	}

	shape, err := shapeOf(w.doc.Shapes(), l)
	if err != nil {
		errs = append(errs, err)
	} else if !kernel.IsNull(shape) {
		analysis := Analyze(w.doc.Geometry(), shape)
		node.ShapeInfo = &analysis
	}

	node.ColorInfo = ResolveColor(w.doc.Colors(), l)
	node.Attributes = ReadAttributes(w.doc.Attributes(), l)

	if node.NodeType == NodeAssembly {
		switch {
		case path[l.Entry()]:
			errs = append(errs, fmt.Errorf("label %s contains itself", l.Entry()))
		case level >= w.opts.maxDepth:
			errs = append(errs, fmt.Errorf("label %s exceeds maximum depth %d", l.Entry(), w.opts.maxDepth))
		default:
			children, err := componentsOf(w.doc.Shapes(), l)
			if err != nil {
				errs = append(errs, err)
				break
			}
			path[l.Entry()] = true
			for _, child := range children {
				node.Children = append(node.Children, w.walk(child, level+1, path))
			}
			delete(path, l.Entry())
		}
	}

	if len(errs) > 0 {
		node.ProcessingError = joinErrors(errs)
		w.opts.stats.Error("label %s: %s", l.Entry(), node.ProcessingError)
		if w.opts.verbose {
			log.Printf("bom: label %s: %s", l.Entry(), node.ProcessingError)
		}
	}
	return node
}

// Depth is the deepest level in the subtree rooted at n. A leaf's depth is
// its own level.
func Depth(n AssemblyNode) int {
	if len(n.Children) == 0 {
		return n.Level
	}
	d := 0
	for _, c := range n.Children {
		d = max(d, Depth(c))
	}
	return d
}

func joinErrors(errs []error) string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}
