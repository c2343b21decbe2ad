package bom

import (
	"fmt"
	"log"

	"github.com/chazu/stepbom/pkg/kernel"
)

// Lister builds the flat BOM: one record per free shape, in document order.
// Assemblies are listed as a single record and not expanded. A root whose
// lookups fail is logged and skipped, so every emitted record is complete.
type Lister struct {
	doc  kernel.Document
	opts options
}

// NewLister returns a Lister over doc.
func NewLister(doc kernel.Document, opts ...Option) *Lister {
	return &Lister{doc: doc, opts: newOptions(opts)}
}

// PartID formats the positional identifier of the n-th root, counting
// from 1.
func PartID(n int) string {
	return fmt.Sprintf("part_%04d", n)
}

// List enumerates the free shapes. TotalParts always equals the length of
// PartsList.
func (p *Lister) List() PartsList {
	list := PartsList{PartsList: []PartRecord{}}
	roots, err := freeShapes(p.doc.Shapes())
	if err != nil {
		list.ExtractionError = err.Error()
		p.opts.stats.Error("parts list: %v", err)
		return list
	}

	for i, root := range roots {
		rec, err := p.part(i+1, root)
		if err != nil {
			log.Printf("bom: skipping part %d (%s): %v", i+1, root.Entry(), err)
			p.opts.stats.Error("part %s: %v", root.Entry(), err)
			list.SkippedParts++
			continue
		}
		list.PartsList = append(list.PartsList, rec)
	}
	list.TotalParts = len(list.PartsList)
	return list
}

func (p *Lister) part(n int, l kernel.Label) (PartRecord, error) {
	nodeType, err := classify(p.doc.Shapes(), l)
	if err != nil {
		return PartRecord{}, err
	}
	name, err := resolveName(p.doc.Attributes(), l)
	if err != nil {
		return PartRecord{}, err
	}
	shape, err := shapeOf(p.doc.Shapes(), l)
	if err != nil {
		return PartRecord{}, err
	}
	color, err := lookupColor(p.doc.Colors(), l)
	if err != nil {
		return PartRecord{}, err
	}
	attrs, err := lookupAttributes(p.doc.Attributes(), l)
	if err != nil {
		return PartRecord{}, err
	}

	analysis := Analyze(p.doc.Geometry(), shape)
	if analysis.Topology != nil && analysis.Topology.Solids < 1 {
		// Viewers divide by the solid count.
		analysis.Topology.Solids = 1
	}

	return PartRecord{
		PartID:           PartID(n),
		LabelID:          fmt.Sprintf("label_%d", n),
		Name:             name,
		NodeType:         nodeType,
		ShapeAnalysis:    analysis,
		ColorData:        color,
		CustomProperties: attrs,
	}, nil
}
