package bom

import (
	"fmt"

	"github.com/chazu/stepbom/pkg/kernel"
)

// attributeKinds are the annotations copied into an AttributeSet.
var attributeKinds = []kernel.AttributeKind{kernel.AttrComment}

// ReadAttributes collects the free-text annotations of l. A missing
// annotation is left out; a kernel failure replaces the whole set with an
// error marker.
func ReadAttributes(at kernel.AttributeTool, l kernel.Label) AttributeSet {
	set, err := lookupAttributes(at, l)
	if err != nil {
		return AttributeSet{ExtractionError: true}
	}
	return set
}

func lookupAttributes(at kernel.AttributeTool, l kernel.Label) (AttributeSet, error) {
	if at == nil {
		return AttributeSet{}, fmt.Errorf("attributes %s: no attribute capability", l.Entry())
	}
	set := AttributeSet{Values: map[string]string{}}
	for _, kind := range attributeKinds {
		var (
			v  string
			ok bool
		)
		err := kernel.Guard("attribute", func() error {
			var err error
			v, ok, err = at.Attribute(l, kind)
			return err
		})
		if err != nil {
			return AttributeSet{}, fmt.Errorf("attribute %s of %s: %w", kind, l.Entry(), err)
		}
		if ok {
			set.Values[kind.String()] = v
		}
	}
	return set, nil
}
