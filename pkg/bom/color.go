package bom

import (
	"fmt"
	"math"

	"github.com/chazu/stepbom/pkg/kernel"
)

// ResolveColor returns the first color assigned to l in role priority order
// (general, surface, curve). A label without color yields the zero record; a
// kernel failure yields a record flagged ExtractionError.
func ResolveColor(ct kernel.ColorTool, l kernel.Label) ColorRecord {
	rec, err := lookupColor(ct, l)
	if err != nil {
		return ColorRecord{ExtractionError: true}
	}
	return rec
}

// lookupColor is ResolveColor with the failure surfaced as an error.
func lookupColor(ct kernel.ColorTool, l kernel.Label) (ColorRecord, error) {
	if ct == nil {
		return ColorRecord{}, fmt.Errorf("color lookup %s: no color capability", l.Entry())
	}
	for _, role := range kernel.ColorRoles {
		var (
			c  kernel.RGB
			ok bool
		)
		err := kernel.Guard("color", func() error {
			var err error
			c, ok, err = ct.Color(l, role)
			return err
		})
		if err != nil {
			return ColorRecord{}, fmt.Errorf("color lookup %s (%s): %w", l.Entry(), role, err)
		}
		if ok {
			return newColorRecord(c, role, l), nil
		}
	}
	return ColorRecord{}, nil
}

func newColorRecord(c kernel.RGB, role kernel.ColorRole, l kernel.Label) ColorRecord {
	return ColorRecord{
		HasColor:    true,
		RGB:         kernel.Vec3{c.R, c.G, c.B},
		Hex:         Hex(c),
		Role:        role.String(),
		SourceLabel: l.Entry(),
	}
}

// Hex formats c as "#rrggbb".
func Hex(c kernel.RGB) string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B))
}

func channel(v float64) int {
	n := int(math.Round(v * 255))
	return max(0, min(255, n))
}
