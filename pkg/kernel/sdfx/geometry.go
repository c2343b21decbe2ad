package sdfx

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/chazu/stepbom/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
)

// Compile-time interface check.
var _ kernel.Geometry = (*Geometry)(nil)

// errDegenerate is returned when a tessellation encloses no volume.
var errDegenerate = errors.New("degenerate shape: tessellation encloses no volume")

// vertexQuantum is the grid vertices are snapped to when identifying
// shared vertices between triangles.
const vertexQuantum = 1e-6

// degenerateArea is the area below which a triangle is ignored.
const degenerateArea = 1e-12

// Geometry measures sdfx shapes from a cached marching-cubes tessellation.
// Every leaf shape is tessellated at most once and all metrics derive from
// it. Compounds sum the measurements of their members.
type Geometry struct {
	cells int

	mu    sync.Mutex
	cache map[uint64]*measurement
}

// NewGeometry returns a Geometry that tessellates with the given number of
// marching cubes cells along the longest bounding box axis.
func NewGeometry(cells int) *Geometry {
	if cells <= 0 {
		cells = defaultAnalysisCells
	}
	return &Geometry{
		cells: cells,
		cache: make(map[uint64]*measurement),
	}
}

// measurement holds everything derived from one tessellation.
type measurement struct {
	volume float64
	center kernel.Vec3
	area   float64
	counts map[kernel.TopoKind]int
}

// solidOf validates s and returns its sdfx representation.
func solidOf(s kernel.Shape) (*sdfxSolid, error) {
	if kernel.IsNull(s) {
		return nil, kernel.ErrNullShape
	}
	solid, ok := s.(*sdfxSolid)
	if !ok {
		return nil, fmt.Errorf("sdfx: foreign shape %T", s)
	}
	return solid, nil
}

// measure returns the cached measurement for s, tessellating on first use.
func (g *Geometry) measure(s kernel.Shape) (*measurement, error) {
	solid, err := solidOf(s)
	if err != nil {
		return nil, err
	}
	return g.measureSolid(solid)
}

func (g *Geometry) measureSolid(solid *sdfxSolid) (*measurement, error) {
	g.mu.Lock()
	m, ok := g.cache[solid.id]
	g.mu.Unlock()
	if ok {
		return m, nil
	}

	if solid.members != nil {
		parts := make([]*measurement, len(solid.members))
		for i, member := range solid.members {
			part, err := g.measureSolid(member)
			if err != nil {
				return nil, err
			}
			parts[i] = part
		}
		m = sumMeasurements(parts)
	} else {
		var triangles []*sdf.Triangle3
		err := kernel.Guard("tessellate", func() error {
			renderer := render.NewMarchingCubesUniform(g.cells)
			triangles = render.ToTriangles(solid.s, renderer)
			return nil
		})
		if err != nil {
			return nil, err
		}
		m = measureTriangles(triangles)
	}

	g.mu.Lock()
	g.cache[solid.id] = m
	g.mu.Unlock()
	return m, nil
}

// sumMeasurements combines the members of a compound. The center of mass is
// volume weighted and the compound itself adds one to the compound count.
func sumMeasurements(parts []*measurement) *measurement {
	m := &measurement{counts: make(map[kernel.TopoKind]int, len(kernel.TopoKinds))}
	var cx, cy, cz float64
	for _, p := range parts {
		m.volume += p.volume
		m.area += p.area
		cx += p.volume * p.center[0]
		cy += p.volume * p.center[1]
		cz += p.volume * p.center[2]
		for kind, n := range p.counts {
			m.counts[kind] += n
		}
	}
	if m.volume > 0 {
		m.center = kernel.Vec3{cx / m.volume, cy / m.volume, cz / m.volume}
	}
	m.counts[kernel.TopoCompound]++
	return m
}

// VolumeProperties integrates volume and center of mass.
func (g *Geometry) VolumeProperties(s kernel.Shape) (kernel.VolumeProps, error) {
	m, err := g.measure(s)
	if err != nil {
		return kernel.VolumeProps{}, err
	}
	if m.volume <= 0 {
		return kernel.VolumeProps{}, errDegenerate
	}
	return kernel.VolumeProps{Volume: m.volume, CenterOfMass: m.center}, nil
}

// SurfaceArea integrates the total surface area.
func (g *Geometry) SurfaceArea(s kernel.Shape) (float64, error) {
	m, err := g.measure(s)
	if err != nil {
		return 0, err
	}
	return m.area, nil
}

// BoundingBox returns the bounding box of the distance field. Shapes whose
// tessellation is empty report a void box. A compound reports the union of
// its members' boxes.
func (g *Geometry) BoundingBox(s kernel.Shape) (kernel.Box, error) {
	solid, err := solidOf(s)
	if err != nil {
		return kernel.Box{}, err
	}
	return g.box(solid)
}

func (g *Geometry) box(solid *sdfxSolid) (kernel.Box, error) {
	if solid.members != nil {
		out := kernel.Box{Void: true}
		for _, member := range solid.members {
			b, err := g.box(member)
			if err != nil {
				return kernel.Box{}, err
			}
			if b.Void {
				continue
			}
			if out.Void {
				out = b
				continue
			}
			for i := 0; i < 3; i++ {
				out.Min[i] = math.Min(out.Min[i], b.Min[i])
				out.Max[i] = math.Max(out.Max[i], b.Max[i])
			}
		}
		return out, nil
	}

	m, err := g.measureSolid(solid)
	if err != nil {
		return kernel.Box{}, err
	}

	var box kernel.Box
	err = kernel.Guard("bounding box", func() error {
		min, max := solid.BoundingBox()
		box = kernel.Box{Min: min, Max: max}
		return nil
	})
	if err != nil {
		return kernel.Box{}, err
	}
	for i := 0; i < 3; i++ {
		if box.Min[i] > box.Max[i] || math.IsNaN(box.Min[i]) || math.IsNaN(box.Max[i]) {
			return kernel.Box{Void: true}, nil
		}
	}
	if m.counts[kernel.TopoFace] == 0 {
		return kernel.Box{Void: true}, nil
	}
	return box, nil
}

// Count returns the number of sub-elements of the given kind.
func (g *Geometry) Count(s kernel.Shape, kind kernel.TopoKind) (int, error) {
	m, err := g.measure(s)
	if err != nil {
		return 0, err
	}
	n, ok := m.counts[kind]
	if !ok {
		return 0, fmt.Errorf("sdfx: unsupported topology kind %s", kind)
	}
	return n, nil
}

// SurfaceTypes reports the surface tally recorded when the shape was built.
// Primitives know their analytic faces; boolean results count as complex.
func (g *Geometry) SurfaceTypes(s kernel.Shape) (kernel.SurfaceCounts, error) {
	solid, err := solidOf(s)
	if err != nil {
		return kernel.SurfaceCounts{}, err
	}
	return solid.surfaces, nil
}

// ---------------------------------------------------------------------------
// Tessellation measurements
// ---------------------------------------------------------------------------

type vertexKey [3]int64

type edgeKey [2]int

func quantize(x, y, z float64) vertexKey {
	return vertexKey{
		int64(math.Round(x / vertexQuantum)),
		int64(math.Round(y / vertexQuantum)),
		int64(math.Round(z / vertexQuantum)),
	}
}

// measureTriangles derives volume, center of mass, area and topology
// counts from a closed, outward-oriented triangle soup.
//
// Volume and center of mass use signed tetrahedra against the origin.
// Topology is read off the mesh: each triangle is a face bounded by one
// wire, shared vertices and edges are deduplicated, and each connected
// component is a closed shell bounding one solid.
func measureTriangles(triangles []*sdf.Triangle3) *measurement {
	vertexIDs := make(map[vertexKey]int)
	edges := make(map[edgeKey]struct{})
	uf := newUnionFind()

	var volume, area float64
	var cx, cy, cz float64
	faces := 0

	id := func(x, y, z float64) int {
		k := quantize(x, y, z)
		if n, ok := vertexIDs[k]; ok {
			return n
		}
		n := len(vertexIDs)
		vertexIDs[k] = n
		uf.add(n)
		return n
	}

	for _, tri := range triangles {
		a, b, c := tri[0], tri[1], tri[2]

		// Edge vectors and cross product.
		ux, uy, uz := b.X-a.X, b.Y-a.Y, b.Z-a.Z
		vx, vy, vz := c.X-a.X, c.Y-a.Y, c.Z-a.Z
		nx := uy*vz - uz*vy
		ny := uz*vx - ux*vz
		nz := ux*vy - uy*vx
		triArea := math.Sqrt(nx*nx+ny*ny+nz*nz) / 2
		if triArea < degenerateArea {
			continue
		}
		area += triArea
		faces++

		// Signed volume of the tetrahedron (origin, a, b, c).
		v := (a.X*(b.Y*c.Z-b.Z*c.Y) - a.Y*(b.X*c.Z-b.Z*c.X) + a.Z*(b.X*c.Y-b.Y*c.X)) / 6
		volume += v
		cx += v * (a.X + b.X + c.X) / 4
		cy += v * (a.Y + b.Y + c.Y) / 4
		cz += v * (a.Z + b.Z + c.Z) / 4

		ia, ib, ic := id(a.X, a.Y, a.Z), id(b.X, b.Y, b.Z), id(c.X, c.Y, c.Z)
		for _, e := range [][2]int{{ia, ib}, {ib, ic}, {ic, ia}} {
			if e[0] > e[1] {
				e[0], e[1] = e[1], e[0]
			}
			edges[edgeKey(e)] = struct{}{}
		}
		uf.union(ia, ib)
		uf.union(ib, ic)
	}

	m := &measurement{area: area}
	if volume < 0 {
		// Inward-oriented tessellation; flip.
		volume, cx, cy, cz = -volume, -cx, -cy, -cz
	}
	m.volume = volume
	if volume > 0 {
		m.center = kernel.Vec3{cx / volume, cy / volume, cz / volume}
	}

	shells := uf.components()
	m.counts = map[kernel.TopoKind]int{
		kernel.TopoVertex:   len(vertexIDs),
		kernel.TopoEdge:     len(edges),
		kernel.TopoFace:     faces,
		kernel.TopoSolid:    shells,
		kernel.TopoShell:    shells,
		kernel.TopoWire:     faces,
		kernel.TopoCompound: 0,
	}
	return m
}

// unionFind tracks connected vertex sets.
type unionFind struct {
	parent []int
}

func newUnionFind() *unionFind {
	return &unionFind{}
}

func (u *unionFind) add(n int) {
	for len(u.parent) <= n {
		u.parent = append(u.parent, len(u.parent))
	}
}

func (u *unionFind) find(n int) int {
	for u.parent[n] != n {
		u.parent[n] = u.parent[u.parent[n]]
		n = u.parent[n]
	}
	return n
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

func (u *unionFind) components() int {
	n := 0
	for i := range u.parent {
		if u.find(i) == i {
			n++
		}
	}
	return n
}
