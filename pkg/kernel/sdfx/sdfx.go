// Package sdfx implements the kernel.Modeler and kernel.Geometry
// capabilities using the github.com/deadsy/sdfx SDF-based CAD library.
// Measurements are taken on a marching-cubes tessellation of the signed
// distance field, so they converge on the exact values as the cell count
// grows.
package sdfx

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/chazu/stepbom/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface checks.
var _ kernel.Modeler = (*SdfxKernel)(nil)
var _ kernel.Shape = (*sdfxSolid)(nil)

const (
	// defaultMeshCells controls marching cubes resolution for viewer meshes.
	defaultMeshCells = 128
	// defaultAnalysisCells controls resolution for measurements.
	defaultAnalysisCells = 64
)

// solidCounter hands out cache keys for solids.
var solidCounter uint64

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Shape. Compounds keep
// their members; s is then the fused field, used only for meshing and as a
// boolean operand.
type sdfxSolid struct {
	s        sdf.SDF3
	kind     kernel.ShapeType
	id       uint64
	surfaces kernel.SurfaceCounts
	members  []*sdfxSolid
}

func (s *sdfxSolid) IsNull() bool           { return s == nil || s.s == nil }
func (s *sdfxSolid) Type() kernel.ShapeType { return s.kind }

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Modeler using sdfx.
type SdfxKernel struct {
	meshCells int
	geometry  *Geometry
}

// Option configures an SdfxKernel.
type Option func(*SdfxKernel)

// WithMeshCells sets the marching cubes resolution used by ToMesh.
func WithMeshCells(n int) Option {
	return func(k *SdfxKernel) {
		if n > 0 {
			k.meshCells = n
		}
	}
}

// WithAnalysisCells sets the marching cubes resolution used for measurements.
func WithAnalysisCells(n int) Option {
	return func(k *SdfxKernel) {
		if n > 0 {
			k.geometry.cells = n
		}
	}
}

// New returns a new SdfxKernel.
func New(opts ...Option) *SdfxKernel {
	k := &SdfxKernel{
		meshCells: defaultMeshCells,
		geometry:  NewGeometry(defaultAnalysisCells),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Geometry returns the measuring capability bound to this kernel's shapes.
func (k *SdfxKernel) Geometry() *Geometry {
	return k.geometry
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Shape.
func unwrap(s kernel.Shape) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// surfacesOf returns the surface tally of a kernel.Shape.
func surfacesOf(s kernel.Shape) kernel.SurfaceCounts {
	return s.(*sdfxSolid).surfaces
}

// wrap creates a kernel.Shape from an sdf.SDF3.
func wrap(s sdf.SDF3, kind kernel.ShapeType, surfaces kernel.SurfaceCounts) *sdfxSolid {
	return &sdfxSolid{s: s, kind: kind, id: atomic.AddUint64(&solidCounter, 1), surfaces: surfaces}
}

// fused tags a boolean result. Trimmed faces are no longer whole analytic
// surfaces, so every operand face counts as complex.
func fused(s sdf.SDF3, a, b kernel.Shape) kernel.Shape {
	n := surfacesOf(a).Total() + surfacesOf(b).Total()
	return wrap(s, kernel.ShapeSolid, kernel.SurfaceCounts{Complex: n})
}

// compound groups members without fusing them.
func compound(members []*sdfxSolid) *sdfxSolid {
	fields := make([]sdf.SDF3, len(members))
	var surfaces kernel.SurfaceCounts
	for i, m := range members {
		fields[i] = m.s
		surfaces = surfaces.Add(m.surfaces)
	}
	c := wrap(sdf.Union3D(fields...), kernel.ShapeCompound, surfaces)
	c.members = members
	return c
}

// transform applies m to s. Compounds transform member by member so they
// stay unfused.
func transform(s *sdfxSolid, m sdf.M44) *sdfxSolid {
	if s.members == nil {
		return wrap(sdf.Transform3D(s.s, m), s.kind, s.surfaces)
	}
	members := make([]*sdfxSolid, len(s.members))
	for i, member := range s.members {
		members[i] = transform(member, m)
	}
	return compound(members)
}

// Box creates a box with the given dimensions. The resulting solid has its
// minimum corner at the origin (0,0,0) so that placement translations work
// intuitively. sdf.Box3D centers the box at the origin, so we translate by
// half-dimensions.
func (k *SdfxKernel) Box(x, y, z float64) kernel.Shape {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	m := sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2})
	return wrap(sdf.Transform3D(s, m), kernel.ShapeSolid, kernel.SurfaceCounts{Planes: 6})
}

// Cylinder creates a cylinder along Z, centered at the origin.
func (k *SdfxKernel) Cylinder(height, radius float64) kernel.Shape {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Cylinder3D: %v", err))
	}
	return wrap(s, kernel.ShapeSolid, kernel.SurfaceCounts{Planes: 2, Cylinders: 1})
}

// Sphere creates a sphere centered at the origin.
func (k *SdfxKernel) Sphere(radius float64) kernel.Shape {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Sphere3D: %v", err))
	}
	return wrap(s, kernel.ShapeSolid, kernel.SurfaceCounts{Spheres: 1})
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Shape) kernel.Shape {
	return fused(sdf.Union3D(unwrap(a), unwrap(b)), a, b)
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Shape) kernel.Shape {
	return fused(sdf.Difference3D(unwrap(a), unwrap(b)), a, b)
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Shape) kernel.Shape {
	return fused(sdf.Intersect3D(unwrap(a), unwrap(b)), a, b)
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Shape, x, y, z float64) kernel.Shape {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return transform(s.(*sdfxSolid), m)
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *SdfxKernel) Rotate(s kernel.Shape, x, y, z float64) kernel.Shape {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return transform(s.(*sdfxSolid), m)
}

// Compound groups the non-null shapes into one compound. Members are
// measured separately, so touching or overlapping members stay distinct
// solids. An empty compound is a null shape.
func (k *SdfxKernel) Compound(shapes ...kernel.Shape) kernel.Shape {
	var members []*sdfxSolid
	for _, s := range shapes {
		if kernel.IsNull(s) {
			continue
		}
		members = append(members, s.(*sdfxSolid))
	}
	if len(members) == 0 {
		return kernel.NullShape
	}
	return compound(members)
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Shape) (*kernel.Mesh, error) {
	if kernel.IsNull(s) {
		return nil, kernel.ErrNullShape
	}
	var triangles []*sdf.Triangle3
	err := kernel.Guard("mesh", func() error {
		renderer := render.NewMarchingCubesUniform(k.meshCells)
		triangles = render.ToTriangles(unwrap(s), renderer)
		return nil
	})
	if err != nil {
		return nil, err
	}

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
