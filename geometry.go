// Package cubesplit partitions 3D solids into contiguous labeled regions
// and extracts one boundary surface mesh per region. The root package
// defines the geometry providers consumed by the partitioning pipeline
// in package partition.
package cubesplit

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Geometry describes a solid domain to the partitioning pipeline.
// Implementations may be analytic (Sphere, SDFGeometry) or derived from
// discrete data (MeshGeometry, VoxelGrid).
type Geometry interface {
	// Contains reports domain membership for a batch of points.
	// The returned slice has one entry per input point.
	Contains(pts []r3.Vec) []bool
	// SurfacePoints returns samples on the domain boundary. n is
	// advisory: exact-mesh providers ignore it and return their
	// native vertices.
	SurfacePoints(n int) []r3.Vec
	// Bounds returns the axis aligned bounding box of the domain.
	Bounds() r3.Box
	// Normals decides the final per-vertex normals for an extracted
	// boundary mesh. m.Normals holds the extractor's hint normals.
	Normals(m *Mesh) []r3.Vec
}

// Sphere is an analytic spherical domain of radius R centered at the origin.
type Sphere struct {
	R float64
}

var _ Geometry = Sphere{}

func (s Sphere) Contains(pts []r3.Vec) []bool {
	inside := make([]bool, len(pts))
	r2max := s.R * s.R
	for i, p := range pts {
		inside[i] = r3.Norm2(p) < r2max
	}
	return inside
}

// SurfacePoints returns n points on the sphere surface distributed with a
// Fibonacci lattice.
func (s Sphere) SurfacePoints(n int) []r3.Vec {
	const golden = 1.618033988749895
	pts := make([]r3.Vec, n)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / golden
		phi := math.Acos(1 - 2*(float64(i)+0.5)/float64(n))
		sp := math.Sin(phi)
		pts[i] = r3.Vec{
			X: s.R * sp * math.Cos(theta),
			Y: s.R * sp * math.Sin(theta),
			Z: s.R * math.Cos(phi),
		}
	}
	return pts
}

func (s Sphere) Bounds() r3.Box {
	return r3.Box{
		Min: r3.Vec{X: -s.R, Y: -s.R, Z: -s.R},
		Max: r3.Vec{X: s.R, Y: s.R, Z: s.R},
	}
}

// Normals blends the hint normals toward the exact radial normal for
// vertices close to the sphere surface. Vertices on interior cut faces
// keep their hint.
func (s Sphere) Normals(m *Mesh) []r3.Vec {
	normals := m.Normals
	if normals == nil {
		normals = m.AccumulateNormals()
	}
	out := make([]r3.Vec, len(normals))
	copy(out, normals)
	band := 0.05 * s.R
	for i, v := range m.Vertices {
		d := r3.Norm(v)
		if math.Abs(d-s.R) < band && d > 0 {
			out[i] = r3.Scale(1/d, v)
		}
	}
	for i, n := range out {
		if r3.Norm2(n) > 0 {
			out[i] = r3.Unit(n)
		}
	}
	return out
}
