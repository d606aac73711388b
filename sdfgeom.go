package cubesplit

import (
	"math"
	"math/rand"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

var _ Geometry = (*SDFGeometry)(nil)

// SDFGeometry adapts a signed distance function solid from
// github.com/deadsy/sdfx into a partitioning domain.
type SDFGeometry struct {
	s   sdf.SDF3
	rng *rand.Rand
	// surfTol is the distance band treated as "on the surface",
	// derived from the bounding box size.
	surfTol float64
}

// NewSDFGeometry wraps s. The random source drives boundary point
// sampling and must not be shared concurrently.
func NewSDFGeometry(s sdf.SDF3, rng *rand.Rand) *SDFGeometry {
	bb := s.BoundingBox()
	sz := bb.Max.Sub(bb.Min)
	maxDim := math.Max(sz.X, math.Max(sz.Y, sz.Z))
	return &SDFGeometry{s: s, rng: rng, surfTol: 1e-3 * maxDim}
}

func (g *SDFGeometry) evaluate(p r3.Vec) float64 {
	return g.s.Evaluate(v3.Vec{X: p.X, Y: p.Y, Z: p.Z})
}

// gradient estimates the SDF gradient at p by central differences.
func (g *SDFGeometry) gradient(p r3.Vec) r3.Vec {
	const h = 1e-6
	return r3.Vec{
		X: g.evaluate(r3.Vec{X: p.X + h, Y: p.Y, Z: p.Z}) - g.evaluate(r3.Vec{X: p.X - h, Y: p.Y, Z: p.Z}),
		Y: g.evaluate(r3.Vec{X: p.X, Y: p.Y + h, Z: p.Z}) - g.evaluate(r3.Vec{X: p.X, Y: p.Y - h, Z: p.Z}),
		Z: g.evaluate(r3.Vec{X: p.X, Y: p.Y, Z: p.Z + h}) - g.evaluate(r3.Vec{X: p.X, Y: p.Y, Z: p.Z - h}),
	}
}

func (g *SDFGeometry) Contains(pts []r3.Vec) []bool {
	inside := make([]bool, len(pts))
	for i, p := range pts {
		inside[i] = g.evaluate(p) < 0
	}
	return inside
}

// SurfacePoints draws random points in the bounding box and walks each
// one down the SDF gradient onto the zero isosurface. Points that fail
// to converge are redrawn, so the returned count is exact.
func (g *SDFGeometry) SurfacePoints(n int) []r3.Vec {
	const maxSteps = 16
	bb := g.Bounds()
	sz := r3.Sub(bb.Max, bb.Min)
	pts := make([]r3.Vec, 0, n)
	for len(pts) < n {
		p := r3.Add(bb.Min, r3.Vec{
			X: g.rng.Float64() * sz.X,
			Y: g.rng.Float64() * sz.Y,
			Z: g.rng.Float64() * sz.Z,
		})
		converged := false
		for step := 0; step < maxSteps; step++ {
			d := g.evaluate(p)
			if math.Abs(d) < g.surfTol {
				converged = true
				break
			}
			grad := g.gradient(p)
			if r3.Norm2(grad) == 0 {
				break
			}
			p = r3.Sub(p, r3.Scale(d, r3.Unit(grad)))
		}
		if converged {
			pts = append(pts, p)
		}
	}
	return pts
}

func (g *SDFGeometry) Bounds() r3.Box {
	bb := g.s.BoundingBox()
	return r3.Box{
		Min: r3.Vec{X: bb.Min.X, Y: bb.Min.Y, Z: bb.Min.Z},
		Max: r3.Vec{X: bb.Max.X, Y: bb.Max.Y, Z: bb.Max.Z},
	}
}

// Normals replaces hint normals with the SDF gradient for vertices lying
// on the domain surface. Interior cut vertices keep their hint.
func (g *SDFGeometry) Normals(m *Mesh) []r3.Vec {
	normals := m.Normals
	if normals == nil {
		normals = m.AccumulateNormals()
	}
	out := make([]r3.Vec, len(normals))
	copy(out, normals)
	for i, v := range m.Vertices {
		if math.Abs(g.evaluate(v)) < 10*g.surfTol {
			grad := g.gradient(v)
			if r3.Norm2(grad) > 0 {
				out[i] = r3.Unit(grad)
			}
		}
	}
	return out
}
