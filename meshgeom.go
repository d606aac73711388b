package cubesplit

import (
	"errors"
	"math"

	"github.com/innerloz/cube-split/internal/d3"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	_ Geometry         = (*MeshGeometry)(nil)
	_ kdtree.Interface = geomTriangles{}
	_ kdtree.Bounder   = geomTriangles{}
)

// MeshGeometry is a domain bounded by a closed triangle mesh, typically
// produced by an external voxel marching-cubes facility from a volumetric
// mask. Membership is decided by the sign of an approximate distance to
// the nearest surface triangle.
type MeshGeometry struct {
	mesh *Mesh
	tree kdtree.Tree
}

// NewMeshGeometry builds the triangle search tree for m. The mesh should
// describe a closed surface; open meshes give unreliable membership
// answers near their holes.
func NewMeshGeometry(m *Mesh) (*MeshGeometry, error) {
	if len(m.Faces) == 0 {
		return nil, errors.New("mesh geometry needs at least one face")
	}
	tris := make(geomTriangles, len(m.Faces))
	for i := range tris {
		tris[i] = geomTriangle{V: m.Triangle(i)}
	}
	tree := kdtree.New(tris, true)
	return &MeshGeometry{mesh: m, tree: *tree}, nil
}

// signedDistance approximates the signed distance from v to the mesh
// surface. The sign comes from the angle between the nearest triangle's
// normal and the direction to its closest vertex.
func (g *MeshGeometry) signedDistance(v r3.Vec) float64 {
	const eps = 1e-3
	got, _ := g.tree.Nearest(geomTriangle{V: [3]r3.Vec{v, v, v}})
	triangle := got.(geomTriangle)
	minDist := math.MaxFloat64
	closest := r3.Vec{}
	for i := 0; i < 3; i++ {
		vDist := r3.Norm(r3.Sub(v, triangle.V[i]))
		if vDist < minDist {
			closest = triangle.V[i]
			minDist = vDist
		}
	}
	if minDist < eps {
		return 0
	}
	pointDir := r3.Sub(v, closest)
	n := triangle.Normal()
	alpha := math.Acos(r3.Cos(n, pointDir))
	return math.Copysign(minDist, math.Pi/2-alpha)
}

func (g *MeshGeometry) Contains(pts []r3.Vec) []bool {
	inside := make([]bool, len(pts))
	for i, p := range pts {
		inside[i] = g.signedDistance(p) < 0
	}
	return inside
}

// SurfacePoints returns the native mesh vertices. The requested count is
// ignored to preserve the exact source geometry.
func (g *MeshGeometry) SurfacePoints(int) []r3.Vec {
	return g.mesh.Vertices
}

func (g *MeshGeometry) Bounds() r3.Box {
	return g.mesh.Bounds()
}

// Normals trusts the extractor's hint normals. Mesh-derived domains have
// no analytic normal to improve on.
func (g *MeshGeometry) Normals(m *Mesh) []r3.Vec {
	if m.Normals != nil {
		return m.Normals
	}
	return m.AccumulateNormals()
}

type geomTriangle struct {
	V [3]r3.Vec
}

func (t geomTriangle) Normal() r3.Vec {
	n := r3.Cross(r3.Sub(t.V[1], t.V[0]), r3.Sub(t.V[2], t.V[0]))
	if r3.Norm2(n) == 0 {
		return r3.Vec{}
	}
	return r3.Unit(n)
}

func (t geomTriangle) centroid() r3.Vec {
	v := r3.Add(t.V[0], r3.Add(t.V[1], t.V[2]))
	return r3.Scale(1./3., v)
}

// Compare returns the signed distance of a from the plane passing through
// b and perpendicular to the dimension d.
func (t geomTriangle) Compare(b kdtree.Comparable, d kdtree.Dim) float64 {
	q := b.(geomTriangle)
	switch d {
	case 0:
		return t.centroid().X - q.centroid().X
	case 1:
		return t.centroid().Y - q.centroid().Y
	case 2:
		return t.centroid().Z - q.centroid().Z
	}
	panic("unreachable")
}

func (t geomTriangle) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between triangle
// centroids.
func (t geomTriangle) Distance(b kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(t.centroid(), b.(geomTriangle).centroid()))
}

func (t geomTriangle) Bounds() *kdtree.Bounding {
	min := d3.MinElem(t.V[2], d3.MinElem(t.V[0], t.V[1]))
	max := d3.MaxElem(t.V[2], d3.MaxElem(t.V[0], t.V[1]))
	return &kdtree.Bounding{
		Min: geomTriangle{V: [3]r3.Vec{min, min, min}},
		Max: geomTriangle{V: [3]r3.Vec{max, max, max}},
	}
}

type geomTriangles []geomTriangle

func (k geomTriangles) Index(i int) kdtree.Comparable { return k[i] }

func (k geomTriangles) Len() int { return len(k) }

// Pivot partitions the list based on the dimension specified.
func (k geomTriangles) Pivot(d kdtree.Dim) int {
	p := triPlane{dim: int(d), triangles: k}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// Slice returns a slice of the list using zero-based half open indexing
// equivalent to built-in slice indexing.
func (k geomTriangles) Slice(start, end int) kdtree.Interface {
	return k[start:end]
}

func (k geomTriangles) Bounds() *kdtree.Bounding {
	max := d3.Elem(-math.MaxFloat64)
	min := d3.Elem(math.MaxFloat64)
	for _, tri := range k {
		for _, v := range tri.V {
			min = d3.MinElem(min, v)
			max = d3.MaxElem(max, v)
		}
	}
	return &kdtree.Bounding{
		Min: geomTriangle{V: [3]r3.Vec{min, min, min}},
		Max: geomTriangle{V: [3]r3.Vec{max, max, max}},
	}
}

type triPlane struct {
	dim       int
	triangles geomTriangles
}

func (p triPlane) Less(i, j int) bool {
	return p.triangles[i].Compare(p.triangles[j], kdtree.Dim(p.dim)) < 0
}
func (p triPlane) Swap(i, j int) {
	p.triangles[i], p.triangles[j] = p.triangles[j], p.triangles[i]
}
func (p triPlane) Len() int {
	return len(p.triangles)
}
func (p triPlane) Slice(start, end int) kdtree.SortSlicer {
	p.triangles = p.triangles[start:end]
	return p
}
