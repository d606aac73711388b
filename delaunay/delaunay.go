// Package delaunay builds 3D Delaunay tetrahedralizations with explicit
// per-face neighbor adjacency using incremental Bowyer-Watson insertion.
package delaunay

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// NoNeighbor marks a tetrahedron face on the convex hull boundary.
const NoNeighbor = -1

// ErrDegenerate is returned when the input does not span 3D space:
// fewer than 4 affinely independent points, or NaN/Inf coordinates.
var ErrDegenerate = errors.New("delaunay: degenerate input")

// faceVertices lists, for each face index f, the tetrahedron vertex slots
// forming the face opposite vertex slot f.
var faceVertices = [4][3]int{{1, 2, 3}, {0, 2, 3}, {0, 1, 3}, {0, 1, 2}}

// Tetrahedralization is a tetrahedral partition of the convex hull of a
// point set. Tetrahedra index into Points. Neighbors[t][f] is the index
// of the tetrahedron sharing the face of t opposite vertex slot f, or
// NoNeighbor if that face lies on the hull.
//
// All tetrahedra are positively oriented: orient3d of their vertices in
// stored order is positive.
type Tetrahedralization struct {
	Points     []r3.Vec
	Tetrahedra [][4]int
	Neighbors  [][4]int
}

// Tetrahedralize computes the Delaunay tetrahedralization of points.
// Input point indices are preserved: tetrahedron vertices index into the
// argument slice. Points duplicated within tolerance are absorbed and
// simply appear in no tetrahedron.
func Tetrahedralize(points []r3.Vec) (*Tetrahedralization, error) {
	if len(points) < 4 {
		return nil, fmt.Errorf("%w: got %d points, need at least 4", ErrDegenerate, len(points))
	}
	for i, p := range points {
		if math.IsNaN(p.X+p.Y+p.Z) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) || math.IsInf(p.Z, 0) {
			return nil, fmt.Errorf("%w: point %d is NaN or Inf", ErrDegenerate, i)
		}
	}
	if !affinelyIndependent(points) {
		return nil, fmt.Errorf("%w: points do not span 3D space", ErrDegenerate)
	}
	tr := newTriangulator(points)
	for i := range points {
		tr.insert(i)
	}
	return tr.finish()
}

// affinelyIndependent reports whether the point set contains 4 points
// not all on one plane.
func affinelyIndependent(points []r3.Vec) bool {
	const tol = 1e-12
	// Greedily grow an affinely independent subset.
	i0 := 0
	i1 := -1
	for i := 1; i < len(points); i++ {
		if r3.Norm2(r3.Sub(points[i], points[i0])) > tol {
			i1 = i
			break
		}
	}
	if i1 < 0 {
		return false
	}
	i2 := -1
	for i := i1 + 1; i < len(points); i++ {
		c := r3.Cross(r3.Sub(points[i1], points[i0]), r3.Sub(points[i], points[i0]))
		if r3.Norm2(c) > tol {
			i2 = i
			break
		}
	}
	if i2 < 0 {
		return false
	}
	for i := 1; i < len(points); i++ {
		if math.Abs(orient3d(points[i0], points[i1], points[i2], points[i])) > tol {
			return true
		}
	}
	return false
}

// Centroids returns the centroid of every tetrahedron.
func (t *Tetrahedralization) Centroids() []r3.Vec {
	centroids := make([]r3.Vec, len(t.Tetrahedra))
	for i, tet := range t.Tetrahedra {
		sum := r3.Add(r3.Add(t.Points[tet[0]], t.Points[tet[1]]),
			r3.Add(t.Points[tet[2]], t.Points[tet[3]]))
		centroids[i] = r3.Scale(0.25, sum)
	}
	return centroids
}

// Face returns the point indices of face f of tetrahedron t, in stored
// vertex order.
func (t *Tetrahedralization) Face(tet, f int) [3]int {
	v := t.Tetrahedra[tet]
	fv := faceVertices[f]
	return [3]int{v[fv[0]], v[fv[1]], v[fv[2]]}
}

// Validate performs sanity checks on the adjacency structure. Returns
// nil if no issues were found. Useful for tests and debugging.
func (t *Tetrahedralization) Validate() error {
	if len(t.Tetrahedra) != len(t.Neighbors) {
		return errors.New("tetrahedra and neighbor tables differ in length")
	}
	for i, tet := range t.Tetrahedra {
		if orient3d(t.Points[tet[0]], t.Points[tet[1]], t.Points[tet[2]], t.Points[tet[3]]) <= 0 {
			return fmt.Errorf("tetrahedron %d is not positively oriented", i)
		}
		for f := 0; f < 4; f++ {
			nb := t.Neighbors[i][f]
			if nb == NoNeighbor {
				continue
			}
			if nb < 0 || nb >= len(t.Tetrahedra) {
				return fmt.Errorf("tetrahedron %d face %d has out of range neighbor %d", i, f, nb)
			}
			// The neighbor must point back at us through the shared face.
			back := false
			for g := 0; g < 4; g++ {
				if t.Neighbors[nb][g] == i {
					if sortedFace(t.Face(i, f)) != sortedFace(t.Face(nb, g)) {
						return fmt.Errorf("tetrahedra %d and %d disagree on their shared face", i, nb)
					}
					back = true
					break
				}
			}
			if !back {
				return fmt.Errorf("neighbor relation between %d and %d is not symmetric", i, nb)
			}
		}
	}
	return nil
}

func sortedFace(f [3]int) [3]int {
	if f[0] > f[1] {
		f[0], f[1] = f[1], f[0]
	}
	if f[1] > f[2] {
		f[1], f[2] = f[2], f[1]
	}
	if f[0] > f[1] {
		f[0], f[1] = f[1], f[0]
	}
	return f
}
