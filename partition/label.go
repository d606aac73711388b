package partition

import (
	cubesplit "github.com/innerloz/cube-split"
	"github.com/innerloz/cube-split/delaunay"
	"gonum.org/v1/gonum/spatial/r3"
)

// Exterior is the reserved label for tetrahedra outside the modeled
// domain. Exterior tetrahedra never own boundary faces; they only act
// as the distinguishing far side.
const Exterior = -1

// Partition tetrahedralizes the shell points and labels every
// tetrahedron with a region id. Returns delaunay.ErrDegenerate wrapped
// if the shell does not span 3D space.
func Partition(shell Shell, g cubesplit.Geometry) (*delaunay.Tetrahedralization, []int, error) {
	tet, err := delaunay.Tetrahedralize(shell.Points)
	if err != nil {
		return nil, nil, err
	}
	return tet, Label(tet, shell.Seeds, g), nil
}

// Label assigns each tetrahedron the index of the seed nearest its
// centroid (Voronoi assignment, ties broken by the index), then
// overrides the label with Exterior for tetrahedra whose centroid the
// domain rejects. The exterior filter takes precedence: a tetrahedron
// outside the domain is exterior even if it is closest to an interior
// seed.
func Label(tet *delaunay.Tetrahedralization, seeds []r3.Vec, g cubesplit.Geometry) []int {
	centroids := tet.Centroids()
	tree := newPointTree(seeds)
	labels := make([]int, len(centroids))
	for i, c := range centroids {
		labels[i] = nearestPoint(tree, c)
	}
	inside := g.Contains(centroids)
	for i := range labels {
		if !inside[i] {
			labels[i] = Exterior
		}
	}
	return labels
}
