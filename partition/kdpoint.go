package partition

import (
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

var _ kdtree.Interface = kdPoints{}

// kdPoint is an indexed point for nearest neighbor queries. idx refers
// to the position in the originating point slice; query points carry -1.
type kdPoint struct {
	r3.Vec
	idx int
}

// Compare returns the signed distance of p from the plane passing
// through b and perpendicular to the dimension d.
func (p kdPoint) Compare(b kdtree.Comparable, d kdtree.Dim) float64 {
	q := b.(kdPoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	}
	panic("unreachable")
}

func (p kdPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between p and b.
func (p kdPoint) Distance(b kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(p.Vec, b.(kdPoint).Vec))
}

type kdPoints []kdPoint

func (k kdPoints) Index(i int) kdtree.Comparable { return k[i] }

func (k kdPoints) Len() int { return len(k) }

// Pivot partitions the list based on the dimension specified.
func (k kdPoints) Pivot(d kdtree.Dim) int {
	p := pointPlane{dim: int(d), points: k}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// Slice returns a slice of the list using zero-based half open indexing
// equivalent to built-in slice indexing.
func (k kdPoints) Slice(start, end int) kdtree.Interface {
	return k[start:end]
}

type pointPlane struct {
	dim    int
	points kdPoints
}

func (p pointPlane) Less(i, j int) bool {
	return p.points[i].Compare(p.points[j], kdtree.Dim(p.dim)) < 0
}
func (p pointPlane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}
func (p pointPlane) Len() int {
	return len(p.points)
}
func (p pointPlane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}

// newPointTree builds a nearest neighbor index over points. Indices
// reported by queries refer to the argument slice.
func newPointTree(points []r3.Vec) *kdtree.Tree {
	pts := make(kdPoints, len(points))
	for i, p := range points {
		pts[i] = kdPoint{Vec: p, idx: i}
	}
	return kdtree.New(pts, false)
}

// nearestPoint returns the index of the point nearest q.
func nearestPoint(tree *kdtree.Tree, q r3.Vec) int {
	got, _ := tree.Nearest(kdPoint{Vec: q, idx: -1})
	return got.(kdPoint).idx
}

// nearest2Points returns the indices of the two points nearest q,
// closest first. ok is false if the tree holds fewer than two points.
func nearest2Points(tree *kdtree.Tree, q r3.Vec) (first, second int, ok bool) {
	keep := kdtree.NewNKeeper(2)
	tree.NearestSet(keep, kdPoint{Vec: q, idx: -1})
	var found []kdtree.ComparableDist
	for _, cd := range keep.Heap {
		if cd.Comparable != nil {
			found = append(found, cd)
		}
	}
	if len(found) < 2 {
		return 0, 0, false
	}
	if found[0].Dist > found[1].Dist {
		found[0], found[1] = found[1], found[0]
	}
	return found[0].Comparable.(kdPoint).idx, found[1].Comparable.(kdPoint).idx, true
}
