package partition

import (
	cubesplit "github.com/innerloz/cube-split"
	"gonum.org/v1/gonum/spatial/r3"
)

// Orienter makes the face windings of a mesh consistent so computed
// normals point outward. Implementations are best effort: they must not
// fail on non-manifold or multiply connected input, only leave such
// patches partially corrected.
type Orienter interface {
	Orient(m *cubesplit.Mesh)
}

// RepairWinding is the default Orienter. It propagates a consistent
// winding across faces sharing an edge, breadth first per connected
// component, then flips whole components whose signed volume indicates
// inward facing normals. Propagation does not cross edges shared by
// more than two faces.
type RepairWinding struct{}

var _ Orienter = RepairWinding{}

func (RepairWinding) Orient(m *cubesplit.Mesh) {
	if len(m.Faces) == 0 {
		return
	}
	incident := make(map[[2]int][]int, 3*len(m.Faces)/2)
	for i, f := range m.Faces {
		for e := 0; e < 3; e++ {
			incident[edgeKey(f[e], f[(e+1)%3])] = append(incident[edgeKey(f[e], f[(e+1)%3])], i)
		}
	}
	visited := make([]bool, len(m.Faces))
	var queue, component []int
	for start := range m.Faces {
		if visited[start] {
			continue
		}
		visited[start] = true
		queue = append(queue[:0], start)
		component = append(component[:0], start)
		for len(queue) > 0 {
			fi := queue[0]
			queue = queue[1:]
			f := m.Faces[fi]
			for e := 0; e < 3; e++ {
				a, b := f[e], f[(e+1)%3]
				adj := incident[edgeKey(a, b)]
				if len(adj) != 2 {
					continue // hole edge or non-manifold fan
				}
				for _, ni := range adj {
					if ni == fi || visited[ni] {
						continue
					}
					// Consistent neighbors traverse the shared
					// edge in opposite directions.
					if edgeDirection(m.Faces[ni], a, b) {
						flipFace(m, ni)
					}
					visited[ni] = true
					queue = append(queue, ni)
					component = append(component, ni)
				}
			}
		}
		if signedVolume(m, component) < 0 {
			for _, fi := range component {
				flipFace(m, fi)
			}
		}
	}
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// edgeDirection reports whether face f traverses edge a->b in that
// order.
func edgeDirection(f [3]int, a, b int) bool {
	for e := 0; e < 3; e++ {
		if f[e] == a && f[(e+1)%3] == b {
			return true
		}
	}
	return false
}

func flipFace(m *cubesplit.Mesh, i int) {
	m.Faces[i][1], m.Faces[i][2] = m.Faces[i][2], m.Faces[i][1]
}

// signedVolume sums the signed tetrahedron volumes spanned by the
// component faces and the component vertex centroid. Positive means
// the windings face away from the centroid. For open components this
// is only an approximation, which is all best effort repair promises.
func signedVolume(m *cubesplit.Mesh, component []int) float64 {
	var centroid r3.Vec
	var count int
	seen := make(map[int]struct{})
	for _, fi := range component {
		for _, v := range m.Faces[fi] {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			centroid = r3.Add(centroid, m.Vertices[v])
			count++
		}
	}
	if count == 0 {
		return 0
	}
	centroid = r3.Scale(1/float64(count), centroid)
	var vol float64
	for _, fi := range component {
		f := m.Faces[fi]
		a := r3.Sub(m.Vertices[f[0]], centroid)
		b := r3.Sub(m.Vertices[f[1]], centroid)
		c := r3.Sub(m.Vertices[f[2]], centroid)
		vol += r3.Dot(a, r3.Cross(b, c))
	}
	return vol
}
