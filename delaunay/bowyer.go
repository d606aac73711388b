package delaunay

import (
	"fmt"

	"github.com/innerloz/cube-split/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Incremental Bowyer-Watson insertion into an enclosing super
// tetrahedron. Working tetrahedra keep a live adjacency table; cavity
// tetrahedra are flagged dead and replaced by the star of the inserted
// point. Live adjacency never points at a dead tetrahedron.

type tetra struct {
	verts [4]int
	adj   [4]int
	dead  bool
}

type triangulator struct {
	// pts is the input point slice followed by the 4 super vertices.
	pts  []r3.Vec
	n    int // number of real input points
	tets []tetra
	last int // walk start hint, most recently created tetrahedron

	jitterScale float64 // retry displacement, relative to the data extent

	cavity []int // scratch
}

func newTriangulator(points []r3.Vec) *triangulator {
	n := len(points)
	bb := d3.Box{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		bb = bb.Include(p)
	}
	center := bb.Center()
	// Regular super tetrahedron whose insphere comfortably encloses the
	// data bounding sphere.
	rin := 10*r3.Norm(bb.Size()) + 1
	rc := 3 * rin
	const s = 0.5773502691896258 // 1/sqrt(3)
	pts := make([]r3.Vec, n, n+4)
	copy(pts, points)
	pts = append(pts,
		r3.Add(center, r3.Scale(rc, r3.Vec{X: s, Y: s, Z: s})),
		r3.Add(center, r3.Scale(rc, r3.Vec{X: s, Y: -s, Z: -s})),
		r3.Add(center, r3.Scale(rc, r3.Vec{X: -s, Y: s, Z: -s})),
		r3.Add(center, r3.Scale(rc, r3.Vec{X: -s, Y: -s, Z: s})),
	)
	root := tetra{verts: [4]int{n, n + 1, n + 2, n + 3}, adj: [4]int{NoNeighbor, NoNeighbor, NoNeighbor, NoNeighbor}}
	if orient3d(pts[root.verts[0]], pts[root.verts[1]], pts[root.verts[2]], pts[root.verts[3]]) < 0 {
		root.verts[0], root.verts[1] = root.verts[1], root.verts[0]
	}
	return &triangulator{pts: pts, n: n, tets: []tetra{root}, last: 0, jitterScale: 1e-9 * rin}
}

func (tr *triangulator) orientTet(t int, replace int, p r3.Vec) float64 {
	v := tr.tets[t].verts
	q := [4]r3.Vec{tr.pts[v[0]], tr.pts[v[1]], tr.pts[v[2]], tr.pts[v[3]]}
	q[replace] = p
	return orient3d(q[0], q[1], q[2], q[3])
}

// locate walks the adjacency graph toward the tetrahedron containing p.
// Falls back to a linear scan if the walk cycles numerically. Returns -1
// when no live tetrahedron admits p, which only happens on numerically
// broken input.
func (tr *triangulator) locate(p r3.Vec, pi int) int {
	t := tr.last
	if t < 0 || t >= len(tr.tets) || tr.tets[t].dead {
		t = -1
		for i := range tr.tets {
			if !tr.tets[i].dead {
				t = i
				break
			}
		}
		if t < 0 {
			return -1
		}
	}
	maxSteps := 4*len(tr.tets) + 64
walk:
	for step := 0; step < maxSteps; step++ {
		for f := 0; f < 4; f++ {
			if tr.orientTet(t, f, p) < 0 {
				nb := tr.tets[t].adj[f]
				if nb == NoNeighbor {
					break walk
				}
				t = nb
				continue walk
			}
		}
		return t
	}
	// Walk failed: scan for containment, then for any circumsphere
	// admitting p.
	for i := range tr.tets {
		if tr.tets[i].dead {
			continue
		}
		inside := true
		for f := 0; f < 4; f++ {
			if tr.orientTet(i, f, p) < 0 {
				inside = false
				break
			}
		}
		if inside {
			return i
		}
	}
	for i := range tr.tets {
		if !tr.tets[i].dead && tr.admits(i, p, pi) {
			return i
		}
	}
	return -1
}

// admits reports whether p, the point at input index pi, lies inside the
// circumsphere of live tetrahedron t. Cospherical ties are broken
// symbolically so that every tetrahedron sees the same decision.
func (tr *triangulator) admits(t int, p r3.Vec, pi int) bool {
	v := tr.tets[t].verts
	return insphereRobust(tr.pts[v[0]], tr.pts[v[1]], tr.pts[v[2]], tr.pts[v[3]], p,
		v[0], v[1], v[2], v[3], pi) > 0
}

// growCavity flood fills the set of tetrahedra whose circumsphere
// contains p, starting from the containing tetrahedron. All cavity
// members are flagged dead.
func (tr *triangulator) growCavity(start int, p r3.Vec, pi int) []int {
	tr.cavity = tr.cavity[:0]
	tr.tets[start].dead = true
	tr.cavity = append(tr.cavity, start)
	for head := 0; head < len(tr.cavity); head++ {
		ct := tr.cavity[head]
		for f := 0; f < 4; f++ {
			nb := tr.tets[ct].adj[f]
			if nb == NoNeighbor || tr.tets[nb].dead {
				continue
			}
			if tr.admits(nb, p, pi) {
				tr.tets[nb].dead = true
				tr.cavity = append(tr.cavity, nb)
			}
		}
	}
	return tr.cavity
}

// cavityFace is one face of the cavity boundary, wound so that the
// inserted point lies on its positive side. nb is the live tetrahedron
// on the far side (or NoNeighbor) and nbFace the slot of nb that pointed
// into the cavity.
type cavityFace struct {
	a, b, c int
	nb      int
	nbFace  int
}

// cavityBoundary collects the boundary faces of a grown cavity and
// checks that they close up: every boundary edge must border exactly two
// boundary faces and no face may be coplanar with the inserted point.
// A failed check means the cavity is not star shaped around the point
// and retriangulating it would corrupt the adjacency table, so the
// caller must roll the cavity back instead.
func (tr *triangulator) cavityBoundary(cavity []int, p r3.Vec) ([]cavityFace, bool) {
	faces := make([]cavityFace, 0, 2*len(cavity)+4)
	edges := make(map[[2]int]int, 3*len(cavity))
	for _, ct := range cavity {
		for f := 0; f < 4; f++ {
			nb := tr.tets[ct].adj[f]
			if nb != NoNeighbor && tr.tets[nb].dead {
				continue // face interior to the cavity
			}
			fv := faceVertices[f]
			a := tr.tets[ct].verts[fv[0]]
			b := tr.tets[ct].verts[fv[1]]
			c := tr.tets[ct].verts[fv[2]]
			ori := orient3d(tr.pts[a], tr.pts[b], tr.pts[c], p)
			if ori == 0 {
				return nil, false
			}
			if ori < 0 {
				a, b = b, a
			}
			nbFace := -1
			if nb != NoNeighbor {
				for g := 0; g < 4; g++ {
					if tr.tets[nb].adj[g] == ct {
						nbFace = g
						break
					}
				}
			}
			faces = append(faces, cavityFace{a: a, b: b, c: c, nb: nb, nbFace: nbFace})
			edges[edgePair(a, b)]++
			edges[edgePair(b, c)]++
			edges[edgePair(a, c)]++
		}
	}
	for _, count := range edges {
		if count != 2 {
			return nil, false
		}
	}
	return faces, true
}

func edgePair(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// fillCavity replaces a hollowed cavity with the star of point pi: one
// new tetrahedron per boundary face. The three faces of each new
// tetrahedron that touch pi are linked to sibling tetrahedra through the
// boundary edge they share; cavityBoundary has already guaranteed that
// every edge pairs exactly twice.
func (tr *triangulator) fillCavity(faces []cavityFace, pi int) {
	type halfEdge struct{ tet, face int }
	edges := make(map[[2]int]halfEdge, 3*len(faces)/2)
	link := func(a, b, nt, nf int) {
		key := edgePair(a, b)
		if other, ok := edges[key]; ok {
			tr.tets[nt].adj[nf] = other.tet
			tr.tets[other.tet].adj[other.face] = nt
			delete(edges, key)
			return
		}
		edges[key] = halfEdge{tet: nt, face: nf}
	}
	for _, bf := range faces {
		nt := len(tr.tets)
		tr.tets = append(tr.tets, tetra{
			verts: [4]int{bf.a, bf.b, bf.c, pi},
			adj:   [4]int{NoNeighbor, NoNeighbor, NoNeighbor, bf.nb},
		})
		if bf.nb != NoNeighbor {
			tr.tets[bf.nb].adj[bf.nbFace] = nt
		}
		link(bf.b, bf.c, nt, 0)
		link(bf.a, bf.c, nt, 1)
		link(bf.a, bf.b, nt, 2)
		tr.last = nt
	}
}

// jitter derives a small deterministic displacement for retrying a
// rejected insertion of point pi.
func (tr *triangulator) jitter(pi, attempt int) r3.Vec {
	s := uint64(pi)*0x9e3779b97f4a7c15 + uint64(attempt)*0xbf58476d1ce4e5b9 + 1
	next := func() float64 {
		s ^= s << 13
		s ^= s >> 7
		s ^= s << 17
		return float64(s%(1<<20))/float64(1<<19) - 1
	}
	return r3.Scale(tr.jitterScale, r3.Vec{X: next(), Y: next(), Z: next()})
}

// insert adds input point pi to the triangulation. Points that duplicate
// an existing vertex (or defeat point location numerically) are dropped.
// When the cavity boundary fails its consistency check the insertion is
// retried from a jittered location; a point still failing after the last
// attempt is dropped like a duplicate rather than corrupting the mesh.
func (tr *triangulator) insert(pi int) {
	const maxAttempts = 4
	p := tr.pts[pi]
	for attempt := 0; attempt < maxAttempts; attempt++ {
		q := p
		if attempt > 0 {
			q = r3.Add(p, tr.jitter(pi, attempt))
		}
		t := tr.locate(q, pi)
		if t < 0 {
			return
		}
		for _, v := range tr.tets[t].verts {
			if r3.Norm2(r3.Sub(p, tr.pts[v])) < 1e-24 {
				return
			}
		}
		cavity := tr.growCavity(t, q, pi)
		faces, ok := tr.cavityBoundary(cavity, p)
		if !ok {
			for _, ct := range cavity {
				tr.tets[ct].dead = false
			}
			continue
		}
		tr.fillCavity(faces, pi)
		return
	}
}

// finish discards every tetrahedron touching a super vertex, compacts
// the survivors and rebuilds the neighbor table from shared faces.
func (tr *triangulator) finish() (*Tetrahedralization, error) {
	var tets [][4]int
	for i := range tr.tets {
		t := &tr.tets[i]
		if t.dead {
			continue
		}
		if t.verts[0] >= tr.n || t.verts[1] >= tr.n || t.verts[2] >= tr.n || t.verts[3] >= tr.n {
			continue
		}
		tets = append(tets, t.verts)
	}
	if len(tets) == 0 {
		return nil, fmt.Errorf("%w: no interior tetrahedra produced", ErrDegenerate)
	}
	out := &Tetrahedralization{
		Points:     tr.pts[:tr.n],
		Tetrahedra: tets,
		Neighbors:  make([][4]int, len(tets)),
	}
	type halfFace struct{ tet, face int }
	faces := make(map[[3]int]halfFace, 2*len(tets))
	for i := range tets {
		out.Neighbors[i] = [4]int{NoNeighbor, NoNeighbor, NoNeighbor, NoNeighbor}
	}
	for i := range tets {
		for f := 0; f < 4; f++ {
			key := sortedFace(out.Face(i, f))
			if other, ok := faces[key]; ok {
				out.Neighbors[i][f] = other.tet
				out.Neighbors[other.tet][other.face] = i
				delete(faces, key)
				continue
			}
			faces[key] = halfFace{tet: i, face: f}
		}
	}
	return out, nil
}
