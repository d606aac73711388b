package delaunay_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/innerloz/cube-split/delaunay"
	"gonum.org/v1/gonum/spatial/r3"
)

func cubeWithCenter() []r3.Vec {
	return []r3.Vec{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 0, Y: 1, Z: 1},
		{X: 0.5, Y: 0.5, Z: 0.5},
	}
}

func randomPoints(n int, rng *rand.Rand) []r3.Vec {
	pts := make([]r3.Vec, n)
	for i := range pts {
		pts[i] = r3.Vec{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()}
	}
	return pts
}

func TestTetrahedralizeCube(t *testing.T) {
	tet, err := delaunay.Tetrahedralize(cubeWithCenter())
	if err != nil {
		t.Fatal(err)
	}
	if err := tet.Validate(); err != nil {
		t.Fatal(err)
	}
	// The tetrahedra must fill the cube exactly.
	var vol float64
	for _, v := range tet.Tetrahedra {
		vol += tetVolume(tet.Points[v[0]], tet.Points[v[1]], tet.Points[v[2]], tet.Points[v[3]])
	}
	if math.Abs(vol-1) > 1e-9 {
		t.Errorf("tetrahedra volume: got %g, want 1", vol)
	}
	// The hull of a cube triangulates into 12 faces, 2 per side.
	hullFaces := 0
	for _, nb := range tet.Neighbors {
		for f := 0; f < 4; f++ {
			if nb[f] == delaunay.NoNeighbor {
				hullFaces++
			}
		}
	}
	if hullFaces != 12 {
		t.Errorf("hull faces: got %d, want 12", hullFaces)
	}
}

func TestTetrahedralizeRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	pts := randomPoints(60, rng)
	tet, err := delaunay.Tetrahedralize(pts)
	if err != nil {
		t.Fatal(err)
	}
	if err := tet.Validate(); err != nil {
		t.Fatal(err)
	}
	// Delaunay property: no input point lies strictly inside the
	// circumsphere of any tetrahedron.
	for ti, v := range tet.Tetrahedra {
		center, r2, ok := circumsphere(tet.Points[v[0]], tet.Points[v[1]], tet.Points[v[2]], tet.Points[v[3]])
		if !ok {
			continue // sliver too flat for a stable circumcenter
		}
		for pi, p := range pts {
			if pi == v[0] || pi == v[1] || pi == v[2] || pi == v[3] {
				continue
			}
			d2 := r3.Norm2(r3.Sub(p, center))
			if d2 < r2*(1-1e-9) {
				t.Fatalf("point %d is inside the circumsphere of tetrahedron %d", pi, ti)
			}
		}
	}
}

// sphereLattice spreads n points over the unit sphere with a Fibonacci
// lattice. All points are cospherical up to rounding, the hardest
// regular input for the insphere predicate.
func sphereLattice(n int) []r3.Vec {
	const golden = 1.618033988749895
	pts := make([]r3.Vec, n)
	for i := range pts {
		theta := 2 * math.Pi * float64(i) / golden
		phi := math.Acos(1 - 2*(float64(i)+0.5)/float64(n))
		pts[i] = r3.Vec{
			X: math.Cos(theta) * math.Sin(phi),
			Y: math.Sin(theta) * math.Sin(phi),
			Z: math.Cos(phi),
		}
	}
	return pts
}

func TestTetrahedralizeCospherical(t *testing.T) {
	for _, n := range []int{200, 400} {
		pts := sphereLattice(n)
		tet, err := delaunay.Tetrahedralize(pts)
		if err != nil {
			t.Fatalf("%d points: %v", n, err)
		}
		if err := tet.Validate(); err != nil {
			t.Fatalf("%d points: %v", n, err)
		}
		// A healthy triangulation of points in convex position stays
		// linear in the point count; a corrupted cavity blows this up.
		if len(tet.Tetrahedra) > 15*n {
			t.Errorf("%d points: got %d tetrahedra", n, len(tet.Tetrahedra))
		}
		// The tetrahedra partition the hull, whose volume approaches
		// the unit ball from below as n grows.
		var vol float64
		for _, v := range tet.Tetrahedra {
			vol += tetVolume(tet.Points[v[0]], tet.Points[v[1]], tet.Points[v[2]], tet.Points[v[3]])
		}
		ball := 4 * math.Pi / 3
		if vol > ball || vol < 0.9*ball {
			t.Errorf("%d points: hull volume %g outside (%g, %g)", n, vol, 0.9*ball, ball)
		}
	}
}

func TestTetrahedralizeDegenerate(t *testing.T) {
	cases := []struct {
		name string
		pts  []r3.Vec
	}{
		{"too few", []r3.Vec{{X: 0}, {X: 1}, {Y: 1}}},
		{"coplanar", []r3.Vec{
			{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1},
			{X: 0.5, Y: 0.5}, {X: 0.25, Y: 0.75},
		}},
		{"collinear", []r3.Vec{{X: 0}, {X: 1}, {X: 2}, {X: 3}, {X: 4}}},
		{"nan", []r3.Vec{{X: 0}, {X: 1}, {Y: 1}, {Z: math.NaN()}}},
	}
	for _, tc := range cases {
		_, err := delaunay.Tetrahedralize(tc.pts)
		if !errors.Is(err, delaunay.ErrDegenerate) {
			t.Errorf("%s: got error %v, want ErrDegenerate", tc.name, err)
		}
	}
}

func TestTetrahedralizeDuplicates(t *testing.T) {
	pts := cubeWithCenter()
	n := len(pts)
	pts = append(pts, pts[0], pts[3], pts[6])
	tet, err := delaunay.Tetrahedralize(pts)
	if err != nil {
		t.Fatal(err)
	}
	if err := tet.Validate(); err != nil {
		t.Fatal(err)
	}
	for ti, v := range tet.Tetrahedra {
		for _, idx := range v {
			if idx >= n {
				t.Fatalf("tetrahedron %d references duplicate point %d", ti, idx)
			}
		}
	}
}

func TestFaceOppositeVertex(t *testing.T) {
	tet, err := delaunay.Tetrahedralize(cubeWithCenter())
	if err != nil {
		t.Fatal(err)
	}
	for ti, v := range tet.Tetrahedra {
		for f := 0; f < 4; f++ {
			face := tet.Face(ti, f)
			for _, fv := range face {
				if fv == v[f] {
					t.Fatalf("face %d of tetrahedron %d contains its opposite vertex", f, ti)
				}
			}
		}
	}
}

func tetVolume(a, b, c, d r3.Vec) float64 {
	u, v, w := r3.Sub(b, a), r3.Sub(c, a), r3.Sub(d, a)
	return math.Abs(r3.Dot(u, r3.Cross(v, w))) / 6
}

// circumsphere solves for the circumcenter of a tetrahedron. Reports
// ok=false for near-flat tetrahedra where the solve is unstable.
func circumsphere(a, b, c, d r3.Vec) (center r3.Vec, r2 float64, ok bool) {
	u, v, w := r3.Sub(b, a), r3.Sub(c, a), r3.Sub(d, a)
	det := 2 * r3.Dot(u, r3.Cross(v, w))
	if math.Abs(det) < 1e-12 {
		return r3.Vec{}, 0, false
	}
	nu, nv, nw := r3.Norm2(u), r3.Norm2(v), r3.Norm2(w)
	off := r3.Scale(1/det, r3.Add(
		r3.Scale(nu, r3.Cross(v, w)),
		r3.Add(
			r3.Scale(nv, r3.Cross(w, u)),
			r3.Scale(nw, r3.Cross(u, v)),
		),
	))
	center = r3.Add(a, off)
	return center, r3.Norm2(off), true
}
