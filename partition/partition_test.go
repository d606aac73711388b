package partition_test

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	cubesplit "github.com/innerloz/cube-split"
	"github.com/innerloz/cube-split/internal/d3"
	"github.com/innerloz/cube-split/partition"
	"gonum.org/v1/gonum/spatial/r3"
)

// emptyDomain rejects every point. Used to exercise sampling failure.
type emptyDomain struct{}

func (emptyDomain) Contains(pts []r3.Vec) []bool { return make([]bool, len(pts)) }
func (emptyDomain) SurfacePoints(n int) []r3.Vec { return nil }
func (emptyDomain) Bounds() r3.Box {
	return r3.Box{Min: r3.Vec{X: -1, Y: -1, Z: -1}, Max: r3.Vec{X: 1, Y: 1, Z: 1}}
}
func (emptyDomain) Normals(m *cubesplit.Mesh) []r3.Vec { return m.AccumulateNormals() }

func TestSampleShellSphere(t *testing.T) {
	g := cubesplit.Sphere{R: 1}
	rng := rand.New(rand.NewSource(1))
	shell, err := partition.SampleShell(g, partition.SamplerConfig{
		SurfaceSamples: 200,
		CutSamples:     300,
		Seeds:          4,
	}, rng)
	if err != nil {
		t.Fatal(err)
	}
	if shell.NumBoundary != 200 {
		t.Errorf("boundary samples: got %d, want 200", shell.NumBoundary)
	}
	if len(shell.Seeds) != 4 {
		t.Fatalf("seeds: got %d, want 4", len(shell.Seeds))
	}
	for i, s := range shell.Seeds {
		if r3.Norm(s) >= 1 {
			t.Errorf("seed %d outside the sphere: %v", i, s)
		}
	}
	cuts := shell.CutPoints()
	if len(cuts) == 0 || len(cuts) > 300 {
		t.Fatalf("cut points: got %d, want 1..300", len(cuts))
	}
	for i, c := range cuts {
		if math.IsNaN(c.X + c.Y + c.Z) {
			t.Fatalf("cut point %d is NaN", i)
		}
		if r3.Norm(c) >= 1 {
			t.Errorf("cut point %d outside the sphere: %v", i, c)
		}
	}
}

func TestCutPointsOnBisector(t *testing.T) {
	g := cubesplit.Sphere{R: 1}
	rng := rand.New(rand.NewSource(2))
	shell, err := partition.SampleShell(g, partition.SamplerConfig{
		SurfaceSamples: 50,
		CutSamples:     200,
		Seeds:          2,
	}, rng)
	if err != nil {
		t.Fatal(err)
	}
	s0, s1 := shell.Seeds[0], shell.Seeds[1]
	for i, c := range shell.CutPoints() {
		d0 := r3.Norm(r3.Sub(c, s0))
		d1 := r3.Norm(r3.Sub(c, s1))
		if math.Abs(d0-d1) > 1e-9 {
			t.Errorf("cut point %d off the bisector plane: d0=%g d1=%g", i, d0, d1)
		}
	}
}

func TestSampleShellErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	_, err := partition.SampleShell(cubesplit.Sphere{R: 1}, partition.SamplerConfig{Seeds: 0}, rng)
	if err == nil {
		t.Error("expected error for zero seeds")
	}
	_, err = partition.SampleShell(emptyDomain{}, partition.SamplerConfig{
		Seeds:           2,
		MaxSeedAttempts: 100,
	}, rng)
	if !errors.Is(err, partition.ErrSeedSampling) {
		t.Errorf("got error %v, want ErrSeedSampling", err)
	}
}

func TestLabelRange(t *testing.T) {
	g := cubesplit.Sphere{R: 1}
	rng := rand.New(rand.NewSource(4))
	shell, err := partition.SampleShell(g, partition.SamplerConfig{
		SurfaceSamples: 300,
		CutSamples:     500,
		Seeds:          4,
	}, rng)
	if err != nil {
		t.Fatal(err)
	}
	tet, labels, err := partition.Partition(shell, g)
	if err != nil {
		t.Fatal(err)
	}
	if len(labels) != len(tet.Tetrahedra) {
		t.Fatalf("labels: got %d, want one per tetrahedron (%d)", len(labels), len(tet.Tetrahedra))
	}
	distinct := make(map[int]bool)
	for i, l := range labels {
		if l < partition.Exterior || l >= len(shell.Seeds) {
			t.Fatalf("label %d out of range: %d", i, l)
		}
		if l != partition.Exterior {
			distinct[l] = true
		}
	}
	if len(distinct) < 2 {
		t.Errorf("only %d distinct region labels for 4 seeds", len(distinct))
	}
}

func TestLabelExteriorOverride(t *testing.T) {
	big := cubesplit.Sphere{R: 1}
	rng := rand.New(rand.NewSource(5))
	shell, err := partition.SampleShell(big, partition.SamplerConfig{
		SurfaceSamples: 300,
		CutSamples:     300,
		Seeds:          3,
	}, rng)
	if err != nil {
		t.Fatal(err)
	}
	tet, _, err := partition.Partition(shell, big)
	if err != nil {
		t.Fatal(err)
	}
	// Relabel against a smaller domain: tetrahedra outside it must be
	// exterior no matter which seed is closest.
	small := cubesplit.Sphere{R: 0.5}
	labels := partition.Label(tet, shell.Seeds, small)
	centroids := tet.Centroids()
	exterior := 0
	for i, l := range labels {
		outside := r3.Norm(centroids[i]) >= 0.5
		if outside && l != partition.Exterior {
			t.Fatalf("tetrahedron %d outside the domain labeled %d", i, l)
		}
		if l == partition.Exterior {
			exterior++
		}
	}
	if exterior == 0 {
		t.Error("no exterior tetrahedra for a shrunken domain")
	}
}

func TestExtractRegionsSphere(t *testing.T) {
	g := cubesplit.Sphere{R: 1}
	rng := rand.New(rand.NewSource(6))
	shell, err := partition.SampleShell(g, partition.SamplerConfig{
		SurfaceSamples: 600,
		CutSamples:     1200,
		Seeds:          8,
	}, rng)
	if err != nil {
		t.Fatal(err)
	}
	tet, labels, err := partition.Partition(shell, g)
	if err != nil {
		t.Fatal(err)
	}
	regions := partition.ExtractRegions(tet, labels, g, nil)
	if len(regions) == 0 {
		t.Fatal("no regions extracted")
	}
	// A hair of slack over the domain bounds for float roundoff.
	bounds := d3.Box(g.Bounds()).ScaleAboutCenter(1 + 1e-9)
	faceOwners := make(map[[3]int]int)
	prev := partition.Exterior
	for _, region := range regions {
		if region.Label <= prev {
			t.Fatalf("region labels not strictly increasing: %d after %d", region.Label, prev)
		}
		prev = region.Label
		m := &region.Mesh
		if len(m.Faces) == 0 {
			t.Fatalf("region %d has no faces", region.Label)
		}
		if len(region.GlobalIndex) != len(m.Vertices) {
			t.Fatalf("region %d: %d global indices for %d vertices", region.Label, len(region.GlobalIndex), len(m.Vertices))
		}
		for local, global := range region.GlobalIndex {
			if m.Vertices[local] != tet.Points[global] {
				t.Fatalf("region %d vertex %d does not match shell point %d", region.Label, local, global)
			}
			if !bounds.Contains(m.Vertices[local]) {
				t.Fatalf("region %d vertex %d outside the domain bounds: %v", region.Label, local, m.Vertices[local])
			}
		}
		seen := make(map[[3]int]bool)
		for _, f := range m.Faces {
			key := sortedTriple(region.GlobalIndex[f[0]], region.GlobalIndex[f[1]], region.GlobalIndex[f[2]])
			if seen[key] {
				t.Fatalf("region %d contains duplicate face %v", region.Label, key)
			}
			seen[key] = true
			faceOwners[key]++
		}
		if len(m.Normals) != len(m.Vertices) {
			t.Fatalf("region %d: %d normals for %d vertices", region.Label, len(m.Normals), len(m.Vertices))
		}
		for i, n := range m.Normals {
			l := r3.Norm(n)
			if l != 0 && math.Abs(l-1) > 1e-9 {
				t.Fatalf("region %d normal %d is not unit length: %g", region.Label, i, l)
			}
		}
	}
	// A boundary face separates at most two regions.
	for key, owners := range faceOwners {
		if owners > 2 {
			t.Fatalf("face %v owned by %d regions", key, owners)
		}
	}
}

func TestExtractRegionsFullScale(t *testing.T) {
	if testing.Short() {
		t.Skip("full scale sphere partition")
	}
	g := cubesplit.Sphere{R: 1}
	rng := rand.New(rand.NewSource(9))
	shell, err := partition.SampleShell(g, partition.SamplerConfig{
		SurfaceSamples: 5000,
		CutSamples:     10000,
		Seeds:          8,
	}, rng)
	if err != nil {
		t.Fatal(err)
	}
	tet, labels, err := partition.Partition(shell, g)
	if err != nil {
		t.Fatal(err)
	}
	if err := tet.Validate(); err != nil {
		t.Fatal(err)
	}
	regions := partition.ExtractRegions(tet, labels, g, nil)
	if len(regions) == 0 || len(regions) > 8 {
		t.Fatalf("got %d regions for 8 seeds, want 1..8", len(regions))
	}
	bounds := d3.Box(g.Bounds()).ScaleAboutCenter(1 + 1e-9)
	for _, region := range regions {
		for i, v := range region.Mesh.Vertices {
			if !bounds.Contains(v) {
				t.Fatalf("region %d vertex %d outside the domain bounds: %v", region.Label, i, v)
			}
		}
	}
}

func TestExtractRegionsSingleSeed(t *testing.T) {
	g := cubesplit.Sphere{R: 1}
	rng := rand.New(rand.NewSource(7))
	shell, err := partition.SampleShell(g, partition.SamplerConfig{
		SurfaceSamples: 200,
		Seeds:          1,
	}, rng)
	if err != nil {
		t.Fatal(err)
	}
	tet, labels, err := partition.Partition(shell, g)
	if err != nil {
		t.Fatal(err)
	}
	regions := partition.ExtractRegions(tet, labels, g, nil)
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(regions))
	}
	m := &regions[0].Mesh
	// A single region of a convex domain is bounded by the hull alone,
	// which is closed: every edge borders exactly two faces.
	edges := make(map[[2]int]int)
	for _, f := range m.Faces {
		for e := 0; e < 3; e++ {
			a, b := f[e], f[(e+1)%3]
			if a > b {
				a, b = b, a
			}
			edges[[2]int{a, b}]++
		}
	}
	for e, n := range edges {
		if n != 2 {
			t.Fatalf("edge %v borders %d faces, want 2", e, n)
		}
	}
	if vol := meshVolume(m); vol <= 0 {
		t.Errorf("hull mesh volume not positive: %g", vol)
	}
}

func TestPartitionDeterminism(t *testing.T) {
	g := cubesplit.Sphere{R: 1}
	run := func() ([]int, []partition.RegionMesh) {
		rng := rand.New(rand.NewSource(8))
		shell, err := partition.SampleShell(g, partition.SamplerConfig{
			SurfaceSamples: 300,
			CutSamples:     600,
			Seeds:          5,
		}, rng)
		if err != nil {
			t.Fatal(err)
		}
		tet, labels, err := partition.Partition(shell, g)
		if err != nil {
			t.Fatal(err)
		}
		return labels, partition.ExtractRegions(tet, labels, g, nil)
	}
	labels1, regions1 := run()
	labels2, regions2 := run()
	if !reflect.DeepEqual(labels1, labels2) {
		t.Fatal("labels differ between identical runs")
	}
	if len(regions1) != len(regions2) {
		t.Fatalf("region counts differ: %d vs %d", len(regions1), len(regions2))
	}
	for i := range regions1 {
		if !reflect.DeepEqual(regions1[i].Mesh.Faces, regions2[i].Mesh.Faces) {
			t.Fatalf("region %d faces differ between identical runs", regions1[i].Label)
		}
		if !reflect.DeepEqual(regions1[i].GlobalIndex, regions2[i].GlobalIndex) {
			t.Fatalf("region %d vertex order differs between identical runs", regions1[i].Label)
		}
	}
}

func TestRepairWinding(t *testing.T) {
	// Unit tetrahedron with one face wound inward.
	m := &cubesplit.Mesh{
		Vertices: []r3.Vec{
			{X: 0, Y: 0, Z: 0},
			{X: 1, Y: 0, Z: 0},
			{X: 0, Y: 1, Z: 0},
			{X: 0, Y: 0, Z: 1},
		},
		Faces: [][3]int{
			{0, 2, 1},
			{0, 1, 3},
			{0, 2, 3}, // flipped
			{1, 2, 3},
		},
	}
	partition.RepairWinding{}.Orient(m)
	// Consistent orientation: every interior edge is traversed once in
	// each direction.
	directed := make(map[[2]int]int)
	for _, f := range m.Faces {
		for e := 0; e < 3; e++ {
			directed[[2]int{f[e], f[(e+1)%3]}]++
		}
	}
	for e, n := range directed {
		if n != 1 {
			t.Fatalf("directed edge %v traversed %d times, want 1", e, n)
		}
		if directed[[2]int{e[1], e[0]}] != 1 {
			t.Fatalf("edge %v has no opposite traversal", e)
		}
	}
	if vol := meshVolume(m); vol <= 0 {
		t.Errorf("repaired mesh volume not positive: %g", vol)
	}
}

func sortedTriple(a, b, c int) [3]int {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return [3]int{a, b, c}
}

// meshVolume computes the signed enclosed volume via the divergence
// theorem. Positive for closed meshes with outward windings.
func meshVolume(m *cubesplit.Mesh) float64 {
	var vol float64
	for i := range m.Faces {
		tri := m.Triangle(i)
		vol += r3.Dot(tri[0], r3.Cross(tri[1], tri[2]))
	}
	return vol / 6
}
