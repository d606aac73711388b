package partition

import (
	"sort"

	cubesplit "github.com/innerloz/cube-split"
	"github.com/innerloz/cube-split/delaunay"
	"gonum.org/v1/gonum/spatial/r3"
)

// RegionMesh is the compacted boundary surface of one labeled region.
// Mesh vertex indices are local; GlobalIndex maps each local vertex
// back to its index in the shell point sequence.
type RegionMesh struct {
	Label       int
	Mesh        cubesplit.Mesh
	GlobalIndex []int
}

// ExtractRegions derives one boundary mesh per non-exterior label that
// owns at least one boundary face. A face is owned by a tetrahedron's
// label exactly when the label on the face's other side differs — the
// other side being the neighbor tetrahedron's label, or Exterior for
// hull faces. Labels owning no faces are skipped.
//
// Face winding is repaired best effort by orient (RepairWinding when
// nil) and final vertex normals are decided by the geometry provider,
// seeded with accumulated face normals as the hint. Results are sorted
// by label.
func ExtractRegions(tet *delaunay.Tetrahedralization, labels []int, g cubesplit.Geometry, orient Orienter) []RegionMesh {
	if orient == nil {
		orient = RepairWinding{}
	}
	owned := make(map[int][][3]int)
	for t := range tet.Tetrahedra {
		lt := labels[t]
		if lt == Exterior {
			continue
		}
		for f := 0; f < 4; f++ {
			other := Exterior
			if nb := tet.Neighbors[t][f]; nb != delaunay.NoNeighbor {
				other = labels[nb]
			}
			if other != lt {
				owned[lt] = append(owned[lt], tet.Face(t, f))
			}
		}
	}

	ids := make([]int, 0, len(owned))
	for id := range owned {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	regions := make([]RegionMesh, 0, len(ids))
	for _, id := range ids {
		region := compactRegion(id, owned[id], tet)
		orient.Orient(&region.Mesh)
		region.Mesh.Normals = region.Mesh.AccumulateNormals()
		region.Mesh.Normals = g.Normals(&region.Mesh)
		regions = append(regions, region)
	}
	return regions
}

// compactRegion remaps the global point indices referenced by faces to
// a dense local range, in order of first appearance.
func compactRegion(label int, faces [][3]int, tet *delaunay.Tetrahedralization) RegionMesh {
	localOf := make(map[int]int)
	var global []int
	localFaces := make([][3]int, len(faces))
	for i, face := range faces {
		for j, v := range face {
			local, ok := localOf[v]
			if !ok {
				local = len(global)
				localOf[v] = local
				global = append(global, v)
			}
			localFaces[i][j] = local
		}
	}
	vertices := make([]r3.Vec, len(global))
	for local, g := range global {
		vertices[local] = tet.Points[g]
	}
	m := cubesplit.Mesh{Vertices: vertices, Faces: localFaces}
	return RegionMesh{Label: label, Mesh: m, GlobalIndex: global}
}
