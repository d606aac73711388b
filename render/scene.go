package render

import (
	"fmt"
	"io"

	cubesplit "github.com/innerloz/cube-split"
	"github.com/innerloz/cube-split/partition"
	"gonum.org/v1/gonum/spatial/r3"
)

// Scene is an ordered, named collection of meshes ready for export.
type Scene struct {
	names  []string
	meshes []*cubesplit.Mesh
}

// NewScene returns an empty scene.
func NewScene() *Scene { return &Scene{} }

// Add appends a named mesh to the scene.
func (s *Scene) Add(name string, m *cubesplit.Mesh) {
	s.names = append(s.names, name)
	s.meshes = append(s.meshes, m)
}

// AddRegions adds every region mesh under the name region_<label>.
func (s *Scene) AddRegions(regions []partition.RegionMesh) {
	for i := range regions {
		m := &regions[i].Mesh
		s.Add(fmt.Sprintf("region_%d", regions[i].Label), m)
	}
}

// Len returns the number of meshes in the scene.
func (s *Scene) Len() int { return len(s.meshes) }

// Name returns the name of mesh i.
func (s *Scene) Name(i int) string { return s.names[i] }

// Mesh returns mesh i.
func (s *Scene) Mesh(i int) *cubesplit.Mesh { return s.meshes[i] }

// Triangles expands an indexed mesh into a triangle list. Face normals
// are averaged from the mesh vertex normals when present.
func Triangles(m *cubesplit.Mesh) []Triangle3 {
	tris := make([]Triangle3, len(m.Faces))
	for i, f := range m.Faces {
		tris[i].V = m.Triangle(i)
		if m.Normals != nil {
			n := r3.Add(m.Normals[f[0]], r3.Add(m.Normals[f[1]], m.Normals[f[2]]))
			tris[i].N = n
		}
	}
	return tris
}

// NewSceneRenderer returns a Renderer streaming every triangle of every
// mesh in the scene, in scene order.
func NewSceneRenderer(s *Scene) Renderer {
	sr := &sceneRenderer{}
	for _, m := range s.meshes {
		sr.buf.Write(Triangles(m))
	}
	return sr
}

type sceneRenderer struct {
	buf triangle3Buffer
}

func (sr *sceneRenderer) ReadTriangles(dst []Triangle3) (int, error) {
	if sr.buf.Len() == 0 {
		return 0, io.EOF
	}
	return sr.buf.Read(dst), nil
}
