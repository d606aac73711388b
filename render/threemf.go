package render

import (
	"fmt"
	"io"
	"os"

	"github.com/hpinc/go3mf"
	cubesplit "github.com/innerloz/cube-split"
)

// Create3MF writes the scene to a 3MF file at path. Every mesh becomes
// a named object in the model and an item in the build, in scene order.
func Create3MF(path string, s *Scene) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return Write3MF(file, s)
}

// Write3MF encodes the scene as a 3MF package to w.
func Write3MF(w io.Writer, s *Scene) error {
	if s.Len() == 0 {
		return fmt.Errorf("empty scene")
	}
	model := new(go3mf.Model)
	model.Units = go3mf.UnitMillimeter
	for i := 0; i < s.Len(); i++ {
		obj := &go3mf.Object{
			ID:   uint32(i + 1), // 3MF object IDs start at 1
			Name: s.Name(i),
			Mesh: meshTo3MF(s.Mesh(i)),
		}
		model.Resources.Objects = append(model.Resources.Objects, obj)
		model.Build.Items = append(model.Build.Items, &go3mf.Item{ObjectID: obj.ID})
	}
	return go3mf.NewEncoder(w).Encode(model)
}

func meshTo3MF(m *cubesplit.Mesh) *go3mf.Mesh {
	mesh := new(go3mf.Mesh)
	mesh.Vertices.Vertex = make([]go3mf.Point3D, len(m.Vertices))
	for i, v := range m.Vertices {
		mesh.Vertices.Vertex[i] = go3mf.Point3D{float32(v.X), float32(v.Y), float32(v.Z)}
	}
	mesh.Triangles.Triangle = make([]go3mf.Triangle, len(m.Faces))
	for i, f := range m.Faces {
		mesh.Triangles.Triangle[i] = go3mf.Triangle{
			V1: uint32(f[0]),
			V2: uint32(f[1]),
			V3: uint32(f[2]),
		}
	}
	return mesh
}
