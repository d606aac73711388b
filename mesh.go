package cubesplit

import (
	"math"

	"github.com/innerloz/cube-split/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is an indexed triangle mesh. Faces index into Vertices.
// Normals is optional and, when present, holds one normal per vertex.
type Mesh struct {
	Vertices []r3.Vec
	Faces    [][3]int
	Normals  []r3.Vec
}

// Triangle returns the vertex coordinates of face i.
func (m *Mesh) Triangle(i int) [3]r3.Vec {
	f := m.Faces[i]
	return [3]r3.Vec{m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]}
}

// FaceNormal returns the unit normal of face i following its winding.
// Returns the zero vector for degenerate faces.
func (m *Mesh) FaceNormal(i int) r3.Vec {
	t := m.Triangle(i)
	n := r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0]))
	if r3.Norm2(n) == 0 {
		return r3.Vec{}
	}
	return r3.Unit(n)
}

// AccumulateNormals computes area-weighted per-vertex normals from the
// face windings. The unnormalized cross product weighs large faces more,
// which is the usual smooth-shading accumulation.
func (m *Mesh) AccumulateNormals() []r3.Vec {
	normals := make([]r3.Vec, len(m.Vertices))
	for _, f := range m.Faces {
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		normals[f[0]] = r3.Add(normals[f[0]], n)
		normals[f[1]] = r3.Add(normals[f[1]], n)
		normals[f[2]] = r3.Add(normals[f[2]], n)
	}
	for i, n := range normals {
		if r3.Norm2(n) > 0 {
			normals[i] = r3.Unit(n)
		}
	}
	return normals
}

// Bounds returns the axis aligned bounding box of the mesh vertices.
func (m *Mesh) Bounds() r3.Box {
	min := d3.Elem(math.MaxFloat64)
	max := d3.Elem(-math.MaxFloat64)
	for _, v := range m.Vertices {
		min = d3.MinElem(min, v)
		max = d3.MaxElem(max, v)
	}
	return r3.Box{Min: min, Max: max}
}

// Centroid returns the mean of the mesh vertices.
func (m *Mesh) Centroid() r3.Vec {
	var sum r3.Vec
	for _, v := range m.Vertices {
		sum = r3.Add(sum, v)
	}
	return r3.Scale(1/float64(len(m.Vertices)), sum)
}
