// Package render streams region boundary meshes as triangle soup and
// writes them to STL and 3MF files. Scene assembly collects the named
// per-region meshes produced by package partition for export.
package render

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Renderer is a source of triangles read in buffered batches, io.Reader
// style: io.EOF signals the model is exhausted.
type Renderer interface {
	ReadTriangles(t []Triangle3) (int, error)
}

// Triangle3 is one triangle of a surface model. N optionally carries a
// precomputed face normal; when zero the normal is derived from the
// vertex winding.
type Triangle3 struct {
	V [3]r3.Vec
	N r3.Vec
}

// Normal returns the face normal, preferring the precomputed one.
func (t Triangle3) Normal() r3.Vec {
	if r3.Norm2(t.N) > 0 {
		return r3.Unit(t.N)
	}
	n := r3.Cross(r3.Sub(t.V[1], t.V[0]), r3.Sub(t.V[2], t.V[0]))
	if r3.Norm2(n) == 0 {
		return r3.Vec{}
	}
	return r3.Unit(n)
}
