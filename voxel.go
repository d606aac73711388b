package cubesplit

import (
	"errors"
	"math"

	"github.com/innerloz/cube-split/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

var _ Geometry = (*VoxelGrid)(nil)

// VoxelGrid is a domain defined by a binary volumetric mask on a regular
// axis aligned grid. Mask voxel (x,y,z) is stored at index
// (z*ny+y)*nx+x and is centered at origin + spacing*(x,y,z).
//
// The boundary surface mesh is not derived here: extracting it from the
// mask (marching cubes and any smoothing) is the job of an external
// facility, and the result is handed in at construction.
type VoxelGrid struct {
	mask       []bool
	nx, ny, nz int
	origin     r3.Vec
	spacing    r3.Vec
	surface    *Mesh
	bounds     r3.Box
}

// NewVoxelGrid validates the mask dimensions and computes the tight
// bounding box of the set voxels. surface holds the externally extracted
// boundary mesh of the mask.
func NewVoxelGrid(mask []bool, dims [3]int, origin, spacing r3.Vec, surface *Mesh) (*VoxelGrid, error) {
	nx, ny, nz := dims[0], dims[1], dims[2]
	if nx <= 0 || ny <= 0 || nz <= 0 || len(mask) != nx*ny*nz {
		return nil, errors.New("voxel mask length does not match dimensions")
	}
	if spacing.X <= 0 || spacing.Y <= 0 || spacing.Z <= 0 {
		return nil, errors.New("voxel spacing must be positive")
	}
	g := &VoxelGrid{
		mask: mask, nx: nx, ny: ny, nz: nz,
		origin: origin, spacing: spacing, surface: surface,
	}
	min := d3.Elem(math.MaxFloat64)
	max := d3.Elem(-math.MaxFloat64)
	any := false
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				if !mask[(z*ny+y)*nx+x] {
					continue
				}
				any = true
				c := g.voxelCenter(x, y, z)
				min = d3.MinElem(min, c)
				max = d3.MaxElem(max, c)
			}
		}
	}
	if !any {
		return nil, errors.New("voxel mask is empty")
	}
	// Half a voxel of margin so boundary voxels are fully enclosed.
	half := r3.Scale(0.5, spacing)
	g.bounds = r3.Box{Min: r3.Sub(min, half), Max: r3.Add(max, half)}
	return g, nil
}

func (g *VoxelGrid) voxelCenter(x, y, z int) r3.Vec {
	return r3.Add(g.origin, r3.Vec{
		X: g.spacing.X * float64(x),
		Y: g.spacing.Y * float64(y),
		Z: g.spacing.Z * float64(z),
	})
}

// at reads the mask as a float field, 0 outside the grid.
func (g *VoxelGrid) at(x, y, z int) float64 {
	if x < 0 || y < 0 || z < 0 || x >= g.nx || y >= g.ny || z >= g.nz {
		return 0
	}
	if g.mask[(z*g.ny+y)*g.nx+x] {
		return 1
	}
	return 0
}

// sample trilinearly interpolates the mask at world point p.
func (g *VoxelGrid) sample(p r3.Vec) float64 {
	q := r3.Sub(p, g.origin)
	fx := q.X / g.spacing.X
	fy := q.Y / g.spacing.Y
	fz := q.Z / g.spacing.Z
	x0, y0, z0 := int(math.Floor(fx)), int(math.Floor(fy)), int(math.Floor(fz))
	tx, ty, tz := fx-float64(x0), fy-float64(y0), fz-float64(z0)

	c00 := g.at(x0, y0, z0)*(1-tx) + g.at(x0+1, y0, z0)*tx
	c10 := g.at(x0, y0+1, z0)*(1-tx) + g.at(x0+1, y0+1, z0)*tx
	c01 := g.at(x0, y0, z0+1)*(1-tx) + g.at(x0+1, y0, z0+1)*tx
	c11 := g.at(x0, y0+1, z0+1)*(1-tx) + g.at(x0+1, y0+1, z0+1)*tx

	c0 := c00*(1-ty) + c10*ty
	c1 := c01*(1-ty) + c11*ty
	return c0*(1-tz) + c1*tz
}

// Contains thresholds the interpolated mask at the 0.5 isosurface level.
func (g *VoxelGrid) Contains(pts []r3.Vec) []bool {
	inside := make([]bool, len(pts))
	for i, p := range pts {
		inside[i] = g.sample(p) > 0.5
	}
	return inside
}

// SurfacePoints returns the vertices of the externally extracted
// boundary mesh, ignoring the requested count.
func (g *VoxelGrid) SurfacePoints(int) []r3.Vec {
	return g.surface.Vertices
}

func (g *VoxelGrid) Bounds() r3.Box {
	return g.bounds
}

// Normals trusts the extractor's hint normals, like MeshGeometry: the
// mask carries no sharper normal information than the mesh itself.
func (g *VoxelGrid) Normals(m *Mesh) []r3.Vec {
	if m.Normals != nil {
		return m.Normals
	}
	return m.AccumulateNormals()
}
