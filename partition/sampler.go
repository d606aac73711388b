// Package partition splits a solid domain into contiguous labeled
// regions and extracts one boundary surface mesh per region. The
// pipeline is: sample shell points on the domain boundary and on the
// Voronoi bisector planes between region seeds, tetrahedralize the
// samples, label tetrahedra by nearest seed with an exterior override,
// then derive each region's boundary faces from the label adjacency.
package partition

import (
	"errors"
	"fmt"
	"math/rand"

	cubesplit "github.com/innerloz/cube-split"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrSeedSampling is returned when rejection sampling cannot place the
// requested seeds inside the domain. This typically means the domain is
// empty or of near-zero volume relative to its bounding box.
var ErrSeedSampling = errors.New("partition: seed sampling failed")

// degenerateBisector is the squared seed separation below which a
// candidate's two nearest seeds are considered coincident and the
// candidate contributes no valid bisector.
const degenerateBisector = 1e-8

// SamplerConfig parametrizes shell point generation.
type SamplerConfig struct {
	// SurfaceSamples is the requested number of domain boundary
	// samples. Providers backed by an exact mesh may ignore it.
	SurfaceSamples int
	// CutSamples is the requested number of interior samples scattered
	// on the bisector planes between seeds. The sampler may produce
	// fewer if the domain rejects too many candidates.
	CutSamples int
	// Seeds is the number of region seeds, one per region.
	Seeds int
	// MaxSeedAttempts caps the total number of rejection sampling
	// draws for seeds. Zero means 10000 draws per requested seed.
	MaxSeedAttempts int
}

// Shell is the point set handed to the tetrahedral partitioner:
// boundary samples first, then cut samples, plus the region seeds in
// their own index space (the region id of seed i is i).
type Shell struct {
	Points      []r3.Vec
	NumBoundary int
	Seeds       []r3.Vec
}

// CutPoints returns the interior bisector samples of the shell.
func (s Shell) CutPoints() []r3.Vec {
	return s.Points[s.NumBoundary:]
}

// SampleShell generates the shell point set for g. All randomness comes
// from rng, so a fixed source gives a reproducible shell.
func SampleShell(g cubesplit.Geometry, cfg SamplerConfig, rng *rand.Rand) (Shell, error) {
	if cfg.Seeds < 1 {
		return Shell{}, errors.New("partition: at least one seed is required")
	}
	boundary := g.SurfacePoints(cfg.SurfaceSamples)
	seeds, err := sampleSeeds(g, cfg, rng)
	if err != nil {
		return Shell{}, err
	}
	cuts := sampleCuts(g, cfg, seeds, rng)

	points := make([]r3.Vec, 0, len(boundary)+len(cuts))
	points = append(points, boundary...)
	points = append(points, cuts...)
	return Shell{Points: points, NumBoundary: len(boundary), Seeds: seeds}, nil
}

// sampleSeeds rejection-samples cfg.Seeds points inside the domain. The
// draw count is bounded: a domain that never accepts a sample fails
// with ErrSeedSampling instead of looping forever.
func sampleSeeds(g cubesplit.Geometry, cfg SamplerConfig, rng *rand.Rand) ([]r3.Vec, error) {
	bb := g.Bounds()
	maxAttempts := cfg.MaxSeedAttempts
	if maxAttempts == 0 {
		maxAttempts = 10000 * cfg.Seeds
	}
	seeds := make([]r3.Vec, 0, cfg.Seeds)
	for attempts := 0; len(seeds) < cfg.Seeds; attempts++ {
		if attempts >= maxAttempts {
			return nil, fmt.Errorf("%w: %d of %d seeds placed after %d draws",
				ErrSeedSampling, len(seeds), cfg.Seeds, attempts)
		}
		pt := randInBox(rng, bb)
		if g.Contains([]r3.Vec{pt})[0] {
			seeds = append(seeds, pt)
		}
	}
	return seeds, nil
}

// sampleCuts scatters interior points onto the perpendicular bisector
// planes between each candidate's two nearest seeds. With fewer than
// two seeds there are no bisectors and no cut points.
func sampleCuts(g cubesplit.Geometry, cfg SamplerConfig, seeds []r3.Vec, rng *rand.Rand) []r3.Vec {
	if len(seeds) < 2 || cfg.CutSamples <= 0 {
		return nil
	}
	bb := g.Bounds()
	candidates := make([]r3.Vec, 2*cfg.CutSamples)
	for i := range candidates {
		candidates[i] = randInBox(rng, bb)
	}
	inside := g.Contains(candidates)

	tree := newPointTree(seeds)
	projected := make([]r3.Vec, 0, len(candidates))
	for i, c := range candidates {
		if !inside[i] {
			continue
		}
		i1, i2, ok := nearest2Points(tree, c)
		if !ok {
			continue
		}
		s1, s2 := seeds[i1], seeds[i2]
		normal := r3.Sub(s2, s1)
		norm2 := r3.Norm2(normal)
		if norm2 <= degenerateBisector {
			continue
		}
		mid := r3.Scale(0.5, r3.Add(s1, s2))
		dot := r3.Dot(r3.Sub(c, mid), normal)
		projected = append(projected, r3.Sub(c, r3.Scale(dot/norm2, normal)))
	}
	if len(projected) == 0 {
		return nil
	}

	// Projection can push a point outside the domain; filter again and
	// keep the first survivors in iteration order.
	stillInside := g.Contains(projected)
	cuts := make([]r3.Vec, 0, cfg.CutSamples)
	for i, p := range projected {
		if !stillInside[i] {
			continue
		}
		cuts = append(cuts, p)
		if len(cuts) == cfg.CutSamples {
			break
		}
	}
	return cuts
}

func randInBox(rng *rand.Rand, bb r3.Box) r3.Vec {
	sz := r3.Sub(bb.Max, bb.Min)
	return r3.Add(bb.Min, r3.Vec{
		X: rng.Float64() * sz.X,
		Y: rng.Float64() * sz.Y,
		Z: rng.Float64() * sz.Z,
	})
}
