package delaunay

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Floating point geometric predicates. orient3d and insphere are the
// fast non-adaptive determinant expansions; insphereRobust filters the
// fast result through a forward error bound and falls back to a
// symbolic perturbation of the lifted coordinates, so cospherical point
// sets (boundary samples of an analytic shape are exactly that) still
// get globally consistent side decisions.

const epsilon = 1.1102230246251565e-16 // 2^-53

// insErrBound scales the permanent of the insphere determinant into a
// bound on its roundoff, after Shewchuk's isperrboundA.
const insErrBound = (16.0 + 224.0*epsilon) * epsilon

// orient3d returns a positive value when tetrahedron (a,b,c,d) is
// positively oriented under the convention used throughout this package,
// zero when the four points are coplanar.
func orient3d(a, b, c, d r3.Vec) float64 {
	adx := a.X - d.X
	ady := a.Y - d.Y
	adz := a.Z - d.Z
	bdx := b.X - d.X
	bdy := b.Y - d.Y
	bdz := b.Z - d.Z
	cdx := c.X - d.X
	cdy := c.Y - d.Y
	cdz := c.Z - d.Z
	return adx*(bdy*cdz-bdz*cdy) +
		ady*(bdz*cdx-bdx*cdz) +
		adz*(bdx*cdy-bdy*cdx)
}

// insphere returns a positive value when p lies strictly inside the
// circumsphere of the positively oriented tetrahedron (a,b,c,d),
// negative outside, near zero when cospherical.
func insphere(a, b, c, d, p r3.Vec) float64 {
	aex := a.X - p.X
	aey := a.Y - p.Y
	aez := a.Z - p.Z
	bex := b.X - p.X
	bey := b.Y - p.Y
	bez := b.Z - p.Z
	cex := c.X - p.X
	cey := c.Y - p.Y
	cez := c.Z - p.Z
	dex := d.X - p.X
	dey := d.Y - p.Y
	dez := d.Z - p.Z

	ab := aex*bey - bex*aey
	bc := bex*cey - cex*bey
	cd := cex*dey - dex*cey
	da := dex*aey - aex*dey
	ac := aex*cey - cex*aey
	bd := bex*dey - dex*bey

	abc := aez*bc - bez*ac + cez*ab
	bcd := bez*cd - cez*bd + dez*bc
	cda := cez*da + dez*ac + aez*cd
	dab := dez*ab + aez*bd + bez*da

	alift := aex*aex + aey*aey + aez*aez
	blift := bex*bex + bey*bey + bez*bez
	clift := cex*cex + cey*cey + cez*cez
	dlift := dex*dex + dey*dey + dez*dez

	return dlift*abc - clift*dab + blift*cda - alift*bcd
}

// inspherePermanent mirrors insphere with every term taken in absolute
// value. Scaled by insErrBound it bounds the roundoff of the fast
// determinant.
func inspherePermanent(a, b, c, d, p r3.Vec) float64 {
	aex := math.Abs(a.X - p.X)
	aey := math.Abs(a.Y - p.Y)
	aez := math.Abs(a.Z - p.Z)
	bex := math.Abs(b.X - p.X)
	bey := math.Abs(b.Y - p.Y)
	bez := math.Abs(b.Z - p.Z)
	cex := math.Abs(c.X - p.X)
	cey := math.Abs(c.Y - p.Y)
	cez := math.Abs(c.Z - p.Z)
	dex := math.Abs(d.X - p.X)
	dey := math.Abs(d.Y - p.Y)
	dez := math.Abs(d.Z - p.Z)

	ab := aex*bey + bex*aey
	bc := bex*cey + cex*bey
	cd := cex*dey + dex*cey
	da := dex*aey + aex*dey
	ac := aex*cey + cex*aey
	bd := bex*dey + dex*bey

	abc := aez*bc + bez*ac + cez*ab
	bcd := bez*cd + cez*bd + dez*bc
	cda := cez*da + dez*ac + aez*cd
	dab := dez*ab + aez*bd + bez*da

	alift := aex*aex + aey*aey + aez*aez
	blift := bex*bex + bey*bey + bez*bez
	clift := cex*cex + cey*cey + cez*cez
	dlift := dex*dex + dey*dey + dez*dez

	return dlift*abc + clift*dab + blift*cda + alift*bcd
}

// insphereRobust decides which side of the circumsphere of (a,b,c,d)
// the point p falls on, never returning an unreliable near-zero: when
// the fast determinant is within its roundoff bound the five points are
// treated as exactly cospherical and the tie is broken symbolically.
// The ia..ip arguments are the global indices of the five points; ties
// resolve identically for the same five points in any role order, which
// keeps Bowyer-Watson cavities coherent on degenerate input.
func insphereRobust(a, b, c, d, p r3.Vec, ia, ib, ic, id, ip int) float64 {
	det := insphere(a, b, c, d, p)
	errbound := insErrBound * inspherePermanent(a, b, c, d, p)
	if det > errbound || det < -errbound {
		return det
	}
	return insphereSymbolic(a, b, c, d, p, ia, ib, ic, id, ip)
}

// insphereSymbolic breaks a cospherical tie by perturbing each point's
// lifted coordinate upward by an amount that decreases rapidly with its
// global index. The perturbed determinant is dominated by the
// lowest-index point whose lift cofactor is nonzero; the cofactors are
// the signed orient3d minors of the lift column.
func insphereSymbolic(a, b, c, d, p r3.Vec, ia, ib, ic, id, ip int) float64 {
	idx := [5]int{ia, ib, ic, id, ip}
	cof := [5]float64{
		-orient3d(b, c, d, p),
		orient3d(a, c, d, p),
		-orient3d(a, b, d, p),
		orient3d(a, b, c, p),
		-orient3d(a, b, c, d),
	}
	for i := 1; i < 5; i++ {
		for j := i; j > 0 && idx[j] < idx[j-1]; j-- {
			idx[j], idx[j-1] = idx[j-1], idx[j]
			cof[j], cof[j-1] = cof[j-1], cof[j]
		}
	}
	for i := 0; i < 5; i++ {
		if cof[i] != 0 {
			return cof[i]
		}
	}
	return 0
}
